package runtime

import (
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"

	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/reactive"
)

// Instance is one mounted occurrence of a Component inside a container
// element. All of its state is owned by the App's loop goroutine; the only
// cross-goroutine field is the render-queued flag.
type Instance struct {
	id        string
	app       *App
	comp      *Component
	container *dom.Node
	ctx       *Context
	parent    *Instance

	// children maps a host element to the child instance mounted in it.
	children map[*dom.Node]*Instance

	watcherOffs []func() bool

	// listenerOffs keys bound-event unsubscribes by their element, so offs
	// for nodes the reconciler later removes can be pruned instead of
	// piling up until unmount.
	listenerOffs map[*dom.Node][]func()

	lastCSS string

	mounted   bool
	unmounted bool
	queued    atomic.Bool
	renders   atomic.Uint64
}

func newInstance(app *App, comp *Component, container *dom.Node, props map[string]any, parent *Instance) *Instance {
	inst := &Instance{
		id:        uuid.NewString(),
		app:       app,
		comp:      comp,
		container: container,
		parent:    parent,
		children:  make(map[*dom.Node]*Instance),

		listenerOffs: make(map[*dom.Node][]func()),
	}
	inst.ctx = &Context{app: app, instance: inst, props: props}
	return inst
}

// ID returns the instance identifier, unique per mount.
func (i *Instance) ID() string { return i.id }

// ComponentName returns the name of the mounted component.
func (i *Instance) ComponentName() string { return i.comp.Name }

// Container returns the element the instance renders into.
func (i *Instance) Container() *dom.Node { return i.container }

// RenderCount returns the number of committed render passes.
func (i *Instance) RenderCount() uint64 { return i.renders.Load() }

// Mounted reports whether the instance committed its first render and has
// not been torn down. Loop-owned state; read it through App.Batch when
// racing against renders matters.
func (i *Instance) Mounted() bool { return i.mounted && !i.unmounted }

// Context returns the instance's merged context.
func (i *Instance) Context() *Context { return i.ctx }

// Unmount tears the instance down: unmount hook, then release of every
// owned watcher and listener, recursive child teardown with per-child
// error isolation, and finally clearing the container. The container
// becomes mountable again.
func (i *Instance) Unmount() error {
	var err error
	if derr := i.app.sched.do(func() { err = i.unmount() }); derr != nil {
		return derr
	}
	return err
}

// setup runs the component's Setup and subscribes to every reactive cell
// found in the resulting environment, props included.
func (i *Instance) setup() error {
	if i.comp.Setup != nil {
		data, err := i.comp.Setup(i.ctx)
		if err != nil {
			return fmt.Errorf("veil: setup %q: %w", i.comp.Name, err)
		}
		// Merged, not assigned: Setup may also have written through
		// ctx.Set, and those entries survive.
		for k, v := range data {
			i.ctx.Set(k, v)
		}
	}
	i.watchSources()
	return nil
}

func (i *Instance) watchSources() {
	watch := func(v any) {
		if src, ok := v.(reactive.Source); ok {
			i.watcherOffs = append(i.watcherOffs, src.OnChange(i.schedule))
		}
	}
	for _, v := range i.ctx.props {
		watch(v)
	}
	for _, v := range i.ctx.data {
		watch(v)
	}
}

// schedule queues one render pass for the instance. Any number of calls
// before the pass body starts collapse into that single pass; a call during
// the pass queues exactly one follow-up.
func (i *Instance) schedule() {
	if !i.queued.CompareAndSwap(false, true) {
		return
	}
	i.app.sched.post(func() {
		if i.unmounted {
			i.queued.Store(false)
			return
		}
		if err := i.renderPass(false); err != nil {
			i.app.handleError(i, err)
		}
	})
}

// renderPass runs one full pass and records its outcome. Loop goroutine
// only.
func (i *Instance) renderPass(first bool) error {
	// Cleared before the body runs, so a cell write from inside the pass
	// queues a follow-up instead of being lost.
	i.queued.Store(false)

	endSpan := i.app.startRenderSpan(i, first)
	start := time.Now()
	err := i.renderBody(first)
	elapsed := time.Since(start)
	i.app.metrics.recordRender(i.comp.Name, elapsed.Seconds(), err)
	endSpan(err)

	if err != nil {
		capitan.Emit(context.Background(), RenderFailed,
			KeyComponent.Field(i.comp.Name),
			KeyInstance.Field(i.id),
			KeyError.Field(err.Error()),
		)
		return err
	}

	i.renders.Add(1)
	capitan.Emit(context.Background(), RenderApplied,
		KeyComponent.Field(i.comp.Name),
		KeyInstance.Field(i.id),
		KeyRenderCount.Field(int(i.renders.Load())),
		KeyDuration.Field(elapsed),
	)
	if first {
		i.mounted = true
		i.app.metrics.recordMount(i.comp.Name)
		capitan.Emit(context.Background(), InstanceMounted,
			KeyComponent.Field(i.comp.Name),
			KeyInstance.Field(i.id),
		)
	}
	i.app.notifyRender(i)
	return nil
}

func (i *Instance) renderBody(first bool) error {
	// Update passes run the before hook first, so state it writes is
	// visible to this pass's template. The first mount resolves the
	// template before OnBeforeMount.
	if !first && i.comp.OnBeforeUpdate != nil {
		if err := i.comp.OnBeforeUpdate(i.ctx); err != nil {
			return fmt.Errorf("veil: before hook %q: %w", i.comp.Name, err)
		}
	}

	markup, err := i.comp.Template.Resolve(i.ctx)
	if err != nil {
		return fmt.Errorf("veil: template %q: %w", i.comp.Name, err)
	}
	markup = i.interpolate(markup)

	if first && i.comp.OnBeforeMount != nil {
		if err := i.comp.OnBeforeMount(i.ctx); err != nil {
			return fmt.Errorf("veil: before hook %q: %w", i.comp.Name, err)
		}
	}

	if err := i.app.patcher.Apply(i.container, markup); err != nil {
		return fmt.Errorf("veil: patch %q: %w", i.comp.Name, err)
	}

	childErr := i.reconcileChildren()

	i.bindEvents()

	if err := i.injectStyle(); err != nil {
		return errors.Join(err, childErr)
	}

	after := i.comp.OnUpdated
	if first {
		after = i.comp.OnMounted
	}
	if after != nil {
		if err := after(i.ctx); err != nil {
			return errors.Join(fmt.Errorf("veil: after hook %q: %w", i.comp.Name, err), childErr)
		}
	}
	return childErr
}

// interpolate expands {{ expression }} spans against the environment
// snapshot, HTML-escaping the results.
func (i *Instance) interpolate(src string) string {
	if !strings.Contains(src, "{{") {
		return src
	}
	env := i.ctx.Snapshot()
	var b strings.Builder
	for {
		open := strings.Index(src, "{{")
		if open < 0 {
			b.WriteString(src)
			break
		}
		end := strings.Index(src[open:], "}}")
		if end < 0 {
			b.WriteString(src)
			break
		}
		b.WriteString(src[:open])
		exprSrc := strings.TrimSpace(src[open+2 : open+end])
		b.WriteString(stdhtml.EscapeString(i.app.eval.EvalString(exprSrc, env)))
		src = src[open+end+2:]
	}
	return b.String()
}

// reconcileChildren tears down instances whose host element left the tree,
// then mounts declared children into every newly matching element. Orphan
// teardown failures are isolated per child and joined; they never stop the
// remaining work.
func (i *Instance) reconcileChildren() error {
	var errs []error

	for host, child := range i.children {
		if i.container.Contains(host) {
			continue
		}
		if err := child.unmount(); err != nil {
			errs = append(errs, err)
		}
		capitan.Emit(context.Background(), ChildOrphaned,
			KeyComponent.Field(child.comp.Name),
			KeyInstance.Field(child.id),
		)
		delete(i.children, host)
	}

	if len(i.comp.Children) == 0 {
		return errors.Join(errs...)
	}

	selectors := make([]string, 0, len(i.comp.Children))
	for sel := range i.comp.Children {
		selectors = append(selectors, sel)
	}
	sort.Strings(selectors)

	for _, sel := range selectors {
		comp := i.comp.Children[sel]
		for _, host := range dom.QuerySelectorAll(i.container, sel) {
			if _, ok := i.app.mounts[host]; ok {
				continue
			}
			child, err := i.app.mountInstance(host, comp, i.extractProps(host), i)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			i.children[host] = child
		}
	}
	return errors.Join(errs...)
}

// extractProps pulls the :-prefixed attributes off a child host, resolves
// each value, and strips the attribute. A value naming an entry of the
// parent environment passes that entry through as-is, reactive cells
// included; anything else is evaluated as an expression.
func (i *Instance) extractProps(host *dom.Node) map[string]any {
	props := make(map[string]any)
	for _, a := range host.Attrs() {
		if !strings.HasPrefix(a.Key, i.app.propPrefix) {
			continue
		}
		name := strings.TrimPrefix(a.Key, i.app.propPrefix)
		ref := strings.TrimSpace(a.Value)
		if v, ok := i.ctx.Get(ref); ok {
			props[name] = v
		} else {
			props[name] = i.app.eval.Eval(a.Value, i.ctx.Snapshot())
		}
		host.RemoveAttr(a.Key)
	}
	return props
}

// bindEvents attaches listeners for every event-prefixed attribute still
// present after the patch, strips the attribute, and records the
// unsubscribe. Surviving nodes never carry these attributes (the patcher
// does not sync them), so only freshly inserted elements are bound.
func (i *Instance) bindEvents() {
	for node, offs := range i.listenerOffs {
		if i.container.Contains(node) {
			continue
		}
		for _, off := range offs {
			off()
		}
		delete(i.listenerOffs, node)
	}
	i.bindSubtree(i.container)
}

func (i *Instance) bindSubtree(n *dom.Node) {
	if n != i.container {
		// A mounted child owns everything below its host.
		if _, ok := i.app.mounts[n]; ok {
			return
		}
	}
	if n.IsElement() {
		for _, a := range n.Attrs() {
			if !strings.HasPrefix(a.Key, i.app.eventPrefix) {
				continue
			}
			event := strings.TrimPrefix(a.Key, i.app.eventPrefix)
			off := n.On(event, i.makeHandler(a.Value))
			i.listenerOffs[n] = append(i.listenerOffs[n], off)
			n.RemoveAttr(a.Key)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i.bindSubtree(c)
	}
}

func (i *Instance) listenerCount() int {
	n := 0
	for _, offs := range i.listenerOffs {
		n += len(offs)
	}
	return n
}

// makeHandler resolves an event-binding value: a context entry holding a
// function is invoked directly; anything else is evaluated as an expression
// with the event available as "event". Evaluation failures are silent.
func (i *Instance) makeHandler(value string) dom.Handler {
	ref := strings.TrimSpace(value)
	return func(e *dom.Event) {
		if v, ok := i.ctx.Get(ref); ok {
			switch fn := v.(type) {
			case func():
				fn()
				return
			case func(*dom.Event):
				fn(e)
				return
			case func(*Context, *dom.Event):
				fn(i.ctx, e)
				return
			case dom.Handler:
				fn(e)
				return
			}
		}
		env := i.ctx.Snapshot()
		env["event"] = e
		i.app.eval.Eval(value, env)
	}
}

// injectStyle appends the instance-tagged style element on first need and
// rewrites its content only when the resolved CSS changed.
func (i *Instance) injectStyle() error {
	if i.comp.Style.IsZero() {
		return nil
	}
	css, err := i.comp.Style.Resolve(i.ctx)
	if err != nil {
		return fmt.Errorf("veil: style %q: %w", i.comp.Name, err)
	}

	var styleEl *dom.Node
	for _, kid := range i.container.Children() {
		if kid.IsElement() && kid.Tag == "style" {
			if v, _ := kid.Attr(i.app.styleMarker); v == i.id {
				styleEl = kid
				break
			}
		}
	}
	if styleEl == nil {
		styleEl = dom.NewElement("style")
		styleEl.SetAttr(i.app.styleMarker, i.id)
		i.container.AppendChild(styleEl)
		i.lastCSS = ""
	}
	if css != i.lastCSS || !styleEl.HasChildren() {
		styleEl.RemoveAll()
		styleEl.AppendChild(dom.NewText(css))
		i.lastCSS = css
	}
	return nil
}

// unmount is the loop-side teardown. The hook sees what the instance still
// owns; under the default policy a hook error aborts before any cleanup,
// matching the documented no-guarantee semantics.
func (i *Instance) unmount() error {
	if i.unmounted {
		return ErrNotMounted
	}

	owned := &Owned{
		Watchers:  len(i.watcherOffs),
		Listeners: i.listenerCount(),
	}
	for _, child := range i.children {
		owned.Children = append(owned.Children, child)
	}

	var hookErr error
	if i.comp.OnUnmount != nil {
		if err := i.comp.OnUnmount(i.ctx, owned); err != nil {
			hookErr = fmt.Errorf("veil: unmount hook %q: %w", i.comp.Name, err)
			if i.app.unmountPolicy == UnmountAbortOnHookError {
				debugf("unmount %s aborted by hook error: %v", i.comp.Name, err)
				return hookErr
			}
		}
	}

	for _, off := range i.watcherOffs {
		off()
	}
	i.watcherOffs = nil
	for _, offs := range i.listenerOffs {
		for _, off := range offs {
			off()
		}
	}
	i.listenerOffs = nil

	var childErrs []error
	for host, child := range i.children {
		if err := child.unmount(); err != nil {
			childErrs = append(childErrs, err)
		}
		delete(i.children, host)
	}

	i.container.RemoveAll()
	delete(i.app.mounts, i.container)
	i.unmounted = true
	i.mounted = false

	i.app.metrics.recordUnmount(i.comp.Name)
	capitan.Emit(context.Background(), InstanceUnmounted,
		KeyComponent.Field(i.comp.Name),
		KeyInstance.Field(i.id),
	)

	if hookErr != nil {
		childErrs = append([]error{hookErr}, childErrs...)
	}
	return errors.Join(childErrs...)
}
