package runtime

import (
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/veil-ui/veil/pkg/bus"
	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/expr"
	"github.com/veil-ui/veil/pkg/reconcile"
)

// Reserved attribute conventions.
const (
	DefaultEventPrefix = "@"
	DefaultPropPrefix  = ":"
	DefaultKeyAttr     = "key"
	DefaultStyleMarker = "data-veil-style"
)

// UnmountPolicy decides what happens when an unmount hook fails.
type UnmountPolicy int

const (
	// UnmountAbortOnHookError returns the hook error without running
	// cleanup. The instance stays mounted; resource cleanup is not
	// guaranteed.
	UnmountAbortOnHookError UnmountPolicy = iota

	// UnmountContinueOnHookError runs cleanup anyway and joins the hook
	// error into the result.
	UnmountContinueOnHookError
)

// App owns a component registry, the shared collaborators, and the loop
// goroutine that serializes all lifecycle work. Public entry points may be
// called from any goroutine, hooks and event handlers included.
type App struct {
	sched   *scheduler
	bus     *bus.Emitter
	eval    *expr.Evaluator
	patcher *reconcile.Patcher

	// mounts is the side table mapping an occupied container or child host
	// to its instance. Loop goroutine only.
	mounts map[*dom.Node]*Instance

	mu       sync.Mutex
	registry map[string]*Component
	plugins  map[string]bool

	eventPrefix   string
	propPrefix    string
	keyAttr       string
	styleMarker   string
	unmountPolicy UnmountPolicy

	metrics  *Metrics
	tracer   trace.Tracer
	patchRec reconcile.Recorder

	obsMu     sync.Mutex
	renderObs map[uint64]func(*Instance)
	obsNext   uint64

	errorHandler func(*Instance, error)
}

// AppOption configures an App.
type AppOption func(*App)

// WithBus sets the shared event emitter.
func WithBus(b *bus.Emitter) AppOption {
	return func(a *App) { a.bus = b }
}

// WithEvaluator sets the shared expression evaluator.
func WithEvaluator(e *expr.Evaluator) AppOption {
	return func(a *App) { a.eval = e }
}

// WithAppMetrics attaches Prometheus metrics to the App.
func WithAppMetrics(m *Metrics) AppOption {
	return func(a *App) { a.metrics = m }
}

// WithPatchRecorder attaches a mutation recorder to the App's patcher, in
// addition to any metrics-backed recording.
func WithPatchRecorder(r reconcile.Recorder) AppOption {
	return func(a *App) { a.patchRec = r }
}

// WithTracer sets the tracer used for render pass spans.
func WithTracer(t trace.Tracer) AppOption {
	return func(a *App) { a.tracer = t }
}

// WithTracing enables render tracing on the global tracer provider.
func WithTracing() AppOption {
	return func(a *App) { a.tracer = defaultTracer() }
}

// WithUnmountPolicy sets the unmount hook failure policy.
func WithUnmountPolicy(p UnmountPolicy) AppOption {
	return func(a *App) { a.unmountPolicy = p }
}

// WithErrorHandler sets the handler for render errors that have no caller
// to return to (scheduler-triggered passes).
func WithErrorHandler(fn func(*Instance, error)) AppOption {
	return func(a *App) { a.errorHandler = fn }
}

// WithEventPrefix rebinds the event-binding attribute prefix.
func WithEventPrefix(prefix string) AppOption {
	return func(a *App) { a.eventPrefix = prefix }
}

// WithPropPrefix rebinds the child prop attribute prefix.
func WithPropPrefix(prefix string) AppOption {
	return func(a *App) { a.propPrefix = prefix }
}

// WithKeyAttr rebinds the reconciliation key attribute.
func WithKeyAttr(name string) AppOption {
	return func(a *App) { a.keyAttr = name }
}

// WithStyleMarker rebinds the injected-style marker attribute.
func WithStyleMarker(name string) AppOption {
	return func(a *App) { a.styleMarker = name }
}

// NewApp creates an App and starts its loop goroutine.
func NewApp(opts ...AppOption) *App {
	a := &App{
		mounts:        make(map[*dom.Node]*Instance),
		registry:      make(map[string]*Component),
		plugins:       make(map[string]bool),
		renderObs:     make(map[uint64]func(*Instance)),
		eventPrefix:   DefaultEventPrefix,
		propPrefix:    DefaultPropPrefix,
		keyAttr:       DefaultKeyAttr,
		styleMarker:   DefaultStyleMarker,
		unmountPolicy: UnmountAbortOnHookError,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bus == nil {
		a.bus = bus.NewEmitter()
	}
	if a.eval == nil {
		a.eval = expr.Default()
	}

	patcherOpts := []reconcile.Option{
		reconcile.WithKeyAttr(a.keyAttr),
		reconcile.WithEventPrefix(a.eventPrefix),
		reconcile.WithStyleMarker(a.styleMarker),
		reconcile.WithOpaqueCheck(a.isOpaque),
	}
	var recs []reconcile.Recorder
	if a.metrics != nil {
		recs = append(recs, a.metrics.Recorder())
	}
	if a.patchRec != nil {
		recs = append(recs, a.patchRec)
	}
	switch len(recs) {
	case 1:
		patcherOpts = append(patcherOpts, reconcile.WithRecorder(recs[0]))
	case 2:
		patcherOpts = append(patcherOpts, reconcile.WithRecorder(reconcile.MultiRecorder(recs...)))
	}
	a.patcher = reconcile.New(patcherOpts...)

	a.sched = newScheduler()
	return a
}

// isOpaque reports whether a node hosts a mounted instance. Loop goroutine
// only (called during patching).
func (a *App) isOpaque(n *dom.Node) bool {
	_, ok := a.mounts[n]
	return ok
}

// Bus returns the shared event emitter.
func (a *App) Bus() *bus.Emitter { return a.bus }

// Evaluator returns the shared expression evaluator.
func (a *App) Evaluator() *expr.Evaluator { return a.eval }

// RegisterComponent adds a component to the registry. Names are unique.
func (a *App) RegisterComponent(c *Component) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("veil: component must have a name")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.registry[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrComponentRegistered, c.Name)
	}
	a.registry[c.Name] = c
	return nil
}

// Component returns a registered component by name.
func (a *App) Component(name string) (*Component, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.registry[name]
	return c, ok
}

// Use installs a plugin. Each plugin name installs at most once.
func (a *App) Use(p Plugin) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("veil: plugin must have a name")
	}
	a.mu.Lock()
	if a.plugins[p.Name()] {
		a.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPluginInstalled, p.Name())
	}
	a.plugins[p.Name()] = true
	a.mu.Unlock()

	if err := p.Install(a); err != nil {
		return fmt.Errorf("veil: plugin %q install: %w", p.Name(), err)
	}
	return nil
}

// Mount instantiates a registered component into container and renders it.
// Mounting an occupied container returns the existing instance without
// re-running setup. Configuration mistakes come back as sentinel errors.
func (a *App) Mount(container *dom.Node, name string, props map[string]any) (*Instance, error) {
	var inst *Instance
	var err error
	if derr := a.sched.do(func() {
		if container == nil {
			err = ErrNilContainer
			return
		}
		comp, ok := a.Component(name)
		if !ok {
			err = fmt.Errorf("%w: %q", ErrComponentNotFound, name)
			return
		}
		inst, err = a.mountInstance(container, comp, props, nil)
	}); derr != nil {
		return nil, derr
	}
	return inst, err
}

// mountInstance is the loop-side mount shared by Mount and child
// reconciliation.
func (a *App) mountInstance(host *dom.Node, comp *Component, props map[string]any, parent *Instance) (*Instance, error) {
	if host == nil {
		return nil, ErrNilContainer
	}
	if comp.Template.IsZero() {
		return nil, fmt.Errorf("%w: %q", ErrMissingTemplate, comp.Name)
	}
	if existing, ok := a.mounts[host]; ok {
		debugf("mount %s: container already occupied by %s", comp.Name, existing.comp.Name)
		return existing, nil
	}

	inst := newInstance(a, comp, host, props, parent)
	// Registered before the first render so nested reconciliation treats
	// the host as opaque from here on.
	a.mounts[host] = inst

	if err := inst.setup(); err != nil {
		delete(a.mounts, host)
		return nil, err
	}
	if err := inst.renderPass(true); err != nil {
		for _, off := range inst.watcherOffs {
			off()
		}
		inst.unmounted = true
		delete(a.mounts, host)
		return nil, err
	}
	return inst, nil
}

// Unmount tears down the instance mounted in container.
func (a *App) Unmount(container *dom.Node) error {
	var err error
	if derr := a.sched.do(func() {
		inst, ok := a.mounts[container]
		if !ok {
			err = ErrNotMounted
			return
		}
		err = inst.unmount()
	}); derr != nil {
		return derr
	}
	return err
}

// MountedInstance returns the instance occupying container, if any.
func (a *App) MountedInstance(container *dom.Node) (*Instance, bool) {
	var inst *Instance
	a.sched.do(func() { inst = a.mounts[container] })
	return inst, inst != nil
}

// Batch runs fn on the loop. Cell writes inside fn collapse into a single
// queued render pass per affected instance.
func (a *App) Batch(fn func()) {
	a.sched.do(fn)
}

// Flush waits until every job queued before the call has run, render
// passes included.
func (a *App) Flush() {
	a.sched.do(func() {})
}

// Dispatch routes a DOM event through the loop, so handler-triggered cell
// writes batch exactly like Batch.
func (a *App) Dispatch(el *dom.Node, event string, data any) {
	a.sched.do(func() { el.Dispatch(event, data) })
}

// OnRender registers an observer called after each committed render pass.
// Returns an unsubscribe.
func (a *App) OnRender(fn func(*Instance)) func() {
	a.obsMu.Lock()
	a.obsNext++
	id := a.obsNext
	a.renderObs[id] = fn
	a.obsMu.Unlock()
	return func() {
		a.obsMu.Lock()
		delete(a.renderObs, id)
		a.obsMu.Unlock()
	}
}

func (a *App) notifyRender(inst *Instance) {
	a.obsMu.Lock()
	obs := make([]func(*Instance), 0, len(a.renderObs))
	for _, fn := range a.renderObs {
		obs = append(obs, fn)
	}
	a.obsMu.Unlock()
	for _, fn := range obs {
		fn(inst)
	}
}

func (a *App) handleError(inst *Instance, err error) {
	if a.errorHandler != nil {
		a.errorHandler(inst, err)
		return
	}
	debugf("render %s: %v", inst.comp.Name, err)
}

// Close unmounts every root instance and stops the loop. Entry points on a
// closed App return ErrAppClosed.
func (a *App) Close() error {
	var errs []error
	if derr := a.sched.do(func() {
		roots := make([]*Instance, 0, len(a.mounts))
		for _, inst := range a.mounts {
			if inst.parent == nil {
				roots = append(roots, inst)
			}
		}
		for _, inst := range roots {
			if err := inst.unmount(); err != nil {
				errs = append(errs, err)
			}
		}
	}); derr != nil {
		return derr
	}
	a.sched.close()
	if len(errs) > 0 {
		return fmt.Errorf("veil: close: %w", errors.Join(errs...))
	}
	return nil
}
