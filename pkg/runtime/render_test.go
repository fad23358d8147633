package runtime

import (
	"fmt"
	"strings"
	"testing"

	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/reactive"
	"github.com/veil-ui/veil/pkg/reconcile"
)

func counterComponent() (*Component, *reactive.Signal[int]) {
	count := reactive.NewSignal(0)
	comp := &Component{
		Name: "counter",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{
				"count": count,
				"increment": func() {
					count.Update(func(v int) int { return v + 1 })
				},
			}, nil
		},
		Template: Static(`<button @click="increment">clicks: {{ count }}</button>`),
	}
	return comp, count
}

func TestRenderBatching(t *testing.T) {
	rec := reconcile.NewCountingRecorder()
	app := newTestApp(t, WithPatchRecorder(rec))
	comp, count := counterComponent()
	mustRegister(t, app, comp)

	container := dom.NewElement("div")
	inst, err := app.Mount(container, "counter", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	// Three synchronous writes collapse into one additional render pass
	// touching the text node exactly once.
	rec.Reset()
	app.Batch(func() {
		count.Set(1)
		count.Set(2)
		count.Set(3)
	})
	app.Flush()

	if got := inst.RenderCount(); got != 2 {
		t.Errorf("expected 2 render passes, got %d", got)
	}
	if got := container.TextContent(); got != "clicks: 3" {
		t.Errorf("expected final value rendered, got %q", got)
	}
	s := rec.Stats()
	if s.TextWrites != 1 {
		t.Errorf("expected exactly 1 text write, got %d", s.TextWrites)
	}
	if s.Inserts != 0 || s.Removes != 0 {
		t.Errorf("expected in-place update, got %+v", s)
	}
}

func TestEventDispatchEndToEnd(t *testing.T) {
	app := newTestApp(t)
	comp, _ := counterComponent()
	mustRegister(t, app, comp)

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "counter", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	button := container.Children()[0]

	// The binder stripped the binding attribute from the live tree.
	if button.HasAttr("@click") {
		t.Error("expected @click stripped after binding")
	}

	app.Dispatch(button, "click", nil)
	app.Flush()
	app.Dispatch(button, "click", nil)
	app.Flush()

	if got := container.TextContent(); got != "clicks: 2" {
		t.Errorf("expected two increments rendered, got %q", got)
	}
	// The button survived both re-renders.
	if container.Children()[0] != button {
		t.Error("expected button identity preserved across renders")
	}
}

func TestHandlerEmitsOnBus(t *testing.T) {
	app := newTestApp(t)
	var fired []string
	app.Bus().On("saved", func(args ...any) {
		for _, a := range args {
			fired = append(fired, fmt.Sprint(a))
		}
	})
	mustRegister(t, app, &Component{
		Name: "form",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{
				"save": func() { ctx.Emit("saved", "ok") },
			}, nil
		},
		Template: Static(`<button @click="save">save</button>`),
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "form", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	app.Dispatch(container.Children()[0], "click", nil)
	app.Flush()

	if len(fired) != 1 || fired[0] != "ok" {
		t.Errorf("expected bus emission from handler, got %v", fired)
	}
}

func TestInterpolationEscapes(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{
		Name: "greet",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"name": "<b>bold</b>"}, nil
		},
		Template: Static(`<p>hi {{ name }}</p>`),
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "greet", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	p := container.Children()[0]
	if len(p.Children()) != 1 || !p.Children()[0].IsText() {
		t.Fatalf("expected interpolated markup to stay text, got %s", p.OuterHTML())
	}
	if got := p.TextContent(); got != "hi <b>bold</b>" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestComputedTemplateError(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{
		Name: "broken",
		Template: Computed(func(ctx *Context) (string, error) {
			return "", fmt.Errorf("render exploded")
		}),
	})

	if _, err := app.Mount(dom.NewElement("div"), "broken", nil); err == nil {
		t.Error("expected template error to propagate from Mount")
	}
}

func TestChildMountAndProps(t *testing.T) {
	app := newTestApp(t)
	child := &Component{
		Name:     "label",
		Template: Static(`<span>{{ text }}</span>`),
	}
	msg := reactive.NewSignal("hi")
	mustRegister(t, app, &Component{
		Name: "parent",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"msg": msg}, nil
		},
		Template: Static(`<div class="slot" :text="msg"></div>`),
		Children: map[string]*Component{"div.slot": child},
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "parent", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	host := container.Children()[0]
	if host.HasAttr(":text") {
		t.Error("expected prop attribute stripped from host")
	}
	if got := host.TextContent(); got != "hi" {
		t.Errorf("expected child rendered with prop, got %q", got)
	}

	// A cell passed as a prop keeps the child live.
	msg.Set("yo")
	app.Flush()
	if got := host.TextContent(); got != "yo" {
		t.Errorf("expected child re-rendered on prop cell write, got %q", got)
	}
}

func TestOrphanedChildTeardown(t *testing.T) {
	app := newTestApp(t)
	unmounts := 0
	child := &Component{
		Name:     "panel",
		Template: Static(`<p>panel</p>`),
		OnUnmount: func(ctx *Context, owned *Owned) error {
			unmounts++
			return nil
		},
	}
	show := reactive.NewSignal(true)
	mustRegister(t, app, &Component{
		Name: "parent",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"show": show}, nil
		},
		Template: Computed(func(ctx *Context) (string, error) {
			if show.Get() {
				return `<div class="panel-host"></div><p>footer</p>`, nil
			}
			return `<p>footer</p>`, nil
		}),
		Children: map[string]*Component{"div.panel-host": child},
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "parent", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if got := container.TextContent(); !strings.Contains(got, "panel") {
		t.Fatalf("expected child mounted, got %q", got)
	}

	show.Set(false)
	app.Flush()

	if unmounts != 1 {
		t.Errorf("expected exactly one child teardown, got %d", unmounts)
	}
	if strings.Contains(container.TextContent(), "panel") {
		t.Errorf("expected child host removed, got %q", container.TextContent())
	}

	// Re-showing mounts a fresh child; the survivor path never re-runs
	// teardown.
	show.Set(true)
	app.Flush()
	show.Set(true)
	app.Flush()
	if unmounts != 1 {
		t.Errorf("expected no extra teardowns for surviving child, got %d", unmounts)
	}
}

func TestBeforeUpdateStateVisibleToPass(t *testing.T) {
	app := newTestApp(t)
	tick := reactive.NewSignal(0)
	mustRegister(t, app, &Component{
		Name: "badge",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"tick": tick, "label": "init"}, nil
		},
		OnBeforeUpdate: func(ctx *Context) error {
			ctx.Set("label", "updated")
			return nil
		},
		Template: Static(`<p>{{ label }}</p>`),
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "badge", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	// The update hook does not run on first mount.
	if got := container.TextContent(); got != "init" {
		t.Fatalf("unexpected initial render %q", got)
	}

	tick.Set(1)
	app.Flush()

	// The hook runs before the template resolves, so its write is part of
	// the same pass.
	if got := container.TextContent(); got != "updated" {
		t.Errorf("expected before-update state rendered, got %q", got)
	}
}

func TestStaleListenerOffsPruned(t *testing.T) {
	app := newTestApp(t)
	var seen *Owned
	show := reactive.NewSignal(true)
	mustRegister(t, app, &Component{
		Name: "toggler",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"show": show, "go": func() {}}, nil
		},
		Template: Computed(func(ctx *Context) (string, error) {
			if show.Get() {
				return `<button @click="go">on</button>`, nil
			}
			return `<p>off</p>`, nil
		}),
		OnUnmount: func(ctx *Context, owned *Owned) error {
			seen = owned
			return nil
		},
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "toggler", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	// Each off cycle removes the bound button; each on cycle binds a fresh
	// one. Offs for removed buttons must not accumulate.
	for range 2 {
		show.Set(false)
		app.Flush()
		show.Set(true)
		app.Flush()
	}

	if err := app.Unmount(container); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}
	if seen == nil {
		t.Fatal("unmount hook not called")
	}
	if seen.Listeners != 1 {
		t.Errorf("expected only the live button's listener retained, got %d", seen.Listeners)
	}
}

func TestStyleInjectionAndPreservation(t *testing.T) {
	app := newTestApp(t)
	comp, count := counterComponent()
	comp.Style = Static(`button { color: red }`)
	mustRegister(t, app, comp)

	container := dom.NewElement("div")
	inst, err := app.Mount(container, "counter", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	findStyles := func() []*dom.Node {
		var styles []*dom.Node
		for _, kid := range container.Children() {
			if kid.IsElement() && kid.Tag == "style" {
				styles = append(styles, kid)
			}
		}
		return styles
	}

	styles := findStyles()
	if len(styles) != 1 {
		t.Fatalf("expected one injected style element, got %d", len(styles))
	}
	style := styles[0]
	if v, _ := style.Attr(DefaultStyleMarker); v != inst.ID() {
		t.Errorf("expected style tagged with instance id, got %q", v)
	}

	count.Set(5)
	app.Flush()
	count.Set(6)
	app.Flush()

	after := findStyles()
	if len(after) != 1 || after[0] != style {
		t.Error("expected the same style element to survive re-renders")
	}
	if style.TextContent() != `button { color: red }` {
		t.Errorf("style content changed: %q", style.TextContent())
	}

	// Teardown removes the sheet with everything else.
	if err := inst.Unmount(); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}
	if container.HasChildren() {
		t.Error("expected style removed on unmount")
	}
}

func TestOnRenderObserver(t *testing.T) {
	app := newTestApp(t)
	comp, count := counterComponent()
	mustRegister(t, app, comp)

	renders := 0
	off := app.OnRender(func(inst *Instance) { renders++ })

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "counter", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	count.Set(1)
	app.Flush()

	if renders != 2 {
		t.Errorf("expected 2 observed renders, got %d", renders)
	}

	off()
	count.Set(2)
	app.Flush()
	if renders != 2 {
		t.Errorf("expected observer removed, got %d", renders)
	}
}

func TestSchedulerErrorHandler(t *testing.T) {
	var failures []error
	app := newTestApp(t, WithErrorHandler(func(inst *Instance, err error) {
		failures = append(failures, err)
	}))

	fail := reactive.NewSignal(false)
	mustRegister(t, app, &Component{
		Name: "flaky",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"fail": fail}, nil
		},
		Template: Computed(func(ctx *Context) (string, error) {
			if fail.Get() {
				return "", fmt.Errorf("boom")
			}
			return `<p>ok</p>`, nil
		}),
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "flaky", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	fail.Set(true)
	app.Flush()

	if len(failures) != 1 {
		t.Fatalf("expected 1 reported failure, got %d", len(failures))
	}
	// The previous rendered state is kept.
	if got := container.TextContent(); got != "ok" {
		t.Errorf("expected prior content preserved, got %q", got)
	}
}
