package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/reactive"
)

func newTestApp(t *testing.T, opts ...AppOption) *App {
	t.Helper()
	app := NewApp(opts...)
	t.Cleanup(func() { app.Close() })
	return app
}

func mustRegister(t *testing.T, app *App, c *Component) {
	t.Helper()
	if err := app.RegisterComponent(c); err != nil {
		t.Fatalf("register %q: %v", c.Name, err)
	}
}

func TestMountBasic(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{
		Name:     "hello",
		Template: Static(`<h1>hello</h1>`),
	})

	container := dom.NewElement("div")
	inst, err := app.Mount(container, "hello", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if inst.RenderCount() != 1 {
		t.Errorf("expected 1 render, got %d", inst.RenderCount())
	}
	if got := container.TextContent(); got != "hello" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestMountConfigurationErrors(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{Name: "empty"})

	if _, err := app.Mount(nil, "hello", nil); !errors.Is(err, ErrNilContainer) {
		t.Errorf("expected ErrNilContainer, got %v", err)
	}
	if _, err := app.Mount(dom.NewElement("div"), "nope", nil); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("expected ErrComponentNotFound, got %v", err)
	}
	if _, err := app.Mount(dom.NewElement("div"), "empty", nil); !errors.Is(err, ErrMissingTemplate) {
		t.Errorf("expected ErrMissingTemplate, got %v", err)
	}
}

func TestMountIdempotent(t *testing.T) {
	app := newTestApp(t)
	setups := 0
	mustRegister(t, app, &Component{
		Name: "once",
		Setup: func(ctx *Context) (map[string]any, error) {
			setups++
			return nil, nil
		},
		Template: Static(`<p>once</p>`),
	})

	container := dom.NewElement("div")
	first, err := app.Mount(container, "once", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	second, err := app.Mount(container, "once", nil)
	if err != nil {
		t.Fatalf("second mount failed: %v", err)
	}
	if first != second {
		t.Error("expected the existing instance back")
	}
	if setups != 1 {
		t.Errorf("expected setup to run once, ran %d times", setups)
	}
}

func TestSetupContextSetMerged(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{
		Name: "mixed",
		Setup: func(ctx *Context) (map[string]any, error) {
			// Writes through the context and the returned map both land in
			// the instance environment.
			ctx.Set("label", "from-set")
			return map[string]any{"other": 41}, nil
		},
		Template: Static(`<p>{{ label }}:{{ other }}</p>`),
	})

	container := dom.NewElement("div")
	inst, err := app.Mount(container, "mixed", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if v, ok := inst.Context().Get("label"); !ok || v != "from-set" {
		t.Errorf("expected ctx.Set entry to survive setup, got %v (present=%v)", v, ok)
	}
	if got := container.TextContent(); got != "from-set:41" {
		t.Errorf("expected both environments rendered, got %q", got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	app := newTestApp(t)
	mustRegister(t, app, &Component{Name: "dup", Template: Static("<p></p>")})
	err := app.RegisterComponent(&Component{Name: "dup", Template: Static("<p></p>")})
	if !errors.Is(err, ErrComponentRegistered) {
		t.Errorf("expected ErrComponentRegistered, got %v", err)
	}
}

type testPlugin struct {
	name     string
	installs int
	fail     bool
}

func (p *testPlugin) Name() string { return p.name }
func (p *testPlugin) Install(app *App) error {
	p.installs++
	if p.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func TestPluginInstallOnce(t *testing.T) {
	app := newTestApp(t)
	p := &testPlugin{name: "router"}

	if err := app.Use(p); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := app.Use(p); !errors.Is(err, ErrPluginInstalled) {
		t.Errorf("expected ErrPluginInstalled, got %v", err)
	}
	if p.installs != 1 {
		t.Errorf("expected 1 install, got %d", p.installs)
	}
}

func TestHookFailureOnMount(t *testing.T) {
	app := newTestApp(t)
	hookErr := fmt.Errorf("db unavailable")
	mustRegister(t, app, &Component{
		Name:      "fragile",
		Template:  Static(`<p>x</p>`),
		OnMounted: func(ctx *Context) error { return hookErr },
	})

	container := dom.NewElement("div")
	_, err := app.Mount(container, "fragile", nil)
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
	// The failed mount released the container.
	if _, ok := app.MountedInstance(container); ok {
		t.Error("expected container released after failed mount")
	}
}

func TestUnmountClearsAndReleases(t *testing.T) {
	app := newTestApp(t)
	count := reactive.NewSignal(0)
	mustRegister(t, app, &Component{
		Name: "c",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{"count": count}, nil
		},
		Template: Static(`<p>{{ count }}</p>`),
	})

	container := dom.NewElement("div")
	inst, err := app.Mount(container, "c", nil)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if err := inst.Unmount(); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}
	if container.HasChildren() {
		t.Error("expected container cleared")
	}

	// The watcher was released: a later write must not render anywhere.
	count.Set(9)
	app.Flush()
	if container.HasChildren() {
		t.Error("expected no render after unmount")
	}

	// The container is mountable again.
	if _, err := app.Mount(container, "c", nil); err != nil {
		t.Errorf("remount failed: %v", err)
	}
}

func TestUnmountNotMounted(t *testing.T) {
	app := newTestApp(t)
	if err := app.Unmount(dom.NewElement("div")); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
}

func TestUnmountHookPolicies(t *testing.T) {
	hookErr := fmt.Errorf("refused")
	newComp := func() *Component {
		return &Component{
			Name:      "stubborn",
			Template:  Static(`<p>x</p>`),
			OnUnmount: func(ctx *Context, owned *Owned) error { return hookErr },
		}
	}

	t.Run("abort", func(t *testing.T) {
		app := newTestApp(t)
		mustRegister(t, app, newComp())
		container := dom.NewElement("div")
		if _, err := app.Mount(container, "stubborn", nil); err != nil {
			t.Fatalf("mount failed: %v", err)
		}
		if err := app.Unmount(container); !errors.Is(err, hookErr) {
			t.Fatalf("expected hook error, got %v", err)
		}
		// Default policy aborts before cleanup.
		if !container.HasChildren() {
			t.Error("expected container untouched under abort policy")
		}
		if _, ok := app.MountedInstance(container); !ok {
			t.Error("expected instance still registered under abort policy")
		}
	})

	t.Run("continue", func(t *testing.T) {
		app := newTestApp(t, WithUnmountPolicy(UnmountContinueOnHookError))
		mustRegister(t, app, newComp())
		container := dom.NewElement("div")
		if _, err := app.Mount(container, "stubborn", nil); err != nil {
			t.Fatalf("mount failed: %v", err)
		}
		err := app.Unmount(container)
		if !errors.Is(err, hookErr) {
			t.Fatalf("expected hook error joined into result, got %v", err)
		}
		if container.HasChildren() {
			t.Error("expected cleanup to run under continue policy")
		}
		if _, ok := app.MountedInstance(container); ok {
			t.Error("expected instance released under continue policy")
		}
	})
}

func TestOwnedPassedToUnmountHook(t *testing.T) {
	app := newTestApp(t)
	var seen *Owned
	mustRegister(t, app, &Component{
		Name: "owner",
		Setup: func(ctx *Context) (map[string]any, error) {
			return map[string]any{
				"a":  reactive.NewSignal(1),
				"b":  reactive.NewSignal(2),
				"go": func() {},
			}, nil
		},
		Template: Static(`<button @click="go">x</button>`),
		OnUnmount: func(ctx *Context, owned *Owned) error {
			seen = owned
			return nil
		},
	})

	container := dom.NewElement("div")
	if _, err := app.Mount(container, "owner", nil); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if err := app.Unmount(container); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}
	if seen == nil {
		t.Fatal("unmount hook not called")
	}
	if seen.Watchers != 2 {
		t.Errorf("expected 2 owned watchers, got %d", seen.Watchers)
	}
	if seen.Listeners != 1 {
		t.Errorf("expected 1 owned listener, got %d", seen.Listeners)
	}
}

func TestMountOnClosedApp(t *testing.T) {
	app := NewApp()
	mustRegister(t, app, &Component{Name: "c", Template: Static("<p></p>")})
	if err := app.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := app.Mount(dom.NewElement("div"), "c", nil); !errors.Is(err, ErrAppClosed) {
		t.Errorf("expected ErrAppClosed, got %v", err)
	}
}
