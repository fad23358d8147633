package runtime

import (
	"github.com/veil-ui/veil/pkg/bus"
	"github.com/veil-ui/veil/pkg/expr"
	"github.com/veil-ui/veil/pkg/reactive"
)

// Context is the merged view an instance's hooks, templates, and event
// handlers see: declared props, setup-returned data, and the shared
// collaborators. Data shadows props on name collision.
type Context struct {
	app      *App
	instance *Instance
	props    map[string]any
	data     map[string]any
}

// App returns the owning App.
func (c *Context) App() *App { return c.app }

// Instance returns the instance this context belongs to.
func (c *Context) Instance() *Instance { return c.instance }

// Bus returns the App's shared event emitter.
func (c *Context) Bus() *bus.Emitter { return c.app.bus }

// Emit publishes on the App's shared event emitter.
func (c *Context) Emit(name string, args ...any) {
	c.app.bus.Emit(name, args...)
}

// Prop returns a declared prop.
func (c *Context) Prop(name string) (any, bool) {
	v, ok := c.props[name]
	return v, ok
}

// Get looks a name up in setup data first, then props.
func (c *Context) Get(name string) (any, bool) {
	if v, ok := c.data[name]; ok {
		return v, true
	}
	v, ok := c.props[name]
	return v, ok
}

// Set stores a value in the instance's data environment. Plain values do
// not trigger a render; use a reactive cell for that.
func (c *Context) Set(name string, v any) {
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[name] = v
}

// Eval evaluates an expression against the current environment snapshot.
func (c *Context) Eval(input any) any {
	return c.app.eval.Eval(input, c.Snapshot())
}

// Snapshot builds the expression environment: props overlaid with data,
// reactive cells unwrapped to their current values.
func (c *Context) Snapshot() map[string]any {
	env := make(map[string]any, len(c.props)+len(c.data))
	for k, v := range c.props {
		env[k] = unwrap(v)
	}
	for k, v := range c.data {
		env[k] = unwrap(v)
	}
	return env
}

func unwrap(v any) any {
	if src, ok := v.(reactive.Source); ok {
		return src.Value()
	}
	return v
}

// Evaluator returns the App's shared expression evaluator.
func (c *Context) Evaluator() *expr.Evaluator { return c.app.eval }
