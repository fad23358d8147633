package runtime

// SetupFunc initializes a component instance and returns its data
// environment. Reactive cells in the returned map are discovered by the
// runtime and watched for the lifetime of the instance.
type SetupFunc func(ctx *Context) (map[string]any, error)

// Hook runs at a lifecycle boundary. A non-nil error aborts the render
// pass that triggered it; the instance keeps its previous rendered state.
type Hook func(ctx *Context) error

// UnmountHook runs before an instance is torn down. It receives the
// resources the instance still owns so applications can release anything
// attached to them.
type UnmountHook func(ctx *Context, owned *Owned) error

// Component is a reusable blueprint. Register it once on an App, then
// mount it into any number of containers.
type Component struct {
	// Name is the registry key.
	Name string

	// Setup builds the instance's data environment. Optional.
	Setup SetupFunc

	// Template produces the HTML the instance renders. Required.
	Template Source

	// Style produces scoped CSS injected next to the rendered tree.
	// Optional.
	Style Source

	// Children maps a selector to the component mounted into every
	// matching element after each render pass.
	Children map[string]*Component

	OnBeforeMount  Hook
	OnMounted      Hook
	OnBeforeUpdate Hook
	OnUpdated      Hook
	OnUnmount      UnmountHook
}

// Source is a template or style source: either a fixed string or a
// function computing one per render from the instance context.
type Source struct {
	static  string
	compute func(*Context) (string, error)
	set     bool
}

// Static returns a Source holding a fixed string.
func Static(s string) Source {
	return Source{static: s, set: true}
}

// Computed returns a Source evaluated on every render pass.
func Computed(fn func(*Context) (string, error)) Source {
	return Source{compute: fn, set: fn != nil}
}

// IsZero reports whether the Source was never set. Distinct from
// Static(""), which is a present, empty source.
func (s Source) IsZero() bool {
	return !s.set
}

// Resolve produces the source's current string.
func (s Source) Resolve(ctx *Context) (string, error) {
	if s.compute != nil {
		return s.compute(ctx)
	}
	return s.static, nil
}

// Owned enumerates what an instance still holds at unmount time. Cleanup
// of these is the runtime's job; the hook only gets to observe them.
type Owned struct {
	// Watchers is the number of reactive cell subscriptions held.
	Watchers int

	// Listeners is the number of bound DOM event listeners held.
	Listeners int

	// Children are the still-mounted child instances, torn down after the
	// hook returns.
	Children []*Instance
}

// Plugin extends an App. Install runs once per plugin name.
type Plugin interface {
	Name() string
	Install(app *App) error
}
