package runtime

import "github.com/zoobzio/capitan"

// Field keys for lifecycle signals.
var (
	// KeyComponent is the component name.
	KeyComponent = capitan.NewStringKey("component")

	// KeyInstance is the instance identifier.
	KeyInstance = capitan.NewStringKey("instance")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyRenderCount is the number of committed render passes.
	KeyRenderCount = capitan.NewIntKey("render_count")

	// KeyDuration is how long the render pass took.
	KeyDuration = capitan.NewDurationKey("duration")
)
