package runtime

import "errors"

// Configuration errors are returned synchronously from the call that made
// the mistake and are never retried.
var (
	// ErrNilContainer is returned when Mount is called without a container.
	ErrNilContainer = errors.New("veil: nil container")

	// ErrComponentNotFound is returned when Mount names a component that
	// was never registered.
	ErrComponentNotFound = errors.New("veil: component not registered")

	// ErrMissingTemplate is returned when a component defines no template
	// source.
	ErrMissingTemplate = errors.New("veil: component has no template")

	// ErrComponentRegistered is returned when RegisterComponent sees a name
	// that is already taken.
	ErrComponentRegistered = errors.New("veil: component already registered")

	// ErrPluginInstalled is returned when Use sees a plugin name that was
	// already installed.
	ErrPluginInstalled = errors.New("veil: plugin already installed")

	// ErrNotMounted is returned when Unmount is called on a container that
	// holds no instance.
	ErrNotMounted = errors.New("veil: container has no mounted instance")

	// ErrAppClosed is returned when an operation is submitted to a closed
	// App.
	ErrAppClosed = errors.New("veil: app closed")
)
