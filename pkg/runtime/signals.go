package runtime

import "github.com/zoobzio/capitan"

// Lifecycle observability signals.
var (
	// InstanceMounted is emitted after an instance's first render pass
	// commits.
	InstanceMounted = capitan.NewSignal(
		"veil.instance.mounted",
		"Component instance mounted",
	)

	// RenderApplied is emitted each time a render pass commits.
	RenderApplied = capitan.NewSignal(
		"veil.render.applied",
		"Render pass committed",
	)

	// RenderFailed is emitted when a render pass aborts with an error.
	RenderFailed = capitan.NewSignal(
		"veil.render.failed",
		"Render pass failed",
	)

	// InstanceUnmounted is emitted after an instance is torn down.
	InstanceUnmounted = capitan.NewSignal(
		"veil.instance.unmounted",
		"Component instance unmounted",
	)

	// ChildOrphaned is emitted when a child instance is torn down because
	// its host element left the tree.
	ChildOrphaned = capitan.NewSignal(
		"veil.child.orphaned",
		"Child instance torn down after its host left the tree",
	)
)
