// Package runtime mounts components into a live dom tree and keeps them
// rendered. An App owns a name-keyed component registry, a shared event bus
// and expression evaluator, and a single loop goroutine that serializes all
// mounting, rendering, event dispatch, and teardown.
//
// Reactive cells returned from a component's Setup are discovered and
// watched automatically; writing one queues exactly one render pass for the
// owning instance, however many writes happen before the pass runs.
package runtime
