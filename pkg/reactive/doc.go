// Package reactive provides the minimal observable value primitive that
// drives re-rendering: a Signal holds a single mutable value and notifies
// registered watchers synchronously when the value changes.
//
// Signals do no batching themselves. Collapsing several synchronous writes
// into a single render pass is entirely the scheduler's job, so that stack
// traces at write time are not obscured by deferred execution.
package reactive
