package dom

import "sync/atomic"

// Event is dispatched to listeners registered on a node and its ancestors.
type Event struct {
	// Type is the event name ("click", "input", ...).
	Type string

	// Target is the node Dispatch was called on.
	Target *Node

	// Data is the payload passed to Dispatch.
	Data any

	stopped bool
}

// StopPropagation prevents the event from bubbling to ancestor nodes.
// Listeners already collected for the current node still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Handler is an event listener.
type Handler func(*Event)

type listenerEntry struct {
	id    uint64
	event string
	fn    Handler
}

// listenerIDCounter issues unique listener IDs for idempotent removal.
var listenerIDCounter uint64

// On registers fn as a listener for the named event. The returned function
// removes the listener; calling it more than once is safe.
func (n *Node) On(event string, fn Handler) func() {
	entry := listenerEntry{
		id:    atomic.AddUint64(&listenerIDCounter, 1),
		event: event,
		fn:    fn,
	}
	n.listeners = append(n.listeners, entry)

	return func() {
		for i, l := range n.listeners {
			if l.id == entry.id {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch synchronously invokes the listeners for the named event on n,
// in registration order, then bubbles to ancestors unless a listener
// stopped propagation.
func (n *Node) Dispatch(event string, data any) {
	e := &Event{Type: event, Target: n, Data: data}
	for cur := n; cur != nil; cur = cur.Parent {
		// Snapshot so handlers can unregister during dispatch.
		var fns []Handler
		for _, l := range cur.listeners {
			if l.event == event {
				fns = append(fns, l.fn)
			}
		}
		for _, fn := range fns {
			fn(e)
		}
		if e.stopped {
			return
		}
	}
}
