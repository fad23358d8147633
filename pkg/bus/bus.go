// Package bus provides the in-process event bus components communicate on.
package bus

import "sync"

// Handler receives the arguments passed to Emit.
type Handler func(args ...any)

type subscriber struct {
	id uint64
	fn Handler
}

// Emitter is a synchronous publish/subscribe hub. Handlers run in
// registration order on the emitting goroutine. No wildcard topics.
// Safe for concurrent use.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]subscriber
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{topics: make(map[string][]subscriber)}
}

// On subscribes fn to name and returns an idempotent unsubscribe.
func (e *Emitter) On(name string, fn Handler) (off func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.topics[name] = append(e.topics[name], subscriber{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(name, id) })
	}
}

func (e *Emitter) remove(name string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.topics[name]
	for i, s := range subs {
		if s.id == id {
			e.topics[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.topics[name]) == 0 {
		delete(e.topics, name)
	}
}

// Off removes every subscriber of name.
func (e *Emitter) Off(name string) {
	e.mu.Lock()
	delete(e.topics, name)
	e.mu.Unlock()
}

// Emit invokes every subscriber of name in registration order. The
// subscriber list is snapshotted first, so handlers may subscribe or
// unsubscribe during dispatch without affecting this emission.
func (e *Emitter) Emit(name string, args ...any) {
	e.mu.Lock()
	subs := make([]subscriber, len(e.topics[name]))
	copy(subs, e.topics[name])
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(args...)
	}
}

// ListenerCount returns the number of subscribers of name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.topics[name])
}
