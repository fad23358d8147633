package reactive

import (
	"reflect"
	"sync"
)

// Source is the type-erased view of a Signal. The runtime uses it to
// discover signals in setup-returned data, watch them without knowing the
// value type, and unwrap their current value for expression environments.
type Source interface {
	// ID returns the unique identifier for this signal.
	ID() uint64

	// OnChange registers a watcher that is invoked (without the value)
	// whenever the signal changes. The returned function removes the
	// watcher; it is idempotent and reports whether a removal happened.
	OnChange(fn func()) func() bool

	// Value returns the current value as an any.
	Value() any
}

// watcher is a single registered observer.
type watcher[T any] struct {
	id uint64
	fn func(T)
}

// Signal is a reactive value container. Writing a new value notifies every
// watcher synchronously, in registration order. A watcher panic propagates
// to the writer and stops later watchers in that notification pass.
type Signal[T any] struct {
	base uint64 // signal ID

	// value is the current signal value.
	value T

	// watchers are notified in registration order on change.
	watchers []watcher[T]

	// mu protects value and watchers.
	mu sync.Mutex

	// equal is the equality function used to decide whether a write
	// changed the value. If nil, uses strict default equality.
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base:  nextID(),
		value: initial,
	}
}

// Get returns the current value. It has no side effects.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set updates the signal's value and notifies watchers if it changed.
// Writes of an equal value are a no-op. Notification happens synchronously
// on the caller's goroutine; no batching occurs inside the signal.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	// Copy watchers while holding the lock so handlers can unsubscribe
	// during notification without deadlocking.
	snapshot := make([]watcher[T], len(s.watchers))
	copy(snapshot, s.watchers)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, w := range snapshot {
		w.fn(value)
	}
}

// Update atomically reads and updates the signal's value.
// The function receives the current value and returns the new value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	s.mu.Unlock()
	s.Set(next)
}

// Watch registers fn to be invoked with the new value on every change.
// The returned function removes the watcher: it returns true on the first
// call and false on every later call (idempotent removal).
func (s *Signal[T]) Watch(fn func(T)) func() bool {
	w := watcher[T]{id: nextID(), fn: fn}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.watchers {
			if existing.id == w.id {
				// Preserve registration order for the remaining watchers.
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return true
			}
		}
		return false
	}
}

// OnChange implements Source. The watcher is invoked without the value.
func (s *Signal[T]) OnChange(fn func()) func() bool {
	return s.Watch(func(T) { fn() })
}

// Value implements Source.
func (s *Signal[T]) Value() any {
	return s.Get()
}

// WithEquals returns the signal configured with a custom equality function.
// Useful for types where the default strict comparison has the wrong
// semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base
}

// equals checks two values using the configured equality function.
func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return strictEquals(a, b)
}

// strictEquals compares values with == semantics. Fast paths cover the
// common kinds; other comparable types go through reflect. Non-comparable
// values (slices, maps, funcs) always count as changed: equality here is
// strict identity, never a deep walk.
func strictEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() {
		return ra.IsValid() == rb.IsValid()
	}
	if !ra.Comparable() || !rb.Comparable() {
		return false
	}
	return ra.Equal(rb)
}
