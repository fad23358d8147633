package reconcile

import "sync"

// Recorder observes the mutations a patch pass applies. The patcher calls
// it once per mutation, never for comparisons that found no difference, so
// an idempotent patch records nothing.
type Recorder interface {
	AttrWritten()
	AttrRemoved()
	TextWritten()
	NodeInserted()
	NodeMoved()
	NodeRemoved()
}

// Stats is a snapshot of recorded mutation counts.
type Stats struct {
	AttrWrites   uint64
	AttrRemovals uint64
	TextWrites   uint64
	Inserts      uint64
	Moves        uint64
	Removes      uint64
}

// Total returns the sum of all mutation counts.
func (s Stats) Total() uint64 {
	return s.AttrWrites + s.AttrRemovals + s.TextWrites + s.Inserts + s.Moves + s.Removes
}

// CountingRecorder counts mutations. Safe for concurrent use.
type CountingRecorder struct {
	mu    sync.Mutex
	stats Stats
}

// NewCountingRecorder creates an empty CountingRecorder.
func NewCountingRecorder() *CountingRecorder {
	return &CountingRecorder{}
}

func (r *CountingRecorder) AttrWritten() {
	r.mu.Lock()
	r.stats.AttrWrites++
	r.mu.Unlock()
}

func (r *CountingRecorder) AttrRemoved() {
	r.mu.Lock()
	r.stats.AttrRemovals++
	r.mu.Unlock()
}

func (r *CountingRecorder) TextWritten() {
	r.mu.Lock()
	r.stats.TextWrites++
	r.mu.Unlock()
}

func (r *CountingRecorder) NodeInserted() {
	r.mu.Lock()
	r.stats.Inserts++
	r.mu.Unlock()
}

func (r *CountingRecorder) NodeMoved() {
	r.mu.Lock()
	r.stats.Moves++
	r.mu.Unlock()
}

func (r *CountingRecorder) NodeRemoved() {
	r.mu.Lock()
	r.stats.Removes++
	r.mu.Unlock()
}

// Stats returns a snapshot of the recorded counts.
func (r *CountingRecorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Reset clears all counts.
func (r *CountingRecorder) Reset() {
	r.mu.Lock()
	r.stats = Stats{}
	r.mu.Unlock()
}

// MultiRecorder fans each mutation out to every given recorder.
func MultiRecorder(recs ...Recorder) Recorder {
	return multiRecorder(recs)
}

type multiRecorder []Recorder

func (m multiRecorder) AttrWritten() {
	for _, r := range m {
		r.AttrWritten()
	}
}

func (m multiRecorder) AttrRemoved() {
	for _, r := range m {
		r.AttrRemoved()
	}
}

func (m multiRecorder) TextWritten() {
	for _, r := range m {
		r.TextWritten()
	}
}

func (m multiRecorder) NodeInserted() {
	for _, r := range m {
		r.NodeInserted()
	}
}

func (m multiRecorder) NodeMoved() {
	for _, r := range m {
		r.NodeMoved()
	}
}

func (m multiRecorder) NodeRemoved() {
	for _, r := range m {
		r.NodeRemoved()
	}
}

// nopRecorder is the default recorder.
type nopRecorder struct{}

func (nopRecorder) AttrWritten()  {}
func (nopRecorder) AttrRemoved()  {}
func (nopRecorder) TextWritten()  {}
func (nopRecorder) NodeInserted() {}
func (nopRecorder) NodeMoved()    {}
func (nopRecorder) NodeRemoved()  {}
