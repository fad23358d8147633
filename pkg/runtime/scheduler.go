package runtime

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header "goroutine <id> ...". Implementation
// detail of loop reentrancy detection.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// scheduler runs jobs one at a time on a dedicated loop goroutine, in FIFO
// order. Submissions from the loop itself run inline, so loop code can call
// public entry points without deadlocking.
type scheduler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	loopGID atomic.Uint64
	started chan struct{}
}

func newScheduler() *scheduler {
	s := &scheduler{started: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	<-s.started
	return s
}

func (s *scheduler) run() {
	s.loopGID.Store(getGoroutineID())
	close(s.started)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		job()
	}
}

// onLoop reports whether the caller is the loop goroutine.
func (s *scheduler) onLoop() bool {
	return getGoroutineID() == s.loopGID.Load()
}

// post enqueues fn without waiting. Safe from any goroutine, including the
// loop itself. Posting to a closed scheduler drops the job and reports it.
func (s *scheduler) post(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		debugf("scheduler: job dropped after close")
		return false
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	s.cond.Signal()
	return true
}

// do runs fn on the loop and waits for it to finish. Called from the loop,
// it runs fn inline. Returns ErrAppClosed if the loop is gone.
func (s *scheduler) do(fn func()) error {
	if s.onLoop() {
		fn()
		return nil
	}
	done := make(chan struct{})
	if !s.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrAppClosed
	}
	<-done
	return nil
}

// close stops the loop after draining already queued jobs.
func (s *scheduler) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}
