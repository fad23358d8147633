package runtime

import "testing"

func TestSchedulerFIFO(t *testing.T) {
	s := newScheduler()
	defer s.close()

	var order []int
	s.do(func() {
		// Jobs posted from the loop run after this one, in post order.
		s.post(func() { order = append(order, 2) })
		s.post(func() { order = append(order, 3) })
		order = append(order, 1)
	})
	s.do(func() {})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected FIFO order, got %v", order)
	}
}

func TestSchedulerInlineReentry(t *testing.T) {
	s := newScheduler()
	defer s.close()

	ran := false
	s.do(func() {
		// A nested do from the loop must run inline, not deadlock.
		s.do(func() { ran = true })
	})
	if !ran {
		t.Error("expected nested do to run inline")
	}
}

func TestSchedulerClosedDo(t *testing.T) {
	s := newScheduler()
	s.close()
	if err := s.do(func() {}); err != ErrAppClosed {
		t.Errorf("expected ErrAppClosed, got %v", err)
	}
}
