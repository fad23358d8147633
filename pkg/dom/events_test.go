package dom

import "testing"

func TestDispatchOrder(t *testing.T) {
	n := NewElement("button")

	var order []int
	n.On("click", func(*Event) { order = append(order, 1) })
	n.On("click", func(*Event) { order = append(order, 2) })

	n.Dispatch("click", nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected registration-order dispatch, got %v", order)
	}
}

func TestDispatchBubbles(t *testing.T) {
	parent := NewElement("div")
	child := NewElement("button")
	parent.AppendChild(child)

	var seen []string
	child.On("click", func(e *Event) {
		seen = append(seen, "child")
		if e.Target != child {
			t.Error("expected target to be the dispatching node")
		}
	})
	parent.On("click", func(*Event) { seen = append(seen, "parent") })

	child.Dispatch("click", "payload")

	if len(seen) != 2 || seen[0] != "child" || seen[1] != "parent" {
		t.Errorf("expected child-then-parent bubbling, got %v", seen)
	}
}

func TestStopPropagation(t *testing.T) {
	parent := NewElement("div")
	child := NewElement("button")
	parent.AppendChild(child)

	parentSeen := false
	child.On("click", func(e *Event) { e.StopPropagation() })
	parent.On("click", func(*Event) { parentSeen = true })

	child.Dispatch("click", nil)
	if parentSeen {
		t.Error("expected propagation to stop before the parent")
	}
}

func TestListenerRemoval(t *testing.T) {
	n := NewElement("button")

	calls := 0
	off := n.On("click", func(*Event) { calls++ })
	off()
	off() // idempotent

	n.Dispatch("click", nil)
	if calls != 0 {
		t.Errorf("expected no calls after removal, got %d", calls)
	}
}

func TestDispatchData(t *testing.T) {
	n := NewElement("input")
	var got any
	n.On("input", func(e *Event) { got = e.Data })
	n.Dispatch("input", "abc")
	if got != "abc" {
		t.Errorf("expected payload %q, got %v", "abc", got)
	}
}
