package taskswitcher

import "testing"

func queuePoll(queues [][]int) PollFunc {
	return func(id int) (any, bool) {
		q := queues[id]
		if len(q) == 0 {
			return nil, false
		}
		queues[id] = q[1:]
		return q[0], true
	}
}

// S6 (biased case): sub-engine A drains fully first because it was the
// last to receive input, then B, each FIFO.
func TestSwitcherLastTaskBiasDrainsFirst(t *testing.T) {
	queues := [][]int{
		make([]int, 10), // A
		make([]int, 10), // B
	}
	for i := range queues[0] {
		queues[0][i] = i
	}
	for i := range queues[1] {
		queues[1][i] = 100 + i
	}

	sw := New(2)
	sw.SetLastTask(0)

	var got []int
	for i := 0; i < 20; i++ {
		_, out, ok := sw.Poll(queuePoll(queues))
		if !ok {
			break
		}
		got = append(got, out.(int))
	}

	if len(got) != 20 {
		t.Fatalf("expected 20 outputs, got %d: %v", len(got), got)
	}
	for i := 0; i < 10; i++ {
		if got[i] != i {
			t.Fatalf("expected A to drain first in order, got %v", got)
		}
	}
	for i := 0; i < 10; i++ {
		if got[10+i] != 100+i {
			t.Fatalf("expected B to drain second in order, got %v", got)
		}
	}
}

// S6 (unbiased case): with no last-task bias, round-robin interleaves 1:1.
func TestSwitcherRoundRobinInterleavesEvenly(t *testing.T) {
	queues := [][]int{
		{1, 2, 3},
		{10, 20, 30},
	}
	sw := New(2)

	var got []int
	for i := 0; i < 6; i++ {
		_, out, ok := sw.Poll(queuePoll(queues))
		if !ok {
			break
		}
		got = append(got, out.(int))
	}

	want := []int{1, 10, 2, 20, 3, 30}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSwitcherFullCycleNoOutputReturnsFalse(t *testing.T) {
	queues := [][]int{{}, {}}
	sw := New(2)
	if _, _, ok := sw.Poll(queuePoll(queues)); ok {
		t.Fatalf("expected no output from two empty sub-engines")
	}
}

func TestSwitcherStaysOnProducingSubEngine(t *testing.T) {
	// Sub-engine 0 has output every poll; current must not advance while it
	// keeps producing.
	calls := 0
	poll := func(id int) (any, bool) {
		if id == 0 {
			calls++
			if calls <= 3 {
				return calls, true
			}
			return nil, false
		}
		return nil, false
	}
	sw := New(2)
	for i := 0; i < 3; i++ {
		id, _, ok := sw.Poll(poll)
		if !ok || id != 0 {
			t.Fatalf("expected sub-engine 0 to keep producing, got id=%d ok=%v", id, ok)
		}
	}
}
