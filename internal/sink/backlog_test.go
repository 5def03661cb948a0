package sink

import (
	"fmt"
	"testing"

	"github.com/udplog/udplogd/internal/event"
)

func ev(n int) *event.Event {
	return &event.Event{Category: "test", Fields: map[string]any{"n": float64(n)}}
}

func categoriesOf(ents []entry) []float64 {
	out := make([]float64, len(ents))
	for i, e := range ents {
		out[i] = e.ev.Fields["n"].(float64)
	}
	return out
}

func wantOrder(t *testing.T, ents []entry, want ...float64) {
	t.Helper()
	got := categoriesOf(ents)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// TestBacklogPush tests the bounded-FIFO invariant
func TestBacklogPush(t *testing.T) {
	t.Run("size never exceeds capacity", func(t *testing.T) {
		b := newBacklog(3, DropOldest, nil)
		for i := 0; i < 10; i++ {
			b.push(ev(i))
			if b.len() > 3 {
				t.Fatalf("len = %d after %d pushes, capacity 3", b.len(), i+1)
			}
		}
	})

	t.Run("drop-oldest keeps the most recent entries in order", func(t *testing.T) {
		evictions := 0
		b := newBacklog(3, DropOldest, func() { evictions++ })
		for i := 0; i < 5; i++ {
			b.push(ev(i))
		}
		wantOrder(t, b.take(10), 2, 3, 4)
		if evictions != 2 {
			t.Errorf("evictions = %d, want 2", evictions)
		}
	})

	t.Run("drop-newest rejects the incoming entry", func(t *testing.T) {
		evictions := 0
		b := newBacklog(3, DropNewest, func() { evictions++ })
		for i := 0; i < 5; i++ {
			b.push(ev(i))
		}
		wantOrder(t, b.take(10), 0, 1, 2)
		if evictions != 2 {
			t.Errorf("evictions = %d, want 2", evictions)
		}
	})
}

// TestBacklogTake tests batch removal
func TestBacklogTake(t *testing.T) {
	b := newBacklog(5, DropOldest, nil)
	for i := 0; i < 4; i++ {
		b.push(ev(i))
	}

	first := b.take(2)
	wantOrder(t, first, 0, 1)
	if b.len() != 2 {
		t.Errorf("len = %d, want 2", b.len())
	}
	wantOrder(t, b.take(10), 2, 3)
	if got := b.take(1); len(got) != 0 {
		t.Errorf("take on empty backlog returned %d entries", len(got))
	}
}

// TestBacklogRequeue tests returning a failed batch to the queue front
func TestBacklogRequeue(t *testing.T) {
	t.Run("preserves original order", func(t *testing.T) {
		b := newBacklog(5, DropOldest, nil)
		for i := 0; i < 4; i++ {
			b.push(ev(i))
		}
		batch := b.take(2)
		b.push(ev(4))
		b.requeue(batch)
		wantOrder(t, b.take(10), 0, 1, 2, 3, 4)
	})

	t.Run("drop-oldest sacrifices the requeued entries when full", func(t *testing.T) {
		evictions := 0
		b := newBacklog(3, DropOldest, func() { evictions++ })
		for i := 0; i < 3; i++ {
			b.push(ev(i))
		}
		batch := b.take(2) // 0, 1 in flight
		b.push(ev(3))
		b.push(ev(4)) // backlog full again: 2, 3, 4
		b.requeue(batch)
		wantOrder(t, b.take(10), 2, 3, 4)
		if evictions != 2 {
			t.Errorf("evictions = %d, want 2", evictions)
		}
	})

	t.Run("drop-newest sacrifices queued entries when full", func(t *testing.T) {
		b := newBacklog(3, DropNewest, nil)
		for i := 0; i < 3; i++ {
			b.push(ev(i))
		}
		batch := b.take(2) // 0, 1 in flight
		b.push(ev(3))
		b.push(ev(4)) // backlog full again: 2, 3, 4
		b.requeue(batch)
		wantOrder(t, b.take(10), 0, 1, 2)
	})
}
