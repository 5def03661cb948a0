package sink

import (
	"sync"

	"github.com/udplog/udplogd/internal/event"
)

// EvictPolicy selects which event a full backlog drops.
type EvictPolicy string

const (
	// DropOldest favors freshness over completeness.
	DropOldest EvictPolicy = "oldest"
	DropNewest EvictPolicy = "newest"
)

// entry tracks one buffered event together with its send attempt count.
type entry struct {
	ev       *event.Event
	attempts int
}

// backlog is a bounded FIFO ring of events awaiting delivery by one sink.
// It is the only sink state shared between the caller of Offer and the
// supervisor goroutine. Size never exceeds capacity.
type backlog struct {
	mu      sync.Mutex
	ring    []entry
	head    int
	size    int
	policy  EvictPolicy
	onEvict func()
}

func newBacklog(capacity int, policy EvictPolicy, onEvict func()) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	if policy != DropNewest {
		policy = DropOldest
	}
	return &backlog{ring: make([]entry, capacity), policy: policy, onEvict: onEvict}
}

// push enqueues e, evicting per policy when full. It reports whether e was
// retained.
func (b *backlog) push(e *event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.ring) {
		b.evict()
		if b.policy == DropNewest {
			return false
		}
		b.ring[b.head] = entry{}
		b.head = (b.head + 1) % len(b.ring)
		b.size--
	}
	b.ring[(b.head+b.size)%len(b.ring)] = entry{ev: e}
	b.size++
	return true
}

// take removes and returns up to max of the oldest entries for a send
// attempt. Entries that fail to send come back via requeue.
func (b *backlog) take(max int) []entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.size
	if n > max {
		n = max
	}
	out := make([]entry, n)
	for i := 0; i < n; i++ {
		out[i] = b.ring[b.head]
		b.ring[b.head] = entry{}
		b.head = (b.head + 1) % len(b.ring)
	}
	b.size -= n
	return out
}

// requeue returns previously taken entries to the front of the queue,
// preserving their original order relative to everything queued since. If
// newer arrivals filled the ring in the meantime, the eviction policy
// decides what is dropped.
func (b *backlog) requeue(ents []entry) {
	if len(ents) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.ring)
	if free := n - b.size; len(ents) > free {
		need := len(ents) - free
		if b.policy == DropNewest {
			// Drop the newest queued entries to make room for the
			// older in-flight ones.
			for i := 0; i < need; i++ {
				b.ring[(b.head+b.size-1)%n] = entry{}
				b.size--
				b.evict()
			}
		} else {
			// The in-flight entries are the oldest overall.
			for i := 0; i < need; i++ {
				b.evict()
			}
			ents = ents[need:]
		}
	}
	for i := len(ents) - 1; i >= 0; i-- {
		b.head = (b.head - 1 + n) % n
		b.ring[b.head] = ents[i]
		b.size++
	}
}

func (b *backlog) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *backlog) evict() {
	if b.onEvict != nil {
		b.onEvict()
	}
}
