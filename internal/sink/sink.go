// Package sink delivers events to downstream backends, best effort. Each
// sink owns its connection lifecycle, a bounded backlog and a capped
// exponential backoff schedule; a supervisor goroutine per sink drives
// reconnection and the send path so that no backend failure ever reaches
// the router or the listener.
package sink

import (
	"context"

	"github.com/udplog/udplogd/internal/event"
)

// Sink accepts events for best-effort delivery to one backend.
type Sink interface {
	Start(ctx context.Context) error
	// Offer enqueues e without blocking. When the backlog is full the
	// eviction policy decides which event is dropped.
	Offer(e *event.Event)
	Close() error
	Name() string // Returns the sink name for metrics and logging
}

// State of a sink's connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Backoff
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Backoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// backend is the backend-specific part of a network sink: how to establish
// a connection, ship one batch, and tear down. A backend is driven by a
// single supervisor goroutine and needs no internal locking.
type backend interface {
	connect(ctx context.Context) error
	send(ctx context.Context, batch []*event.Event) error
	disconnect() error
}
