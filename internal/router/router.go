// Package router fans accepted events out to every configured sink.
package router

import (
	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/sink"
)

// Router holds the fixed, configuration-ordered set of sinks. Sinks are
// independent: Offer never blocks, so a stalled or disconnected backend
// cannot delay the receive path or its neighbors.
type Router struct {
	sinks []sink.Sink
}

// New builds a router over sinks. The set cannot change at runtime.
func New(sinks ...sink.Sink) *Router {
	return &Router{sinks: sinks}
}

// Accept delivers e to every sink exactly once, in configuration order.
func (r *Router) Accept(e *event.Event) {
	for _, s := range r.sinks {
		s.Offer(e)
	}
}

// Sinks returns the configured sinks.
func (r *Router) Sinks() []sink.Sink {
	return r.sinks
}
