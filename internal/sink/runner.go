package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

// RunnerConfig collects the delivery-policy knobs every network sink
// shares.
type RunnerConfig struct {
	Capacity      int           // backlog capacity
	Policy        EvictPolicy   // backlog overflow policy
	BatchSize     int           // events per send call
	FlushInterval time.Duration // max wait before flushing a partial batch
	BackoffMin    time.Duration
	BackoffMax    time.Duration
	BackoffCap    int // cap on consecutive-failure count
	MaxAttempts   int // per-event retry ceiling, 0 retries forever
	DrainTimeout  time.Duration
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Capacity < 1 {
		c.Capacity = 2500
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.BackoffCap < 1 {
		c.BackoffCap = 16
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
	return c
}

// runner implements Sink on top of a backend: it owns the backlog, the
// connection state machine and the supervisor goroutine.
type runner struct {
	name    string
	cfg     RunnerConfig
	be      backend
	backlog *backlog
	metrics *metrics.Metrics

	state    atomic.Int32
	notify   chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRunner(name string, be backend, cfg RunnerConfig, m *metrics.Metrics) *runner {
	cfg = cfg.withDefaults()
	r := &runner{
		name:    name,
		cfg:     cfg,
		be:      be,
		metrics: m,
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.backlog = newBacklog(cfg.Capacity, cfg.Policy, func() {
		m.BacklogEvictions.WithLabelValues(name).Inc()
	})
	r.setState(Disconnected)
	return r
}

func (r *runner) Name() string {
	return r.name
}

// State returns the current connection state.
func (r *runner) State() State {
	return State(r.state.Load())
}

func (r *runner) setState(s State) {
	r.state.Store(int32(s))
	r.metrics.SinkState.WithLabelValues(r.name).Set(float64(s))
}

// Start launches the supervisor goroutine.
func (r *runner) Start(ctx context.Context) error {
	go r.supervise(ctx)
	return nil
}

// Offer enqueues e without blocking and wakes the supervisor.
func (r *runner) Offer(e *event.Event) {
	r.backlog.push(e)
	r.updateDepth()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Close signals shutdown and waits for the supervisor to finish its
// bounded-time drain.
func (r *runner) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

func (r *runner) updateDepth() {
	r.metrics.BacklogDepth.WithLabelValues(r.name).Set(float64(r.backlog.len()))
}
