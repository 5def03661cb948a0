package sink

import (
	"context"
	"log"
	"time"

	"github.com/udplog/udplogd/internal/event"
)

// supervise drives the sink state machine: connect when the backoff timer
// allows, drain the backlog while connected, and perform one bounded
// best-effort flush on shutdown. It is the only goroutine that touches the
// backend.
func (r *runner) supervise(ctx context.Context) {
	defer close(r.done)

	sched := newBackoffSchedule(r.cfg.BackoffMin, r.cfg.BackoffMax, r.cfg.BackoffCap)
	connected := false
	defer func() { r.drain(connected) }()

	for {
		if !connected {
			r.setState(Connecting)
			if err := r.be.connect(ctx); err != nil {
				r.metrics.ConnectFailures.WithLabelValues(r.name).Inc()
				delay := sched.next()
				r.setState(Backoff)
				log.Printf("sink %s: connect: %v (attempt %d, retry in %s)", r.name, err, sched.attempt(), delay)
				if !r.sleep(ctx, delay) {
					return
				}
				continue
			}
			connected = true
			sched.reset()
			r.setState(Connected)
			log.Printf("sink %s: connected", r.name)
		}

		batch, ok := r.nextBatch(ctx)
		if !ok {
			return
		}
		if len(batch) == 0 {
			continue
		}
		if err := r.flush(ctx, batch); err != nil {
			connected = false
			delay := sched.next()
			r.setState(Backoff)
			log.Printf("sink %s: send: %v (retry in %s)", r.name, err, delay)
			if !r.sleep(ctx, delay) {
				return
			}
			continue
		}
		sched.reset()
	}
}

// nextBatch blocks until a full batch is queued, or the flush interval has
// elapsed with a partial batch pending. ok is false on shutdown.
func (r *runner) nextBatch(ctx context.Context) (batch []entry, ok bool) {
	var flushTimer *time.Timer
	var flushC <-chan time.Time
	defer func() {
		if flushTimer != nil {
			flushTimer.Stop()
		}
	}()

	for {
		if n := r.backlog.len(); n >= r.cfg.BatchSize {
			return r.backlog.take(r.cfg.BatchSize), true
		} else if n > 0 && flushTimer == nil {
			flushTimer = time.NewTimer(r.cfg.FlushInterval)
			flushC = flushTimer.C
		}
		select {
		case <-r.stop:
			return nil, false
		case <-ctx.Done():
			return nil, false
		case <-r.notify:
		case <-flushC:
			return r.backlog.take(r.cfg.BatchSize), true
		}
	}
}

// flush ships one batch. On failure the surviving entries go back to the
// front of the backlog, events past the retry ceiling are dropped, and the
// connection is torn down so supervise can re-enter backoff.
func (r *runner) flush(ctx context.Context, batch []entry) error {
	evs := make([]*event.Event, len(batch))
	for i := range batch {
		evs[i] = batch[i].ev
	}

	start := time.Now()
	err := r.be.send(ctx, evs)
	if err == nil {
		r.metrics.EventsSent.WithLabelValues(r.name).Add(float64(len(evs)))
		r.metrics.BatchFlushLatency.WithLabelValues(r.name).Observe(time.Since(start).Seconds())
		r.updateDepth()
		return nil
	}

	r.metrics.SendFailures.WithLabelValues(r.name).Inc()
	keep := batch[:0]
	dropped := 0
	for i := range batch {
		batch[i].attempts++
		if r.cfg.MaxAttempts > 0 && batch[i].attempts >= r.cfg.MaxAttempts {
			dropped++
			continue
		}
		keep = append(keep, batch[i])
	}
	if dropped > 0 {
		r.metrics.RetryDropped.WithLabelValues(r.name).Add(float64(dropped))
		log.Printf("sink %s: dropped %d events past the retry ceiling", r.name, dropped)
	}
	r.backlog.requeue(keep)
	r.updateDepth()
	if derr := r.be.disconnect(); derr != nil {
		log.Printf("sink %s: disconnect: %v", r.name, derr)
	}
	return err
}

// sleep waits out a backoff delay. It returns false when the sink is
// shutting down.
func (r *runner) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// drain makes one bounded attempt to flush whatever is still buffered,
// then disconnects regardless of the outcome.
func (r *runner) drain(connected bool) {
	defer r.setState(Disconnected)

	if r.backlog.len() == 0 {
		if connected {
			_ = r.be.disconnect()
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.DrainTimeout)
	defer cancel()

	if !connected {
		if err := r.be.connect(ctx); err != nil {
			log.Printf("sink %s: drain connect: %v, dropping %d events", r.name, err, r.backlog.len())
			return
		}
	}
	defer func() { _ = r.be.disconnect() }()

	for r.backlog.len() > 0 && ctx.Err() == nil {
		batch := r.backlog.take(r.cfg.BatchSize)
		evs := make([]*event.Event, len(batch))
		for i := range batch {
			evs[i] = batch[i].ev
		}
		if err := r.be.send(ctx, evs); err != nil {
			log.Printf("sink %s: drain send: %v, dropping %d events", r.name, err, len(evs)+r.backlog.len())
			return
		}
		r.metrics.EventsSent.WithLabelValues(r.name).Add(float64(len(evs)))
	}
	r.updateDepth()
}
