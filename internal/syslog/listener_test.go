package syslog

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

type captureRouter struct {
	mu     sync.Mutex
	events []*event.Event
}

func (c *captureRouter) Accept(e *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureRouter) wait(t *testing.T, n int) []*event.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.events) >= n {
			out := make([]*event.Event, len(c.events))
			copy(out, c.events)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", n)
	return nil
}

func TestListener(t *testing.T) {
	router := &captureRouter{}
	m := metrics.NewMetricsOn(prometheus.NewRegistry())
	l, err := New("127.0.0.1:0", router, m)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	l.now = func() time.Time { return time.Date(2026, time.October, 20, 12, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = l.Close()
	})

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("<13>Oct 20 11:59:00 host app: hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	events := router.wait(t, 1)

	e := events[0]
	if e.Category != "syslog" {
		t.Errorf("category = %q, want syslog", e.Category)
	}
	if e.Fields["message"] != "hello" {
		t.Errorf("message = %v, want hello", e.Fields["message"])
	}
	if e.IngestID == "" {
		t.Error("ingest id not assigned")
	}
	wantTS := float64(time.Date(2026, time.October, 20, 11, 59, 0, 0, time.UTC).Unix())
	if e.Timestamp != wantTS {
		t.Errorf("timestamp = %v, want %v", e.Timestamp, wantTS)
	}
}

func TestListenerStampsUnparsableLines(t *testing.T) {
	router := &captureRouter{}
	m := metrics.NewMetricsOn(prometheus.NewRegistry())
	l, err := New("127.0.0.1:0", router, m)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	now := time.Date(2026, time.October, 20, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = l.Close()
	})

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("free-form text\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	events := router.wait(t, 1)

	e := events[0]
	if e.Fields["message"] != "free-form text" {
		t.Errorf("message = %v, want the raw line", e.Fields["message"])
	}
	if want := float64(now.UnixNano()) / float64(time.Second); e.Timestamp != want {
		t.Errorf("timestamp = %v, want the receive time %v", e.Timestamp, want)
	}
}
