package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
	"github.com/udplog/udplogd/internal/protocol"
)

// ConsoleSink writes wire-encoded events to stdout or a file for local
// verification. It is always connected, never fails and never backs off.
type ConsoleSink struct {
	dst     string
	metrics *metrics.Metrics

	mu sync.Mutex
	f  *os.File
}

// NewConsoleSink writes to dst, or stdout when dst is empty or "stdout".
func NewConsoleSink(dst string, m *metrics.Metrics) *ConsoleSink {
	return &ConsoleSink{dst: dst, metrics: m}
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	if s.dst == "" || s.dst == "stdout" {
		return nil
	}
	f, err := os.OpenFile(s.dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("console sink: open %s: %w", s.dst, err)
	}
	s.f = f
	return nil
}

func (s *ConsoleSink) Offer(e *event.Event) {
	line, err := protocol.Encode(e)
	if err != nil {
		log.Printf("console sink: encode: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := os.Stdout
	if s.f != nil {
		out = s.f
	}
	_, _ = out.Write(append(line, '\n'))
	s.metrics.EventsSent.WithLabelValues(s.Name()).Inc()
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}

func (s *ConsoleSink) Name() string { return "console" }
