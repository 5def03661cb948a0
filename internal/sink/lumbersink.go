package sink

import (
	"context"
	"fmt"
	"time"

	lumber "github.com/elastic/go-lumber/client/v2"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

// LumberConfig holds settings for the batched-RPC sink, which ships event
// batches over the lumberjack protocol to a log-collection service.
type LumberConfig struct {
	Addr           string
	ConnectTimeout time.Duration
	Compression    int
}

// LumberSink buffers events and flushes them as one windowed RPC call when
// the batch fills or the flush interval elapses, whichever comes first. One
// failed batch call is one failure toward backoff; the batch returns to the
// backlog for retry.
type LumberSink struct {
	*runner
}

func NewLumberSink(cfg LumberConfig, rc RunnerConfig, m *metrics.Metrics) *LumberSink {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	return &LumberSink{runner: newRunner("lumber", &lumberBackend{cfg: cfg}, rc, m)}
}

type lumberBackend struct {
	cfg    LumberConfig
	client *lumber.SyncClient
}

func (l *lumberBackend) connect(ctx context.Context) error {
	client, err := lumber.SyncDial(l.cfg.Addr,
		lumber.CompressionLevel(l.cfg.Compression),
		lumber.Timeout(l.cfg.ConnectTimeout))
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.cfg.Addr, err)
	}
	l.client = client
	return nil
}

func (l *lumberBackend) send(ctx context.Context, batch []*event.Event) error {
	docs := make([]interface{}, len(batch))
	for i, e := range batch {
		docs[i] = e.Map()
	}
	if _, err := l.client.Send(docs); err != nil {
		return fmt.Errorf("send batch of %d: %w", len(batch), err)
	}
	return nil
}

func (l *lumberBackend) disconnect() error {
	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}
