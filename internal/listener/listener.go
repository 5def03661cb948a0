// Package listener owns the inbound UDP socket and turns datagrams into
// events for the router.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
	"github.com/udplog/udplogd/internal/protocol"
)

// maxDatagramSize matches the largest payload accepted on the wire.
const maxDatagramSize = 65536

// Acceptor consumes decoded events. Accept must be non-blocking: backend
// backpressure is absorbed by per-sink backlogs, never by the receive path.
type Acceptor interface {
	Accept(e *event.Event)
}

// Listener reads datagrams from a bound UDP socket, decodes them with the
// wire codec and hands the events to the router. Parse failures are counted
// and dropped; they never stop the read loop.
type Listener struct {
	conn     *net.UDPConn
	router   Acceptor
	metrics  *metrics.Metrics
	hostname string
	now      func() float64
}

// New binds addr and returns a ready listener. A bind failure is fatal to
// startup and is returned to the caller.
func New(addr string, router Acceptor, m *metrics.Metrics) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listener: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listener: bind %s: %w", addr, err)
	}
	hostname, _ := os.Hostname()
	return &Listener{
		conn:     conn,
		router:   router,
		metrics:  m,
		hostname: hostname,
		now:      wallClock,
	}, nil
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Run reads datagrams until the socket is closed or ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("listener: read: %v", err)
			continue
		}
		l.handle(buf[:n])
	}
}

func (l *Listener) handle(datagram []byte) {
	e, err := protocol.Decode(datagram)
	if err != nil {
		reason := string(protocol.InvalidPayload)
		var derr *protocol.DecodeError
		if errors.As(err, &derr) {
			reason = string(derr.Kind)
		}
		l.metrics.DatagramsDropped.WithLabelValues("udplog", reason).Inc()
		return
	}
	l.augment(e)
	l.metrics.DatagramsReceived.WithLabelValues("udplog").Inc()
	l.router.Accept(e)
}

// augment completes event construction with the pieces clients may omit:
// the wall-clock timestamp, the origin hostname, and an ingest id used as
// the broker partition key.
func (l *Listener) augment(e *event.Event) {
	if e.Timestamp == 0 {
		e.Timestamp = l.now()
	}
	if l.hostname != "" {
		if _, ok := e.Fields["hostname"]; !ok {
			e.Fields["hostname"] = l.hostname
		}
	}
	e.IngestID = uuid.New().String()
}

// Close unblocks Run.
func (l *Listener) Close() error {
	return l.conn.Close()
}
