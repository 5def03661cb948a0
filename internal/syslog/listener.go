package syslog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

const maxDatagramSize = 65536

// Acceptor consumes parsed events. Accept must be non-blocking.
type Acceptor interface {
	Accept(e *event.Event)
}

// Listener reads syslog datagrams from a UDP socket and routes the parsed
// events. Unlike the udplog wire protocol, syslog parsing cannot fail: an
// unparsable line still becomes an event with the line as its message.
type Listener struct {
	conn    *net.UDPConn
	router  Acceptor
	metrics *metrics.Metrics
	now     func() time.Time
}

// New binds addr and returns a ready syslog listener.
func New(addr string, router Acceptor, m *metrics.Metrics) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("syslog: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("syslog: bind %s: %w", addr, err)
	}
	return &Listener{conn: conn, router: router, metrics: m, now: time.Now}, nil
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
			log.Printf("syslog: read: %v", err)
			continue
		}
		l.handle(buf[:n])
	}
}

func (l *Listener) handle(datagram []byte) {
	now := l.now()
	line := strings.TrimRight(string(datagram), " \t\r\n\x00")
	e := Parse(line, now)
	if e.Timestamp == 0 {
		e.Timestamp = float64(now.UnixNano()) / float64(time.Second)
	}
	e.IngestID = uuid.New().String()
	l.metrics.DatagramsReceived.WithLabelValues("syslog").Inc()
	l.router.Accept(e)
}

// Close unblocks Run.
func (l *Listener) Close() error {
	return l.conn.Close()
}
