package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/udplog/udplogd/internal/listener"
	"github.com/udplog/udplogd/internal/metrics"
	"github.com/udplog/udplogd/internal/router"
	"github.com/udplog/udplogd/internal/sink"
)

// runTestMode spins up a loopback pipeline (listener, router, console
// sink), pushes a few sample datagrams through it and exits. Useful for a
// quick smoke test of the wire protocol without any backend.
func runTestMode() {
	m := metrics.NewMetricsOn(prometheus.NewRegistry())

	console := sink.NewConsoleSink("stdout", m)
	if err := console.Start(context.Background()); err != nil {
		log.Fatalf("test: %v", err)
	}
	rt := router.New(console)

	l, err := listener.New("127.0.0.1:0", rt, m)
	if err != nil {
		log.Fatalf("test: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	log.Printf("test: loopback listener on %s", l.Addr())

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		log.Fatalf("test: dial: %v", err)
	}
	defer conn.Close()

	for _, d := range sampleDatagrams() {
		if _, err := conn.Write([]byte(d)); err != nil {
			log.Fatalf("test: write: %v", err)
		}
	}

	// Datagrams are delivered asynchronously; give the listener a moment.
	time.Sleep(200 * time.Millisecond)

	_ = l.Close()
	_ = console.Close()
	log.Printf("test: done")
}

// sampleDatagrams covers a normal event, an event with a wire timestamp,
// and one invalid datagram that should be counted and dropped.
func sampleDatagrams() []string {
	return []string{
		fmt.Sprintf(`startup: {"message": "udplogd test event", "run_id": %q}`, uuid.New().String()),
		`metrics: {"value": 1}`,
		`some_category: {"a_key": "a_value", "timestamp": "1379002018.000"}`,
		`bad-cat: {}`,
	}
}
