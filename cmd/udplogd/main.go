package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/udplog/udplogd/internal/listener"
	"github.com/udplog/udplogd/internal/metrics"
	"github.com/udplog/udplogd/internal/router"
	"github.com/udplog/udplogd/internal/sink"
	"github.com/udplog/udplogd/internal/syslog"
	"github.com/udplog/udplogd/pkg/config"
)

func main() {
	testMode := flag.Bool("test", false, "send sample events through a loopback pipeline and exit")
	flag.Parse()

	if *testMode {
		runTestMode()
		return
	}

	cfg := config.Load()
	m := metrics.NewMetrics()

	sinks := buildSinks(cfg, m)
	if len(sinks) == 0 {
		log.Printf("main: no sinks configured, enabling console sink")
		sinks = append(sinks, sink.NewConsoleSink(cfg.ConsolePath, m))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, s := range sinks {
		if err := s.Start(ctx); err != nil {
			log.Fatalf("main: start sink %s: %v", s.Name(), err)
		}
	}

	rt := router.New(sinks...)

	l, err := listener.New(cfg.ListenAddr, rt, m)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	go l.Run(ctx)
	log.Printf("main: udplog listening on %s", l.Addr())

	var sysl *syslog.Listener
	if cfg.SyslogAddr != "" {
		sysl, err = syslog.New(cfg.SyslogAddr, rt, m)
		if err != nil {
			log.Fatalf("main: %v", err)
		}
		go sysl.Run(ctx)
		log.Printf("main: syslog listening on %s", sysl.Addr())
	}

	msrv := metrics.NewServer(metrics.LoadConfig())
	_ = msrv.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Printf("main: shutting down")

	// Stop intake first so sinks only have to drain what is already
	// buffered, then give each sink its bounded flush.
	_ = l.Close()
	if sysl != nil {
		_ = sysl.Close()
	}
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("main: close sink %s: %v", s.Name(), err)
		}
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = msrv.Shutdown(shutdownCtx)
}

// buildSinks constructs every sink whose target is configured, in a fixed
// order. The returned order is the router's delivery order.
func buildSinks(cfg config.Config, m *metrics.Metrics) []sink.Sink {
	rc := sink.RunnerConfig{
		Capacity:      cfg.BacklogCapacity,
		Policy:        sink.EvictPolicy(cfg.EvictPolicy),
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BackoffMin:    cfg.BackoffMin,
		BackoffMax:    cfg.BackoffMax,
		BackoffCap:    cfg.BackoffCap,
		MaxAttempts:   cfg.MaxAttempts,
		DrainTimeout:  cfg.DrainTimeout,
	}

	var sinks []sink.Sink
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			Topic:       cfg.KafkaTopic,
			Acks:        cfg.KafkaAcks,
			Compression: cfg.KafkaCompression,
		}, rc, m))
	}
	if cfg.LumberAddr != "" {
		sinks = append(sinks, sink.NewLumberSink(sink.LumberConfig{Addr: cfg.LumberAddr}, rc, m))
	}
	if cfg.RedisAddr != "" {
		sinks = append(sinks, sink.NewRedisSink(sink.RedisConfig{Addr: cfg.RedisAddr, Key: cfg.RedisKey}, rc, m))
	}
	if cfg.PostgresDSN != "" {
		sinks = append(sinks, sink.NewPGSink(sink.PGConfig{DSN: cfg.PostgresDSN}, rc, m))
	}
	if cfg.Verbose {
		sinks = append(sinks, sink.NewConsoleSink(cfg.ConsolePath, m))
	}
	return sinks
}
