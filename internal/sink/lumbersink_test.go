package sink

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/udplog/udplogd/internal/metrics"
)

func TestNewLumberSink(t *testing.T) {
	m := metrics.NewMetricsOn(prometheus.NewRegistry())

	t.Run("applies a connect timeout default", func(t *testing.T) {
		s := NewLumberSink(LumberConfig{Addr: "localhost:5044"}, RunnerConfig{}, m)
		be := s.be.(*lumberBackend)
		if be.cfg.ConnectTimeout != 5*time.Second {
			t.Errorf("connect timeout = %s, want 5s", be.cfg.ConnectTimeout)
		}
	})

	t.Run("keeps batching configurable", func(t *testing.T) {
		s := NewLumberSink(LumberConfig{}, RunnerConfig{BatchSize: 1000, FlushInterval: 5 * time.Second}, m)
		if s.cfg.BatchSize != 1000 {
			t.Errorf("batch size = %d, want 1000", s.cfg.BatchSize)
		}
		if s.cfg.FlushInterval != 5*time.Second {
			t.Errorf("flush interval = %s, want 5s", s.cfg.FlushInterval)
		}
	})
}

func TestNewRedisSink(t *testing.T) {
	m := metrics.NewMetricsOn(prometheus.NewRegistry())

	t.Run("applies the list key default", func(t *testing.T) {
		s := NewRedisSink(RedisConfig{Addr: "localhost:6379"}, RunnerConfig{}, m)
		be := s.be.(*redisBackend)
		if be.cfg.Key != "udplog" {
			t.Errorf("key = %q, want udplog", be.cfg.Key)
		}
	})

	t.Run("keeps an explicit key", func(t *testing.T) {
		s := NewRedisSink(RedisConfig{Key: "logstash"}, RunnerConfig{}, m)
		be := s.be.(*redisBackend)
		if be.cfg.Key != "logstash" {
			t.Errorf("key = %q, want logstash", be.cfg.Key)
		}
	})
}
