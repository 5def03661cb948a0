package sink

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/udplog/udplogd/internal/metrics"
)

func TestNewKafkaSink(t *testing.T) {
	m := metrics.NewMetricsOn(prometheus.NewRegistry())

	t.Run("applies topic and acks defaults", func(t *testing.T) {
		s := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}, RunnerConfig{}, m)
		be := s.be.(*kafkaBackend)
		if be.cfg.Topic != "udplog" {
			t.Errorf("topic = %q, want udplog", be.cfg.Topic)
		}
		if be.cfg.Acks != "all" {
			t.Errorf("acks = %q, want all", be.cfg.Acks)
		}
	})

	t.Run("publishes one event per send call", func(t *testing.T) {
		s := NewKafkaSink(KafkaConfig{}, RunnerConfig{BatchSize: 500}, m)
		if s.cfg.BatchSize != 1 {
			t.Errorf("batch size = %d, want 1", s.cfg.BatchSize)
		}
	})

	t.Run("keeps explicit settings", func(t *testing.T) {
		cfg := KafkaConfig{Topic: "events", Acks: "1", Compression: "snappy"}
		s := NewKafkaSink(cfg, RunnerConfig{}, m)
		be := s.be.(*kafkaBackend)
		if be.cfg.Topic != "events" || be.cfg.Acks != "1" || be.cfg.Compression != "snappy" {
			t.Errorf("config = %+v, want explicit values kept", be.cfg)
		}
	})
}
