package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/udplog/udplogd/internal/event"
	"github.com/udplog/udplogd/internal/metrics"
)

const (
	kafkaMetadataTimeout = 5 * time.Second
	kafkaDeliveryTimeout = 10 * time.Second
)

// KafkaConfig holds connection settings for the broker sink.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Acks        string
	Compression string
}

// KafkaSink publishes one message per event to a Kafka topic, keyed by the
// listener's ingest id. A publish counts as delivered only once the broker
// acknowledges it, so failed events stay in the backlog for retry.
type KafkaSink struct {
	*runner
}

// NewKafkaSink creates the broker sink. The batch size is pinned to one:
// each event is published and confirmed individually.
func NewKafkaSink(cfg KafkaConfig, rc RunnerConfig, m *metrics.Metrics) *KafkaSink {
	if cfg.Topic == "" {
		cfg.Topic = "udplog"
	}
	if cfg.Acks == "" {
		cfg.Acks = "all"
	}
	rc.BatchSize = 1
	return &KafkaSink{runner: newRunner("kafka", &kafkaBackend{cfg: cfg}, rc, m)}
}

type kafkaBackend struct {
	cfg      KafkaConfig
	producer *kafka.Producer
}

func (k *kafkaBackend) connect(ctx context.Context) error {
	configMap := kafka.ConfigMap{
		"bootstrap.servers":       strings.Join(k.cfg.Brokers, ","),
		"acks":                    k.cfg.Acks,
		"socket.keepalive.enable": true,
	}
	if k.cfg.Compression != "" {
		configMap["compression.type"] = k.cfg.Compression
	}

	producer, err := kafka.NewProducer(&configMap)
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}

	// Probe the cluster so an unreachable broker surfaces here instead of
	// on the first publish.
	if _, err := producer.GetMetadata(&k.cfg.Topic, false, int(kafkaMetadataTimeout/time.Millisecond)); err != nil {
		producer.Close()
		return fmt.Errorf("broker metadata: %w", err)
	}

	k.producer = producer
	return nil
}

func (k *kafkaBackend) send(ctx context.Context, batch []*event.Event) error {
	for _, e := range batch {
		if err := k.publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (k *kafkaBackend) publish(ctx context.Context, e *event.Event) error {
	value, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	deliveries := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.cfg.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(e.IngestID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(e.Category)},
		},
	}
	if err := k.producer.Produce(msg, deliveries); err != nil {
		return fmt.Errorf("produce: %w", err)
	}

	select {
	case ev := <-deliveries:
		report, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery report %T", ev)
		}
		if report.TopicPartition.Error != nil {
			return fmt.Errorf("publish: %w", report.TopicPartition.Error)
		}
		return nil
	case <-time.After(kafkaDeliveryTimeout):
		return fmt.Errorf("publish: no delivery report within %s", kafkaDeliveryTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *kafkaBackend) disconnect() error {
	if k.producer == nil {
		return nil
	}
	k.producer.Flush(int(time.Second / time.Millisecond))
	k.producer.Close()
	k.producer = nil
	return nil
}
