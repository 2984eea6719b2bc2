// Package kafka wraps segmentio/kafka-go with the small producer surface
// the application needs: single and batched publishes with prometheus
// instrumentation.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one record to publish. Value may be []byte, string, or any
// JSON-marshalable type.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer publishes messages through a shared kafka.Writer.
type Producer struct {
	writer      *kafka.Writer
	compression string
}

// NewProducer builds a producer from the given options. At least one
// broker is required.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}

	registerProducerMetrics()
	return &Producer{
		compression: cfg.Compression,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     balancer,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  codecFor(cfg.Compression),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
		},
	}, nil
}

// Publish writes a single message to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.write(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch writes all messages to topic in one writer call.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	return p.write(ctx, topic, messages)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *Producer) write(ctx context.Context, topic string, messages []Message) error {
	start := time.Now()
	records := make([]kafka.Message, 0, len(messages))
	var payloadBytes int64
	for _, m := range messages {
		value, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		records = append(records, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: value,
			Time:  start,
		})
		payloadBytes += int64(len(value))
	}

	err := p.writer.WriteMessages(ctx, records...)
	recordProducerPublish(topic, p.compression, len(records), payloadBytes, time.Since(start), err)
	return err
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("kafka: marshal value: %w", err)
		}
		return encoded, nil
	}
}

func codecFor(name string) kafka.Compression {
	switch name {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once
	producerMessages    *prometheus.CounterVec
	producerErrors      *prometheus.CounterVec
	producerBytes       *prometheus.CounterVec
	producerLatency     *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerMetricsOnce.Do(func() {
		producerMessages = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_kafka_producer_messages_total",
				Help: "Messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		)
		producerErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_kafka_producer_errors_total",
				Help: "Failed producer writes",
			},
			[]string{"topic"},
		)
		producerBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_kafka_producer_bytes_total",
				Help: "Payload bytes published to Kafka",
			},
			[]string{"topic", "compression"},
		)
		producerLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "temascan_kafka_producer_publish_seconds",
				Help:    "Writer publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func recordProducerPublish(topic, compression string, count int, bytes int64, elapsed time.Duration, err error) {
	if producerMessages == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		producerErrors.WithLabelValues(topic).Inc()
	}
	producerMessages.WithLabelValues(topic, compression, result).Add(float64(count))
	producerBytes.WithLabelValues(topic, compression).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}
