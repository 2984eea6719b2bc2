// Package repository holds outbound adapters for the domain ports.
package repository

import (
	"context"
	"fmt"
	"time"

	"TemaScan/internal/domain/models"
	"TemaScan/internal/domain/repository"
	pkgkafka "TemaScan/pkg/kafka"
)

// KafkaSignalPublisher publishes completed result sets to a Kafka topic,
// one message per signal keyed by symbol, plus a summary message keyed by
// job id. Downstream consumers (alerting, archival) subscribe to the topic.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a publisher writing to topic.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

type signalMessage struct {
	JobID              string  `json:"job_id"`
	Symbol             string  `json:"symbol"`
	DisplayName        string  `json:"display_name"`
	Timeframe          string  `json:"timeframe"`
	Direction          string  `json:"direction"`
	Variant            string  `json:"variant"`
	AngleDegrees       float64 `json:"angle_degrees"`
	GapPercent         float64 `json:"gap_percent"`
	DailyChangePercent float64 `json:"daily_change_percent"`
	Timestamp          string  `json:"timestamp"`
}

type summaryMessage struct {
	JobID       string `json:"job_id"`
	SignalCount int    `json:"signal_count"`
	CompletedAt string `json:"completed_at"`
	DurationMS  int64  `json:"duration_ms"`
}

// PublishResultSet writes every signal of the result set as an individual
// message and finishes with a job summary.
func (p *KafkaSignalPublisher) PublishResultSet(ctx context.Context, rs *models.ResultSet) error {
	if len(rs.Signals) > 0 {
		msgs := make([]pkgkafka.Message, 0, len(rs.Signals))
		for _, s := range rs.Signals {
			msgs = append(msgs, pkgkafka.Message{
				Key: []byte(s.Symbol),
				Value: signalMessage{
					JobID:              rs.JobID,
					Symbol:             s.Symbol,
					DisplayName:        s.DisplayName,
					Timeframe:          s.Timeframe,
					Direction:          string(s.Direction),
					Variant:            string(s.Variant),
					AngleDegrees:       s.AngleDegrees,
					GapPercent:         s.GapPercent,
					DailyChangePercent: s.DailyChangePercent,
					Timestamp:          s.Timestamp.UTC().Format(time.RFC3339),
				},
			})
		}
		if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
			return fmt.Errorf("publish signals: %w", err)
		}
	}

	summary := summaryMessage{
		JobID:       rs.JobID,
		SignalCount: len(rs.Signals),
		CompletedAt: rs.CompletedAt.UTC().Format(time.RFC3339),
		DurationMS:  rs.Duration.Milliseconds(),
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(rs.JobID), summary); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}
