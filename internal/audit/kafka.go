// Package audit records pipeline decisions on a Kafka topic so operators
// have a durable trail of what was dispatched, skipped or dropped. The
// trail is optional; without brokers configured a nop takes its place.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/models"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

type KafkaTrail struct {
	writer *kafka.Writer
}

func NewKafkaTrail(brokers, topic string) *KafkaTrail {
	return &KafkaTrail{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Record writes the event keyed by payment id. Failures are logged and
// swallowed; the audit trail must never fail the pipeline.
func (t *KafkaTrail) Record(ctx context.Context, event models.AuditEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		telemetry.Logger.Error("Error marshaling audit event", zap.Error(err))
		return
	}

	if err := t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: payload,
	}); err != nil {
		telemetry.Logger.Error("Error writing audit event",
			zap.String("payment_id", event.PaymentID),
			zap.Error(err),
		)
	}
}

func (t *KafkaTrail) Close() error {
	return t.writer.Close()
}

// NopTrail discards audit events.
type NopTrail struct{}

func (NopTrail) Record(context.Context, models.AuditEvent) {}
