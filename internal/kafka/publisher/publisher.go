package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/broker"
	"github.com/ajayykmr/notifications-service/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the Kafka publishers.
type SyncProducer interface {
	Send(ctx context.Context, topic string, key, value []byte) (broker.Delivery, error)
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// DLQPublisher writes dead-letter records to the configured Kafka topic.
type DLQPublisher struct {
	producer SyncProducer
	topic    string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewDLQPublisher constructs a DLQPublisher instance. A positive timeout bounds
// every publish.
func NewDLQPublisher(prod SyncProducer, topic string, timeout time.Duration, logger zerolog.Logger) *DLQPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &DLQPublisher{
		producer: prod,
		topic:    topic,
		timeout:  timeout,
		logger:   logger,
	}
}

// PublishDeadLetter writes the supplied dead-letter payload to Kafka and waits
// for the acknowledgement. The record is keyed by the source event id when one
// is known.
func (p *DLQPublisher) PublishDeadLetter(ctx context.Context, payload models.DeadLetterPayload) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal dead letter: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var key []byte
	if payload.SourceEventID != "" {
		key = []byte(payload.SourceEventID)
	}

	delivery, err := p.producer.Send(ctx, p.topic, key, value)
	if err != nil {
		return fmt.Errorf("kafka publisher: publish dead letter: %w", err)
	}

	p.logger.Debug().
		Str("dlq_topic", delivery.Topic).
		Int32("dlq_partition", delivery.Partition).
		Int64("dlq_offset", delivery.Offset).
		Str("source_topic", payload.Source.Topic).
		Int32("source_partition", payload.Source.Partition).
		Int64("source_offset", payload.Source.Offset).
		Msg("kafka publisher: dead letter delivered")
	return nil
}

// EventPublisher writes appointment events to the source topic.
type EventPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewEventPublisher constructs an EventPublisher instance.
func NewEventPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *EventPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &EventPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// PublishAppointmentCreated writes event keyed by its event id and returns
// where it landed.
func (p *EventPublisher) PublishAppointmentCreated(ctx context.Context, event models.AppointmentCreated) (broker.Delivery, error) {
	if p == nil || p.producer == nil {
		return broker.Delivery{}, errProducerNotInitialised
	}

	value, err := json.Marshal(event)
	if err != nil {
		return broker.Delivery{}, fmt.Errorf("kafka publisher: marshal appointment event: %w", err)
	}

	delivery, err := p.producer.Send(ctx, p.topic, []byte(event.EventID), value)
	if err != nil {
		return broker.Delivery{}, fmt.Errorf("kafka publisher: publish appointment event: %w", err)
	}
	return delivery, nil
}
