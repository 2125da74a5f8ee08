package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/broker"
	kafkapublisher "github.com/ajayykmr/notifications-service/internal/kafka/publisher"
	"github.com/ajayykmr/notifications-service/internal/models"
)

type fakeSyncProducer struct {
	err         error
	block       bool
	topic       string
	key         []byte
	payload     []byte
	hadDeadline bool
}

func (f *fakeSyncProducer) Send(ctx context.Context, topic string, key, value []byte) (broker.Delivery, error) {
	f.topic = topic
	f.key = append([]byte(nil), key...)
	f.payload = append([]byte(nil), value...)
	_, f.hadDeadline = ctx.Deadline()
	if f.block {
		<-ctx.Done()
		return broker.Delivery{}, ctx.Err()
	}
	if f.err != nil {
		return broker.Delivery{}, f.err
	}
	return broker.Delivery{Topic: topic, Partition: 0, Offset: 12}, nil
}

func deadLetter() models.DeadLetterPayload {
	return models.DeadLetterPayload{
		EventType:     "appointments.created.dlq",
		FailedAt:      time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC),
		FailureReason: "one_or_more_requested_channels_failed",
		Source:        models.RecordMeta{Topic: "appointments.created", Partition: 2, Offset: 7},
		Payload:       map[string]any{"event_id": "evt-1"},
		SourceEventID: "evt-1",
	}
}

func TestDLQPublisherPublishesPayload(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := kafkapublisher.NewDLQPublisher(prod, "appointments.created.dlq", time.Second, zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher instance")
	}

	if err := pub.PublishDeadLetter(context.Background(), deadLetter()); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if prod.topic != "appointments.created.dlq" {
		t.Fatalf("expected dlq topic, got %s", prod.topic)
	}
	if string(prod.key) != "evt-1" {
		t.Fatalf("expected key evt-1, got %s", string(prod.key))
	}
	if !prod.hadDeadline {
		t.Fatalf("expected publish to be bounded by a deadline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if decoded["failed_at"] != "2026-02-20T15:00:00Z" {
		t.Fatalf("unexpected failed_at %v", decoded["failed_at"])
	}
	source, ok := decoded["source"].(map[string]any)
	if !ok || source["topic"] != "appointments.created" || source["offset"] != float64(7) {
		t.Fatalf("unexpected source %+v", decoded["source"])
	}
	if decoded["source_event_id"] != "evt-1" {
		t.Fatalf("unexpected source_event_id %v", decoded["source_event_id"])
	}
}

func TestDLQPublisherOmitsBlankSourceEventID(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := kafkapublisher.NewDLQPublisher(prod, "dlq", 0, zerolog.Nop())
	payload := deadLetter()
	payload.SourceEventID = ""
	payload.Payload = "not-json"

	if err := pub.PublishDeadLetter(context.Background(), payload); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if _, ok := decoded["source_event_id"]; ok {
		t.Fatalf("expected source_event_id to be omitted")
	}
	if len(prod.key) != 0 {
		t.Fatalf("expected no key, got %s", string(prod.key))
	}
	if prod.hadDeadline {
		t.Fatalf("expected no deadline without a timeout")
	}
}

func TestDLQPublisherPropagatesProducerError(t *testing.T) {
	expectedErr := errors.New("broker down")
	pub := kafkapublisher.NewDLQPublisher(&fakeSyncProducer{err: expectedErr}, "dlq", time.Second, zerolog.Nop())

	err := pub.PublishDeadLetter(context.Background(), deadLetter())
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected producer error, got %v", err)
	}
}

func TestDLQPublisherTimesOut(t *testing.T) {
	pub := kafkapublisher.NewDLQPublisher(&fakeSyncProducer{block: true}, "dlq", 10*time.Millisecond, zerolog.Nop())

	err := pub.PublishDeadLetter(context.Background(), deadLetter())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEventPublisherKeysByEventID(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := kafkapublisher.NewEventPublisher(prod, "appointments.created", zerolog.Nop())

	event := models.AppointmentCreated{
		EventID:     "evt-9",
		EventType:   models.EventTypeAppointmentCreated,
		Notify:      models.Notify{Email: true},
		Appointment: models.Appointment{AppointmentID: "apt-9", UserID: "u-9", Time: "2026-03-01T10:00:00Z", Email: "x@example.com"},
	}

	delivery, err := pub.PublishAppointmentCreated(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if delivery.Offset != 12 {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if string(prod.key) != "evt-9" {
		t.Fatalf("expected key evt-9, got %s", string(prod.key))
	}

	var decoded map[string]any
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	appointment := decoded["appointment"].(map[string]any)
	if _, ok := appointment["phone_e164"]; ok {
		t.Fatalf("expected phone_e164 to be omitted")
	}
}

func TestNilPublishersReturnSentinel(t *testing.T) {
	if pub := kafkapublisher.NewDLQPublisher(nil, "dlq", 0, zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher")
	}

	var pub *kafkapublisher.DLQPublisher
	if err := pub.PublishDeadLetter(context.Background(), deadLetter()); !errors.Is(err, kafkapublisher.ErrProducerNotInitialised()) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}
