// Package kafkago implements the broker capabilities on top of
// github.com/segmentio/kafka-go.
package kafkago

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ajayykmr/notifications-service/internal/broker"
)

const defaultDrainWait = 10 * time.Millisecond

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderConfig configures a group Reader.
type ReaderConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
}

// Reader is a consumer-group reader with synchronous, explicit commits.
type Reader struct {
	reader    messageReader
	logger    zerolog.Logger
	drainWait time.Duration
}

// NewReader builds a Reader for the configured group and topics.
func NewReader(cfg ReaderConfig, logger zerolog.Logger) (*Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka-go reader: at least one broker is required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka-go reader: group id is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka-go reader: at least one topic is required")
	}

	start, err := startOffset(cfg.AutoOffsetReset)
	if err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		StartOffset:    start,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})

	return newReader(reader, logger), nil
}

func newReader(r messageReader, logger zerolog.Logger) *Reader {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Reader{reader: r, logger: logger, drainWait: defaultDrainWait}
}

// Poll waits up to timeout for the first message, then keeps fetching while
// messages arrive within a short drain window, up to max messages.
func (r *Reader) Poll(ctx context.Context, timeout time.Duration, max int) (map[broker.TopicPartition][]broker.Message, error) {
	if max <= 0 {
		max = 1
	}

	firstCtx, cancel := context.WithTimeout(ctx, timeout)
	msg, err := r.reader.FetchMessage(firstCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return map[broker.TopicPartition][]broker.Message{}, nil
		}
		return nil, fmt.Errorf("kafka-go reader: fetch: %w", err)
	}

	batch := []broker.Message{toMessage(msg)}
	for len(batch) < max {
		drainCtx, cancel := context.WithTimeout(ctx, r.drainWait)
		msg, err := r.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			return nil, fmt.Errorf("kafka-go reader: fetch: %w", err)
		}
		batch = append(batch, toMessage(msg))
	}

	return broker.GroupByPartition(batch), nil
}

// Commit stores the next offset for each partition.
func (r *Reader) Commit(ctx context.Context, offsets map[broker.TopicPartition]int64) error {
	if len(offsets) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(offsets))
	for tp, next := range offsets {
		// kafka-go commits the offset after the supplied message.
		msgs = append(msgs, kafka.Message{Topic: tp.Topic, Partition: int(tp.Partition), Offset: next - 1})
	}
	if err := r.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka-go reader: commit: %w", err)
	}
	return nil
}

// Close leaves the group and releases the reader.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Brokers      []string
	RequiredAcks string
}

// Writer publishes records synchronously.
type Writer struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewWriter builds a synchronous Writer.
func NewWriter(cfg WriterConfig, logger zerolog.Logger) (*Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka-go writer: at least one broker is required")
	}
	acks, err := requiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: acks,
		Async:        false,
	}
	return newWriter(writer, logger), nil
}

func newWriter(w messageWriter, logger zerolog.Logger) *Writer {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Writer{writer: w, logger: logger}
}

// Send writes one record. kafka-go does not report where a synchronous write
// landed, so the returned partition and offset are -1.
func (w *Writer) Send(ctx context.Context, topic string, key, value []byte) (broker.Delivery, error) {
	if topic == "" {
		return broker.Delivery{}, errors.New("kafka-go writer: topic is required")
	}
	msg := kafka.Message{Topic: topic, Key: key, Value: value}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return broker.Delivery{}, fmt.Errorf("kafka-go writer: write: %w", err)
	}
	return broker.Delivery{Topic: topic, Partition: -1, Offset: -1}, nil
}

// Close flushes pending writes and releases the writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func toMessage(msg kafka.Message) broker.Message {
	var headers map[string][]byte
	if len(msg.Headers) > 0 {
		headers = make(map[string][]byte, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = h.Value
		}
	}
	return broker.Message{
		Topic:     msg.Topic,
		Partition: int32(msg.Partition),
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Timestamp: msg.Time,
	}
}

func startOffset(reset string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(reset)) {
	case "", "earliest":
		return kafka.FirstOffset, nil
	case "latest":
		return kafka.LastOffset, nil
	default:
		return 0, fmt.Errorf("kafka-go reader: unsupported auto offset reset %q", reset)
	}
}

func requiredAcks(acks string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(acks)) {
	case "", "all", "-1":
		return kafka.RequireAll, nil
	case "1":
		return kafka.RequireOne, nil
	case "0":
		return kafka.RequireNone, nil
	default:
		return 0, fmt.Errorf("kafka-go writer: unsupported acks %q", acks)
	}
}
