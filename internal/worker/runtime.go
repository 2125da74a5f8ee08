package worker

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/broker"
	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/notify"
)

// Dead-letter results reported to the Observer.
const (
	DeadLetterPublished = "published"
	DeadLetterFailed    = "failed"
	DeadLetterDisabled  = "disabled"
)

// Config contains the runtime settings for the consumer loop.
type Config struct {
	PollTimeout       time.Duration
	MaxRecordsPerPoll int
	ForceSMSDisabled  bool
	DeadLetterEnabled bool
}

// DeadLetterPublisher writes a dead-letter record for a source record that
// could not be handled.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, payload models.DeadLetterPayload) error
}

// Observer receives processing signals, typically for metrics.
type Observer interface {
	ObserveOutcome(outcome models.RecordOutcome)
	ObserveDeadLetter(result string)
	ObserveCommit()
	ObserveDecodeFailure()
}

// Dependencies collects the collaborators required by the runtime.
type Dependencies struct {
	Consumer    broker.Consumer
	DeadLetters DeadLetterPublisher
	Senders     notify.Senders
	Observer    Observer
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Runtime polls the broker and drives every record through ProcessOne,
// committing, dead-lettering or leaving offsets for redelivery.
type Runtime struct {
	cfg         Config
	consumer    broker.Consumer
	deadLetters DeadLetterPublisher
	senders     notify.Senders
	observer    Observer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRuntime validates the configuration and dependencies and builds a
// Runtime.
func NewRuntime(cfg Config, deps Dependencies) (*Runtime, error) {
	if cfg.PollTimeout <= 0 {
		return nil, errors.New("worker: poll timeout must be > 0")
	}
	if cfg.MaxRecordsPerPoll < 1 {
		return nil, errors.New("worker: max records per poll must be >= 1")
	}
	if deps.Consumer == nil {
		return nil, errors.New("worker: consumer dependency is required")
	}
	if cfg.DeadLetterEnabled && deps.DeadLetters == nil {
		return nil, errors.New("worker: dead-letter publisher is required when dead-lettering is enabled")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "worker_runtime").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Runtime{
		cfg:         cfg,
		consumer:    deps.Consumer,
		deadLetters: deps.DeadLetters,
		senders:     deps.Senders,
		observer:    observer,
		logger:      logger,
		now:         nowFunc,
	}, nil
}

// Run polls until ctx is cancelled or the broker fails. Cancellation is only
// observed between polls; a batch already fetched is always processed to the
// end. Run returns nil on cancellation and a *BrokerError otherwise.
func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("poll_timeout", r.cfg.PollTimeout).
		Int("max_records", r.cfg.MaxRecordsPerPoll).
		Bool("dlq_enabled", r.cfg.DeadLetterEnabled).
		Bool("force_sms_disabled", r.cfg.ForceSMSDisabled).
		Msg("worker: start")

	for {
		if ctx.Err() != nil {
			r.logger.Info().Msg("worker: stop requested")
			return nil
		}

		batch, err := r.consumer.Poll(ctx, r.cfg.PollTimeout, r.cfg.MaxRecordsPerPoll)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info().Msg("worker: stop requested")
				return nil
			}
			return &BrokerError{Op: "poll", Err: err}
		}

		if err := r.HandleBatch(context.WithoutCancel(ctx), batch); err != nil {
			return err
		}
	}
}

// HandleBatch processes one polled batch partition by partition, in ascending
// topic and partition order.
func (r *Runtime) HandleBatch(ctx context.Context, batch map[broker.TopicPartition][]broker.Message) error {
	for _, tp := range broker.SortedPartitions(batch) {
		for _, msg := range batch[tp] {
			if err := r.handleMessage(ctx, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runtime) handleMessage(ctx context.Context, msg broker.Message) error {
	meta := models.RecordMeta{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset}

	payload, err := DecodePayload(msg.Value)
	if err != nil {
		r.observer.ObserveDecodeFailure()
		reason := models.ReasonDecodeFailedPrefix + err.Error()
		r.logger.Warn().
			Str("topic", meta.Topic).
			Int32("partition", meta.Partition).
			Int64("offset", meta.Offset).
			Err(err).
			Msg("worker: record could not be decoded")
		return r.deadLetter(ctx, meta, reason, jsonSafe(msg.Value))
	}

	value := payload
	if r.cfg.ForceSMSDisabled {
		value = withSMSDisabled(payload)
	}

	record := NewRecordFromMessage(msg, value)
	commit := func(ctx context.Context, rec Record) error {
		return r.commitRecord(ctx, rec.Meta())
	}
	reject := func(ctx context.Context, rec Record, reason string) error {
		return r.deadLetter(ctx, rec.Meta(), reason, payload)
	}

	outcome, err := ProcessOne(ctx, record, r.senders, commit, reject)
	r.observer.ObserveOutcome(outcome)
	r.logOutcome(outcome)
	return err
}

// deadLetter publishes the failure and commits the source offset only when the
// publish succeeded. Publish failures leave the offset for redelivery and are
// not returned.
func (r *Runtime) deadLetter(ctx context.Context, meta models.RecordMeta, reason string, source any) error {
	log := r.logger.With().
		Str("topic", meta.Topic).
		Int32("partition", meta.Partition).
		Int64("offset", meta.Offset).
		Str("reason", reason).
		Logger()

	if !r.cfg.DeadLetterEnabled {
		r.observer.ObserveDeadLetter(DeadLetterDisabled)
		log.Warn().Msg("worker: dead-lettering disabled; offset not committed")
		return nil
	}

	payload := models.DeadLetterPayload{
		EventType:     models.DeadLetterEventType(meta.Topic),
		FailedAt:      r.now().UTC(),
		FailureReason: reason,
		Source:        meta,
		Payload:       source,
		SourceEventID: sourceEventID(source),
	}

	if err := r.deadLetters.PublishDeadLetter(ctx, payload); err != nil {
		r.observer.ObserveDeadLetter(DeadLetterFailed)
		log.Error().Err(err).Msg("worker: failed to publish dead letter; offset not committed")
		return nil
	}

	r.observer.ObserveDeadLetter(DeadLetterPublished)
	log.Info().Msg("worker: dead letter published")
	return r.commitRecord(ctx, meta)
}

func (r *Runtime) commitRecord(ctx context.Context, meta models.RecordMeta) error {
	tp := broker.TopicPartition{Topic: meta.Topic, Partition: meta.Partition}
	next := meta.Offset + 1
	if err := r.consumer.Commit(ctx, map[broker.TopicPartition]int64{tp: next}); err != nil {
		r.logger.Error().
			Str("topic", meta.Topic).
			Int32("partition", meta.Partition).
			Int64("offset", meta.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
		return &BrokerError{Op: "commit", Err: err}
	}

	r.observer.ObserveCommit()
	r.logger.Debug().
		Str("topic", meta.Topic).
		Int32("partition", meta.Partition).
		Int64("committed_offset", next).
		Msg("worker: offset committed")
	return nil
}

func (r *Runtime) logOutcome(outcome models.RecordOutcome) {
	evt := r.logger.Info()
	if outcome.Status != models.StatusProcessedAndCommitted {
		evt = r.logger.Warn()
	}
	evt = evt.
		Str("topic", outcome.Record.Topic).
		Int32("partition", outcome.Record.Partition).
		Int64("offset", outcome.Record.Offset).
		Str("status", string(outcome.Status)).
		Bool("should_commit", outcome.ShouldCommit)
	if outcome.Event != nil {
		evt = evt.Str("event_id", outcome.Event.EventID)
	}
	if outcome.Error != "" {
		evt = evt.Str("error", outcome.Error)
	}
	evt.Msg("worker: record processed")
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(models.RecordOutcome) {}
func (nopObserver) ObserveDeadLetter(string)           {}
func (nopObserver) ObserveCommit()                     {}
func (nopObserver) ObserveDecodeFailure()              {}
