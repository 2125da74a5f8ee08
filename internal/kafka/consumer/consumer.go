// Package consumer adapts a sarama consumer group to the pull-based
// broker.Consumer contract: the group session runs in the background and feeds
// a bounded buffer that Poll drains, while Commit marks and flushes offsets on
// the live session.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/broker"
)

const (
	defaultSessionTimeout   = 30 * time.Second
	defaultHeartbeat        = 3 * time.Second
	defaultRebalanceTimeout = 30 * time.Second
	defaultBufferSize       = 256
)

var (
	errClosed = errors.New("kafka consumer: closed")
)

// Option customises the consumer during construction.
type Option func(*options)

type options struct {
	config        *sarama.Config
	initialOffset string
	bufferSize    int
}

// WithConfig allows callers to supply a Sarama config. The configuration is
// cloned internally so the caller retains ownership.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithAutoOffsetReset selects where a group without committed offsets starts:
// "earliest" or "latest".
func WithAutoOffsetReset(reset string) Option {
	return func(o *options) {
		o.initialOffset = reset
	}
}

// WithBufferSize bounds the number of fetched records waiting for Poll.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// Consumer wraps a Sarama consumer group with manual commits and readiness
// tracking.
type Consumer struct {
	logger zerolog.Logger

	group   sarama.ConsumerGroup
	groupID string
	topics  []string

	messages chan *sarama.ConsumerMessage
	fatal    chan error

	ready atomic.Bool

	mu      sync.Mutex
	session sarama.ConsumerGroupSession

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	errorsDoneCh chan struct{}
	closeOnce    sync.Once
}

// New joins groupID on the supplied brokers and starts consuming topics in the
// background. Records become visible through Poll.
func New(brokers []string, groupID string, topics []string, logger zerolog.Logger, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer: at least one broker is required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}
	if len(topics) == 0 {
		return nil, errors.New("kafka consumer: at least one topic is required")
	}

	settings := &options{
		config:     defaultConfig(),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	cfg := cloneConfig(settings.config)
	cfg.Consumer.Offsets.AutoCommit.Enable = false
	initial, err := initialOffset(settings.initialOffset)
	if err != nil {
		return nil, err
	}
	if settings.initialOffset != "" {
		cfg.Consumer.Offsets.Initial = initial
	}

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: create consumer group: %w", err)
	}

	return newFromGroup(group, groupID, topics, logger, settings.bufferSize), nil
}

func newFromGroup(group sarama.ConsumerGroup, groupID string, topics []string, logger zerolog.Logger, bufferSize int) *Consumer {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		logger:       logger,
		group:        group,
		groupID:      groupID,
		topics:       append([]string(nil), topics...),
		messages:     make(chan *sarama.ConsumerMessage, bufferSize),
		fatal:        make(chan error, 1),
		cancel:       cancel,
		errorsDoneCh: make(chan struct{}),
	}

	go c.consumeErrors()

	c.wg.Add(1)
	go c.run(ctx)

	return c
}

// Poll waits up to timeout for the first record and then drains whatever is
// already buffered, up to max records. A consumer group failure is returned as
// an error.
func (c *Consumer) Poll(ctx context.Context, timeout time.Duration, max int) (map[broker.TopicPartition][]broker.Message, error) {
	if max <= 0 {
		max = 1
	}

	select {
	case err := <-c.fatal:
		return nil, err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	batch := make([]broker.Message, 0, max)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-c.fatal:
		return nil, err
	case <-timer.C:
		return map[broker.TopicPartition][]broker.Message{}, nil
	case msg := <-c.messages:
		batch = append(batch, toMessage(msg))
	}

drain:
	for len(batch) < max {
		select {
		case msg := <-c.messages:
			batch = append(batch, toMessage(msg))
		default:
			break drain
		}
	}

	return broker.GroupByPartition(batch), nil
}

// Commit marks the supplied next offsets on the active group session and
// flushes them. Without an active session, for example during a rebalance,
// nothing is committed and the records will be redelivered.
//
// ctx is unused: sarama's session commit takes no context and returns no
// error. Commit failures arrive asynchronously on the group's Errors channel;
// non-retriable ones are surfaced as a fatal error from the next Poll.
func (c *Consumer) Commit(_ context.Context, offsets map[broker.TopicPartition]int64) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.logger.Warn().Msg("kafka consumer: commit skipped, no active group session")
		return nil
	}

	for tp, next := range offsets {
		session.MarkOffset(tp.Topic, tp.Partition, next, "")
	}
	session.Commit()
	return nil
}

// IsReady returns true once the consumer has joined the group and is actively
// consuming.
func (c *Consumer) IsReady() bool {
	return c.ready.Load()
}

// Close shuts down the consumer group and associated goroutines.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.group.Close()
		c.wg.Wait()
		<-c.errorsDoneCh
	})
	return err
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	handler := &groupHandler{consumer: c}
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.group.Consume(ctx, c.topics, handler)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return
			}
			c.logger.Error().Err(err).Msg("kafka consumer: consume error")
			c.reportFatal(fmt.Errorf("kafka consumer: consume: %w", err))
			return
		}
	}
}

func (c *Consumer) reportFatal(err error) {
	select {
	case c.fatal <- err:
	default:
	}
}

func (c *Consumer) consumeErrors() {
	defer close(c.errorsDoneCh)
	for err := range c.group.Errors() {
		if err == nil {
			continue
		}
		c.logger.Error().Err(err).Msg("kafka consumer error")
		if isCommitFailure(err) {
			c.reportFatal(fmt.Errorf("kafka consumer: commit: %w", err))
		}
	}
}

// commitFailures are offset commit errors sarama does not retry.
var commitFailures = map[sarama.KError]bool{
	sarama.ErrOffsetMetadataTooLarge:   true,
	sarama.ErrInvalidCommitOffsetSize:  true,
	sarama.ErrGroupAuthorizationFailed: true,
	sarama.ErrTopicAuthorizationFailed: true,
}

func isCommitFailure(err error) bool {
	var kerr sarama.KError
	return errors.As(err, &kerr) && commitFailures[kerr]
}

func (c *Consumer) setSession(session sarama.ConsumerGroupSession) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.consumer.setSession(session)
	h.consumer.ready.Store(true)
	h.consumer.logger.Info().
		Str("group_id", h.consumer.groupID).
		Int32("generation", session.GenerationID()).
		Msg("kafka consumer group ready")
	return nil
}

func (h *groupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.consumer.ready.Store(false)
	h.consumer.setSession(nil)
	h.consumer.logger.Info().
		Str("group_id", h.consumer.groupID).
		Msg("kafka consumer group cleanup")
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.consumer.messages <- msg:
			case <-session.Context().Done():
				return nil
			}
		}
	}
}

func initialOffset(reset string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(reset)) {
	case "", "earliest":
		return sarama.OffsetOldest, nil
	case "latest":
		return sarama.OffsetNewest, nil
	default:
		return 0, fmt.Errorf("kafka consumer: unsupported auto offset reset %q", reset)
	}
}

func toMessage(msg *sarama.ConsumerMessage) broker.Message {
	return broker.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       cloneBytes(msg.Key),
		Value:     cloneBytes(msg.Value),
		Headers:   fromHeaders(msg.Headers),
		Timestamp: msg.Timestamp,
	}
}

func defaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "notifications-consumer"

	cfg.Consumer.Group.Session.Timeout = defaultSessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = defaultHeartbeat
	cfg.Consumer.Group.Rebalance.Timeout = defaultRebalanceTimeout
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Enable = false
	cfg.Consumer.Return.Errors = true

	return cfg
}

func cloneConfig(cfg *sarama.Config) *sarama.Config {
	if cfg == nil {
		return defaultConfig()
	}
	cloned := *cfg
	return &cloned
}

func cloneBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func fromHeaders(headers []*sarama.RecordHeader) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = cloneBytes(h.Value)
	}
	return out
}
