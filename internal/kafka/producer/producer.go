package producer

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
	defaultMetadataRefreshInterval = 30 * time.Second
)

// Option customises the producer during construction.
type Option func(*options)

type options struct {
	config          *sarama.Config
	refreshInterval time.Duration
	acks            string
}

// WithConfig allows callers to supply a preconfigured Sarama config. The
// configuration is cloned internally so the caller retains ownership.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithMetadataRefreshInterval overrides the interval used when refreshing
// cluster metadata to keep readiness information current.
func WithMetadataRefreshInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.refreshInterval = interval
		}
	}
}

// WithRequiredAcks sets the producer acknowledgement level: "all", "1" or "0".
func WithRequiredAcks(acks string) Option {
	return func(o *options) {
		o.acks = acks
	}
}

// Producer wraps a Sarama sync producer and tracks readiness through periodic
// metadata refreshes.
type Producer struct {
	logger zerolog.Logger

	client       sarama.Client
	syncProducer sarama.SyncProducer

	refreshInterval time.Duration

	ready atomic.Bool

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New constructs a Producer using the supplied broker list and logger.
func New(brokers []string, logger zerolog.Logger, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: at least one broker is required")
	}

	settings := &options{
		config:          defaultConfig(),
		refreshInterval: defaultMetadataRefreshInterval,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	cfg := cloneConfig(settings.config)
	if settings.refreshInterval > 0 {
		cfg.Metadata.RefreshFrequency = settings.refreshInterval
	}
	if err := applyAcks(cfg, settings.acks); err != nil {
		return nil, err
	}

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: create client: %w", err)
	}

	syncProd, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka producer: create sync producer: %w", err)
	}

	p := newProducer(client, syncProd, logger, settings.refreshInterval)

	if err := p.refreshMetadata(); err != nil {
		p.logger.Error().Err(err).Msg("kafka producer initial metadata refresh failed")
	} else {
		p.ready.Store(true)
	}

	p.wg.Add(1)
	go p.watchMetadata()

	return p, nil
}

// NewFromSyncProducer wraps an existing sarama.SyncProducer. Readiness then
// follows the outcome of the most recent send.
func NewFromSyncProducer(sp sarama.SyncProducer, logger zerolog.Logger) *Producer {
	p := newProducer(nil, sp, logger, 0)
	p.ready.Store(true)
	return p
}

func newProducer(client sarama.Client, sp sarama.SyncProducer, logger zerolog.Logger, refresh time.Duration) *Producer {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Producer{
		logger:          logger,
		client:          client,
		syncProducer:    sp,
		refreshInterval: refresh,
		stopCh:          make(chan struct{}),
	}
}

// Send publishes a record and waits for the broker acknowledgement or for ctx
// to end, whichever comes first. A send abandoned because of ctx may still be
// delivered by the underlying producer.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte) (broker.Delivery, error) {
	if topic == "" {
		return broker.Delivery{}, errors.New("kafka producer: topic is required")
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(cloneBytes(value)),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(cloneBytes(key))
	}

	type result struct {
		partition int32
		offset    int64
		err       error
	}
	done := make(chan result, 1)
	go func() {
		partition, offset, err := p.syncProducer.SendMessage(msg)
		done <- result{partition: partition, offset: offset, err: err}
	}()

	select {
	case <-ctx.Done():
		return broker.Delivery{}, fmt.Errorf("kafka producer: send sync: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			p.ready.Store(false)
			return broker.Delivery{}, fmt.Errorf("kafka producer: send sync: %w", res.err)
		}
		p.ready.Store(true)
		return broker.Delivery{Topic: topic, Partition: res.partition, Offset: res.offset}, nil
	}
}

// IsReady indicates whether the producer has successfully refreshed metadata
// recently.
func (p *Producer) IsReady() bool {
	return p.ready.Load()
}

// Close releases the underlying Sarama producer and stops background goroutines.
func (p *Producer) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()

		if err := p.syncProducer.Close(); err != nil {
			errs = append(errs, err)
		}
		if p.client != nil && !p.client.Closed() {
			if err := p.client.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (p *Producer) watchMetadata() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.refreshMetadata(); err != nil {
				p.logger.Error().Err(err).Msg("kafka producer metadata refresh failed")
				p.ready.Store(false)
			} else {
				p.ready.Store(true)
			}
		}
	}
}

func (p *Producer) refreshMetadata() error {
	return p.client.RefreshMetadata()
}

func applyAcks(cfg *sarama.Config, acks string) error {
	switch strings.ToLower(strings.TrimSpace(acks)) {
	case "", "all", "-1":
		cfg.Producer.RequiredAcks = sarama.WaitForAll
	case "1":
		cfg.Producer.RequiredAcks = sarama.WaitForLocal
		cfg.Producer.Idempotent = false
		cfg.Net.MaxOpenRequests = 5
	case "0":
		cfg.Producer.RequiredAcks = sarama.NoResponse
		cfg.Producer.Idempotent = false
		cfg.Net.MaxOpenRequests = 5
	default:
		return fmt.Errorf("kafka producer: unsupported acks %q", acks)
	}
	return nil
}

func cloneBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func defaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "notifications-producer"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 6
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.Full = true
	cfg.Metadata.RefreshFrequency = defaultMetadataRefreshInterval
	return cfg
}

func cloneConfig(cfg *sarama.Config) *sarama.Config {
	if cfg == nil {
		return defaultConfig()
	}
	cloned := *cfg
	return &cloned
}
