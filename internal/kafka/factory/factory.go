// Package factory builds the broker clients selected by configuration.
package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/broker"
	"github.com/ajayykmr/notifications-service/internal/config"
	"github.com/ajayykmr/notifications-service/internal/kafka/consumer"
	"github.com/ajayykmr/notifications-service/internal/kafka/kafkago"
	"github.com/ajayykmr/notifications-service/internal/kafka/producer"
)

// NewConsumer joins the configured consumer group on the configured topic.
func NewConsumer(cfg config.KafkaConfig, logger zerolog.Logger) (broker.Consumer, error) {
	switch cfg.Client {
	case config.KafkaClientSarama, "":
		c, err := consumer.New(cfg.Brokers, cfg.GroupID, []string{cfg.Topic}, logger,
			consumer.WithAutoOffsetReset(cfg.AutoOffsetReset),
			consumer.WithBufferSize(cfg.MaxRecordsPerPoll*4),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.KafkaClientKafkaGo:
		r, err := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:         cfg.Brokers,
			GroupID:         cfg.GroupID,
			Topics:          []string{cfg.Topic},
			AutoOffsetReset: cfg.AutoOffsetReset,
		}, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("kafka factory: unsupported client %q", cfg.Client)
	}
}

// NewProducer builds a synchronous producer.
func NewProducer(cfg config.KafkaConfig, logger zerolog.Logger) (broker.Producer, error) {
	switch cfg.Client {
	case config.KafkaClientSarama, "":
		p, err := producer.New(cfg.Brokers, logger, producer.WithRequiredAcks(cfg.ProducerAcks))
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.KafkaClientKafkaGo:
		w, err := kafkago.NewWriter(kafkago.WriterConfig{
			Brokers:      cfg.Brokers,
			RequiredAcks: cfg.ProducerAcks,
		}, logger)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("kafka factory: unsupported client %q", cfg.Client)
	}
}
