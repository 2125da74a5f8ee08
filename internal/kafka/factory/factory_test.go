package factory_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/notifications-service/internal/config"
	"github.com/ajayykmr/notifications-service/internal/kafka/factory"
	"github.com/ajayykmr/notifications-service/internal/kafka/kafkago"
)

func TestUnsupportedClient(t *testing.T) {
	cfg := config.KafkaConfig{Client: "franz", Brokers: []string{"localhost:9092"}}

	_, err := factory.NewConsumer(cfg, zerolog.Nop())
	require.Error(t, err)

	_, err = factory.NewProducer(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestKafkaGoClientsAreLazy(t *testing.T) {
	cfg := config.KafkaConfig{
		Client:          config.KafkaClientKafkaGo,
		Brokers:         []string{"localhost:9092"},
		GroupID:         "notifications",
		Topic:           "appointments.created",
		AutoOffsetReset: "earliest",
		ProducerAcks:    "all",
	}

	cons, err := factory.NewConsumer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &kafkago.Reader{}, cons)
	require.NoError(t, cons.Close())

	prod, err := factory.NewProducer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &kafkago.Writer{}, prod)
	require.NoError(t, prod.Close())
}
