package config_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ajayykmr/notifications-service/internal/config"
)

var optionalKeys = []string{
	"APP_ENV", "LOG_LEVEL", "KAFKA_CLIENT", "KAFKA_TOPIC_APPOINTMENTS_CREATED",
	"KAFKA_GROUP_ID", "KAFKA_AUTO_OFFSET_RESET", "KAFKA_POLL_TIMEOUT_SECONDS",
	"KAFKA_MAX_RECORDS_PER_POLL", "KAFKA_SEND_TIMEOUT_SECONDS", "KAFKA_PRODUCER_ACKS",
	"KAFKA_DLQ_ENABLED", "KAFKA_TOPIC_APPOINTMENTS_CREATED_DLQ", "KAFKA_DLQ_SEND_TIMEOUT_SECONDS",
	"KAFKA_EMAIL_WORKER_FORCE_SMS_DISABLED", "EMAIL_PROVIDER", "SMS_PROVIDER",
	"MAILGUN_API_BASE_URL", "MAILGUN_TIMEOUT_SECONDS", "TWILIO_API_BASE_URL", "METRICS_ADDR",
}

func clearOptionalEnv(t *testing.T) {
	t.Helper()
	for _, key := range optionalKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearOptionalEnv(t)
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "broker-a:9092")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "development" || cfg.App.LogLevel != "info" {
		t.Fatalf("unexpected app config %+v", cfg.App)
	}
	if cfg.Kafka.Client != config.KafkaClientSarama {
		t.Fatalf("expected sarama client, got %s", cfg.Kafka.Client)
	}
	if cfg.Kafka.Topic != "appointments.created" {
		t.Fatalf("unexpected topic %s", cfg.Kafka.Topic)
	}
	if cfg.Kafka.GroupID != "notifications-email-worker" {
		t.Fatalf("unexpected group id %s", cfg.Kafka.GroupID)
	}
	if cfg.Kafka.AutoOffsetReset != "earliest" {
		t.Fatalf("unexpected offset reset %s", cfg.Kafka.AutoOffsetReset)
	}
	if cfg.Kafka.PollTimeout != time.Second || cfg.Kafka.MaxRecordsPerPoll != 50 {
		t.Fatalf("unexpected poll settings %v %d", cfg.Kafka.PollTimeout, cfg.Kafka.MaxRecordsPerPoll)
	}
	if !cfg.DLQ.Enabled || cfg.DLQ.Topic != "appointments.created.dlq" || cfg.DLQ.SendTimeout != 10*time.Second {
		t.Fatalf("unexpected dlq config %+v", cfg.DLQ)
	}
	if !cfg.Worker.ForceSMSDisabled {
		t.Fatalf("expected sms to be force-disabled by default")
	}
	if cfg.Providers.EmailProvider != config.EmailProviderMailgun || cfg.Providers.SMSProvider != config.SMSProviderNoop {
		t.Fatalf("unexpected providers %s/%s", cfg.Providers.EmailProvider, cfg.Providers.SMSProvider)
	}
	if cfg.Providers.Mailgun.BaseURL != "https://api.mailgun.net" {
		t.Fatalf("unexpected mailgun base url %s", cfg.Providers.Mailgun.BaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearOptionalEnv(t)
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "broker-a:9092, broker-b:9093,")
	t.Setenv("KAFKA_CLIENT", "kafka-go")
	t.Setenv("KAFKA_TOPIC_APPOINTMENTS_CREATED", "appts")
	t.Setenv("KAFKA_POLL_TIMEOUT_SECONDS", "0.25")
	t.Setenv("KAFKA_SEND_TIMEOUT_SECONDS", "3")
	t.Setenv("KAFKA_DLQ_ENABLED", "off")
	t.Setenv("KAFKA_EMAIL_WORKER_FORCE_SMS_DISABLED", "No")
	t.Setenv("SMS_PROVIDER", "twilio")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantBrokers := []string{"broker-a:9092", "broker-b:9093"}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, wantBrokers) {
		t.Fatalf("expected brokers %v, got %v", wantBrokers, cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Client != config.KafkaClientKafkaGo {
		t.Fatalf("expected kafka-go client, got %s", cfg.Kafka.Client)
	}
	if cfg.Kafka.PollTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected poll timeout %v", cfg.Kafka.PollTimeout)
	}
	if cfg.DLQ.Enabled {
		t.Fatalf("expected dlq to be disabled")
	}
	if cfg.DLQ.Topic != "appts.dlq" {
		t.Fatalf("expected dlq topic derived from source topic, got %s", cfg.DLQ.Topic)
	}
	if cfg.DLQ.SendTimeout != 3*time.Second {
		t.Fatalf("expected dlq timeout to fall back to send timeout, got %v", cfg.DLQ.SendTimeout)
	}
	if cfg.Worker.ForceSMSDisabled {
		t.Fatalf("expected force sms disabled to be false")
	}
	if cfg.Providers.SMSProvider != config.SMSProviderTwilio {
		t.Fatalf("unexpected sms provider %s", cfg.Providers.SMSProvider)
	}
}

func TestLoadAccumulatesErrors(t *testing.T) {
	clearOptionalEnv(t)
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", " , ")
	t.Setenv("KAFKA_POLL_TIMEOUT_SECONDS", "0")
	t.Setenv("KAFKA_DLQ_ENABLED", "maybe")
	t.Setenv("EMAIL_PROVIDER", "pigeon")

	_, err := config.Load()
	if err == nil {
		t.Fatalf("expected error")
	}

	msg := err.Error()
	for _, want := range []string{
		"KAFKA_BOOTSTRAP_SERVERS must contain at least one entry",
		"KAFKA_POLL_TIMEOUT_SECONDS must be > 0",
		"KAFKA_DLQ_ENABLED must be a valid boolean",
		"EMAIL_PROVIDER must be one of",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in error %q", want, msg)
		}
	}
}

func TestLoadRequiresBrokers(t *testing.T) {
	clearOptionalEnv(t)
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "")

	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "KAFKA_BOOTSTRAP_SERVERS is required") {
		t.Fatalf("expected missing brokers error, got %v", err)
	}
}
