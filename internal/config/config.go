package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for the selector settings.
const (
	KafkaClientSarama  = "sarama"
	KafkaClientKafkaGo = "kafka-go"

	EmailProviderMailgun = "mailgun"
	EmailProviderSMTP    = "smtp"
	EmailProviderConsole = "console"

	SMSProviderTwilio  = "twilio"
	SMSProviderConsole = "console"
	SMSProviderNoop    = "noop"
)

// Config captures all runtime configuration for the notifications worker. It
// is built once at process start and passed down.
type Config struct {
	App       AppConfig
	Kafka     KafkaConfig
	DLQ       DLQConfig
	Worker    WorkerConfig
	Providers ProviderConfig
	Metrics   MetricsConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// KafkaConfig defines broker information and consumer tuning.
type KafkaConfig struct {
	Brokers           []string
	Client            string
	Topic             string
	GroupID           string
	AutoOffsetReset   string
	PollTimeout       time.Duration
	MaxRecordsPerPoll int
	SendTimeout       time.Duration
	ProducerAcks      string
}

// DLQConfig controls dead-lettering.
type DLQConfig struct {
	Enabled     bool
	Topic       string
	SendTimeout time.Duration
}

// WorkerConfig holds operational overrides applied by the runtime loop.
type WorkerConfig struct {
	ForceSMSDisabled bool
}

// MailgunConfig stores Mailgun credentials for email delivery.
type MailgunConfig struct {
	APIKey    string
	Domain    string
	FromEmail string
	BaseURL   string
	Timeout   time.Duration
}

// SMTPConfig stores SMTP credentials for email delivery.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// TwilioConfig stores Twilio credentials for SMS delivery.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
	BaseURL    string
	Timeout    time.Duration
}

// ProviderConfig selects and configures the channel providers.
type ProviderConfig struct {
	EmailProvider string
	SMSProvider   string
	Mailgun       MailgunConfig
	SMTP          SMTPConfig
	Twilio        TwilioConfig
}

// MetricsConfig controls the metrics and health endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string
}

// Load reads environment variables (after loading an optional .env file),
// applies defaults, validates values and returns a populated Config instance.
// Provider credentials are validated when the provider is built.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BOOTSTRAP_SERVERS", true)
	cfg.Kafka.Client = ldr.getChoice("KAFKA_CLIENT", KafkaClientSarama, KafkaClientSarama, KafkaClientKafkaGo)
	cfg.Kafka.Topic = ldr.getString("KAFKA_TOPIC_APPOINTMENTS_CREATED", "appointments.created", false)
	cfg.Kafka.GroupID = ldr.getString("KAFKA_GROUP_ID", "notifications-email-worker", false)
	cfg.Kafka.AutoOffsetReset = ldr.getChoice("KAFKA_AUTO_OFFSET_RESET", "earliest", "earliest", "latest")
	cfg.Kafka.PollTimeout = ldr.getSeconds("KAFKA_POLL_TIMEOUT_SECONDS", time.Second)
	cfg.Kafka.MaxRecordsPerPoll = ldr.getInt("KAFKA_MAX_RECORDS_PER_POLL", 50, false)
	cfg.Kafka.SendTimeout = ldr.getSeconds("KAFKA_SEND_TIMEOUT_SECONDS", 10*time.Second)
	cfg.Kafka.ProducerAcks = ldr.getChoice("KAFKA_PRODUCER_ACKS", "all", "all", "1", "0")

	if cfg.Kafka.MaxRecordsPerPoll < 1 {
		ldr.addError("KAFKA_MAX_RECORDS_PER_POLL must be >= 1")
	}

	cfg.DLQ.Enabled = ldr.getBool("KAFKA_DLQ_ENABLED", true, false)
	cfg.DLQ.Topic = ldr.getString("KAFKA_TOPIC_APPOINTMENTS_CREATED_DLQ", cfg.Kafka.Topic+".dlq", false)
	cfg.DLQ.SendTimeout = ldr.getSeconds("KAFKA_DLQ_SEND_TIMEOUT_SECONDS", cfg.Kafka.SendTimeout)

	cfg.Worker.ForceSMSDisabled = ldr.getBool("KAFKA_EMAIL_WORKER_FORCE_SMS_DISABLED", true, false)

	cfg.Providers.EmailProvider = ldr.getChoice("EMAIL_PROVIDER", EmailProviderMailgun, EmailProviderMailgun, EmailProviderSMTP, EmailProviderConsole)
	cfg.Providers.SMSProvider = ldr.getChoice("SMS_PROVIDER", SMSProviderNoop, SMSProviderTwilio, SMSProviderConsole, SMSProviderNoop)

	cfg.Providers.Mailgun.APIKey = ldr.getString("MAILGUN_API_KEY", "", false)
	cfg.Providers.Mailgun.Domain = ldr.getString("MAILGUN_DOMAIN", "", false)
	cfg.Providers.Mailgun.FromEmail = ldr.getString("MAILGUN_FROM_EMAIL", "", false)
	cfg.Providers.Mailgun.BaseURL = ldr.getString("MAILGUN_API_BASE_URL", "https://api.mailgun.net", false)
	cfg.Providers.Mailgun.Timeout = ldr.getSeconds("MAILGUN_TIMEOUT_SECONDS", 10*time.Second)

	cfg.Providers.SMTP.Host = ldr.getString("SMTP_HOST", "", false)
	cfg.Providers.SMTP.Port = ldr.getInt("SMTP_PORT", 587, false)
	cfg.Providers.SMTP.User = ldr.getString("SMTP_USER", "", false)
	cfg.Providers.SMTP.Pass = ldr.getString("SMTP_PASS", "", false)
	cfg.Providers.SMTP.From = ldr.getString("SMTP_FROM", "", false)

	cfg.Providers.Twilio.AccountSID = ldr.getString("TWILIO_ACCOUNT_SID", "", false)
	cfg.Providers.Twilio.AuthToken = ldr.getString("TWILIO_AUTH_TOKEN", "", false)
	cfg.Providers.Twilio.FromPhone = ldr.getString("TWILIO_FROM_PHONE", "", false)
	cfg.Providers.Twilio.BaseURL = ldr.getString("TWILIO_API_BASE_URL", "https://api.twilio.com", false)
	cfg.Providers.Twilio.Timeout = ldr.getSeconds("TWILIO_TIMEOUT_SECONDS", 10*time.Second)

	cfg.Metrics.Addr = ldr.getString("METRICS_ADDR", "", false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

// getBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "":
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		default:
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

// getSeconds reads a positive, possibly fractional, number of seconds.
func (l *envLoader) getSeconds(key string, def time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return def
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		l.addError(fmt.Sprintf("%s must be a number of seconds", key))
		return def
	}
	d := time.Duration(secs * float64(time.Second))
	if d <= 0 {
		l.addError(fmt.Sprintf("%s must be > 0", key))
		return def
	}
	return d
}

func (l *envLoader) getChoice(key, def string, allowed ...string) string {
	val := strings.ToLower(l.getString(key, def, false))
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	l.addError(fmt.Sprintf("%s must be one of %s", key, strings.Join(allowed, ", ")))
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
