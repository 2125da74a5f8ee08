package factory

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/config"
	"github.com/ajayykmr/notifications-service/internal/notify"
	emailprovider "github.com/ajayykmr/notifications-service/internal/providers/email"
	smsprovider "github.com/ajayykmr/notifications-service/internal/providers/sms"
)

// Email constructs the configured email sender. Console senders print to out.
func Email(cfg config.ProviderConfig, logger zerolog.Logger, out io.Writer) (notify.EmailSender, error) {
	backend := normalize(cfg.EmailProvider, config.EmailProviderMailgun)
	switch backend {
	case config.EmailProviderMailgun:
		provider, err := emailprovider.NewMailgunProvider(cfg.Mailgun, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: mailgun provider init: %w", err)
		}
		logger.Info().
			Str("backend", backend).
			Str("domain", cfg.Mailgun.Domain).
			Msg("email provider initialised")
		return provider, nil
	case config.EmailProviderSMTP:
		provider, err := emailprovider.NewSMTPProvider(cfg.SMTP, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: smtp provider init: %w", err)
		}
		logger.Info().
			Str("backend", backend).
			Str("host", cfg.SMTP.Host).
			Msg("email provider initialised")
		return provider, nil
	case config.EmailProviderConsole:
		logger.Info().
			Str("backend", backend).
			Msg("email provider initialised")
		return emailprovider.NewConsoleProvider(out), nil
	default:
		return nil, fmt.Errorf("factory: unsupported email provider backend %q", cfg.EmailProvider)
	}
}

// SMS constructs the configured SMS sender. Supports twilio, console and noop.
func SMS(cfg config.ProviderConfig, logger zerolog.Logger, out io.Writer) (notify.SMSSender, error) {
	backend := normalize(cfg.SMSProvider, config.SMSProviderNoop)
	switch backend {
	case config.SMSProviderTwilio:
		provider, err := smsprovider.NewTwilioProvider(cfg.Twilio, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: twilio sms provider init: %w", err)
		}
		logger.Info().
			Str("backend", backend).
			Msg("sms provider initialised")
		return provider, nil
	case config.SMSProviderConsole:
		logger.Info().
			Str("backend", backend).
			Msg("sms provider initialised")
		return smsprovider.NewConsoleProvider(out), nil
	case config.SMSProviderNoop:
		logger.Info().
			Str("backend", backend).
			Msg("sms provider initialised")
		return smsprovider.NewNoopProvider(logger), nil
	default:
		return nil, fmt.Errorf("factory: unsupported sms provider backend %q", cfg.SMSProvider)
	}
}

// Senders builds both channel senders from cfg.
func Senders(cfg config.ProviderConfig, logger zerolog.Logger, out io.Writer) (notify.Senders, error) {
	email, err := Email(cfg, logger, out)
	if err != nil {
		return notify.Senders{}, err
	}
	sms, err := SMS(cfg, logger, out)
	if err != nil {
		return notify.Senders{}, err
	}
	return notify.Senders{Email: email, SMS: sms}, nil
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
