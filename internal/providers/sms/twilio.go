package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/config"
	"github.com/ajayykmr/notifications-service/internal/providers"
	"github.com/ajayykmr/notifications-service/internal/util"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioOption customises the behaviour of the Twilio SMS provider.
type TwilioOption func(*TwilioProvider)

// WithTwilioHTTPClient overrides the HTTP client used to talk to Twilio.
func WithTwilioHTTPClient(client providers.HTTPClient) TwilioOption {
	return func(p *TwilioProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTwilioBaseURL sets the base Twilio API URL. Useful for tests.
func WithTwilioBaseURL(baseURL string) TwilioOption {
	return func(p *TwilioProvider) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			p.baseURL = trimmed
		}
	}
}

// TwilioProvider sends text messages through Twilio's Messages API.
type TwilioProvider struct {
	logger     zerolog.Logger
	accountSID string
	authToken  string
	from       string
	httpClient providers.HTTPClient
	baseURL    string
}

// NewTwilioProvider constructs a Twilio-backed SMS sender.
func NewTwilioProvider(cfg config.TwilioConfig, logger zerolog.Logger, opts ...TwilioOption) (*TwilioProvider, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" {
		return nil, errors.New("twilio sms provider: account SID is required")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilio sms provider: auth token is required")
	}
	from, err := util.NormalizePhone(cfg.FromPhone)
	if err != nil {
		return nil, fmt.Errorf("twilio sms provider: from phone: %w", err)
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	provider := &TwilioProvider{
		logger:     logger,
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		from:       from,
		baseURL:    defaultTwilioBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		WithTwilioBaseURL(cfg.BaseURL)(provider)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}

	return provider, nil
}

// SendSMS delivers message to the E.164 number to.
func (p *TwilioProvider) SendSMS(ctx context.Context, to, message string) error {
	if !util.IsE164(to) {
		return fmt.Errorf("twilio sms provider: %w: %q", util.ErrInvalidPhone, to)
	}

	params := url.Values{}
	params.Set("To", to)
	params.Set("From", p.from)
	params.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return p.transportError(err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		p.logger.Debug().
			Str("to", to).
			Int("status", resp.StatusCode).
			Msg("twilio accepted message")
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	return &providers.ProviderError{
		Provider:   "Twilio",
		Channel:    "SMS",
		StatusCode: resp.StatusCode,
		Detail:     providers.Truncate(string(data)),
	}
}

func (p *TwilioProvider) transportError(err error) error {
	return &providers.ProviderError{Provider: "Twilio", Channel: "SMS", Err: err}
}
