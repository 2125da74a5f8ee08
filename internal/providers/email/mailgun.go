package email

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
)

const defaultMailgunBaseURL = "https://api.mailgun.net"

// MailgunOption customises the Mailgun provider.
type MailgunOption func(*MailgunProvider)

// WithMailgunHTTPClient overrides the HTTP client used to reach Mailgun.
func WithMailgunHTTPClient(client providers.HTTPClient) MailgunOption {
	return func(p *MailgunProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithMailgunBaseURL points the provider at a different API host. Useful for tests.
func WithMailgunBaseURL(baseURL string) MailgunOption {
	return func(p *MailgunProvider) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			p.baseURL = trimmed
		}
	}
}

// MailgunProvider sends email through the Mailgun messages API.
type MailgunProvider struct {
	logger     zerolog.Logger
	apiKey     string
	domain     string
	from       string
	baseURL    string
	httpClient providers.HTTPClient
}

// NewMailgunProvider validates cfg and constructs a Mailgun-backed sender.
func NewMailgunProvider(cfg config.MailgunConfig, logger zerolog.Logger, opts ...MailgunOption) (*MailgunProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mailgun provider: api key is required")
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		return nil, errors.New("mailgun provider: domain is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("mailgun provider: from email is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &MailgunProvider{
		logger:     logger,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		domain:     strings.TrimSpace(cfg.Domain),
		from:       strings.TrimSpace(cfg.FromEmail),
		baseURL:    defaultMailgunBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		WithMailgunBaseURL(cfg.BaseURL)(p)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p, nil
}

// SendEmail posts a plain-text message to Mailgun. Any non-2xx answer is
// reported as a *providers.ProviderError.
func (p *MailgunProvider) SendEmail(ctx context.Context, to, subject, body string) error {
	form := url.Values{}
	form.Set("from", p.from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", body)

	endpoint := fmt.Sprintf("%s/v3/%s/messages", p.baseURL, url.PathEscape(p.domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return p.transportError(err)
	}
	req.SetBasicAuth("api", p.apiKey)
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
			Msg("mailgun accepted message")
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	return &providers.ProviderError{
		Provider:   "Mailgun",
		Channel:    "email",
		StatusCode: resp.StatusCode,
		Detail:     providers.Truncate(string(data)),
	}
}

func (p *MailgunProvider) transportError(err error) error {
	return &providers.ProviderError{Provider: "Mailgun", Channel: "email", Err: err}
}
