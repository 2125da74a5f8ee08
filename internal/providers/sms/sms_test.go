package sms_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/notifications-service/internal/config"
	"github.com/ajayykmr/notifications-service/internal/providers"
	smsprovider "github.com/ajayykmr/notifications-service/internal/providers/sms"
	"github.com/ajayykmr/notifications-service/internal/util"
)

func twilioConfig(baseURL string) config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromPhone:  "+15550001111",
		BaseURL:    baseURL,
		Timeout:    time.Second,
	}
}

func TestNewTwilioProviderValidation(t *testing.T) {
	cfg := twilioConfig("")
	cfg.FromPhone = "5550001111"
	_, err := smsprovider.NewTwilioProvider(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, util.ErrInvalidPhone)

	cfg = twilioConfig("")
	cfg.AuthToken = ""
	_, err = smsprovider.NewTwilioProvider(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestTwilioProviderPostsMessage(t *testing.T) {
	var (
		path string
		form map[string]string
		user string
		pass string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		form = map[string]string{
			"To":   r.PostForm.Get("To"),
			"From": r.PostForm.Get("From"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer server.Close()

	provider, err := smsprovider.NewTwilioProvider(twilioConfig(server.URL), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, provider.SendSMS(context.Background(), "+15555550123", "Appointment apt-1 confirmed."))
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", path)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, map[string]string{
		"To":   "+15555550123",
		"From": "+15550001111",
		"Body": "Appointment apt-1 confirmed.",
	}, form)
}

func TestTwilioProviderRejectsNonE164BeforeSending(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	provider, err := smsprovider.NewTwilioProvider(twilioConfig(server.URL), zerolog.Nop())
	require.NoError(t, err)

	err = provider.SendSMS(context.Background(), "555-0123", "hi")
	assert.ErrorIs(t, err, util.ErrInvalidPhone)
	assert.Zero(t, calls)
}

func TestTwilioProviderReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer server.Close()

	provider, err := smsprovider.NewTwilioProvider(twilioConfig(server.URL), zerolog.Nop())
	require.NoError(t, err)

	err = provider.SendSMS(context.Background(), "+15555550123", "hi")
	var perr *providers.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, `Twilio SMS send failed HTTP 400: {"code":21211,"message":"Invalid 'To' Phone Number"}`, err.Error())
}

func TestConsoleAndNoopProviders(t *testing.T) {
	var out bytes.Buffer
	console := smsprovider.NewConsoleProvider(&out)
	require.NoError(t, console.SendSMS(context.Background(), "+15555550123", "hello"))
	assert.Equal(t, "[SMS]\nto=+15555550123\nmessage=hello\n", out.String())

	noop := smsprovider.NewNoopProvider(zerolog.Nop())
	assert.NoError(t, noop.SendSMS(context.Background(), "+15555550123", "hello"))
}
