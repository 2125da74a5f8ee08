// Package providers holds the shared pieces of the channel provider
// implementations under email/ and sms/.
package providers

import (
	"fmt"
	"net/http"
)

// DetailLimit bounds how much of a provider response body is kept in errors.
const DetailLimit = 300

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderError describes a failed delivery attempt. Either StatusCode and
// Detail are set (the provider answered with a non-2xx status) or Err carries
// the transport failure.
type ProviderError struct {
	Provider   string
	Channel    string
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s send failed HTTP %d: %s", e.Provider, e.Channel, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s send failed: %v", e.Provider, e.Channel, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Truncate returns at most DetailLimit bytes of body, cut on a rune boundary.
func Truncate(body string) string {
	if len(body) <= DetailLimit {
		return body
	}
	cut := DetailLimit
	for cut > 0 && !isRuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
