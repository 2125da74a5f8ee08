package email_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/notifications-service/internal/config"
	emailprovider "github.com/ajayykmr/notifications-service/internal/providers/email"
)

func TestNewSMTPProviderValidation(t *testing.T) {
	logger := zerolog.New(io.Discard)

	tests := []struct {
		name string
		cfg  config.SMTPConfig
	}{
		{
			name: "missing host",
			cfg:  config.SMTPConfig{Port: 25, From: "noreply@example.com"},
		},
		{
			name: "invalid port",
			cfg:  config.SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"},
		},
		{
			name: "missing from",
			cfg:  config.SMTPConfig{Host: "smtp.example.com", Port: 25},
		},
		{
			name: "malformed from",
			cfg:  config.SMTPConfig{Host: "smtp.example.com", Port: 25, From: "not-an-address"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := emailprovider.NewSMTPProvider(tc.cfg, logger); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestSMTPProviderRejectsInvalidRecipient(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "noreply@example.com"}
	dialed := false
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		dialed = true
		return nil, errors.New("unexpected dial")
	})

	provider, err := emailprovider.NewSMTPProvider(cfg, zerolog.Nop(), emailprovider.WithSMTPDialer(dialer))
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	if err := provider.SendEmail(context.Background(), "not an address", "s", "b"); err == nil {
		t.Fatalf("expected error for malformed recipient")
	}
	if dialed {
		t.Fatalf("expected no connection for malformed recipient")
	}
}

func TestSMTPProviderDialFailure(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "noreply@example.com"}
	dialErr := errors.New("connection refused")
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		if address != "smtp.example.com:2525" {
			t.Errorf("unexpected dial address %s", address)
		}
		return nil, dialErr
	})

	provider, err := emailprovider.NewSMTPProvider(cfg, zerolog.Nop(), emailprovider.WithSMTPDialer(dialer))
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	err = provider.SendEmail(context.Background(), "patient@example.com", "s", "b")
	if !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestSMTPProviderSendsPlainTextMessage(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cfg := config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 2525,
		From: "noreply@example.com",
	}

	var (
		waitFn     func()
		transcript *smtpTranscript
	)

	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, tr, wait := startFakeSMTPServer(t, cfg.From, []string{"patient@example.com"})
		transcript = tr
		waitFn = wait
		return conn, nil
	})

	fixed := time.Date(2025, 10, 11, 10, 0, 0, 0, time.UTC)
	provider, err := emailprovider.NewSMTPProvider(cfg, logger,
		emailprovider.WithSMTPTLSConfig(nil),
		emailprovider.WithSMTPDialer(dialer),
		emailprovider.WithSMTPClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("unexpected error creating provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	subject := "Appointment confirmed: 2025-10-12T09:30:00Z"
	err = provider.SendEmail(ctx, "patient@example.com", subject, "Line 1\nLine 2\r\nLine 3")
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if waitFn != nil {
		waitFn()
	}

	if transcript == nil {
		t.Fatalf("expected transcript to be captured")
	}
	if transcript.mailFrom != cfg.From {
		t.Fatalf("expected MAIL FROM %q, got %q", cfg.From, transcript.mailFrom)
	}
	if len(transcript.rcpts) != 1 || transcript.rcpts[0] != "patient@example.com" {
		t.Fatalf("unexpected rcpt to list: %v", transcript.rcpts)
	}

	data := transcript.data
	for _, want := range []string{
		"From: noreply@example.com",
		"To: patient@example.com",
		"Subject: " + subject,
		"Date: " + fixed.Format(time.RFC1123Z),
		"Content-Type: text/plain; charset=UTF-8",
		"Line 1\r\nLine 2\r\nLine 3",
	} {
		if !strings.Contains(data, want) {
			t.Fatalf("expected message to contain %q, got %q", want, data)
		}
	}
}

// Helpers.

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (d dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

type smtpTranscript struct {
	mailFrom string
	rcpts    []string
	data     string
}

func startFakeSMTPServer(t *testing.T, expectedFrom string, expectedRecipients []string) (net.Conn, *smtpTranscript, func()) {
	t.Helper()

	server, client := net.Pipe()
	transcript := &smtpTranscript{}
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer server.Close()
		if err := runFakeSMTPConversation(t, server, expectedFrom, expectedRecipients, transcript); err != nil && !errors.Is(err, io.EOF) {
			t.Errorf("fake smtp server: %v", err)
		}
	}()

	wait := func() {
		wg.Wait()
	}

	return client, transcript, wait
}

func runFakeSMTPConversation(t *testing.T, conn net.Conn, expectedFrom string, expectedRecipients []string, transcript *smtpTranscript) error {
	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	writeLine := func(format string, args ...interface{}) error {
		if _, err := fmt.Fprintf(writer, format+"\r\n", args...); err != nil {
			return err
		}
		return writer.Flush()
	}

	if err := writeLine("220 fake smtp ready"); err != nil {
		return err
	}

	rcptIndex := 0

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO ") || strings.HasPrefix(upper, "HELO "):
			if err := writeLine("250-fake"); err != nil {
				return err
			}
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case strings.HasPrefix(upper, "MAIL FROM:"):
			addr := extractSMTPAddress(line)
			transcript.mailFrom = addr
			if expectedFrom != "" && addr != expectedFrom {
				t.Errorf("unexpected MAIL FROM: got %s, want %s", addr, expectedFrom)
			}
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case strings.HasPrefix(upper, "RCPT TO:"):
			addr := extractSMTPAddress(line)
			if rcptIndex < len(expectedRecipients) && addr != expectedRecipients[rcptIndex] {
				t.Errorf("unexpected RCPT TO: got %s, want %s", addr, expectedRecipients[rcptIndex])
			}
			transcript.rcpts = append(transcript.rcpts, addr)
			rcptIndex++
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case upper == "DATA":
			if err := writeLine("354 Start mail input; end with <CRLF>.<CRLF>"); err != nil {
				return err
			}
			var data strings.Builder
			for {
				msgLine, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				if msgLine == ".\r\n" {
					break
				}
				data.WriteString(msgLine)
			}
			transcript.data = data.String()
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		case upper == "QUIT":
			if err := writeLine("221 Bye"); err != nil {
				return err
			}
			return nil
		default:
			if err := writeLine("250 OK"); err != nil {
				return err
			}
		}
	}
}

func extractSMTPAddress(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start != -1 && end != -1 && end > start+1 {
		return strings.TrimSpace(line[start+1 : end])
	}
	if idx := strings.Index(line, ":"); idx != -1 && idx+1 < len(line) {
		return strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line)
}
