// Package notifytest provides in-memory senders for tests.
package notifytest

import (
	"context"
	"sync"
)

// Email is one captured email send.
type Email struct {
	To      string
	Subject string
	Body    string
}

// SMS is one captured SMS send.
type SMS struct {
	To      string
	Message string
}

// EmailSender records every email and fails for addresses listed in FailFor.
type EmailSender struct {
	FailFor map[string]error

	mu   sync.Mutex
	sent []Email
}

// SendEmail implements notify.EmailSender.
func (s *EmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Email{To: to, Subject: subject, Body: body})
	if err, ok := s.FailFor[to]; ok {
		return err
	}
	return nil
}

// Sent returns a copy of the captured emails.
func (s *EmailSender) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.sent...)
}

// SMSSender records every message and fails for numbers listed in FailFor.
type SMSSender struct {
	FailFor map[string]error

	mu   sync.Mutex
	sent []SMS
}

// SendSMS implements notify.SMSSender.
func (s *SMSSender) SendSMS(_ context.Context, to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SMS{To: to, Message: message})
	if err, ok := s.FailFor[to]; ok {
		return err
	}
	return nil
}

// Sent returns a copy of the captured messages.
func (s *SMSSender) Sent() []SMS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SMS(nil), s.sent...)
}
