package notify

import "context"

// EmailSender delivers one email. Implementations report any delivery failure
// as an error; only its text is retained by the decision engine.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one text message to an E.164 phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSenderFunc adapts a function to the EmailSender interface.
type EmailSenderFunc func(ctx context.Context, to, subject, body string) error

// SendEmail calls f.
func (f EmailSenderFunc) SendEmail(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// SMSSenderFunc adapts a function to the SMSSender interface.
type SMSSenderFunc func(ctx context.Context, to, message string) error

// SendSMS calls f.
func (f SMSSenderFunc) SendSMS(ctx context.Context, to, message string) error {
	return f(ctx, to, message)
}

// Senders bundles the delivery capabilities for every channel.
type Senders struct {
	Email EmailSender
	SMS   SMSSender
}
