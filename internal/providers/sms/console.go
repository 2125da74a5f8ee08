package sms

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleProvider writes text messages to a writer instead of delivering them.
type ConsoleProvider struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleProvider returns a provider printing to out, or stdout when out is nil.
func NewConsoleProvider(out io.Writer) *ConsoleProvider {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleProvider{out: out}
}

func (p *ConsoleProvider) SendSMS(_ context.Context, to, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "[SMS]\nto=%s\nmessage=%s\n", to, message)
	return err
}
