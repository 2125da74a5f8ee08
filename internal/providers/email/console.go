package email

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleProvider writes emails to a writer instead of delivering them.
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

// SendEmail prints the message in a fixed block format.
func (p *ConsoleProvider) SendEmail(_ context.Context, to, subject, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "[EMAIL]\nto=%s\nsubject=%s\nbody=%s\n", to, subject, body)
	return err
}
