package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/notify"
	emailprovider "github.com/ajayykmr/notifications-service/internal/providers/email"
	smsprovider "github.com/ajayykmr/notifications-service/internal/providers/sms"
	"github.com/ajayykmr/notifications-service/internal/worker"
)

// Recipients the flow demo treats as unreachable.
const (
	failingEmail = "fail-email@example.com"
	failingPhone = "+15555559999"
)

func newFlowDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flow-demo",
		Short: "Run the consumer flow over built-in sample records without Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlowDemo(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

type offsetRef struct {
	Partition int32
	Offset    int64
	Reason    string
}

func runFlowDemo(ctx context.Context, out io.Writer) error {
	emailConsole := emailprovider.NewConsoleProvider(out)
	smsConsole := smsprovider.NewConsoleProvider(out)
	senders := notify.Senders{
		Email: notify.EmailSenderFunc(func(ctx context.Context, to, subject, body string) error {
			if to == failingEmail {
				return errors.New("email provider unavailable")
			}
			return emailConsole.SendEmail(ctx, to, subject, body)
		}),
		SMS: notify.SMSSenderFunc(func(ctx context.Context, to, message string) error {
			if to == failingPhone {
				return errors.New("sms provider unavailable")
			}
			return smsConsole.SendSMS(ctx, to, message)
		}),
	}

	var committed, rejected []offsetRef
	commit := func(_ context.Context, r worker.Record) error {
		committed = append(committed, offsetRef{Partition: r.Partition, Offset: r.Offset})
		fmt.Fprintf(out, "[COMMIT] partition=%d offset=%d\n", r.Partition, r.Offset)
		return nil
	}
	reject := func(_ context.Context, r worker.Record, reason string) error {
		rejected = append(rejected, offsetRef{Partition: r.Partition, Offset: r.Offset, Reason: reason})
		fmt.Fprintf(out, "[NO-COMMIT] partition=%d offset=%d reason=%s\n", r.Partition, r.Offset, reason)
		return nil
	}

	outcomes, err := worker.ProcessBatch(ctx, sampleRecords(), senders, commit, reject)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "[BATCH SUMMARY]")
	for _, o := range outcomes {
		fmt.Fprintf(out, "offset=%d status=%s should_commit=%t error=%s\n", o.Record.Offset, o.Status, o.ShouldCommit, o.Error)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "[OFFSETS]")
	fmt.Fprintf(out, "committed=%v\n", formatOffsets(committed))
	fmt.Fprintf(out, "rejected=%v\n", formatOffsets(rejected))
	return nil
}

func formatOffsets(refs []offsetRef) []string {
	formatted := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Reason == "" {
			formatted = append(formatted, fmt.Sprintf("(%d,%d)", ref.Partition, ref.Offset))
			continue
		}
		formatted = append(formatted, fmt.Sprintf("(%d,%d,%q)", ref.Partition, ref.Offset, ref.Reason))
	}
	return formatted
}

func sampleRecords() []worker.Record {
	record := func(offset int64, value map[string]any) worker.Record {
		return worker.Record{Topic: models.EventTypeAppointmentCreated, Partition: 0, Offset: offset, Value: value}
	}
	appointment := func(id, user, at, email string) map[string]any {
		return map[string]any{"appointment_id": id, "user_id": user, "time": at, "email": email}
	}

	first := appointment("apt-100", "user-100", "2026-02-20T15:00:00Z", "person@example.com")
	first["phone_e164"] = "+15555550123"

	return []worker.Record{
		record(100, map[string]any{
			"event_id":    "evt-100",
			"notify":      map[string]any{"email": true, "sms": true},
			"appointment": first,
		}),
		record(101, map[string]any{
			"event_id":    "evt-101",
			"notify":      map[string]any{"email": false, "sms": true},
			"appointment": appointment("apt-101", "user-101", "2026-02-20T16:00:00Z", "person@example.com"),
		}),
		record(102, map[string]any{
			"notify":      map[string]any{"email": true, "sms": false},
			"appointment": appointment("apt-102", "user-102", "2026-02-20T17:00:00Z", "person@example.com"),
		}),
		record(103, map[string]any{
			"event_id":    "evt-103",
			"notify":      map[string]any{"email": true, "sms": false},
			"appointment": appointment("apt-103", "user-103", "2026-02-20T18:00:00Z", failingEmail),
		}),
	}
}
