package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/notify"
	emailprovider "github.com/ajayykmr/notifications-service/internal/providers/email"
	smsprovider "github.com/ajayykmr/notifications-service/internal/providers/sms"
	"github.com/ajayykmr/notifications-service/internal/worker"
)

var errChannelsFailed = errors.New("one or more requested channels failed")

func newDemoCmd() *cobra.Command {
	var payloadFile string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the channel logic on a sample payload with console senders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := loadPayload(payloadFile)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&payloadFile, "payload-file", "", "JSON file shaped like an appointments.created event")
	return cmd
}

func loadPayload(path string) (map[string]any, error) {
	if path == "" {
		return samplePayload(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demo: read payload: %w", err)
	}
	return worker.DecodePayload(data)
}

func samplePayload() map[string]any {
	return map[string]any{
		"event_id":    "evt-demo-1",
		"event_type":  models.EventTypeAppointmentCreated,
		"occurred_at": "2026-02-13T19:35:00Z",
		"notify":      map[string]any{"email": true, "sms": true},
		"appointment": map[string]any{
			"appointment_id": "apt-demo-1",
			"user_id":        "user-demo-1",
			"time":           "2026-02-20T15:00:00Z",
			"email":          "user@example.com",
			"phone_e164":     "+15555550123",
		},
	}
}

func runDemo(ctx context.Context, out io.Writer, raw map[string]any) error {
	event, err := notify.Normalize(raw)
	if err != nil {
		return err
	}

	result := notify.Dispatch(ctx, event, notify.Senders{
		Email: emailprovider.NewConsoleProvider(out),
		SMS:   smsprovider.NewConsoleProvider(out),
	})

	fmt.Fprintln(out)
	fmt.Fprintln(out, "[SUMMARY]")
	fmt.Fprintf(out, "event_id=%s\n", result.EventID)
	fmt.Fprintf(out, "appointment_id=%s\n", result.AppointmentID)
	for _, item := range result.ChannelResults {
		fmt.Fprintf(out, "channel=%s requested=%t success=%t error=%s\n", item.Channel, item.Requested, item.Success, item.Error)
	}
	fmt.Fprintf(out, "all_requested_succeeded=%t\n", result.AllRequestedSucceeded)

	if !result.AllRequestedSucceeded {
		return errChannelsFailed
	}
	return nil
}
