package notify

import (
	"context"

	"github.com/ajayykmr/notifications-service/internal/models"
)

// Dispatch runs every channel decision for event, email first and sms second,
// and reports whether all requested channels succeeded. Both channels are
// always evaluated; a failure on one never prevents the other.
func Dispatch(ctx context.Context, event models.NormalizedEvent, senders Senders) models.ProcessingResult {
	results := []models.ChannelResult{
		DecideEmail(ctx, event, senders.Email),
		DecideSMS(ctx, event, senders.SMS),
	}

	allSettled := true
	for _, r := range results {
		if !r.Settled() {
			allSettled = false
		}
	}

	return models.ProcessingResult{
		EventID:               event.EventID,
		AppointmentID:         event.AppointmentID,
		ChannelResults:        results,
		AllRequestedSucceeded: allSettled,
	}
}
