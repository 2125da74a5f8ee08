package worker

import (
	"context"
	"fmt"

	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/notify"
)

// CommitFunc acknowledges a fully handled record.
type CommitFunc func(ctx context.Context, record Record) error

// RejectFunc is called with the failure reason for a record that must not be
// committed as-is.
type RejectFunc func(ctx context.Context, record Record, reason string) error

// ProcessOne normalizes and dispatches a single record and decides whether it
// is committed or rejected. Exactly one of commit and reject is invoked, never
// both. The returned error is non-nil only when that callback failed.
func ProcessOne(ctx context.Context, record Record, senders notify.Senders, commit CommitFunc, reject RejectFunc) (models.RecordOutcome, error) {
	meta := record.Meta()

	event, err := normalizeRecord(record)
	if err != nil {
		reason := models.ReasonParseFailedPrefix + err.Error()
		outcome := models.RecordOutcome{
			Status:       models.StatusParseFailed,
			Record:       meta,
			ShouldCommit: false,
			Error:        reason,
		}
		if reject != nil {
			if err := reject(ctx, record, reason); err != nil {
				return outcome, err
			}
		}
		return outcome, nil
	}

	processing := notify.Dispatch(ctx, event, senders)

	if processing.AllRequestedSucceeded {
		outcome := models.RecordOutcome{
			Status:       models.StatusProcessedAndCommitted,
			Record:       meta,
			Event:        &event,
			Processing:   &processing,
			ShouldCommit: true,
		}
		if commit != nil {
			if err := commit(ctx, record); err != nil {
				return outcome, err
			}
		}
		return outcome, nil
	}

	outcome := models.RecordOutcome{
		Status:       models.StatusProcessedNotCommitted,
		Record:       meta,
		Event:        &event,
		Processing:   &processing,
		ShouldCommit: false,
		Error:        models.ReasonChannelsFailed,
	}
	if reject != nil {
		if err := reject(ctx, record, models.ReasonChannelsFailed); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// ProcessBatch runs ProcessOne over records in order. Outcome i belongs to
// record i. A failing callback stops the batch; the outcomes gathered so far
// are returned with the error.
func ProcessBatch(ctx context.Context, records []Record, senders notify.Senders, commit CommitFunc, reject RejectFunc) ([]models.RecordOutcome, error) {
	outcomes := make([]models.RecordOutcome, 0, len(records))
	for _, record := range records {
		outcome, err := ProcessOne(ctx, record, senders, commit, reject)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func normalizeRecord(record Record) (models.NormalizedEvent, error) {
	raw, ok := record.Value.(map[string]any)
	if !ok {
		return models.NormalizedEvent{}, &notify.ValidationError{
			Reason: fmt.Sprintf("Expected a JSON object payload, got %T", record.Value),
		}
	}
	return notify.Normalize(raw)
}
