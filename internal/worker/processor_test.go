package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/notify"
	"github.com/ajayykmr/notifications-service/internal/notify/notifytest"
	"github.com/ajayykmr/notifications-service/internal/worker"
)

func samplePayload() map[string]any {
	return map[string]any{
		"event_id": "evt-1",
		"notify":   map[string]any{"email": true, "sms": true},
		"appointment": map[string]any{
			"appointment_id": "apt-1",
			"email":          "a@example.com",
			"phone_e164":     "+15555550123",
			"time":           "2026-02-20T15:00:00Z",
		},
	}
}

type callbacks struct {
	commits []worker.Record
	rejects []string
}

func (c *callbacks) commit(_ context.Context, rec worker.Record) error {
	c.commits = append(c.commits, rec)
	return nil
}

func (c *callbacks) reject(_ context.Context, _ worker.Record, reason string) error {
	c.rejects = append(c.rejects, reason)
	return nil
}

func TestProcessOneCommitsWhenAllChannelsSucceed(t *testing.T) {
	cb := &callbacks{}
	senders := notify.Senders{Email: &notifytest.EmailSender{}, SMS: &notifytest.SMSSender{}}
	record := worker.Record{Topic: "appointments.created", Partition: 0, Offset: 10, Value: samplePayload()}

	outcome, err := worker.ProcessOne(context.Background(), record, senders, cb.commit, cb.reject)

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessedAndCommitted, outcome.Status)
	assert.True(t, outcome.ShouldCommit)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, models.RecordMeta{Topic: "appointments.created", Partition: 0, Offset: 10}, outcome.Record)
	require.NotNil(t, outcome.Event)
	assert.Equal(t, "evt-1", outcome.Event.EventID)
	require.NotNil(t, outcome.Processing)
	assert.True(t, outcome.Processing.AllRequestedSucceeded)
	assert.Len(t, cb.commits, 1)
	assert.Empty(t, cb.rejects)
}

func TestProcessOneRejectsWhenSMSFails(t *testing.T) {
	cb := &callbacks{}
	sms := &notifytest.SMSSender{FailFor: map[string]error{"+15555550123": errors.New("twilio rejected")}}
	senders := notify.Senders{Email: &notifytest.EmailSender{}, SMS: sms}

	outcome, err := worker.ProcessOne(context.Background(), worker.Record{Value: samplePayload()}, senders, cb.commit, cb.reject)

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessedNotCommitted, outcome.Status)
	assert.False(t, outcome.ShouldCommit)
	assert.Equal(t, models.ReasonChannelsFailed, outcome.Error)
	smsResult, ok := outcome.Processing.Result(models.ChannelSMS)
	require.True(t, ok)
	assert.False(t, smsResult.Success)
	assert.Equal(t, "twilio rejected", smsResult.Error)
	assert.Empty(t, cb.commits)
	assert.Equal(t, []string{models.ReasonChannelsFailed}, cb.rejects)
}

func TestProcessOneParseFailure(t *testing.T) {
	cb := &callbacks{}
	payload := samplePayload()
	delete(payload, "event_id")
	email := &notifytest.EmailSender{}

	outcome, err := worker.ProcessOne(context.Background(), worker.Record{Value: payload}, notify.Senders{Email: email}, cb.commit, cb.reject)

	require.NoError(t, err)
	assert.Equal(t, models.StatusParseFailed, outcome.Status)
	assert.False(t, outcome.ShouldCommit)
	assert.True(t, strings.HasPrefix(outcome.Error, "parse_failed:"))
	assert.Nil(t, outcome.Event)
	assert.Nil(t, outcome.Processing)
	assert.Empty(t, cb.commits)
	require.Len(t, cb.rejects, 1)
	assert.Equal(t, outcome.Error, cb.rejects[0])
	assert.Empty(t, email.Sent())
}

func TestProcessOneNonObjectValue(t *testing.T) {
	outcome, err := worker.ProcessOne(context.Background(), worker.Record{Value: "nope"}, notify.Senders{}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusParseFailed, outcome.Status)
}

func TestProcessOneReturnsCallbackError(t *testing.T) {
	boom := errors.New("commit failed")
	commit := func(context.Context, worker.Record) error { return boom }
	senders := notify.Senders{Email: &notifytest.EmailSender{}, SMS: &notifytest.SMSSender{}}

	outcome, err := worker.ProcessOne(context.Background(), worker.Record{Value: samplePayload()}, senders, commit, nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, models.StatusProcessedAndCommitted, outcome.Status)
}

func TestProcessOneCommitXorReject(t *testing.T) {
	failing := errors.New("down")
	payloads := []map[string]any{samplePayload(), {"event_id": "evt-2"}}
	for _, payload := range payloads {
		for _, fail := range []bool{false, true} {
			cb := &callbacks{}
			email := &notifytest.EmailSender{}
			if fail {
				email.FailFor = map[string]error{"a@example.com": failing}
			}
			senders := notify.Senders{Email: email, SMS: &notifytest.SMSSender{}}

			outcome, err := worker.ProcessOne(context.Background(), worker.Record{Value: payload}, senders, cb.commit, cb.reject)

			require.NoError(t, err)
			assert.Equal(t, 1, len(cb.commits)+len(cb.rejects))
			assert.Equal(t, outcome.ShouldCommit, len(cb.commits) == 1)
		}
	}
}

func TestProcessBatchPreservesOrder(t *testing.T) {
	cb := &callbacks{}
	bad := samplePayload()
	delete(bad, "event_id")
	records := []worker.Record{
		{Offset: 100, Value: samplePayload()},
		{Offset: 101, Value: bad},
		{Offset: 102, Value: samplePayload()},
	}
	senders := notify.Senders{Email: &notifytest.EmailSender{}, SMS: &notifytest.SMSSender{}}

	outcomes, err := worker.ProcessBatch(context.Background(), records, senders, cb.commit, cb.reject)

	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for i, outcome := range outcomes {
		assert.Equal(t, records[i].Offset, outcome.Record.Offset)
	}
	assert.Equal(t, models.StatusParseFailed, outcomes[1].Status)
	assert.Len(t, cb.commits, 2)
}

func TestProcessBatchStopsOnCallbackError(t *testing.T) {
	boom := errors.New("broker gone")
	reject := func(context.Context, worker.Record, string) error { return boom }
	records := []worker.Record{{Offset: 1, Value: "bad"}, {Offset: 2, Value: samplePayload()}}

	outcomes, err := worker.ProcessBatch(context.Background(), records, notify.Senders{}, nil, reject)

	require.ErrorIs(t, err, boom)
	assert.Len(t, outcomes, 1)
}
