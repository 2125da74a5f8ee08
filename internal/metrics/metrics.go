// Package metrics exposes Prometheus counters for the notification worker and
// a small HTTP server for scraping and health checks.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajayykmr/notifications-service/internal/models"
)

// Channel result labels.
const (
	ResultNotRequested = "not_requested"
	ResultSent         = "sent"
	ResultFailed       = "failed"
)

// Collector implements the worker observer on top of Prometheus counters.
type Collector struct {
	mu         sync.Mutex
	registered bool
	registerer prometheus.Registerer

	records        *prometheus.CounterVec
	channelResults *prometheus.CounterVec
	deadLetters    *prometheus.CounterVec
	commits        prometheus.Counter
	decodeFailures prometheus.Counter
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notifications",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "notifications",
		Name:      name,
		Help:      help,
	})
}

// NewCollector builds the counters. A nil registerer uses the default one.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collector{
		registerer:     registerer,
		records:        newCounterVec("records_total", "Records processed, by terminal status.", "status"),
		channelResults: newCounterVec("channel_results_total", "Channel decisions, by channel and result.", "channel", "result"),
		deadLetters:    newCounterVec("dead_letters_total", "Dead-letter attempts, by result.", "result"),
		commits:        newCounter("commits_total", "Offsets committed to the broker."),
		decodeFailures: newCounter("decode_failures_total", "Records whose value could not be decoded."),
	}
}

// Register registers the collectors. Calling it again is a no-op.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}

	for _, col := range []prometheus.Collector{c.records, c.channelResults, c.deadLetters, c.commits, c.decodeFailures} {
		if err := c.registerer.Register(col); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	c.registered = true
	return nil
}

// ObserveOutcome counts the record status and each channel decision.
func (c *Collector) ObserveOutcome(outcome models.RecordOutcome) {
	c.records.WithLabelValues(string(outcome.Status)).Inc()
	if outcome.Processing == nil {
		return
	}
	for _, res := range outcome.Processing.ChannelResults {
		c.channelResults.WithLabelValues(string(res.Channel), channelResultLabel(res)).Inc()
	}
}

// ObserveDeadLetter counts one dead-letter attempt by result: published,
// failed or disabled.
func (c *Collector) ObserveDeadLetter(result string) {
	c.deadLetters.WithLabelValues(result).Inc()
}

// ObserveCommit counts one successful offset commit.
func (c *Collector) ObserveCommit() {
	c.commits.Inc()
}

// ObserveDecodeFailure counts one record whose value was not valid JSON.
func (c *Collector) ObserveDecodeFailure() {
	c.decodeFailures.Inc()
}

func channelResultLabel(res models.ChannelResult) string {
	switch {
	case !res.Requested:
		return ResultNotRequested
	case res.Success:
		return ResultSent
	default:
		return ResultFailed
	}
}
