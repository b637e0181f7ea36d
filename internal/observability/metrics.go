// Package observability hosts tracing setup and the Prometheus collectors for
// the reminder scheduler.
//
// Label cardinality is bounded by construction:
//
//   - category: "hearing" | "task"
//   - channel:  "email" | "sms" | "whatsapp"
//   - status:   "sent" | "failed"
//   - reason:   one of the Skip* constants below
//   - outcome:  "ok" | "error" | "disabled" | "canceled"
//
// Reminder keys and recipient addresses are never used as labels.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons reported on reminder_dispatch_skipped_total.
const (
	SkipAlreadySent        = "already_sent"
	SkipRetriesExhausted   = "retries_exhausted"
	SkipChannelUnavailable = "channel_unavailable"
	SkipLedgerReadError    = "ledger_read_error"
	SkipNoRecipients       = "no_recipients"
)

// Cycle outcomes reported on reminder_poll_cycles_total.
const (
	CycleOK       = "ok"
	CycleError    = "error"
	CycleDisabled = "disabled"
	CycleCanceled = "canceled"
)

var (
	// DispatchAttempts counts send attempts by outcome.
	DispatchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_dispatch_attempts_total",
			Help: "Total number of reminder send attempts.",
		},
		[]string{"category", "channel", "status"},
	)

	// DispatchSkipped counts targets (or items, for no_recipients) that were
	// not attempted in a cycle.
	DispatchSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_dispatch_skipped_total",
			Help: "Total number of reminder targets skipped without a send attempt.",
		},
		[]string{"category", "reason"},
	)

	// PollCycles counts completed poll cycles by outcome.
	PollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_poll_cycles_total",
			Help: "Total number of poll cycles.",
		},
		[]string{"category", "outcome"},
	)

	// PollCycleDuration records wall time of poll cycles that did work.
	PollCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"category"},
	)

	// LedgerWriteFailures counts attempts whose ledger append failed.
	LedgerWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_ledger_write_failures_total",
			Help: "Total number of failed dispatch ledger writes.",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(DispatchAttempts, DispatchSkipped, PollCycles, PollCycleDuration, LedgerWriteFailures)
}

// ObserveCycle records one poll cycle. Duration is only observed for cycles
// that ran (not disabled ones).
func ObserveCycle(category, outcome string, took time.Duration) {
	PollCycles.WithLabelValues(category, outcome).Inc()
	if outcome != CycleDisabled {
		PollCycleDuration.WithLabelValues(category).Observe(took.Seconds())
	}
}
