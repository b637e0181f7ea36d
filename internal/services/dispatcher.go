// Package services – Dispatcher
//
// Dispatcher runs provider output through resolve -> ledger check -> send ->
// ledger record, one item and one target at a time. Per target:
//
//  1. no sender for the channel        -> skip, no record
//  2. ledger says Sent                 -> skip
//  3. attempts >= MaxAttempts          -> skip (silent terminal state)
//  4. send; append Sent or Failed      -> continue with next target
//
// A send failure or ledger write failure never stops the remaining targets or
// items. A resolver error aborts the whole batch and is returned to the
// poller. Cancellation is observed between items; a send already started
// runs to completion under its own timeout and is recorded, the ledger write
// being bounded by the same timeout.
//
// The check-then-write is not locked: a single active poller per category is
// assumed.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
	"github.com/tbourn/go-reminder-scheduler/internal/observability"
)

// DefaultSendTimeout bounds one transport call when SendTimeout is unset.
const DefaultSendTimeout = 30 * time.Second

// Dispatcher sends reminders for due items.
type Dispatcher struct {
	Resolver    Resolver
	Ledger      Ledger
	Senders     map[domain.Channel]Sender
	MaxAttempts int
	SendTimeout time.Duration
	Logger      zerolog.Logger

	// Now stamps ledger records; defaults to time.Now.
	Now func() time.Time
}

// Summary tallies one Dispatch call.
type Summary struct {
	Items   int `json:"items"`
	Targets int `json:"targets"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Worked reports whether anything was attempted.
func (s Summary) Worked() bool { return s.Sent+s.Failed > 0 }

// Dispatch processes items in order. It returns the summary so far and
// ctx.Err() if cancelled between items, or the first resolver error.
func (d *Dispatcher) Dispatch(ctx context.Context, cat domain.Category, items []domain.DueItem) (Summary, error) {
	var sum Summary
	if d.Ledger == nil {
		return sum, ErrNoLedger
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := d.DispatchItem(ctx, cat, item, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// DispatchItem resolves and notifies the targets of one item, adding to sum.
func (d *Dispatcher) DispatchItem(ctx context.Context, cat domain.Category, item domain.DueItem, sum *Summary) error {
	key := item.Key()
	ctx, span := otel.Tracer("services/Dispatcher").Start(ctx, "DispatchItem",
		trace.WithAttributes(
			attribute.String("category", string(cat)),
			attribute.String("reminder.key", key.String()),
		),
	)
	defer span.End()

	sum.Items++
	log := d.Logger.With().Str("category", string(cat)).Str("reminder_key", key.String()).Logger()

	targets, err := d.Resolver.Resolve(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve")
		return fmt.Errorf("resolve %s %d: %w", cat, item.ItemID(), err)
	}
	if len(targets) == 0 {
		log.Debug().Msg("no recipients")
		observability.DispatchSkipped.WithLabelValues(string(cat), observability.SkipNoRecipients).Inc()
		return nil
	}

	msg := item.Describe()
	before := *sum
	for _, target := range targets {
		sum.Targets++
		d.dispatchTarget(ctx, log, cat, key, msg, target, sum)
	}
	span.SetAttributes(
		attribute.Int("targets", len(targets)),
		attribute.Int("sent", sum.Sent-before.Sent),
		attribute.Int("failed", sum.Failed-before.Failed),
	)
	return nil
}

func (d *Dispatcher) dispatchTarget(ctx context.Context, log zerolog.Logger, cat domain.Category, key domain.ReminderKey,
	msg domain.Message, target domain.RecipientTarget, sum *Summary) {

	log = log.With().Str("recipient", target.Address).Str("channel", string(target.Channel)).Logger()
	skip := func(reason string) {
		sum.Skipped++
		observability.DispatchSkipped.WithLabelValues(string(cat), reason).Inc()
	}

	sender, err := d.senderFor(target.Channel)
	if err != nil {
		log.Debug().Err(err).Msg("channel unavailable")
		skip(observability.SkipChannelUnavailable)
		return
	}

	done, err := d.Ledger.HasSucceeded(ctx, cat, key, target.Address)
	if err != nil {
		log.Error().Err(err).Msg("ledger read failed; target skipped")
		skip(observability.SkipLedgerReadError)
		return
	}
	if done {
		log.Debug().Msg("already sent")
		skip(observability.SkipAlreadySent)
		return
	}

	attempts, err := d.Ledger.AttemptCount(ctx, cat, key, target.Address)
	if err != nil {
		log.Error().Err(err).Msg("ledger read failed; target skipped")
		skip(observability.SkipLedgerReadError)
		return
	}
	if attempts >= d.maxAttempts() {
		log.Debug().Int("attempts", attempts).Msg("retry budget exhausted")
		skip(observability.SkipRetriesExhausted)
		return
	}

	// Send and record run detached from cancellation, bounded by the send timeout.
	detached := context.WithoutCancel(ctx)
	sendCtx, cancel := context.WithTimeout(detached, d.sendTimeout())
	sendErr := sender.Send(sendCtx, target.Destination(), msg.Subject, msg.BodyFor(target.Channel))
	cancel()

	rec := &domain.DispatchRecord{
		Category:    cat,
		ReminderKey: key,
		Recipient:   target.Address,
		Subject:     msg.Subject,
		Status:      domain.StatusSent,
		AttemptedAt: d.now(),
	}
	if sendErr != nil {
		text := sendErr.Error()
		rec.Status = domain.StatusFailed
		rec.ErrorMessage = &text
		sum.Failed++
		log.Warn().Err(sendErr).Int("attempt", attempts+1).Msg("send failed")
	} else {
		sum.Sent++
		log.Debug().Msg("sent")
	}
	observability.DispatchAttempts.WithLabelValues(string(cat), string(target.Channel), string(rec.Status)).Inc()

	writeCtx, cancelWrite := context.WithTimeout(detached, d.sendTimeout())
	defer cancelWrite()
	if err := d.Ledger.RecordAttempt(writeCtx, rec); err != nil {
		observability.LedgerWriteFailures.WithLabelValues(string(cat)).Inc()
		log.Error().Err(err).Str("status", string(rec.Status)).Msg("ledger write failed")
	}
}

// senderFor returns the transport for ch or ErrNoSender.
func (d *Dispatcher) senderFor(ch domain.Channel) (Sender, error) {
	if s, ok := d.Senders[ch]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSender, ch)
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts < 1 {
		return 1
	}
	return d.MaxAttempts
}

func (d *Dispatcher) sendTimeout() time.Duration {
	if d.SendTimeout <= 0 {
		return DefaultSendTimeout
	}
	return d.SendTimeout
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}
