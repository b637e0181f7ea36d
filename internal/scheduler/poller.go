package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/config"
	"github.com/tbourn/go-reminder-scheduler/internal/domain"
	"github.com/tbourn/go-reminder-scheduler/internal/observability"
	"github.com/tbourn/go-reminder-scheduler/internal/services"
)

// State is the poller's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

// Dispatcher is the part of services.Dispatcher the poller drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, cat domain.Category, items []domain.DueItem) (services.Summary, error)
}

// SchemaEnsurer prepares the ledger at the start of each cycle.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// Status is a point-in-time snapshot of a poller.
type Status struct {
	Category       domain.Category  `json:"category"`
	State          State            `json:"state"`
	Enabled        bool             `json:"enabled"`
	PollInterval   string           `json:"poll_interval"`
	Cycles         int64            `json:"cycles"`
	LastCycleStart time.Time        `json:"last_cycle_start"`
	LastCycleEnd   time.Time        `json:"last_cycle_end"`
	LastError      string           `json:"last_error,omitempty"`
	LastSummary    services.Summary `json:"last_summary"`
}

// Poller runs dispatch cycles for one category on a fixed interval until its
// context is cancelled. A failed or panicking cycle is logged and the loop
// carries on after the normal interval.
type Poller struct {
	Category   domain.Category
	Config     config.CategoryConfig
	Provider   services.Provider
	Dispatcher Dispatcher
	Ledger     SchemaEnsurer
	Logger     zerolog.Logger

	// Now is the clock used for windows; defaults to time.Now.
	Now func() time.Time

	wait func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	status Status
}

// NewPoller wires a poller. The logger is tagged with the category.
func NewPoller(cfg config.CategoryConfig, provider services.Provider, dispatcher Dispatcher, ledger SchemaEnsurer, logger zerolog.Logger) *Poller {
	cat := provider.Category()
	return &Poller{
		Category:   cat,
		Config:     cfg,
		Provider:   provider,
		Dispatcher: dispatcher,
		Ledger:     ledger,
		Logger:     logger.With().Str("category", string(cat)).Logger(),
		status: Status{
			Category:     cat,
			State:        StateIdle,
			Enabled:      cfg.Enabled,
			PollInterval: cfg.PollInterval().String(),
		},
	}
}

// Run loops until ctx is cancelled, then returns nil.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Config.PollInterval()
	p.Logger.Info().
		Bool("enabled", p.Config.Enabled).
		Dur("poll_interval", interval).
		Dur("look_ahead", p.Config.LookAhead()).
		Dur("grace", p.Config.Grace()).
		Int("max_attempts", p.Config.MaxAttemptsPerRecipient).
		Msg("poller started")

	for {
		if ctx.Err() != nil {
			break
		}
		if err := p.RunCycle(ctx); err != nil && !isCancellation(ctx, err) {
			p.Logger.Error().Err(err).Msg("poll cycle failed")
		}
		if err := p.sleep(ctx, interval); err != nil {
			break
		}
	}

	p.setState(StateStopped)
	p.Logger.Info().Msg("poller stopped")
	return nil
}

// RunCycle executes one cycle: ensure the ledger schema, compute the window,
// fetch due items, and dispatch them. A disabled category does no work.
func (p *Poller) RunCycle(ctx context.Context) (err error) {
	start := p.now()
	p.beginCycle(start)

	if !p.Config.Enabled {
		observability.ObserveCycle(string(p.Category), observability.CycleDisabled, 0)
		p.endCycle(services.Summary{}, nil)
		p.Logger.Debug().Msg("category disabled; cycle skipped")
		return nil
	}

	ctx, span := otel.Tracer("scheduler/Poller").Start(ctx, "RunCycle",
		trace.WithAttributes(attribute.String("category", string(p.Category))),
	)
	var sum services.Summary
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
		}
		outcome := observability.CycleOK
		switch {
		case err != nil && isCancellation(ctx, err):
			outcome = observability.CycleCanceled
		case err != nil:
			outcome = observability.CycleError
			span.RecordError(err)
			span.SetStatus(codes.Error, "cycle failed")
		}
		span.End()
		observability.ObserveCycle(string(p.Category), outcome, time.Since(start))
		p.endCycle(sum, err)
	}()

	if err := p.Ledger.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}

	from, to := Window(start, p.Config.Grace(), p.Config.LookAhead())
	items, err := p.Provider.DueItems(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load due items: %w", err)
	}

	items = p.keepInWindow(items, from, to)

	sum, err = p.Dispatcher.Dispatch(ctx, p.Category, items)
	if sum.Worked() {
		p.Logger.Info().
			Int("items", sum.Items).
			Int("sent", sum.Sent).
			Int("failed", sum.Failed).
			Int("skipped", sum.Skipped).
			Msg("poll cycle dispatched")
	}
	return err
}

// keepInWindow drops items a provider returned outside [from, to].
func (p *Poller) keepInWindow(items []domain.DueItem, from, to time.Time) []domain.DueItem {
	kept := make([]domain.DueItem, 0, len(items))
	for _, it := range items {
		if !InWindow(it.NotificationTime(), from, to) {
			p.Logger.Warn().
				Int64("item_id", it.ItemID()).
				Time("notification_time", it.NotificationTime()).
				Msg("provider returned item outside window; dropped")
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// Status returns a snapshot of the poller state.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Poller) beginCycle(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = StatePolling
	p.status.LastCycleStart = at
}

func (p *Poller) endCycle(sum services.Summary, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	p.status.LastCycleEnd = p.now()
	p.status.LastSummary = sum
	p.status.LastError = ""
	if err != nil {
		p.status.LastError = err.Error()
	}
	if p.status.State == StatePolling {
		p.status.State = StateIdle
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = s
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if p.wait != nil {
		return p.wait(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
