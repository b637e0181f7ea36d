package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// HearingProvider lists hearings due for a reminder.
type HearingProvider struct {
	Source HearingSource
}

// Category implements Provider.
func (p *HearingProvider) Category() domain.Category { return domain.CategoryHearing }

// DueItems returns hearings whose notification time is in [from, to].
func (p *HearingProvider) DueItems(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	ctx, span := startWindowSpan(ctx, "services/HearingProvider", from, to)
	defer span.End()

	rows, err := p.Source.HearingsNotifiableBetween(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]domain.DueItem, 0, len(rows))
	for _, h := range rows {
		out = append(out, h)
	}
	span.SetAttributes(attribute.Int("items", len(out)))
	return out, nil
}

// TaskProvider lists administrative tasks due for a reminder.
type TaskProvider struct {
	Source TaskSource
}

// Category implements Provider.
func (p *TaskProvider) Category() domain.Category { return domain.CategoryTask }

// DueItems returns tasks whose reminder time is in [from, to].
func (p *TaskProvider) DueItems(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	ctx, span := startWindowSpan(ctx, "services/TaskProvider", from, to)
	defer span.End()

	rows, err := p.Source.TasksRemindableBetween(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]domain.DueItem, 0, len(rows))
	for _, t := range rows {
		out = append(out, t)
	}
	span.SetAttributes(attribute.Int("items", len(out)))
	return out, nil
}

func startWindowSpan(ctx context.Context, tracer string, from, to time.Time) (context.Context, trace.Span) {
	return otel.Tracer(tracer).Start(ctx, "DueItems",
		trace.WithAttributes(
			attribute.String("window.from", from.UTC().Format(time.RFC3339)),
			attribute.String("window.to", to.UTC().Format(time.RFC3339)),
		),
	)
}

var (
	_ Provider = (*HearingProvider)(nil)
	_ Provider = (*TaskProvider)(nil)
)
