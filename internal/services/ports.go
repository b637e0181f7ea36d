package services

import (
	"context"
	"time"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// HearingSource reads hearings whose notification time lies in a window.
type HearingSource interface {
	HearingsNotifiableBetween(ctx context.Context, from, to time.Time) ([]domain.HearingReminder, error)
}

// TaskSource reads tasks whose reminder time lies in a window.
type TaskSource interface {
	TasksRemindableBetween(ctx context.Context, from, to time.Time) ([]domain.TaskReminder, error)
}

// RelationSource answers the case-graph lookups the resolver walks.
type RelationSource interface {
	CaseIDsForHearing(ctx context.Context, hearingID int64) ([]int64, error)
	CaseEmployeeUsernames(ctx context.Context, caseID int64) ([]string, error)
	CaseCustomerUsernames(ctx context.Context, caseID int64) ([]string, error)
	EmployeeUsername(ctx context.Context, employeeID int64) (string, error)
	PhoneNumber(ctx context.Context, username string) (string, error)
}

// IdentitySource maps usernames to confirmed email addresses ("" if none).
type IdentitySource interface {
	VerifiedEmail(ctx context.Context, username string) (string, error)
}

// Ledger is the append-only dispatch log.
type Ledger interface {
	EnsureSchema(ctx context.Context) error
	HasSucceeded(ctx context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (bool, error)
	AttemptCount(ctx context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (int, error)
	RecordAttempt(ctx context.Context, rec *domain.DispatchRecord) error
}

// Sender delivers one message over one channel. to is the transport-level
// address (email address or bare phone number).
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, subject, body string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// Provider returns the due items of one category in a window.
type Provider interface {
	Category() domain.Category
	DueItems(ctx context.Context, from, to time.Time) ([]domain.DueItem, error)
}

// Resolver returns the distinct targets to notify for an item.
type Resolver interface {
	Resolve(ctx context.Context, item domain.DueItem) ([]domain.RecipientTarget, error)
}
