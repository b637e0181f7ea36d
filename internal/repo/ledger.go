// Package repo implements the data persistence layer for the scheduler,
// backed by GORM. This file provides the relational dispatch ledger: an
// append-only log of send attempts keyed by (category, reminder key,
// recipient) that makes dispatch idempotent across cycles and restarts.
//
// Error semantics:
//   - Read operations propagate the raw gorm error; callers decide whether a
//     failed read skips the target or aborts.
//   - RecordAttempt never updates existing rows. Every call inserts one row.
package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// SQLLedger stores dispatch records in the dispatch_records table.
type SQLLedger struct {
	DB *gorm.DB

	mu       sync.Mutex
	migrated bool
}

// NewSQLLedger returns a ledger over db. The schema is created lazily by
// EnsureSchema.
func NewSQLLedger(db *gorm.DB) *SQLLedger {
	return &SQLLedger{DB: db}
}

// EnsureSchema creates the ledger table and its indexes if missing. It is
// safe to call at the start of every poll cycle: after the first success it
// is a no-op, and a failure is retried on the next call.
func (l *SQLLedger) EnsureSchema(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.migrated {
		return nil
	}
	if err := AutoMigrate(l.DB.WithContext(ctx)); err != nil {
		return err
	}
	l.migrated = true
	return nil
}

// HasSucceeded reports whether a Sent record exists for the tuple.
func (l *SQLLedger) HasSucceeded(ctx context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (bool, error) {
	var n int64
	err := l.DB.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Where("category = ? AND reminder_key = ? AND recipient = ? AND status = ?", cat, key, recipient, domain.StatusSent).
		Count(&n).Error
	return n > 0, err
}

// AttemptCount returns the number of records, of any status, for the tuple.
func (l *SQLLedger) AttemptCount(ctx context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (int, error) {
	var n int64
	err := l.DB.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Where("category = ? AND reminder_key = ? AND recipient = ?", cat, key, recipient).
		Count(&n).Error
	return int(n), err
}

// RecordAttempt appends rec. A missing ID is filled with a new UUID and a
// zero AttemptedAt with the current time; timestamps are stored in UTC.
func (l *SQLLedger) RecordAttempt(ctx context.Context, rec *domain.DispatchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = time.Now()
	}
	rec.AttemptedAt = rec.AttemptedAt.UTC()
	return l.DB.WithContext(ctx).Create(rec).Error
}

// History returns every record of the tuple, oldest first.
func (l *SQLLedger) History(ctx context.Context, cat domain.Category, key domain.ReminderKey, recipient string) ([]domain.DispatchRecord, error) {
	var out []domain.DispatchRecord
	err := l.DB.WithContext(ctx).
		Where("category = ? AND reminder_key = ? AND recipient = ?", cat, key, recipient).
		Order("attempted_at ASC").
		Find(&out).Error
	return out, err
}
