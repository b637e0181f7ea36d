// Package domain defines the core persistence models for the scheduler.
// This file holds the dispatch ledger record.
package domain

import "time"

// DispatchStatus is the outcome of one send attempt.
type DispatchStatus string

const (
	StatusSent   DispatchStatus = "sent"
	StatusFailed DispatchStatus = "failed"
)

// DispatchRecord is one append-only ledger entry describing a single send
// attempt for a (category, reminder key, recipient) tuple. Records are never
// updated or deleted; the number of records for a tuple is its attempt count,
// and a single Sent record makes the tuple permanently done.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Category / ReminderKey / Recipient: the idempotency tuple, indexed together.
//   - Subject: subject line that was sent (or attempted).
//   - Status: "sent" or "failed" (enforced by DB constraint).
//   - ErrorMessage: transport error text for failed attempts, nil otherwise.
//   - AttemptedAt: UTC instant the attempt finished.
type DispatchRecord struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	Category     Category       `json:"category"      gorm:"type:varchar(16);not null;index:idx_dispatch_tuple,priority:1"`
	ReminderKey  ReminderKey    `json:"reminder_key"  gorm:"type:varchar(96);not null;index:idx_dispatch_tuple,priority:2"`
	Recipient    string         `json:"recipient"     gorm:"type:varchar(320);not null;index:idx_dispatch_tuple,priority:3"`
	Subject      string         `json:"subject"       gorm:"type:text;not null"`
	Status       DispatchStatus `json:"status"        gorm:"type:varchar(16);not null;check:status IN ('sent','failed')"`
	ErrorMessage *string        `json:"error_message,omitempty" gorm:"type:text"`
	AttemptedAt  time.Time      `json:"attempted_at"  gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (DispatchRecord) TableName() string { return "dispatch_records" }
