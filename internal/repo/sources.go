// Package repo implements the data persistence layer for the scheduler.
// This file provides read-only queries over the case-management store used
// by the due-item providers and the recipient resolver.
//
// Window queries are inclusive at both ends and compare in UTC. When TenantID
// is non-empty every due-item query is restricted to that tenant; the scope is
// always passed explicitly, never read from ambient request state.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// SQLSource answers due-item, relation, and identity lookups from the store.
type SQLSource struct {
	DB       *gorm.DB
	TenantID string
}

// NewSQLSource returns a source over db scoped to tenantID ("" = all tenants).
func NewSQLSource(db *gorm.DB, tenantID string) *SQLSource {
	return &SQLSource{DB: db, TenantID: strings.TrimSpace(tenantID)}
}

func (s *SQLSource) scoped(ctx context.Context) *gorm.DB {
	q := s.DB.WithContext(ctx)
	if s.TenantID != "" {
		q = q.Where("tenant_id = ?", s.TenantID)
	}
	return q
}

// HearingsNotifiableBetween returns hearings whose notification time lies in
// [from, to], ordered by notification time then id.
func (s *SQLSource) HearingsNotifiableBetween(ctx context.Context, from, to time.Time) ([]domain.HearingReminder, error) {
	var rows []domain.Hearing
	err := s.scoped(ctx).
		Where("notification_time >= ? AND notification_time <= ?", from.UTC(), to.UTC()).
		Order("notification_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.HearingReminder, 0, len(rows))
	for _, h := range rows {
		out = append(out, domain.HearingReminder{
			HearingID:   h.ID,
			NotifyAt:    h.NotificationTime,
			HearingDate: h.HearingDate,
			JudgeName:   h.JudgeName,
		})
	}
	return out, nil
}

// TasksRemindableBetween returns tasks whose reminder time lies in [from, to],
// ordered by reminder time then id.
func (s *SQLSource) TasksRemindableBetween(ctx context.Context, from, to time.Time) ([]domain.TaskReminder, error) {
	var rows []domain.AdminTask
	err := s.scoped(ctx).
		Where("reminder_time >= ? AND reminder_time <= ?", from.UTC(), to.UTC()).
		Order("reminder_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TaskReminder, 0, len(rows))
	for _, t := range rows {
		out = append(out, domain.TaskReminder{
			TaskID:     t.ID,
			RemindAt:   t.ReminderTime,
			Name:       t.Name,
			Type:       t.Type,
			Date:       t.TaskDate,
			Notes:      t.Notes,
			EmployeeID: t.EmployeeID,
		})
	}
	return out, nil
}

// CaseIDsForHearing returns the ids of the cases linked to a hearing.
func (s *SQLSource) CaseIDsForHearing(ctx context.Context, hearingID int64) ([]int64, error) {
	var ids []int64
	err := s.DB.WithContext(ctx).
		Model(&domain.HearingCase{}).
		Where("hearing_id = ?", hearingID).
		Order("case_id ASC").
		Pluck("case_id", &ids).Error
	return ids, err
}

// CaseEmployeeUsernames returns the usernames of employees linked to a case.
func (s *SQLSource) CaseEmployeeUsernames(ctx context.Context, caseID int64) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).
		Table("case_employees AS ce").
		Joins("JOIN employees e ON e.id = ce.employee_id").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("ce.case_id = ?", caseID).
		Order("u.username ASC").
		Pluck("u.username", &names).Error
	return names, err
}

// CaseCustomerUsernames returns the usernames of customers linked to a case.
func (s *SQLSource) CaseCustomerUsernames(ctx context.Context, caseID int64) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).
		Table("case_customers AS cc").
		Joins("JOIN customers c ON c.id = cc.customer_id").
		Joins("JOIN users u ON u.id = c.user_id").
		Where("cc.case_id = ?", caseID).
		Order("u.username ASC").
		Pluck("u.username", &names).Error
	return names, err
}

// EmployeeUsername returns the username of an employee, or "" if the employee
// or its user no longer exists.
func (s *SQLSource) EmployeeUsername(ctx context.Context, employeeID int64) (string, error) {
	var names []string
	err := s.DB.WithContext(ctx).
		Table("employees AS e").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.id = ?", employeeID).
		Limit(1).
		Pluck("u.username", &names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

// PhoneNumber returns the trimmed phone number of a user, or "" if none.
func (s *SQLSource) PhoneNumber(ctx context.Context, username string) (string, error) {
	var phones []string
	err := s.DB.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Limit(1).
		Pluck("phone_number", &phones).Error
	if err != nil || len(phones) == 0 {
		return "", err
	}
	return strings.TrimSpace(phones[0]), nil
}

// VerifiedEmail returns the user's email from the identity store when it is
// confirmed and non-blank, otherwise "".
func (s *SQLSource) VerifiedEmail(ctx context.Context, username string) (string, error) {
	var emails []string
	err := s.DB.WithContext(ctx).
		Model(&domain.UserCredential{}).
		Where("username = ? AND email_confirmed = ?", username, true).
		Limit(1).
		Pluck("email", &emails).Error
	if err != nil || len(emails) == 0 {
		return "", err
	}
	return strings.TrimSpace(emails[0]), nil
}

// Ping checks store connectivity.
func (s *SQLSource) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
