package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

// ----- Fake store -----

type fakeStore struct {
	hearings []domain.HearingReminder
	tasks    []domain.TaskReminder

	hearingCases  map[int64][]int64
	caseEmployees map[int64][]string
	caseCustomers map[int64][]string
	employees     map[int64]string
	phones        map[string]string
	emails        map[string]string

	// error injection
	windowErr error
	casesErr  error
	emailErr  error

	gotFrom, gotTo time.Time
}

func (f *fakeStore) HearingsNotifiableBetween(_ context.Context, from, to time.Time) ([]domain.HearingReminder, error) {
	f.gotFrom, f.gotTo = from, to
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []domain.HearingReminder
	for _, h := range f.hearings {
		if !h.NotifyAt.Before(from) && !h.NotifyAt.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) TasksRemindableBetween(_ context.Context, from, to time.Time) ([]domain.TaskReminder, error) {
	f.gotFrom, f.gotTo = from, to
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []domain.TaskReminder
	for _, t := range f.tasks {
		if !t.RemindAt.Before(from) && !t.RemindAt.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CaseIDsForHearing(_ context.Context, id int64) ([]int64, error) {
	if f.casesErr != nil {
		return nil, f.casesErr
	}
	return f.hearingCases[id], nil
}

func (f *fakeStore) CaseEmployeeUsernames(_ context.Context, id int64) ([]string, error) {
	return f.caseEmployees[id], nil
}

func (f *fakeStore) CaseCustomerUsernames(_ context.Context, id int64) ([]string, error) {
	return f.caseCustomers[id], nil
}

func (f *fakeStore) EmployeeUsername(_ context.Context, id int64) (string, error) {
	return f.employees[id], nil
}

func (f *fakeStore) PhoneNumber(_ context.Context, username string) (string, error) {
	return f.phones[username], nil
}

func (f *fakeStore) VerifiedEmail(_ context.Context, username string) (string, error) {
	if f.emailErr != nil {
		return "", f.emailErr
	}
	return f.emails[username], nil
}

// longNameTaskStore is task 7 assigned to bob (b@x.com, 5559876) whose name
// fills the whole name column.
func longNameTaskStore(remindAt time.Time) *fakeStore {
	emp := int64(3)
	return &fakeStore{
		tasks:     []domain.TaskReminder{{TaskID: 7, RemindAt: remindAt, Name: strings.Repeat("x", 255), EmployeeID: &emp}},
		employees: map[int64]string{3: "bob"},
		phones:    map[string]string{"bob": "5559876"},
		emails:    map[string]string{"bob": "b@x.com"},
	}
}

// scenarioStore is hearing 42 on case 1 whose sole employee has a@x.com and
// phone 5551234.
func scenarioStore(notifyAt time.Time) *fakeStore {
	return &fakeStore{
		hearings:      []domain.HearingReminder{{HearingID: 42, NotifyAt: notifyAt, HearingDate: notifyAt.Add(2 * time.Hour)}},
		hearingCases:  map[int64][]int64{42: {1}},
		caseEmployees: map[int64][]string{1: {"alice"}},
		phones:        map[string]string{"alice": "5551234"},
		emails:        map[string]string{"alice": "a@x.com"},
	}
}

// ----- Fake ledger -----

type memLedger struct {
	mu      sync.Mutex
	records []domain.DispatchRecord

	ensureCalls int
	readErr     error
	writeErr    error

	// onWrite runs before a record is appended; used to inspect the context.
	onWrite func(ctx context.Context)
}

func (l *memLedger) EnsureSchema(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureCalls++
	return nil
}

func (l *memLedger) HasSucceeded(_ context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return false, l.readErr
	}
	for _, r := range l.records {
		if r.Category == cat && r.ReminderKey == key && r.Recipient == recipient && r.Status == domain.StatusSent {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) AttemptCount(_ context.Context, cat domain.Category, key domain.ReminderKey, recipient string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return 0, l.readErr
	}
	n := 0
	for _, r := range l.records {
		if r.Category == cat && r.ReminderKey == key && r.Recipient == recipient {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) RecordAttempt(ctx context.Context, rec *domain.DispatchRecord) error {
	if l.onWrite != nil {
		l.onWrite(ctx)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return l.writeErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.records = append(l.records, *rec)
	return nil
}

func (l *memLedger) count(recipient string, status domain.DispatchStatus) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Recipient == recipient && r.Status == status {
			n++
		}
	}
	return n
}

func (l *memLedger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// ----- Fake sender -----

type sentMsg struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
	err  error

	// onSend runs before returning; used to cancel mid-send.
	onSend func(ctx context.Context)
}

func (s *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if s.onSend != nil {
		s.onSend(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMsg{to, subject, body})
	return s.err
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var errTransport = errors.New("transport rejected")
