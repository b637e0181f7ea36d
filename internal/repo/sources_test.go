package repo

import (
	"context"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-reminder-scheduler/internal/domain"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func seedStore(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t, domain.StoreModels()...)
	emp := int64(1)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(db.Create(&[]domain.User{
		{ID: 1, Username: "alice", PhoneNumber: " 5551234 "},
		{ID: 2, Username: "bob"},
		{ID: 3, Username: "carol", PhoneNumber: "5559999"},
	}).Error)
	must(db.Create(&[]domain.Employee{{ID: 1, UserID: 1}, {ID: 2, UserID: 2}}).Error)
	must(db.Create(&domain.Customer{ID: 1, UserID: 3}).Error)
	must(db.Create(&[]domain.Case{{ID: 10, TenantID: "t1"}, {ID: 11, TenantID: "t1"}}).Error)
	must(db.Create(&[]domain.CaseEmployee{{CaseID: 10, EmployeeID: 2}, {CaseID: 10, EmployeeID: 1}, {CaseID: 11, EmployeeID: 1}}).Error)
	must(db.Create(&domain.CaseCustomer{CaseID: 10, CustomerID: 1}).Error)
	must(db.Create(&[]domain.Hearing{
		{ID: 40, TenantID: "t1", NotificationTime: t0.Add(-5 * time.Minute), HearingDate: t0.Add(time.Hour)},
		{ID: 41, TenantID: "t1", NotificationTime: t0.Add(30 * time.Minute), HearingDate: t0.Add(2 * time.Hour)},
		{ID: 42, TenantID: "t1", NotificationTime: t0, HearingDate: t0.Add(3 * time.Hour), JudgeName: "Doe"},
		{ID: 43, TenantID: "t1", NotificationTime: t0.Add(-5*time.Minute - time.Second), HearingDate: t0},
		{ID: 44, TenantID: "t1", NotificationTime: t0.Add(30*time.Minute + time.Second), HearingDate: t0},
		{ID: 45, TenantID: "t2", NotificationTime: t0, HearingDate: t0},
	}).Error)
	must(db.Create(&[]domain.HearingCase{{HearingID: 42, CaseID: 11}, {HearingID: 42, CaseID: 10}}).Error)
	must(db.Create(&[]domain.AdminTask{
		{ID: 7, TenantID: "t1", ReminderTime: t0, Name: "File appeal", Type: "filing", EmployeeID: &emp},
		{ID: 8, TenantID: "t1", ReminderTime: t0.Add(time.Hour), Name: "Later"},
		{ID: 9, TenantID: "t1", ReminderTime: t0.Add(-time.Minute), Name: "Unassigned"},
	}).Error)
	must(db.Create(&[]domain.UserCredential{
		{Username: "alice", Email: "a@x.com", EmailConfirmed: true},
		{Username: "bob", Email: "b@x.com", EmailConfirmed: false},
		{Username: "carol", Email: "   ", EmailConfirmed: true},
	}).Error)
	return db
}

func TestSQLSource_HearingsNotifiableBetween_InclusiveBounds(t *testing.T) {
	src := NewSQLSource(seedStore(t), " t1 ")
	from, to := t0.Add(-5*time.Minute), t0.Add(30*time.Minute)

	got, err := src.HearingsNotifiableBetween(context.Background(), from, to)
	if err != nil {
		t.Fatalf("HearingsNotifiableBetween: %v", err)
	}
	var ids []int64
	for _, h := range got {
		ids = append(ids, h.HearingID)
	}
	// Both boundary instants included, one second outside excluded, other tenant excluded.
	if want := []int64{40, 42, 41}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v; want %v", ids, want)
	}
	if got[1].JudgeName != "Doe" || !got[1].NotifyAt.Equal(t0) {
		t.Fatalf("mapping unexpected: %+v", got[1])
	}
}

func TestSQLSource_TenantScope(t *testing.T) {
	db := seedStore(t)
	ctx := context.Background()

	all, err := NewSQLSource(db, "").HearingsNotifiableBetween(ctx, t0, t0)
	if err != nil || len(all) != 2 {
		t.Fatalf("unscoped = %d, %v; want 2 (ids 42, 45)", len(all), err)
	}
	t2, _ := NewSQLSource(db, "t2").HearingsNotifiableBetween(ctx, t0, t0)
	if len(t2) != 1 || t2[0].HearingID != 45 {
		t.Fatalf("t2 scope = %+v", t2)
	}
}

func TestSQLSource_TasksRemindableBetween(t *testing.T) {
	src := NewSQLSource(seedStore(t), "t1")
	got, err := src.TasksRemindableBetween(context.Background(), t0.Add(-time.Minute), t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("TasksRemindableBetween: %v", err)
	}
	if len(got) != 2 || got[0].TaskID != 9 || got[1].TaskID != 7 {
		t.Fatalf("tasks = %+v", got)
	}
	if got[0].EmployeeID != nil {
		t.Fatalf("unassigned task should have nil employee")
	}
	if got[1].EmployeeID == nil || *got[1].EmployeeID != 1 || got[1].Type != "filing" {
		t.Fatalf("task mapping unexpected: %+v", got[1])
	}
}

func TestSQLSource_RelationsAndIdentity(t *testing.T) {
	src := NewSQLSource(seedStore(t), "t1")
	ctx := context.Background()

	cases, err := src.CaseIDsForHearing(ctx, 42)
	if err != nil || !reflect.DeepEqual(cases, []int64{10, 11}) {
		t.Fatalf("CaseIDsForHearing = %v, %v", cases, err)
	}
	if none, err := src.CaseIDsForHearing(ctx, 40); err != nil || len(none) != 0 {
		t.Fatalf("hearing without cases = %v, %v", none, err)
	}

	emps, err := src.CaseEmployeeUsernames(ctx, 10)
	if err != nil || !reflect.DeepEqual(emps, []string{"alice", "bob"}) {
		t.Fatalf("CaseEmployeeUsernames = %v, %v", emps, err)
	}
	custs, err := src.CaseCustomerUsernames(ctx, 10)
	if err != nil || !reflect.DeepEqual(custs, []string{"carol"}) {
		t.Fatalf("CaseCustomerUsernames = %v, %v", custs, err)
	}

	if u, err := src.EmployeeUsername(ctx, 1); err != nil || u != "alice" {
		t.Fatalf("EmployeeUsername(1) = %q, %v", u, err)
	}
	if u, err := src.EmployeeUsername(ctx, 99); err != nil || u != "" {
		t.Fatalf("EmployeeUsername(99) = %q, %v", u, err)
	}

	if p, _ := src.PhoneNumber(ctx, "alice"); p != "5551234" {
		t.Fatalf("phone should be trimmed, got %q", p)
	}
	if p, _ := src.PhoneNumber(ctx, "bob"); p != "" {
		t.Fatalf("blank phone expected, got %q", p)
	}

	if e, _ := src.VerifiedEmail(ctx, "alice"); e != "a@x.com" {
		t.Fatalf("VerifiedEmail(alice) = %q", e)
	}
	if e, _ := src.VerifiedEmail(ctx, "bob"); e != "" {
		t.Fatalf("unconfirmed email must be ignored, got %q", e)
	}
	if e, _ := src.VerifiedEmail(ctx, "carol"); e != "" {
		t.Fatalf("blank email must be ignored, got %q", e)
	}
	if e, _ := src.VerifiedEmail(ctx, "nobody"); e != "" {
		t.Fatalf("unknown user should have no email, got %q", e)
	}

	if err := src.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestSQLSource_ErrorsPropagate(t *testing.T) {
	src := NewSQLSource(newTestDB(t), "") // no tables
	ctx := context.Background()
	if _, err := src.HearingsNotifiableBetween(ctx, t0, t0); err == nil {
		t.Fatalf("expected error without tables")
	}
	if _, err := src.CaseIDsForHearing(ctx, 1); err == nil {
		t.Fatalf("expected error without tables")
	}
}
