// Package domain defines the persistence models for the scheduler. This file
// holds the read models of the case-management store: hearings, tasks, cases,
// their employee/customer links, users, and identity credentials.
//
// The scheduler never writes these tables; they are owned by the case
// management application and mapped here only so the due-item providers and
// the recipient resolver can query them through GORM.
package domain

import "time"

// User is the underlying account of an employee or customer.
//
// Fields:
//   - Username: unique login, the join key into the identity store.
//   - PhoneNumber: free-form phone number; blank means "no phone".
type User struct {
	ID          int64  `json:"id"           gorm:"primaryKey"`
	Username    string `json:"username"     gorm:"type:varchar(64);not null;uniqueIndex"`
	FullName    string `json:"full_name"    gorm:"type:varchar(255);not null;default:''"`
	PhoneNumber string `json:"phone_number" gorm:"type:varchar(32);not null;default:''"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Employee is a firm member who can be assigned to cases and tasks.
type Employee struct {
	ID     int64 `json:"id"      gorm:"primaryKey"`
	UserID int64 `json:"user_id" gorm:"not null;index"`
}

// TableName returns the database table name for Employee.
func (Employee) TableName() string { return "employees" }

// Customer is a client of the firm.
type Customer struct {
	ID     int64 `json:"id"      gorm:"primaryKey"`
	UserID int64 `json:"user_id" gorm:"not null;index"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Case is a legal matter. Only the identity and tenant are needed here.
type Case struct {
	ID       int64  `json:"id"        gorm:"primaryKey"`
	TenantID string `json:"tenant_id" gorm:"type:varchar(64);not null;default:'';index"`
	Title    string `json:"title"     gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// CaseEmployee links an employee to a case.
type CaseEmployee struct {
	CaseID     int64 `json:"case_id"     gorm:"primaryKey"`
	EmployeeID int64 `json:"employee_id" gorm:"primaryKey;index"`
}

// TableName returns the database table name for CaseEmployee.
func (CaseEmployee) TableName() string { return "case_employees" }

// CaseCustomer links a customer to a case.
type CaseCustomer struct {
	CaseID     int64 `json:"case_id"     gorm:"primaryKey"`
	CustomerID int64 `json:"customer_id" gorm:"primaryKey;index"`
}

// TableName returns the database table name for CaseCustomer.
func (CaseCustomer) TableName() string { return "case_customers" }

// Hearing is a scheduled court hearing. NotificationTime is the instant the
// reminder becomes eligible; HearingDate is when the hearing takes place.
type Hearing struct {
	ID               int64     `json:"id"                gorm:"primaryKey"`
	TenantID         string    `json:"tenant_id"         gorm:"type:varchar(64);not null;default:'';index:idx_hearings_notify,priority:1"`
	NotificationTime time.Time `json:"notification_time" gorm:"not null;index:idx_hearings_notify,priority:2"`
	HearingDate      time.Time `json:"hearing_date"      gorm:"not null"`
	JudgeName        string    `json:"judge_name"        gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the database table name for Hearing.
func (Hearing) TableName() string { return "hearings" }

// HearingCase links a hearing to one of the cases it concerns.
type HearingCase struct {
	HearingID int64 `json:"hearing_id" gorm:"primaryKey"`
	CaseID    int64 `json:"case_id"    gorm:"primaryKey;index"`
}

// TableName returns the database table name for HearingCase.
func (HearingCase) TableName() string { return "hearing_cases" }

// AdminTask is an administrative task with an optional assignee.
type AdminTask struct {
	ID           int64      `json:"id"            gorm:"primaryKey"`
	TenantID     string     `json:"tenant_id"     gorm:"type:varchar(64);not null;default:'';index:idx_tasks_remind,priority:1"`
	ReminderTime time.Time  `json:"reminder_time" gorm:"not null;index:idx_tasks_remind,priority:2"`
	Name         string     `json:"name"          gorm:"type:varchar(255);not null"`
	Type         string     `json:"type"          gorm:"type:varchar(64);not null;default:''"`
	TaskDate     *time.Time `json:"task_date,omitempty"`
	Notes        string     `json:"notes"         gorm:"type:text;not null;default:''"`
	EmployeeID   *int64     `json:"employee_id,omitempty" gorm:"index"`
}

// TableName returns the database table name for AdminTask.
func (AdminTask) TableName() string { return "admin_tasks" }

// UserCredential is the identity store row mapping a username to an email.
// Only confirmed, non-blank emails are used for notifications.
type UserCredential struct {
	Username       string `json:"username"        gorm:"type:varchar(64);primaryKey"`
	Email          string `json:"email"           gorm:"type:varchar(320);not null;default:''"`
	EmailConfirmed bool   `json:"email_confirmed" gorm:"not null;default:false"`
}

// TableName returns the database table name for UserCredential.
func (UserCredential) TableName() string { return "user_credentials" }

// StoreModels lists the read models of the case-management store, in
// migration order. Used by tests and local development seeding.
func StoreModels() []any {
	return []any{
		&User{}, &Employee{}, &Customer{}, &Case{},
		&CaseEmployee{}, &CaseCustomer{},
		&Hearing{}, &HearingCase{}, &AdminTask{},
		&UserCredential{},
	}
}
