// Package domain defines the reminder types shared by the scheduler, the
// dispatch ledger, and the relational store read models.
//
// A DueItem is a tagged variant over HearingReminder and TaskReminder. Both
// expose the same small surface (identity, notification time, reminder key,
// rendered message) so the poller and dispatcher stay category-agnostic while
// providers and resolvers supply the category-specific joins.
package domain

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the reminder family a due item belongs to. Each category is
// polled by its own, independently configured poller.
type Category string

const (
	CategoryHearing Category = "hearing"
	CategoryTask    Category = "task"
)

// Channel is a notification transport.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Channels lists every supported channel in dispatch order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// reminderKeyLayout is the fixed, round-trippable timestamp layout used inside
// reminder keys. Timestamps are always rendered in UTC.
const reminderKeyLayout = time.RFC3339Nano

// ErrMalformedKey is returned by ReminderKey.Parse for keys that were not
// produced by NewReminderKey.
var ErrMalformedKey = errors.New("malformed reminder key")

// ReminderKey identifies one notification occasion of a due item. It is
// versioned by the notification timestamp: editing the timestamp yields a new
// key, and the item becomes eligible for a fresh round of notifications.
type ReminderKey string

// NewReminderKey builds the key "{itemID}:{notifyAt in UTC RFC3339Nano}".
func NewReminderKey(itemID int64, notifyAt time.Time) ReminderKey {
	return ReminderKey(strconv.FormatInt(itemID, 10) + ":" + notifyAt.UTC().Format(reminderKeyLayout))
}

// Parse splits the key back into the item id and notification timestamp.
func (k ReminderKey) Parse() (int64, time.Time, error) {
	idPart, tsPart, ok := strings.Cut(string(k), ":")
	if !ok {
		return 0, time.Time{}, ErrMalformedKey
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	ts, err := time.Parse(reminderKeyLayout, tsPart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return id, ts, nil
}

func (k ReminderKey) String() string { return string(k) }

// RecipientTarget is one (channel, address) pair to notify. SMS and WhatsApp
// addresses carry a channel prefix ("sms:", "whatsapp:") so that the ledger's
// (reminder key, recipient) space never collides across channels that share a
// phone number.
type RecipientTarget struct {
	Channel Channel
	Address string
}

// EmailTarget returns the Email target for addr.
func EmailTarget(addr string) RecipientTarget {
	return RecipientTarget{Channel: ChannelEmail, Address: addr}
}

// SMSTarget returns the SMS target for phone.
func SMSTarget(phone string) RecipientTarget {
	return RecipientTarget{Channel: ChannelSMS, Address: string(ChannelSMS) + ":" + phone}
}

// WhatsAppTarget returns the WhatsApp target for phone.
func WhatsAppTarget(phone string) RecipientTarget {
	return RecipientTarget{Channel: ChannelWhatsApp, Address: string(ChannelWhatsApp) + ":" + phone}
}

// Destination is the transport-level address: the ledger address with the
// channel namespace removed.
func (t RecipientTarget) Destination() string {
	switch t.Channel {
	case ChannelSMS, ChannelWhatsApp:
		return strings.TrimPrefix(t.Address, string(t.Channel)+":")
	default:
		return t.Address
	}
}

// Message is the rendered content of a reminder. Plain is used for SMS and
// WhatsApp, HTML for email.
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

// BodyFor selects the body variant appropriate for ch.
func (m Message) BodyFor(ch Channel) string {
	if ch == ChannelEmail {
		return m.HTML
	}
	return m.Plain
}

// DueItem is a reminder whose notification timestamp may fall inside an
// eligibility window. Values are immutable once read from the store.
type DueItem interface {
	Category() Category
	ItemID() int64
	NotificationTime() time.Time
	Key() ReminderKey
	Describe() Message
}

const (
	dateTimeLayout = "Mon 02 Jan 2006 15:04"
	dateLayout     = "Mon 02 Jan 2006"
)

// HearingReminder is a court hearing whose participants must be notified.
type HearingReminder struct {
	HearingID   int64
	NotifyAt    time.Time
	HearingDate time.Time
	JudgeName   string
}

func (h HearingReminder) Category() Category          { return CategoryHearing }
func (h HearingReminder) ItemID() int64               { return h.HearingID }
func (h HearingReminder) NotificationTime() time.Time { return h.NotifyAt }
func (h HearingReminder) Key() ReminderKey            { return NewReminderKey(h.HearingID, h.NotifyAt) }

// Describe renders the hearing subject and bodies.
func (h HearingReminder) Describe() Message {
	when := h.HearingDate.Format(dateTimeLayout)
	judge := strings.TrimSpace(h.JudgeName)

	plain := "Reminder: you have a hearing on " + when
	htmlBody := "<p>Reminder: you have a hearing on <strong>" + html.EscapeString(when) + "</strong>"
	if judge != "" {
		plain += " before Judge " + judge
		htmlBody += " before Judge <strong>" + html.EscapeString(judge) + "</strong>"
	}
	plain += "."
	htmlBody += ".</p>"

	return Message{
		Subject: "Hearing reminder: " + when,
		Plain:   plain,
		HTML:    htmlBody,
	}
}

// TaskReminder is an administrative task assigned to (at most) one employee.
type TaskReminder struct {
	TaskID     int64
	RemindAt   time.Time
	Name       string
	Type       string
	Date       *time.Time
	Notes      string
	EmployeeID *int64
}

func (t TaskReminder) Category() Category          { return CategoryTask }
func (t TaskReminder) ItemID() int64               { return t.TaskID }
func (t TaskReminder) NotificationTime() time.Time { return t.RemindAt }
func (t TaskReminder) Key() ReminderKey            { return NewReminderKey(t.TaskID, t.RemindAt) }

// Describe renders the task subject and bodies. The task type is title-cased
// ("court filing" -> "Court Filing"); notes are included verbatim in the
// plain body and escaped, with line breaks preserved, in the HTML body.
func (t TaskReminder) Describe() Message {
	name := strings.TrimSpace(t.Name)
	kind := cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(t.Type)))

	var plain, htmlBody strings.Builder
	plain.WriteString("Reminder: ")
	htmlBody.WriteString("<p>Reminder: ")
	if kind != "" {
		plain.WriteString(kind + " task")
		htmlBody.WriteString(html.EscapeString(kind) + " task")
	} else {
		plain.WriteString("task")
		htmlBody.WriteString("task")
	}
	plain.WriteString(` "` + name + `"`)
	htmlBody.WriteString(" <strong>" + html.EscapeString(name) + "</strong>")
	if t.Date != nil && !t.Date.IsZero() {
		d := t.Date.Format(dateLayout)
		plain.WriteString(" on " + d)
		htmlBody.WriteString(" on " + html.EscapeString(d))
	}
	plain.WriteString(".")
	htmlBody.WriteString(".</p>")

	if notes := strings.TrimSpace(t.Notes); notes != "" {
		plain.WriteString(" Notes: " + notes)
		escaped := strings.ReplaceAll(html.EscapeString(notes), "\n", "<br>")
		htmlBody.WriteString("<p>Notes:<br>" + escaped + "</p>")
	}

	return Message{
		Subject: "Task reminder: " + name,
		Plain:   plain.String(),
		HTML:    htmlBody.String(),
	}
}

var (
	_ DueItem = HearingReminder{}
	_ DueItem = TaskReminder{}
)
