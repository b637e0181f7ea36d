package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReminderKey_FormatAndParse(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	at := time.Date(2026, 3, 4, 11, 30, 0, 500, loc)

	k := NewReminderKey(42, at)
	if want := "42:2026-03-04T09:30:00.0000005Z"; k.String() != want {
		t.Fatalf("key = %q; want %q", k, want)
	}

	id, ts, err := k.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != 42 || !ts.Equal(at) {
		t.Fatalf("Parse = (%d, %v); want (42, %v)", id, ts, at)
	}
}

func TestReminderKey_ChangesWithTimestamp(t *testing.T) {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	a := NewReminderKey(7, at)
	b := NewReminderKey(7, at.Add(time.Minute))
	if a == b {
		t.Fatalf("editing the notification timestamp must change the key (%q)", a)
	}
	// Same instant in another zone is the same occasion.
	if c := NewReminderKey(7, at.In(time.FixedZone("X", -5*3600))); c != a {
		t.Fatalf("zone must not affect key: %q vs %q", c, a)
	}
}

func TestReminderKey_ParseMalformed(t *testing.T) {
	for _, k := range []ReminderKey{"", "nocolon", "x:2026-01-01T00:00:00Z", "1:yesterday"} {
		if _, _, err := k.Parse(); !errors.Is(err, ErrMalformedKey) {
			t.Fatalf("Parse(%q) err = %v; want ErrMalformedKey", k, err)
		}
	}
}

func TestRecipientTargets_NamespacedAddresses(t *testing.T) {
	cases := []struct {
		target      RecipientTarget
		address     string
		destination string
	}{
		{EmailTarget("a@x.com"), "a@x.com", "a@x.com"},
		{SMSTarget("5551234"), "sms:5551234", "5551234"},
		{WhatsAppTarget("5551234"), "whatsapp:5551234", "5551234"},
	}
	for _, tc := range cases {
		if tc.target.Address != tc.address {
			t.Fatalf("%s address = %q; want %q", tc.target.Channel, tc.target.Address, tc.address)
		}
		if got := tc.target.Destination(); got != tc.destination {
			t.Fatalf("%s destination = %q; want %q", tc.target.Channel, got, tc.destination)
		}
	}
	if SMSTarget("1").Address == WhatsAppTarget("1").Address {
		t.Fatalf("sms and whatsapp must not share a ledger address")
	}
}

func TestMessage_BodyFor(t *testing.T) {
	m := Message{Subject: "s", Plain: "p", HTML: "<p>h</p>"}
	if m.BodyFor(ChannelEmail) != "<p>h</p>" {
		t.Fatalf("email should use HTML body")
	}
	if m.BodyFor(ChannelSMS) != "p" || m.BodyFor(ChannelWhatsApp) != "p" {
		t.Fatalf("sms/whatsapp should use plain body")
	}
}

func TestHearingReminder_Describe(t *testing.T) {
	h := HearingReminder{
		HearingID:   42,
		NotifyAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		HearingDate: time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC),
		JudgeName:   "O'Brien & Sons",
	}
	if h.Category() != CategoryHearing || h.ItemID() != 42 || h.Key() != NewReminderKey(42, h.NotifyAt) {
		t.Fatalf("unexpected identity: %v %d %q", h.Category(), h.ItemID(), h.Key())
	}

	m := h.Describe()
	if m.Subject != "Hearing reminder: Fri 01 May 2026 10:30" {
		t.Fatalf("subject = %q", m.Subject)
	}
	if want := "Reminder: you have a hearing on Fri 01 May 2026 10:30 before Judge O'Brien & Sons."; m.Plain != want {
		t.Fatalf("plain = %q; want %q", m.Plain, want)
	}
	if !strings.Contains(m.HTML, "O&#39;Brien &amp; Sons") {
		t.Fatalf("html must escape judge name: %q", m.HTML)
	}

	h.JudgeName = "  "
	if strings.Contains(h.Describe().Plain, "Judge") {
		t.Fatalf("blank judge must be omitted: %q", h.Describe().Plain)
	}
}

func TestTaskReminder_Describe(t *testing.T) {
	date := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	emp := int64(3)
	task := TaskReminder{
		TaskID:     9,
		RemindAt:   time.Date(2026, 6, 14, 9, 0, 0, 0, time.UTC),
		Name:       "File appeal",
		Type:       "COURT filing",
		Date:       &date,
		Notes:      "Bring <originals>\nand copies",
		EmployeeID: &emp,
	}
	if task.Category() != CategoryTask || task.ItemID() != 9 {
		t.Fatalf("unexpected identity")
	}

	m := task.Describe()
	if m.Subject != "Task reminder: File appeal" {
		t.Fatalf("subject = %q", m.Subject)
	}
	if want := `Reminder: Court Filing task "File appeal" on Mon 15 Jun 2026. Notes: Bring <originals>` + "\nand copies"; m.Plain != want {
		t.Fatalf("plain = %q; want %q", m.Plain, want)
	}
	if !strings.Contains(m.HTML, "Bring &lt;originals&gt;<br>and copies") {
		t.Fatalf("html must escape notes and keep line breaks: %q", m.HTML)
	}

	bare := TaskReminder{TaskID: 1, Name: "Call client"}
	if got := bare.Describe().Plain; got != `Reminder: task "Call client".` {
		t.Fatalf("bare plain = %q", got)
	}
}
