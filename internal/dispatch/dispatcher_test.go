package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/aide/internal/accounts"
	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func newTestDispatcher(t *testing.T) (*Dispatcher, *accounts.MemoryStore) {
	t.Helper()
	store := accounts.NewMemoryStore()
	store.SetClock(testClock)
	store.AddAccount(domain.Account{ID: "personal", Provider: "gmail", Address: "me@gmail.com"})
	store.AddAccount(domain.Account{ID: "work", Provider: "outlook", Address: "me@work.com"})

	log := logger.New(logger.LevelOff, nil)
	return New(store, store, store, log, WithClock(testClock)), store
}

func process(t *testing.T, d *Dispatcher, text string) domain.CommandResult {
	t.Helper()
	return d.Process(context.Background(), domain.VoiceCommand{
		Text: text, Confidence: 0.9, Timestamp: testNow,
	})
}

func TestEmailQueryCountsUnreadAndUrgent(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.AddEmail("personal", domain.EmailMessage{ID: "1", Subject: "Lunch?", Received: testNow})
	store.AddEmail("work", domain.EmailMessage{ID: "2", Subject: "URGENT: server down", Received: testNow})
	store.AddEmail("work", domain.EmailMessage{ID: "3", Subject: "Weekly digest", Received: testNow, Read: true})

	res := process(t, d, "check my emails")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Action != "check_emails" {
		t.Fatalf("expected action check_emails, got %q", res.Action)
	}
	sum, ok := res.Data.(emailSummary)
	if !ok {
		t.Fatalf("expected emailSummary data, got %T", res.Data)
	}
	if sum.Unread != 2 || sum.Urgent != 1 || sum.Accounts != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !strings.Contains(res.Response, "2 unread emails") {
		t.Fatalf("response should mention the count: %q", res.Response)
	}
}

func TestEmailQueryInboxZero(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := process(t, d, "any new mail?")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Response, "no unread") {
		t.Fatalf("expected inbox-zero response, got %q", res.Response)
	}
}

func TestSendEmailGetsFollowUp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := process(t, d, "send an email to my boss")
	if !res.Success {
		t.Fatalf("mutating email command should still succeed with a follow-up: %+v", res)
	}
	if res.Action != "compose_email_followup" {
		t.Fatalf("expected follow-up action, got %q", res.Action)
	}
}

func TestCalendarQueryReportsFirstEvent(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.AddEvent("work", domain.CalendarEvent{
		ID: "e1", Title: "Standup",
		Start: testNow.Add(30 * time.Minute), End: testNow.Add(45 * time.Minute),
		Location: "Room 4",
	})
	store.AddEvent("personal", domain.CalendarEvent{
		ID: "e2", Title: "Gym",
		Start: testNow.Add(8 * time.Hour), End: testNow.Add(9 * time.Hour),
	})

	res := process(t, d, "what's on my calendar today")
	if !res.Success || res.Action != "check_calendar" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Response, "2 events") || !strings.Contains(res.Response, "Standup") {
		t.Fatalf("response should summarize the day: %q", res.Response)
	}
}

func TestCalendarQueryEmptyDay(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := process(t, d, "what does my schedule look like")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Response, "clear") {
		t.Fatalf("expected a clear-day response, got %q", res.Response)
	}
}

func TestMeetingQueryFindsUpcoming(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.AddMeeting("work", domain.Meeting{
		ID: "m1", Title: "Design review", Start: testNow.Add(2 * time.Hour),
	})
	store.AddMeeting("work", domain.Meeting{
		ID: "m2", Title: "Retro", Start: testNow.Add(48 * time.Hour), // outside window
	})

	res := process(t, d, "do I have any meetings")
	if !res.Success || res.Action != "check_meetings" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Response, "Design review") {
		t.Fatalf("expected the next meeting in the response, got %q", res.Response)
	}
	if strings.Contains(res.Response, "Retro") {
		t.Fatalf("meeting outside the 24h window leaked in: %q", res.Response)
	}
}

func TestTaskAndReminderFollowUps(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, tc := range []struct {
		text   string
		action string
	}{
		{"add a task for tomorrow", "tasks_followup"},
		{"remind me to water the plants", "set_reminder_followup"},
	} {
		res := process(t, d, tc.text)
		if !res.Success {
			t.Fatalf("%q: expected success, got %+v", tc.text, res)
		}
		if res.Action != tc.action {
			t.Fatalf("%q: expected action %s, got %s", tc.text, tc.action, res.Action)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := process(t, d, "purple monkey dishwasher")
	if res.Success {
		t.Fatalf("expected failure for unrecognized command, got %+v", res)
	}
	if res.Response == "" {
		t.Fatal("failure result still needs a spoken response")
	}
}

func TestGreetingMatchesTimeOfDay(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := process(t, d, "hello")
	if !res.Success || res.Action != "greeting" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.Response, "Good morning") {
		t.Fatalf("expected a morning greeting at 9am, got %q", res.Response)
	}
}

// failingEmail errors on one account to verify per-account isolation.
type failingEmail struct {
	store *accounts.MemoryStore
}

func (f *failingEmail) Accounts(ctx context.Context) ([]domain.Account, error) {
	return f.store.Accounts(ctx)
}

func (f *failingEmail) Unread(ctx context.Context, accountID string) ([]domain.EmailMessage, error) {
	if accountID == "work" {
		return nil, errors.New("imap timeout")
	}
	return f.store.Unread(ctx, accountID)
}

func TestEmailAccountFailureIsIsolated(t *testing.T) {
	store := accounts.NewMemoryStore()
	store.AddAccount(domain.Account{ID: "personal", Address: "me@gmail.com"})
	store.AddAccount(domain.Account{ID: "work", Address: "me@work.com"})
	store.AddEmail("personal", domain.EmailMessage{ID: "1", Subject: "hi", Received: testNow})

	log := logger.New(logger.LevelOff, nil)
	d := New(&failingEmail{store: store}, store, store, log, WithClock(testClock))

	res := process(t, d, "check my inbox")
	if !res.Success {
		t.Fatalf("one failing account must not fail the command: %+v", res)
	}
	sum := res.Data.(emailSummary)
	if sum.Unread != 1 {
		t.Fatalf("expected the healthy account's count, got %+v", sum)
	}
}
