package accounts

import (
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
)

// Seeded returns a store pre-loaded with two accounts and a plausible
// day of email, events, and meetings for local runs.
func Seeded() *MemoryStore {
	s := NewMemoryStore()
	now := time.Now()

	s.AddAccount(domain.Account{ID: "personal", Provider: "gmail", Address: "me@gmail.com"})
	s.AddAccount(domain.Account{ID: "work", Provider: "outlook", Address: "me@company.com"})

	s.AddEmail("personal", domain.EmailMessage{
		ID: "p-1", From: "news@weekly.dev", Subject: "This week in Go",
		Received: now.Add(-2 * time.Hour),
	})
	s.AddEmail("work", domain.EmailMessage{
		ID: "w-1", From: "boss@company.com", Subject: "URGENT: quarterly report due",
		Received: now.Add(-45 * time.Minute),
	})
	s.AddEmail("work", domain.EmailMessage{
		ID: "w-2", From: "it@company.com", Subject: "Scheduled maintenance this weekend",
		Received: now.Add(-3 * time.Hour),
	})

	s.AddEvent("work", domain.CalendarEvent{
		ID: "e-1", Title: "Team standup",
		Start: now.Add(30 * time.Minute), End: now.Add(45 * time.Minute),
		Location: "Room 2B",
	})
	s.AddEvent("personal", domain.CalendarEvent{
		ID: "e-2", Title: "Dentist",
		Start: now.Add(6 * time.Hour), End: now.Add(7 * time.Hour),
	})

	s.AddMeeting("work", domain.Meeting{
		ID: "m-1", Title: "Design review",
		Start: now.Add(2 * time.Hour), JoinURL: "https://meet.example.com/design",
	})

	return s
}
