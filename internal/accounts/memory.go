// Package accounts provides in-memory implementations of the email,
// calendar, and meeting service ports. They back local runs and tests
// until real provider connectors land.
package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
)

// MemoryStore holds seeded accounts and their items. It implements
// domain.EmailService, domain.CalendarService, and
// domain.MeetingService and is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts []domain.Account
	emails   map[string][]domain.EmailMessage
	events   map[string][]domain.CalendarEvent
	meetings map[string][]domain.Meeting

	now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		emails:   make(map[string][]domain.EmailMessage),
		events:   make(map[string][]domain.CalendarEvent),
		meetings: make(map[string][]domain.Meeting),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddAccount registers an account. Items can be added for it
// afterwards keyed by its ID.
func (s *MemoryStore) AddAccount(acct domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, acct)
}

// AddEmail appends a message to the account's mailbox.
func (s *MemoryStore) AddEmail(accountID string, msg domain.EmailMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Account = accountID
	s.emails[accountID] = append(s.emails[accountID], msg)
}

// AddEvent appends a calendar event to the account.
func (s *MemoryStore) AddEvent(accountID string, ev domain.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Account = accountID
	s.events[accountID] = append(s.events[accountID], ev)
}

// AddMeeting appends a meeting to the account.
func (s *MemoryStore) AddMeeting(accountID string, m domain.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Account = accountID
	s.meetings[accountID] = append(s.meetings[accountID], m)
}

// Accounts lists every registered account.
func (s *MemoryStore) Accounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

// Unread returns the account's unread messages, newest first.
func (s *MemoryStore) Unread(ctx context.Context, accountID string) ([]domain.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAccount(accountID) {
		return nil, domain.ErrNotFound
	}
	var out []domain.EmailMessage
	for _, m := range s.emails[accountID] {
		if !m.Read {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Received.After(out[j].Received) })
	return out, nil
}

// EventsBetween returns the account's events overlapping [start, end),
// ordered by start time.
func (s *MemoryStore) EventsBetween(ctx context.Context, accountID string, start, end time.Time) ([]domain.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAccount(accountID) {
		return nil, domain.ErrNotFound
	}
	var out []domain.CalendarEvent
	for _, ev := range s.events[accountID] {
		if ev.End.After(start) && ev.Start.Before(end) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Upcoming returns the account's meetings starting within the window,
// ordered by start time.
func (s *MemoryStore) Upcoming(ctx context.Context, accountID string, within time.Duration) ([]domain.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAccount(accountID) {
		return nil, domain.ErrNotFound
	}
	now := s.now()
	cutoff := now.Add(within)
	var out []domain.Meeting
	for _, m := range s.meetings[accountID] {
		if !m.Start.Before(now) && m.Start.Before(cutoff) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *MemoryStore) hasAccount(id string) bool {
	for _, a := range s.accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}
