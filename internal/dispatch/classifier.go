// Package dispatch classifies transcribed commands by keyword rules
// and routes them to read-only domain handlers. It is stateless: the
// result is a pure function of the command text and the services'
// current answers.
package dispatch

import "strings"

// Category is a command's classified intent.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryEmail
	CategoryCalendar
	CategoryMeeting
	CategoryTask
	CategoryReminder
	CategoryGeneral
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryEmail:
		return "email"
	case CategoryCalendar:
		return "calendar"
	case CategoryMeeting:
		return "meeting"
	case CategoryTask:
		return "task"
	case CategoryReminder:
		return "reminder"
	case CategoryGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// categoryRules are checked in fixed priority order; the first
// category with a matching keyword wins.
var categoryRules = []struct {
	category Category
	keywords []string
}{
	{CategoryEmail, []string{"email", "emails", "mail", "inbox", "unread"}},
	{CategoryCalendar, []string{"calendar", "schedule", "appointment", "agenda", "event", "events"}},
	{CategoryMeeting, []string{"meeting", "meetings", "conference", "call"}},
	{CategoryTask, []string{"task", "tasks", "todo", "to-do", "to do list"}},
	{CategoryReminder, []string{"remind", "reminder", "reminders"}},
	{CategoryGeneral, []string{
		"hello", "hi there", "hey there", "good morning", "good afternoon",
		"good evening", "help", "what can you do", "thank", "thanks", "status",
		"how are you",
	}},
}

// Classify lower-cases the text and tests it against the keyword sets
// in priority order. Membership is substring containment, matching the
// rest of the pipeline's matching rule.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// urgentKeywords mark an email subject as urgent, independent of
// sender.
var urgentKeywords = []string{
	"urgent", "asap", "important", "critical", "emergency",
	"immediately", "action required", "time sensitive",
}

// IsUrgentSubject reports whether an email subject contains any of the
// urgency keywords.
func IsUrgentSubject(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
