package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/aide/internal/domain"
	"github.com/hammamikhairi/aide/internal/logger"
)

// Dispatcher routes classified commands to handlers backed by the
// connected domain services. All handlers are read-only; commands that
// would mutate state get a clarifying follow-up instead.
type Dispatcher struct {
	email    domain.EmailService
	calendar domain.CalendarService
	meetings domain.MeetingService

	log *logger.Logger
	now func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the dispatcher's time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New builds a dispatcher over the given services. Any service may be
// nil; its handlers then report that the service is not connected.
func New(email domain.EmailService, calendar domain.CalendarService, meetings domain.MeetingService, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		email:    email,
		calendar: calendar,
		meetings: meetings,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process classifies the command and runs the matching handler. It
// never panics out: an unexpected handler failure is converted into an
// apologetic failure result so the caller's loop keeps running.
func (d *Dispatcher) Process(ctx context.Context, cmd domain.VoiceCommand) (res domain.CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch panic: %v", r)
			res = domain.CommandResult{
				Success:  false,
				Response: "Something went wrong handling that. Please try again.",
			}
		}
	}()

	text := strings.ToLower(strings.TrimSpace(cmd.Text))
	category := Classify(text)
	d.log.Debug("dispatch: %q classified as %s", cmd.Text, category)

	switch category {
	case CategoryEmail:
		return d.handleEmail(ctx, text)
	case CategoryCalendar:
		return d.handleCalendar(ctx)
	case CategoryMeeting:
		return d.handleMeetings(ctx)
	case CategoryTask:
		return d.handleTasks()
	case CategoryReminder:
		return d.handleReminders()
	case CategoryGeneral:
		return d.handleGeneral(text)
	default:
		return domain.CommandResult{
			Success:  false,
			Response: "Sorry, I didn't catch a request I know. You can ask about your email, calendar, or meetings.",
		}
	}
}

// emailSummary is carried in CommandResult.Data for email queries.
type emailSummary struct {
	Accounts int
	Unread   int
	Urgent   int
}

func (d *Dispatcher) handleEmail(ctx context.Context, text string) domain.CommandResult {
	for _, verb := range []string{"send", "compose", "write", "reply", "forward", "delete"} {
		if strings.Contains(text, verb) {
			return domain.CommandResult{
				Success:  true,
				Response: "I can't send or change email by voice yet. I can tell you what's waiting in your inbox instead.",
				Action:   "compose_email_followup",
			}
		}
	}
	if d.email == nil {
		return serviceOffline("email")
	}

	accounts, err := d.email.Accounts(ctx)
	if err != nil {
		d.log.Warn("email accounts unavailable: %v", err)
		return domain.CommandResult{
			Success:  true,
			Response: "I couldn't reach your email accounts just now. Try again in a moment.",
			Action:   "check_emails",
		}
	}

	summary := emailSummary{Accounts: len(accounts)}
	reached := 0
	for _, acct := range accounts {
		msgs, err := d.email.Unread(ctx, acct.ID)
		if err != nil {
			d.log.Warn("unread fetch failed for %s: %v", acct.Address, err)
			continue
		}
		reached++
		for _, m := range msgs {
			summary.Unread++
			if IsUrgentSubject(m.Subject) {
				summary.Urgent++
			}
		}
	}

	var response string
	switch {
	case reached == 0 && len(accounts) > 0:
		response = "I couldn't reach any of your email accounts just now."
	case summary.Unread == 0:
		response = "You have no unread emails. Inbox zero."
	default:
		response = fmt.Sprintf("You have %s across %s",
			plural(summary.Unread, "unread email"), plural(summary.Accounts, "account"))
		if summary.Urgent > 0 {
			response += fmt.Sprintf(", and %d of them look urgent", summary.Urgent)
		}
		response += "."
	}

	return domain.CommandResult{
		Success:  true,
		Response: response,
		Action:   "check_emails",
		Data:     summary,
	}
}

func (d *Dispatcher) handleCalendar(ctx context.Context) domain.CommandResult {
	if d.calendar == nil {
		return serviceOffline("calendar")
	}

	now := d.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	accounts, err := d.calendar.Accounts(ctx)
	if err != nil {
		d.log.Warn("calendar accounts unavailable: %v", err)
		return domain.CommandResult{
			Success:  true,
			Response: "I couldn't reach your calendar just now. Try again in a moment.",
			Action:   "check_calendar",
		}
	}

	var events []domain.CalendarEvent
	for _, acct := range accounts {
		evs, err := d.calendar.EventsBetween(ctx, acct.ID, dayStart, dayEnd)
		if err != nil {
			d.log.Warn("events fetch failed for %s: %v", acct.Address, err)
			continue
		}
		events = append(events, evs...)
	}

	if len(events) == 0 {
		return domain.CommandResult{
			Success:  true,
			Response: "Your calendar is clear for the rest of today.",
			Action:   "check_calendar",
			Data:     events,
		}
	}

	next := events[0]
	for _, ev := range events[1:] {
		if ev.Start.Before(next.Start) {
			next = ev
		}
	}
	response := fmt.Sprintf("You have %s today. First up is %s at %s",
		plural(len(events), "event"), next.Title, formatClock(next.Start))
	if next.Location != "" {
		response += " in " + next.Location
	}
	response += "."

	return domain.CommandResult{
		Success:  true,
		Response: response,
		Action:   "check_calendar",
		Data:     events,
	}
}

func (d *Dispatcher) handleMeetings(ctx context.Context) domain.CommandResult {
	if d.meetings == nil {
		return serviceOffline("meeting")
	}

	accounts, err := d.meetings.Accounts(ctx)
	if err != nil {
		d.log.Warn("meeting accounts unavailable: %v", err)
		return domain.CommandResult{
			Success:  true,
			Response: "I couldn't reach your meetings just now. Try again in a moment.",
			Action:   "check_meetings",
		}
	}

	var meetings []domain.Meeting
	for _, acct := range accounts {
		ms, err := d.meetings.Upcoming(ctx, acct.ID, 24*time.Hour)
		if err != nil {
			d.log.Warn("meetings fetch failed for %s: %v", acct.Address, err)
			continue
		}
		meetings = append(meetings, ms...)
	}

	if len(meetings) == 0 {
		return domain.CommandResult{
			Success:  true,
			Response: "You have no meetings in the next twenty-four hours.",
			Action:   "check_meetings",
			Data:     meetings,
		}
	}

	next := meetings[0]
	for _, m := range meetings[1:] {
		if m.Start.Before(next.Start) {
			next = m
		}
	}
	response := fmt.Sprintf("You have %s coming up. The next one is %s at %s.",
		plural(len(meetings), "meeting"), next.Title, formatClock(next.Start))

	return domain.CommandResult{
		Success:  true,
		Response: response,
		Action:   "check_meetings",
		Data:     meetings,
	}
}

func (d *Dispatcher) handleTasks() domain.CommandResult {
	return domain.CommandResult{
		Success:  true,
		Response: "Task tracking isn't connected yet. For now I can report on your email, calendar, and meetings.",
		Action:   "tasks_followup",
	}
}

func (d *Dispatcher) handleReminders() domain.CommandResult {
	return domain.CommandResult{
		Success:  true,
		Response: "I can't set reminders yet. Try asking about your email, calendar, or meetings.",
		Action:   "set_reminder_followup",
	}
}

func (d *Dispatcher) handleGeneral(text string) domain.CommandResult {
	switch {
	case strings.Contains(text, "thank"):
		return domain.CommandResult{Success: true, Response: "You're welcome.", Action: "acknowledge"}
	case strings.Contains(text, "help") || strings.Contains(text, "what can you do"):
		return domain.CommandResult{
			Success:  true,
			Response: "You can ask me about unread email, today's calendar, and upcoming meetings.",
			Action:   "help",
		}
	case strings.Contains(text, "how are you"):
		return domain.CommandResult{Success: true, Response: "All systems running. What do you need?", Action: "greeting"}
	default:
		return domain.CommandResult{Success: true, Response: d.greeting(), Action: "greeting"}
	}
}

func (d *Dispatcher) greeting() string {
	switch h := d.now().Hour(); {
	case h < 12:
		return "Good morning. What can I check for you?"
	case h < 18:
		return "Good afternoon. What can I check for you?"
	default:
		return "Good evening. What can I check for you?"
	}
}

func serviceOffline(name string) domain.CommandResult {
	return domain.CommandResult{
		Success:  true,
		Response: fmt.Sprintf("Your %s service isn't connected yet.", name),
		Action:   "check_" + name,
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}
