// Package alert implements the escalating notification channel. Alerts
// carry a severity level, fire visual and audible side effects through
// a Sink, and ones marked persistent escalate one level when they are
// not acknowledged before their deadline.
package alert

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/aide/internal/logger"
)

// Level is an alert's severity. Higher values are more severe.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// TriggerConfig describes an alert to raise.
type TriggerConfig struct {
	Level          Level
	Reason         string
	Title          string
	Message        string
	ActionRequired bool

	// PersistUntilResponse keeps the alert active until acknowledged
	// and arms the escalation deadline.
	PersistUntilResponse bool

	// EscalationAfter is how long an unacknowledged persistent alert
	// waits before escalating one level. Zero disables escalation.
	EscalationAfter time.Duration
}

// Record is an active alert.
type Record struct {
	ID             string
	Level          Level
	Reason         string
	Title          string
	Message        string
	ActionRequired bool
	Persistent     bool
	CreatedAt      time.Time

	// EscalationDeadline is zero when the alert does not escalate.
	EscalationDeadline time.Time

	// EscalatedFrom is the ID of the record this one superseded, empty
	// for alerts raised directly.
	EscalatedFrom string
}

var (
	// ErrEmptyTitle is returned when a trigger carries no title.
	ErrEmptyTitle = errors.New("alert: empty title")
	// ErrUnknownAlert is returned when acknowledging an ID that is not active.
	ErrUnknownAlert = errors.New("alert: unknown alert id")
)

// Subscriber receives every raised record, escalations included.
type Subscriber func(Record)

// Option configures the channel.
type Option func(*Channel)

// WithClock overrides the channel's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

// Channel manages active alerts and their escalation timers.
type Channel struct {
	sink Sink
	log  *logger.Logger
	now  func() time.Time

	mu      sync.Mutex
	seq     int
	records map[string]*Record
	timers  map[string]*time.Timer
	subs    []Subscriber
}

// New creates an alert channel delivering through the given sink.
func New(sink Sink, log *logger.Logger, opts ...Option) *Channel {
	c := &Channel{
		sink:    sink,
		log:     log,
		now:     time.Now,
		records: make(map[string]*Record),
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a callback invoked for every raised record.
func (c *Channel) Subscribe(fn Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Trigger raises a new alert and returns its ID.
func (c *Channel) Trigger(cfg TriggerConfig) (string, error) {
	if cfg.Title == "" {
		return "", ErrEmptyTitle
	}
	c.mu.Lock()
	rec := c.raiseLocked(cfg, cfg, "")
	c.mu.Unlock()
	return rec.ID, nil
}

// raiseLocked creates the record, delivers it, and arms its deadline.
// origin is the config of the first trigger in the escalation chain,
// so every rung amends the original title rather than compounding.
// Caller holds c.mu.
func (c *Channel) raiseLocked(cfg, origin TriggerConfig, escalatedFrom string) *Record {
	c.seq++
	rec := &Record{
		ID:             fmt.Sprintf("alert-%d", c.seq),
		Level:          cfg.Level,
		Reason:         cfg.Reason,
		Title:          cfg.Title,
		Message:        cfg.Message,
		ActionRequired: cfg.ActionRequired,
		Persistent:     cfg.PersistUntilResponse,
		CreatedAt:      c.now(),
		EscalatedFrom:  escalatedFrom,
	}
	if cfg.PersistUntilResponse && cfg.EscalationAfter > 0 {
		rec.EscalationDeadline = rec.CreatedAt.Add(cfg.EscalationAfter)
		id := rec.ID
		c.timers[id] = time.AfterFunc(cfg.EscalationAfter, func() {
			c.escalate(id, origin)
		})
	}
	c.records[rec.ID] = rec
	c.log.Info("alert %s raised: [%s] %s", rec.ID, rec.Level, rec.Title)

	c.deliver(*rec)
	for _, fn := range c.subs {
		fn(*rec)
	}
	return rec
}

// deliver runs the sink side effects for the record's level. A sound
// failure on a level that requires one falls back to the default
// notification sound.
func (c *Channel) deliver(rec Record) {
	if err := c.sink.Show(rec); err != nil {
		c.log.Error("alert %s: visual delivery: %v", rec.ID, err)
	}
	if rec.Level == LevelLow {
		return
	}
	if err := c.sink.Sound(rec); err != nil {
		c.log.Warn("alert %s: sound delivery failed, falling back: %v", rec.ID, err)
		fallback := rec
		fallback.Level = LevelMedium
		if err := c.sink.Sound(fallback); err != nil {
			c.log.Error("alert %s: fallback sound failed: %v", rec.ID, err)
		}
	}
}

// escalate fires when a persistent alert's deadline passes without an
// acknowledgement. The stale record is replaced by a new one a level
// up, capped at critical. Title and message come from the original
// trigger however many rungs have passed.
func (c *Channel) escalate(id string, origin TriggerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.records[id]
	if !ok {
		return // acknowledged in the meantime
	}
	delete(c.records, id)
	delete(c.timers, id)

	next := origin
	next.Level = old.Level
	if next.Level < LevelCritical {
		next.Level++
	}
	next.Title = "Still waiting: " + origin.Title
	next.Message = fmt.Sprintf("%s No response for %s.", origin.Message, origin.EscalationAfter)

	c.log.Warn("alert %s escalated to %s", id, next.Level)
	c.raiseLocked(next, origin, id)
}

// Acknowledge resolves an active alert and silences its sound.
func (c *Channel) Acknowledge(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return ErrUnknownAlert
	}
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	delete(c.records, id)
	c.log.Info("alert %s acknowledged", id)

	if !c.anyRingingLocked() {
		c.sink.Silence()
	}
	return nil
}

// DismissAll clears every active alert and stops all sounds.
func (c *Channel) DismissAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	n := len(c.records)
	c.records = make(map[string]*Record)
	c.sink.Silence()
	if n > 0 {
		c.log.Info("dismissed %d alerts", n)
	}
}

// Active returns the currently active alerts, unordered.
func (c *Channel) Active() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, *rec)
	}
	return out
}

// anyRingingLocked reports whether a critical alert remains active.
// Caller holds c.mu.
func (c *Channel) anyRingingLocked() bool {
	for _, rec := range c.records {
		if rec.Level == LevelCritical {
			return true
		}
	}
	return false
}
