package alert

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/aide/internal/logger"
)

// fakeSink records delivery calls.
type fakeSink struct {
	mu        sync.Mutex
	shown     []Record
	sounds    []Record
	silenced  int
	failLevel Level // Sound fails for this level (0 = never)
}

func (f *fakeSink) Show(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, rec)
	return nil
}

func (f *fakeSink) Sound(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLevel != 0 && rec.Level == f.failLevel {
		return errSoundBroken
	}
	f.sounds = append(f.sounds, rec)
	return nil
}

func (f *fakeSink) Silence() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silenced++
}

func (f *fakeSink) soundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sounds)
}

var errSoundBroken = &brokenErr{}

type brokenErr struct{}

func (*brokenErr) Error() string { return "speaker broken" }

func newTestChannel(t *testing.T) (*Channel, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	log := logger.New(logger.LevelOff, nil)
	return New(sink, log), sink
}

func TestTriggerDeliversByLevel(t *testing.T) {
	ch, sink := newTestChannel(t)

	if _, err := ch.Trigger(TriggerConfig{Level: LevelLow, Title: "fyi"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(sink.shown) != 1 {
		t.Fatalf("expected 1 visual delivery, got %d", len(sink.shown))
	}
	if sink.soundCount() != 0 {
		t.Fatalf("low alert should be silent, got %d sounds", sink.soundCount())
	}

	if _, err := ch.Trigger(TriggerConfig{Level: LevelMedium, Title: "heads up"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if sink.soundCount() != 1 {
		t.Fatalf("expected 1 sound for medium alert, got %d", sink.soundCount())
	}
}

func TestTriggerEmptyTitle(t *testing.T) {
	ch, _ := newTestChannel(t)
	if _, err := ch.Trigger(TriggerConfig{Level: LevelLow}); err != ErrEmptyTitle {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestEscalationAfterDeadline(t *testing.T) {
	ch, _ := newTestChannel(t)

	var mu sync.Mutex
	var raised []Record
	ch.Subscribe(func(rec Record) {
		mu.Lock()
		raised = append(raised, rec)
		mu.Unlock()
	})

	id, err := ch.Trigger(TriggerConfig{
		Level:                LevelLow,
		Title:                "battery low",
		Message:              "Charge soon.",
		PersistUntilResponse: true,
		EscalationAfter:      100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// Past the first deadline, before the escalated record's own one.
	time.Sleep(150 * time.Millisecond)

	active := ch.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active record after escalation, got %d", len(active))
	}
	got := active[0]
	if got.Level != LevelMedium {
		t.Fatalf("expected escalation to medium, got %s", got.Level)
	}
	if got.EscalatedFrom != id {
		t.Fatalf("expected EscalatedFrom=%s, got %s", id, got.EscalatedFrom)
	}

	mu.Lock()
	n := len(raised)
	mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 subscriber notifications (original + escalation), got %d", n)
	}
}

func TestAcknowledgeStopsEscalation(t *testing.T) {
	ch, _ := newTestChannel(t)

	id, err := ch.Trigger(TriggerConfig{
		Level:                LevelMedium,
		Title:                "door open",
		PersistUntilResponse: true,
		EscalationAfter:      60 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	if err := ch.Acknowledge(id); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if n := len(ch.Active()); n != 0 {
		t.Fatalf("expected no active records after ack, got %d", n)
	}
}

func TestAcknowledgeUnknownID(t *testing.T) {
	ch, _ := newTestChannel(t)
	if err := ch.Acknowledge("alert-999"); err != ErrUnknownAlert {
		t.Fatalf("expected ErrUnknownAlert, got %v", err)
	}
}

func TestEscalationTitleDoesNotCompound(t *testing.T) {
	ch, _ := newTestChannel(t)

	_, err := ch.Trigger(TriggerConfig{
		Level:                LevelLow,
		Title:                "inbox overflowing",
		Message:              "Seventeen unread urgent emails.",
		PersistUntilResponse: true,
		EscalationAfter:      30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// Ride the ladder through several rungs.
	time.Sleep(120 * time.Millisecond)

	active := ch.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active record, got %d", len(active))
	}
	got := active[0]
	if got.Level < LevelHigh {
		t.Fatalf("expected at least two escalations, level is %s", got.Level)
	}
	if got.Title != "Still waiting: inbox overflowing" {
		t.Fatalf("title must amend the original once, got %q", got.Title)
	}
	if n := strings.Count(got.Message, "No response for"); n != 1 {
		t.Fatalf("message must not compound, got %q", got.Message)
	}
}

func TestEscalationIsIndependentPerRecord(t *testing.T) {
	ch, _ := newTestChannel(t)

	a, _ := ch.Trigger(TriggerConfig{
		Level: LevelLow, Title: "a",
		PersistUntilResponse: true, EscalationAfter: 100 * time.Millisecond,
	})
	_, _ = ch.Trigger(TriggerConfig{
		Level: LevelLow, Title: "b",
		PersistUntilResponse: true, EscalationAfter: 100 * time.Millisecond,
	})

	if err := ch.Acknowledge(a); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	active := ch.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active record, got %d", len(active))
	}
	if active[0].Level != LevelMedium || active[0].Title != "Still waiting: b" {
		t.Fatalf("unexpected surviving record: %+v", active[0])
	}
}

func TestEscalationCapsAtCritical(t *testing.T) {
	ch, _ := newTestChannel(t)

	_, err := ch.Trigger(TriggerConfig{
		Level:                LevelCritical,
		Title:                "smoke detected",
		PersistUntilResponse: true,
		EscalationAfter:      40 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	active := ch.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active record, got %d", len(active))
	}
	if active[0].Level != LevelCritical {
		t.Fatalf("expected level to stay critical, got %s", active[0].Level)
	}
}

func TestDismissAll(t *testing.T) {
	ch, sink := newTestChannel(t)

	ch.Trigger(TriggerConfig{Level: LevelLow, Title: "one"})
	ch.Trigger(TriggerConfig{
		Level: LevelHigh, Title: "two",
		PersistUntilResponse: true, EscalationAfter: time.Minute,
	})

	ch.DismissAll()

	if n := len(ch.Active()); n != 0 {
		t.Fatalf("expected no active records, got %d", n)
	}
	sink.mu.Lock()
	silenced := sink.silenced
	sink.mu.Unlock()
	if silenced == 0 {
		t.Fatal("expected sink to be silenced")
	}
}

func TestSoundFallbackOnFailure(t *testing.T) {
	sink := &fakeSink{failLevel: LevelHigh}
	log := logger.New(logger.LevelOff, nil)
	ch := New(sink, log)

	if _, err := ch.Trigger(TriggerConfig{Level: LevelHigh, Title: "oops"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// The high-level sound fails; the channel retries with the default
	// notification sound.
	if sink.soundCount() != 1 {
		t.Fatalf("expected 1 fallback sound, got %d", sink.soundCount())
	}
	sink.mu.Lock()
	level := sink.sounds[0].Level
	sink.mu.Unlock()
	if level != LevelMedium {
		t.Fatalf("expected fallback at medium, got %s", level)
	}
}
