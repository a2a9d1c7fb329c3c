package alert

import (
	"sync"
	"time"

	"github.com/hammamikhairi/aide/internal/logger"
	"github.com/hammamikhairi/aide/internal/speech"
)

// Sink delivers an alert's side effects. Show is the visual surface,
// Sound the audible one; Silence stops any sound still playing.
type Sink interface {
	Show(rec Record) error
	Sound(rec Record) error
	Silence()
}

// player is the playback slice of speech.Player used by the tone sink.
type player interface {
	Play(wav []byte) error
	Stop()
}

// ToneSink plays generated tones through the shared audio player.
// Medium gets a short chime, high a double chime, critical a ring that
// repeats until silenced. Visual delivery is forwarded to an optional
// callback, typically the terminal front end.
type ToneSink struct {
	out    player
	log    *logger.Logger
	onShow func(Record)

	mu      sync.Mutex
	ringing bool
	stop    chan struct{}
}

// NewToneSink creates a sink over the given player. onShow may be nil.
func NewToneSink(out player, log *logger.Logger, onShow func(Record)) *ToneSink {
	return &ToneSink{out: out, log: log, onShow: onShow}
}

// Show forwards the record to the visual callback.
func (s *ToneSink) Show(rec Record) error {
	if s.onShow != nil {
		s.onShow(rec)
	}
	return nil
}

// Sound plays the level's tone. A critical sound keeps ringing in the
// background until Silence is called; any previous ring is replaced.
func (s *ToneSink) Sound(rec Record) error {
	switch rec.Level {
	case LevelLow:
		return nil
	case LevelMedium:
		return s.out.Play(speech.Tone(880, 150*time.Millisecond))
	case LevelHigh:
		if err := s.out.Play(speech.Tone(988, 150*time.Millisecond)); err != nil {
			return err
		}
		return s.out.Play(speech.Tone(988, 150*time.Millisecond))
	default:
		s.startRing()
		return nil
	}
}

// Silence stops the ring loop and any tone still playing.
func (s *ToneSink) Silence() {
	s.mu.Lock()
	if s.ringing {
		close(s.stop)
		s.ringing = false
	}
	s.mu.Unlock()
	s.out.Stop()
}

// startRing launches the repeating critical ring. One ring loop runs
// at a time; a new critical alert restarts it.
func (s *ToneSink) startRing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ringing {
		close(s.stop)
	}
	s.ringing = true
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ring := speech.Tone(1047, 400*time.Millisecond)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := s.out.Play(ring); err != nil {
				s.log.Error("ring playback: %v", err)
				return
			}
			select {
			case <-stop:
				return
			case <-time.After(600 * time.Millisecond):
			}
		}
	}()
}

// LogSink is a headless sink for environments without audio. It writes
// every alert to the logger and is always silent.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Show(rec Record) error {
	s.log.Info("[%s] %s: %s", rec.Level, rec.Title, rec.Message)
	return nil
}

func (s *LogSink) Sound(rec Record) error { return nil }

func (s *LogSink) Silence() {}
