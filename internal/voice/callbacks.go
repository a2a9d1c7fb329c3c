package voice

import "github.com/hammamikhairi/aide/internal/domain"

// Callbacks is the orchestrator's event protocol toward the UI. Any
// field may be nil. All callbacks fire from the orchestrator's own
// goroutine, in the documented order; handlers must not call back into
// lifecycle operations.
type Callbacks struct {
	OnWakeWordDetected func(phrase string)
	OnListeningStart   func()
	OnListeningStop    func()
	OnCommandReceived  func(cmd domain.VoiceCommand)
	OnSpeakingStart    func(text string)
	OnSpeakingEnd      func(text string)
	OnError            func(msg string)
}

func (c Callbacks) wakeWordDetected(phrase string) {
	if c.OnWakeWordDetected != nil {
		c.OnWakeWordDetected(phrase)
	}
}

func (c Callbacks) listeningStart() {
	if c.OnListeningStart != nil {
		c.OnListeningStart()
	}
}

func (c Callbacks) listeningStop() {
	if c.OnListeningStop != nil {
		c.OnListeningStop()
	}
}

func (c Callbacks) commandReceived(cmd domain.VoiceCommand) {
	if c.OnCommandReceived != nil {
		c.OnCommandReceived(cmd)
	}
}

func (c Callbacks) speakingStart(text string) {
	if c.OnSpeakingStart != nil {
		c.OnSpeakingStart(text)
	}
}

func (c Callbacks) speakingEnd(text string) {
	if c.OnSpeakingEnd != nil {
		c.OnSpeakingEnd(text)
	}
}

func (c Callbacks) error(msg string) {
	if c.OnError != nil {
		c.OnError(msg)
	}
}
