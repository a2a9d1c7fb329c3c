// Package domain holds the core data types and the abstract contracts
// (ports) the voice pipeline depends on. Implementations live in their
// own packages; everything here is plain data and interfaces so the
// pipeline stays fully testable with mocks.
package domain

import "time"

// VoiceCommand is a transcribed user command. Created once by the
// command-capture phase and consumed once by the dispatcher.
type VoiceCommand struct {
	Text       string
	Confidence float64 // 0..1
	Timestamp  time.Time
}

// CommandResult is the dispatcher's answer to a VoiceCommand. Response
// is always speakable text. Action names the recognized operation
// (e.g. "check_emails"); Data carries optional structured payload.
type CommandResult struct {
	Success  bool
	Response string
	Action   string
	Data     any
}

// Transcription is the raw output of a speech-to-text call.
type Transcription struct {
	Text       string
	Confidence float64
}

// AudioClip is a finished recording. The pipeline treats the bytes as
// opaque WAV data; only the transcriber interprets them.
type AudioClip struct {
	WAV      []byte
	Duration time.Duration
}

// Empty reports whether the clip holds no audio.
func (c *AudioClip) Empty() bool {
	return c == nil || len(c.WAV) == 0
}

// Account is a connected provider account (email, calendar or meeting).
type Account struct {
	ID       string
	Provider string // e.g. "gmail", "outlook", "zoom"
	Address  string
}

// EmailMessage is a single message in an account's inbox.
type EmailMessage struct {
	ID       string
	Account  string
	From     string
	Subject  string
	Received time.Time
	Read     bool
}

// CalendarEvent is a scheduled event on a connected calendar.
type CalendarEvent struct {
	ID       string
	Account  string
	Title    string
	Start    time.Time
	End      time.Time
	Location string
}

// Meeting is an upcoming video meeting on a connected account.
type Meeting struct {
	ID      string
	Account string
	Title   string
	Start   time.Time
	JoinURL string
}
