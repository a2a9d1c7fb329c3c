package domain

import (
	"context"
	"time"
)

// RecordingSession is one open microphone session. Exactly one session
// may be open system-wide at any instant; the orchestrator enforces
// this by being the only caller of CaptureDevice.Start.
type RecordingSession interface {
	// Stop finishes the recording and returns the captured clip.
	Stop() (*AudioClip, error)
	// Abort tears the session down discarding any audio. Safe to call
	// after Stop or more than once.
	Abort()
}

// CaptureDevice opens microphone recording sessions. Implementations
// are platform bindings (miniaudio in this repo, fakes in tests).
type CaptureDevice interface {
	// EnsurePermission requests microphone access. Returns
	// ErrPermissionDenied if the user refused. Idempotent.
	EnsurePermission(ctx context.Context) error
	// Start opens a recording session.
	Start(ctx context.Context) (RecordingSession, error)
}

// Transcriber converts a finished clip into text. An empty Text with a
// nil error means "heard nothing" and is not a failure.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *AudioClip) (Transcription, error)
}

// Synthesizer speaks text aloud. Speak blocks until playback finishes
// or is cancelled; Interrupt cancels whatever is playing or queued.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Interrupt()
}

// EmailService exposes read-only access to connected email accounts.
// Each account can fail independently.
type EmailService interface {
	Accounts(ctx context.Context) ([]Account, error)
	Unread(ctx context.Context, accountID string) ([]EmailMessage, error)
}

// CalendarService exposes read-only access to connected calendars.
type CalendarService interface {
	Accounts(ctx context.Context) ([]Account, error)
	EventsBetween(ctx context.Context, accountID string, start, end time.Time) ([]CalendarEvent, error)
}

// MeetingService exposes read-only access to connected meeting accounts.
type MeetingService interface {
	Accounts(ctx context.Context) ([]Account, error)
	Upcoming(ctx context.Context, accountID string, within time.Duration) ([]Meeting, error)
}
