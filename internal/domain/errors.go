package domain

import "errors"

// Sentinel errors used across layers.
var (
	// ErrPermissionDenied — microphone access was refused. Fatal to a
	// listening start; recoverable by re-requesting.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrCaptureFailed — a recording session could not be opened or
	// finished. Transient; the wake loop retries next iteration.
	ErrCaptureFailed = errors.New("audio capture failed")
	// ErrNoSpeech — a command clip transcribed to no usable text.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrBusy — a capture was requested while another cycle owns the
	// pipeline.
	ErrBusy = errors.New("voice pipeline is busy")
	// ErrNotFound — a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)
