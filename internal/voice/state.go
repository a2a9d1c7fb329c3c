package voice

// State is the orchestrator's single mutable state field. Owned
// exclusively by the Orchestrator; everything else only reads it.
type State int

const (
	// StateIdle — not listening. Terminal state for a session.
	StateIdle State = iota
	// StateWakeListening — passively scanning short clips for a wake phrase.
	StateWakeListening
	// StateWakeTriggered — wake phrase heard, about to capture a command.
	StateWakeTriggered
	// StateCommandListening — actively recording the user's command.
	StateCommandListening
	// StateDispatching — command handed to the dispatcher.
	StateDispatching
	// StateSpeaking — speaking the dispatcher's response.
	StateSpeaking
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWakeListening:
		return "wake_listening"
	case StateWakeTriggered:
		return "wake_triggered"
	case StateCommandListening:
		return "command_listening"
	case StateDispatching:
		return "dispatching"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
