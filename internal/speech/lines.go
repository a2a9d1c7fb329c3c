// lines.go centralises every spoken string. Edit this file to change
// the assistant's personality. Keep lines short; the TTS engine
// handles inflection.
package speech

import (
	"fmt"
	"math/rand"
)

// ── Lifecycle ────────────────────────────────────────────────────

// LineWakeEnabled is spoken when continuous listening turns on.
func LineWakeEnabled() string {
	return "Voice assistant activated. Say the wake word when you need me."
}

// LineFarewell is spoken when listening turns off.
func LineFarewell() string {
	return "Voice assistant deactivated."
}

// ── Listening acknowledgment ─────────────────────────────────────
// Spoken when the wake phrase is heard, so the user knows to start
// talking. Randomized to avoid repetition.

var listeningAcks = []string{
	"Yes? I'm listening.",
	"I'm listening.",
	"Go ahead.",
	"What can I do for you?",
	"Yes?",
}

// LineListening returns a random listening acknowledgment.
func LineListening() string {
	return listeningAcks[rand.Intn(len(listeningAcks))]
}

// ── Apologies ────────────────────────────────────────────────────
// Spoken when a capture or transcription produced nothing usable.

var apologies = []string{
	"Sorry, I didn't catch that.",
	"I didn't hear anything. Try again.",
	"Sorry, could you repeat that?",
}

// LineApology returns a random apology for a missed command.
func LineApology() string {
	return apologies[rand.Intn(len(apologies))]
}

// ── Alerts ───────────────────────────────────────────────────────

// LineAlert phrases an alert for speech.
func LineAlert(title, message string) string {
	if message == "" {
		return title
	}
	return fmt.Sprintf("%s. %s", title, message)
}

// Fillers returns every short repeated line so they can be prefetched
// into the audio cache at startup.
func Fillers() []string {
	out := make([]string, 0, len(listeningAcks)+len(apologies)+2)
	out = append(out, listeningAcks...)
	out = append(out, apologies...)
	out = append(out, LineWakeEnabled(), LineFarewell())
	return out
}
