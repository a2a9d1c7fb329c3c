package voice

import (
	"strings"
	"sync"
	"unicode"
)

// Default wake phrases. Any of these anywhere in a transcription
// (case-insensitive) wakes the assistant.
var defaultWakePhrases = []string{
	"hey aide",
	"hey, aide",
	"hey aid",
	"okay aide",
	"aide",
}

// MatcherOption configures the Matcher.
type MatcherOption func(*Matcher)

// MatchWholeWords makes phrases match only at word boundaries, so
// "yo" no longer matches inside "yolo". The default is plain substring
// containment, which mirrors the shipped behavior and its known false
// positives.
func MatchWholeWords() MatcherOption {
	return func(m *Matcher) { m.wholeWords = true }
}

// Matcher tests transcriptions against a replaceable wake-phrase set.
// The set is lower-cased on write and read-only during a comparison
// pass; SetPhrases may be called at any time from any goroutine.
type Matcher struct {
	mu         sync.RWMutex
	phrases    []string
	wholeWords bool
}

// NewMatcher creates a matcher. A nil or empty phrase list installs
// the defaults.
func NewMatcher(phrases []string, opts ...MatcherOption) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	if len(phrases) == 0 {
		phrases = defaultWakePhrases
	}
	m.SetPhrases(phrases)
	return m
}

// SetPhrases replaces the wake-phrase set. Phrases are lower-cased and
// trimmed; empties are dropped; order is preserved.
func (m *Matcher) SetPhrases(phrases []string) {
	next := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			next = append(next, p)
		}
	}

	m.mu.Lock()
	m.phrases = next
	m.mu.Unlock()
}

// Phrases returns a copy of the current phrase set.
func (m *Matcher) Phrases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.phrases))
	copy(out, m.phrases)
	return out
}

// Match tests text against the phrase set and returns the first phrase
// that matches. The text is lower-cased and trimmed before comparison.
func (m *Matcher) Match(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.phrases {
		if m.wholeWords {
			if containsWord(lower, p) {
				return p, true
			}
			continue
		}
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// containsWord reports whether phrase occurs in text delimited by
// non-alphanumeric runes (or the text edges) on both sides.
func containsWord(text, phrase string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return false
		}
		idx += from

		before := true
		if idx > 0 {
			r := rune(text[idx-1])
			before = !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}
		after := true
		if end := idx + len(phrase); end < len(text) {
			r := rune(text[end])
			after = !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}
		if before && after {
			return true
		}
		from = idx + 1
	}
}
