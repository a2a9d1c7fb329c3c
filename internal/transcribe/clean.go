package transcribe

import (
	"regexp"
	"strings"
)

// annotation matches environmental annotations some recognizers emit,
// like "(keyboard clicking)", "[BLANK_AUDIO]" or "[laughter]".
var annotation = regexp.MustCompile(`[\(\[][a-zA-Z_][a-zA-Z_\s]*[\)\]]`)

// hallucinations are full-string artifacts produced on silent audio.
// Discarded entirely when nothing else remains.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}

// Clean normalizes a raw transcription: collapses whitespace, strips
// bracketed annotations, and drops known silence artifacts. Returns ""
// when nothing usable remains, which the pipeline treats as "heard
// nothing".
func Clean(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = annotation.ReplaceAllString(s, "")

	// Collapse whitespace created by removals.
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if lower == h {
			return ""
		}
	}
	return s
}
