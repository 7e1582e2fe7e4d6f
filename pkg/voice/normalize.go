package voice

import "strings"

// Normalize trims the transcript, applies the transcription fixes in order
// and collapses runs of whitespace to a single space.
func Normalize(transcript string) string {
	return defaultLexicon.normalize(transcript)
}

func (l *lexicon) normalize(transcript string) string {
	s := strings.TrimSpace(transcript)
	if s == "" {
		return ""
	}
	for _, r := range l.rules {
		s = r.re.ReplaceAllLiteralString(s, r.replacement)
	}
	return strings.Join(strings.Fields(s), " ")
}
