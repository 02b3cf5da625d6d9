// Package clean prepares raw input text for the transcription engine:
// lowercasing and transliterating the foreign letters the rule
// alphabet doesn't cover. The engine and orchestrator never
// transliterate on their own — every caller is expected to run input
// through Text first.
package clean

import "strings"

var transliterations = []struct {
	from string
	to   string
}{
	{"w", "v"},
	{"q", "ku"},
	{"x", "ks"},
	{"y", "j"},
}

// Text lowercases s and applies the w/q/x/y transliterations
// original_source/phonetic_transcriber.py's clean_text performs,
// in the same order, so a "qx" pair still expands left to right
// ("ku" then "ks", not the reverse).
func Text(s string) string {
	s = strings.ToLower(s)
	for _, t := range transliterations {
		s = strings.ReplaceAll(s, t.from, t.to)
	}
	return s
}
