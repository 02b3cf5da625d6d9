// Package transcriber implements the rule-driven left-to-right sweep
// over an orthographic word.
package transcriber

import (
	"strings"

	rerr "github.com/conduit-lang/izruna/engine/errors"
	"github.com/conduit-lang/izruna/engine/matcher"
	"github.com/conduit-lang/izruna/engine/rules"
)

// RulesTranscribe scans text left to right and returns the
// `_`-delimited internal-alphabet string the rule engine produces.
//
// At each cursor the first applicable rule in the current character's
// bucket wins (no backtracking, no tie-breaking beyond authoring
// order). A character with no rules at all is a caller-contract
// violation (NoRuleForCharError); a character with rules none of which
// apply is a silent, deliberate skip — the scan simply advances by
// one rune and continues.
func RulesTranscribe(store *rules.Store, text string) (string, error) {
	runes := []rune(text)
	var out strings.Builder
	p := 0
	for p < len(runes) {
		c := runes[p]
		bucket := store.RulesFor(c)
		if len(bucket) == 0 {
			return "", &rerr.NoRuleForCharError{Char: c, Position: p}
		}

		var matched *rules.Rule
		for _, r := range bucket {
			if matcher.Applies(store.Metarules, r, runes, p) {
				matched = r
				break
			}
		}
		if matched == nil {
			p++
			continue
		}

		if out.Len() == 0 || (matched.Repl != "" && matched.Repl[0] == '#') {
			out.WriteString(matched.Repl)
		} else {
			out.WriteByte('_')
			out.WriteString(matched.Repl)
		}

		p += len([]rune(matched.Text))
	}
	return out.String(), nil
}
