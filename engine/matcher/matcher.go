// Package matcher implements the single-rule applicability test: does
// a rule match at a given cursor position, honoring its left/right
// context atoms?
package matcher

import "github.com/conduit-lang/izruna/engine/rules"

// Applies reports whether rule matches text at rune position p: the
// anchor (rule.Text) must start exactly at p, and both the right-
// context walk (starting just past the anchor) and the left-context
// walk (starting just before p) must succeed.
//
// text is pre-split into runes so every position below is a rune
// index, not a byte offset — required for the multi-byte Latvian
// letters (ēūīāšģķļžčņ) the rule texts are written in.
func Applies(metarules rules.Metarules, rule *rules.Rule, text []rune, p int) bool {
	if p < 0 || p >= len(text) {
		return false
	}
	anchor := []rune(rule.Text)
	if !hasPrefixAt(text, p, anchor) {
		return false
	}

	return rightWalk(metarules, rule.Right, text, p+len(anchor)) &&
		leftWalk(metarules, rule.Left, text, p-1)
}

// rightWalk advances q rightward from the character just past the
// matched anchor, consuming each right-context atom in order.
func rightWalk(metarules rules.Metarules, atoms []rules.Atom, text []rune, q int) bool {
	for _, atom := range atoms {
		if atom.Kind == rules.Literal {
			lit := []rune(atom.Text)
			if !hasPrefixAt(text, q, lit) {
				return false
			}
			q += len(lit)
			continue
		}

		switch atom.Text {
		case rules.AnchorOneAny:
			if q >= len(text) {
				return false
			}
			q++
		case rules.AnchorEdge:
			if q != len(text) {
				return false
			}
			return true
		case rules.AnchorAtLeastOne:
			if q >= len(text) {
				return false
			}
			return true
		case rules.AnchorUnbounded:
			return true
		default:
			alts, ok := metarules[atom.Text]
			if !ok {
				return false
			}
			matched := false
			for _, alt := range alts {
				lit := []rune(alt)
				if hasPrefixAt(text, q, lit) {
					q += len(lit)
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// leftWalk advances q leftward from the character just before the
// cursor, consuming each left-context atom in order. Atoms arrive
// already stored outward-from-cursor (loader.go reverses source
// order), so atoms[0] is checked against the character abutting the
// cursor on its left.
func leftWalk(metarules rules.Metarules, atoms []rules.Atom, text []rune, q int) bool {
	for _, atom := range atoms {
		if atom.Kind == rules.Literal {
			lit := []rune(atom.Text)
			if !hasSuffixEndingAt(text, q, lit) {
				return false
			}
			q -= len(lit)
			continue
		}

		switch atom.Text {
		case rules.AnchorOneAny:
			if q < 0 {
				return false
			}
			q--
		case rules.AnchorEdge:
			if q > -1 {
				return false
			}
			return true
		case rules.AnchorAtLeastOne:
			if q < 0 {
				return false
			}
			return true
		case rules.AnchorUnbounded:
			return true
		default:
			alts, ok := metarules[atom.Text]
			if !ok {
				return false
			}
			matched := false
			for _, alt := range alts {
				lit := []rune(alt)
				if hasSuffixEndingAt(text, q, lit) {
					q -= len(lit)
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// hasPrefixAt reports whether text[q:q+len(lit)] == lit, treating an
// out-of-range q or an overrun as a non-match rather than a panic.
func hasPrefixAt(text []rune, q int, lit []rune) bool {
	if q < 0 || q+len(lit) > len(text) {
		return false
	}
	for i, r := range lit {
		if text[q+i] != r {
			return false
		}
	}
	return true
}

// hasSuffixEndingAt reports whether text[:q+1] ends with lit, i.e.
// text[q+1-len(lit):q+1] == lit.
func hasSuffixEndingAt(text []rune, q int, lit []rune) bool {
	if q+1 < len(lit) {
		return false
	}
	start := q + 1 - len(lit)
	for i, r := range lit {
		if text[start+i] != r {
			return false
		}
	}
	return true
}
