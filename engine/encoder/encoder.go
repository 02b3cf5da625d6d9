// Package encoder translates the rule engine's internal-alphabet
// phoneme tokens into a chosen surface alphabet — IPA, an
// ASCII-compatible alphabetic form, or one of two alphanumeric forms.
package encoder

// Variant names the five interchangeable encoder presentations.
type Variant string

const (
	VariantIPA                   Variant = "ipa"
	VariantIPASimplified         Variant = "ipa-simplified"
	VariantAlphabetic            Variant = "alphabetic"
	VariantAlphaNumeric          Variant = "alphanumeric"
	VariantAlphaNumericSimplified Variant = "alphanumeric-simplified"
)

// Encoder holds one variant's prefix/suffix-stripping lookup tables
// and the handful of per-variant behavioral flags that select how
// convert treats it.
type Encoder struct {
	variant Variant

	// window is the modifier width k: 1 for most variants, 4 for the
	// alphanumeric (escaped) variant, whose modifier codes are
	// four-character hex-like tokens.
	window int

	// zeroStripping relaxes the "only strip when |token| > k" rule to
	// "> 0": only the alphabetic variant permits this, so it can
	// still attach before/after modifiers to single-character tokens.
	zeroStripping bool

	// emptyBaseOK controls what happens when the stripped token isn't
	// in the base map: the alphabetic variant degrades gracefully
	// (base becomes "", modifiers stay attached, ok=true); the
	// alphanumeric variants instead report the token as undefined.
	emptyBaseOK bool

	// forceLengthMarkFromIPA is the alphabetic/ipa-simplified special
	// case: in the fromIPA direction, a token longer than two
	// characters ending in the IPA length mark (U+02D0) always gets
	// suffix replacement "=", regardless of what the after table says.
	forceLengthMarkFromIPA bool

	toIPAIdentity    bool // toIPA just returns the token unchanged
	fromIPAIdentity  bool // fromIPA just returns the token unchanged
	toIPAUnsupported bool // toIPA always reports "undefined" (no table)

	toIPABefore, toIPAAfter, toIPAResult     map[string]string
	fromIPABefore, fromIPAAfter, fromIPAResult map[string]string

	// charsets feeds the phoneme tokenizer (component E); only the
	// IPA and IPA-simplified variants carry one.
	charsets [3]string
}

const ipaLengthMark = 'ː'

// ToIPA converts one engine-alphabet token into the variant's IPA
// representation. ok is false when the variant has no toIPA table
// (alphanumeric-simplified) or the stripped token isn't in the base
// map and the variant doesn't degrade gracefully.
func (e *Encoder) ToIPA(token string) (string, bool) {
	if e.toIPAUnsupported {
		return "", false
	}
	if e.toIPAIdentity {
		return token, true
	}
	return e.convert(token, e.toIPABefore, e.toIPAAfter, e.toIPAResult, false)
}

// FromIPA converts one IPA token into the variant's engine-alphabet
// (or user-facing) token.
func (e *Encoder) FromIPA(token string) (string, bool) {
	if e.fromIPAIdentity {
		return token, true
	}
	return e.convert(token, e.fromIPABefore, e.fromIPAAfter, e.fromIPAResult, e.forceLengthMarkFromIPA)
}

// convert implements the shared prefix/suffix-strip-then-lookup
// algorithm for either direction.
func (e *Encoder) convert(token string, before, after, result map[string]string, forceLengthMark bool) (string, bool) {
	runes := []rune(token)

	attempt := len(runes) > e.window
	if e.zeroStripping {
		attempt = len(runes) > 0
	}

	var beforeRepl, afterRepl string
	var haveBefore, haveAfter bool
	stripped := runes

	if attempt {
		last := string(runes[len(runes)-e.window:])
		if v, ok := after[last]; ok {
			afterRepl, haveAfter = v, true
		}
		if forceLengthMark && len(runes) > 2 && runes[len(runes)-1] == ipaLengthMark {
			afterRepl, haveAfter = "=", true
		}

		first := string(runes[:e.window])
		if v, ok := before[first]; ok {
			beforeRepl, haveBefore = v, true
		}

		if haveAfter {
			stripped = dropSuffix(stripped, e.window)
		}
		if haveBefore {
			stripped = dropPrefix(stripped, e.window)
		}
	}

	base, ok := result[string(stripped)]
	if !ok {
		if !e.emptyBaseOK {
			return "", false
		}
		base = ""
	}

	return beforeRepl + base + afterRepl, true
}

// dropSuffix/dropPrefix trim n runes off the respective end of s,
// clamping instead of panicking when the before and after windows
// overlap on a short token (the wide, 4-rune alphanumeric window can
// overlap on tokens as short as 5 runes).
func dropSuffix(s []rune, n int) []rune {
	if n > len(s) {
		n = len(s)
	}
	return s[:len(s)-n]
}

func dropPrefix(s []rune, n int) []rune {
	if n > len(s) {
		n = len(s)
	}
	return s[n:]
}

// Charsets returns the variant's tokenizer charsets and whether it
// carries one at all (only IPA and IPA-simplified do).
func (e *Encoder) Charsets() ([3]string, bool) {
	if e.charsets == ([3]string{}) {
		return e.charsets, false
	}
	return e.charsets, true
}
