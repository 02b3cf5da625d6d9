// Package orchestrator exposes word-, text-, and phrase-level
// transcription on top of the rule
// engine, tying together the exception lookup, the rule scan, and
// the chosen output encoder.
package orchestrator

import (
	"regexp"
	"strings"
	"sync/atomic"

	rerr "github.com/conduit-lang/izruna/engine/errors"
	"github.com/conduit-lang/izruna/engine/encoder"
	"github.com/conduit-lang/izruna/engine/rules"
	"github.com/conduit-lang/izruna/engine/transcriber"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	paragraphRe   = regexp.MustCompile(`\s*\n\s*`)
	phraseAlphaRe = regexp.MustCompile(`^[a-zēūīāšģķļžčņ\s]*$`)
)

// Orchestrator ties an immutable rule Store to the fixed alphabetic
// decoder (the internal alphabet the rule engine emits is itself the
// alphabetic surface form) and an optional output encoder. A nil
// Encoder means "no re-encoding": tokens are returned in the engine's
// own alphabet, exactly as rules_transcribe produced them.
//
// Grounded on original_source/phonetic_transcriber.py's
// PhoneticTranscriber, whose self.converter always chains a fixed
// AlphabeticCharacterConverter decoder in front of whatever target
// encoder the caller configured.
type Orchestrator struct {
	store   atomic.Pointer[rules.Store]
	decoder *encoder.Encoder
	target  *encoder.Encoder

	// Overrides, when set, is consulted before Store.Exceptions — the
	// exception-precedence chain
	Overrides ExceptionOverrides
}

// ExceptionOverrides is satisfied by internal/store.OverrideStore; kept
// as an interface here so the core orchestrator has no Redis import.
type ExceptionOverrides interface {
	Lookup(word string) (string, bool)
}

// New builds an Orchestrator. decoder must be the Alphabetic variant
// Encoder; target may be nil to skip re-encoding.
func New(store *rules.Store, decoder, target *encoder.Encoder) *Orchestrator {
	o := &Orchestrator{decoder: decoder, target: target}
	o.store.Store(store)
	return o
}

// Store returns the active rule store, letting callers (the hot
// reload watcher) observe what this orchestrator currently reads.
func (o *Orchestrator) Store() *rules.Store { return o.store.Load() }

// SetStore atomically replaces the active store, e.g. after a hot
// reload; concurrent transcriptions see either the old or the new
// store, never a partially written pointer.
func (o *Orchestrator) SetStore(s *rules.Store) { o.store.Store(s) }

func (o *Orchestrator) lookupException(word string) (string, bool) {
	if o.Overrides != nil {
		if v, ok := o.Overrides.Lookup(word); ok {
			return v, true
		}
	}
	v, ok := o.store.Load().Exceptions[word]
	return v, ok
}

// Transcribe transcribes a single word, returning its tokens joined
// by sep. Exception entries (override store, then the file-loaded
// exceptions map) take precedence over the rule engine.
func (o *Orchestrator) Transcribe(word, sep string) (string, error) {
	tokens, err := o.TranscribeTokens(word)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, sep), nil
}

// TranscribeTokens is Transcribe without the final join, for callers
// (array-mode HTTP/CLI output, transcribeText) that want the token
// list itself.
func (o *Orchestrator) TranscribeTokens(word string) ([]string, error) {
	internal, ok := o.lookupException(word)
	if !ok {
		var err error
		internal, err = transcriber.RulesTranscribe(o.store.Load(), word)
		if err != nil {
			return nil, err
		}
	}

	rawTokens := strings.Split(internal, "_")
	if o.target == nil {
		return rawTokens, nil
	}

	out := make([]string, 0, len(rawTokens))
	for _, tok := range rawTokens {
		ipa, ok := o.decoder.ToIPA(tok)
		if !ok {
			continue
		}
		conv, ok := o.target.FromIPA(ipa)
		if !ok {
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

// TranscribeText runs word-level transcription over free text:
// paragraphs are split on blank-ish newlines, whitespace within a
// paragraph collapses to single spaces, and each resulting chunk is
// partitioned into alphabet/non-alphabet runs before transcribing the
// alphabet runs.
func (o *Orchestrator) TranscribeText(text string, preserveUnknown bool, phonemeSep, unknownSep string) string {
	paragraphs := paragraphRe.Split(text, -1)
	out := make([]string, len(paragraphs))
	for i, paragraph := range paragraphs {
		collapsed := whitespaceRe.ReplaceAllString(paragraph, " ")
		chunks := strings.Split(collapsed, " ")
		rendered := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			r, ok := o.transcribeChunk(chunk, preserveUnknown, phonemeSep, unknownSep)
			if !ok {
				continue
			}
			rendered = append(rendered, r)
		}
		out[i] = strings.Join(rendered, " ")
	}
	return strings.Join(out, "\n")
}

// transcribeChunk renders one whitespace-delimited chunk. ok is false
// when every run in the chunk was unknown and preserveUnknown is
// false: the chunk then contributes nothing at all to the paragraph,
// rather than an empty placeholder, matching
// original_source/phonetic_transcriber.py's transcribeText (its
// preserve_unknown=False branch only ever appends tokens for runs
// that survive filtering, never a blank for a fully-discarded chunk).
func (o *Orchestrator) transcribeChunk(chunk string, preserveUnknown bool, phonemeSep, unknownSep string) (string, bool) {
	runs := partition(chunk, o.store.Load().RuleCharset())
	var parts []string
	for _, r := range runs {
		if r.unknown {
			if !preserveUnknown {
				continue
			}
			parts = append(parts, r.text)
			continue
		}
		transcribed, err := o.Transcribe(r.text, phonemeSep)
		if err != nil {
			if !preserveUnknown {
				continue
			}
			parts = append(parts, r.text)
			continue
		}
		parts = append(parts, transcribed)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, unknownSep), true
}

type run struct {
	text    string
	unknown bool
}

// partition splits s into maximal runs that are entirely within
// charset or entirely outside it, preserving order.
func partition(s, charset string) []run {
	inCharset := make(map[rune]struct{}, len(charset))
	for _, r := range charset {
		inCharset[r] = struct{}{}
	}

	var runs []run
	var cur strings.Builder
	var curUnknown bool
	started := false

	flush := func() {
		if cur.Len() > 0 {
			runs = append(runs, run{text: cur.String(), unknown: curUnknown})
			cur.Reset()
		}
	}

	for _, r := range s {
		_, known := inCharset[r]
		unknown := !known
		if started && unknown != curUnknown {
			flush()
		}
		cur.WriteRune(r)
		curUnknown = unknown
		started = true
	}
	flush()
	return runs
}

// TranscribePhrase rejects anything outside the fixed Latvian phrase
// alphabet, then transcribes word by word and joins with " . " to
// mark word boundaries.
func (o *Orchestrator) TranscribePhrase(phrase, sep string) (string, error) {
	if !phraseAlphaRe.MatchString(phrase) {
		return "", &rerr.UnrecognizedSymbolsError{Phrase: phrase}
	}
	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(phrase, " "))
	if collapsed == "" {
		return "", nil
	}
	words := strings.Split(collapsed, " ")
	out := make([]string, len(words))
	for i, w := range words {
		t, err := o.Transcribe(w, sep)
		if err != nil {
			return "", err
		}
		out[i] = t
	}
	return strings.Join(out, " . "), nil
}
