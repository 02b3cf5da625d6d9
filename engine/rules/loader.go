package rules

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	rerr "github.com/conduit-lang/izruna/engine/errors"
)

var (
	openTagRe    = regexp.MustCompile(`^<(\w+)>$`)
	closeTagRe   = regexp.MustCompile(`^</(\w+)>$`)
	leafElementRe = regexp.MustCompile(`^<(\w+)>([^<>]*)</(\w+)>$`)
)

// element is a node of the parsed tag-stack tree. A leaf element has
// Content set and no Children; a container element has Children set
// and an empty Content.
type element struct {
	tag      string
	content  string
	children []*element
	isLeaf   bool
	line     int
}

// parseTagTree reads the authored line-oriented pseudo-XML format
// (one non-empty line is `<tag>`, `</tag>`, or `<tag>content</tag>`)
// into a tree rooted at a synthetic "root" element, tracking open
// tags on a stack the way original_source/convert_rules.py does.
func parseTagTree(r io.Reader, file string) (*element, error) {
	root := &element{tag: "root"}
	stack := []*element{root}
	line := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		top := stack[len(stack)-1]

		if m := openTagRe.FindStringSubmatch(text); m != nil {
			el := &element{tag: m[1], line: line}
			top.children = append(top.children, el)
			stack = append(stack, el)
			continue
		}

		if m := closeTagRe.FindStringSubmatch(text); m != nil {
			if len(stack) <= 1 || stack[len(stack)-1].tag != m[1] {
				return nil, &rerr.LoadError{
					Code:    rerr.ErrUnmatchedTag,
					File:    file,
					Line:    line,
					Element: m[1],
					Message: "closing tag does not match the currently open element",
				}
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if m := leafElementRe.FindStringSubmatch(text); m != nil {
			if m[1] != m[3] {
				return nil, &rerr.LoadError{
					Code:    rerr.ErrMalformedElement,
					File:    file,
					Line:    line,
					Element: m[1],
					Message: "opening and closing tag names do not match",
				}
			}
			top.children = append(top.children, &element{tag: m[1], content: m[2], isLeaf: true, line: line})
			continue
		}

		return nil, &rerr.LoadError{
			Code:    rerr.ErrStrayContent,
			File:    file,
			Line:    line,
			Message: "line is neither an open tag, a close tag, nor a single-line element",
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &rerr.LoadError{Code: rerr.ErrStrayContent, File: file, Message: err.Error()}
	}
	if len(stack) != 1 {
		return nil, &rerr.LoadError{
			Code:    rerr.ErrUnmatchedTag,
			File:    file,
			Line:    line,
			Element: stack[len(stack)-1].tag,
			Message: "file ended with an element still open",
		}
	}
	return root, nil
}

// LoadRules parses an authored rule file into ordered Rule records.
//
// Within each <d> block, atoms before <t> populate Left in source
// order; atoms after <t> populate Right in source order. Left is then
// reversed so that Left[0] abuts the cursor, per the outward-from-cursor
// convention.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &rerr.LoadError{Code: rerr.ErrStrayContent, File: path, Message: err.Error()}
	}
	defer f.Close()

	root, err := parseTagTree(f, path)
	if err != nil {
		return nil, err
	}

	var out []Rule
	for _, ruleEl := range root.children {
		if ruleEl.tag != "r" {
			return nil, &rerr.LoadError{Code: rerr.ErrMalformedElement, File: path, Line: ruleEl.line, Element: ruleEl.tag, Message: "expected <r> at the rule file root"}
		}
		rule, err := buildRule(ruleEl, path)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func buildRule(ruleEl *element, path string) (Rule, error) {
	var repl *string
	var text string
	var haveText bool
	var left, right []Atom

	for _, child := range ruleEl.children {
		switch child.tag {
		case "p":
			v := child.content
			repl = &v
		case "d":
			var sawAnchor bool
			for _, atomEl := range child.children {
				switch atomEl.tag {
				case "t":
					text = atomEl.content
					haveText = true
					sawAnchor = true
				case "u":
					atom := Atom{Kind: Literal, Text: atomEl.content}
					if !sawAnchor {
						left = append(left, atom)
					} else {
						right = append(right, atom)
					}
				case "m":
					atom := Atom{Kind: Meta, Text: atomEl.content}
					if !sawAnchor {
						left = append(left, atom)
					} else {
						right = append(right, atom)
					}
				default:
					return Rule{}, &rerr.LoadError{Code: rerr.ErrMalformedElement, File: path, Line: atomEl.line, Element: atomEl.tag, Message: "unexpected element inside <d>"}
				}
			}
		default:
			return Rule{}, &rerr.LoadError{Code: rerr.ErrMalformedElement, File: path, Line: child.line, Element: child.tag, Message: "unexpected element inside <r>"}
		}
	}

	if repl == nil {
		return Rule{}, &rerr.LoadError{Code: rerr.ErrMissingReplacement, File: path, Line: ruleEl.line, Element: "r", Message: "rule is missing its <p> replacement"}
	}
	if !haveText || text == "" {
		return Rule{}, &rerr.LoadError{Code: rerr.ErrMissingAnchor, File: path, Line: ruleEl.line, Element: "r", Message: "rule is missing a non-empty <t> anchor"}
	}

	// reverse left so Left[0] abuts the cursor
	reversed := make([]Atom, len(left))
	for i, a := range left {
		reversed[len(left)-1-i] = a
	}

	return Rule{Text: text, Repl: *repl, Left: reversed, Right: right}, nil
}

// LoadMetarules parses an authored metarule file into a name →
// ordered-alternatives map.
func LoadMetarules(path string) (Metarules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &rerr.LoadError{Code: rerr.ErrStrayContent, File: path, Message: err.Error()}
	}
	defer f.Close()

	root, err := parseTagTree(f, path)
	if err != nil {
		return nil, err
	}

	out := Metarules{}
	for _, mEl := range root.children {
		if mEl.tag != "m" {
			return nil, &rerr.LoadError{Code: rerr.ErrMalformedElement, File: path, Line: mEl.line, Element: mEl.tag, Message: "expected <m> at the metarule file root"}
		}
		var name string
		var haveName bool
		var alts []string
		for _, child := range mEl.children {
			switch child.tag {
			case "d":
				name = child.content
				haveName = true
			case "t":
				alts = append(alts, child.content)
			default:
				return nil, &rerr.LoadError{Code: rerr.ErrMalformedElement, File: path, Line: child.line, Element: child.tag, Message: "unexpected element inside <m>"}
			}
		}
		if !haveName || name == "" {
			return nil, &rerr.LoadError{Code: rerr.ErrMissingClassName, File: path, Line: mEl.line, Element: "m", Message: "metarule is missing its <d> class name"}
		}
		if len(alts) == 0 {
			return nil, &rerr.LoadError{Code: rerr.ErrEmptyMetarule, File: path, Line: mEl.line, Element: "m", Message: "metarule has no <t> alternatives"}
		}
		out[name] = alts
	}
	return out, nil
}

// LoadExceptions parses the whitespace-separated two-column exception
// dictionary: orthographic word, engine-alphabet transcription.
func LoadExceptions(path string) (Exceptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &rerr.LoadError{Code: rerr.ErrStrayContent, File: path, Message: err.Error()}
	}
	defer f.Close()

	out := Exceptions{}
	ws := regexp.MustCompile(`\s+`)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := ws.Split(text, 2)
		if len(fields) != 2 {
			return nil, &rerr.LoadError{Code: rerr.ErrMalformedException, File: path, Line: line, Message: "expected two whitespace-separated fields"}
		}
		out[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, &rerr.LoadError{Code: rerr.ErrMalformedException, File: path, Message: err.Error()}
	}
	return out, nil
}

// NewStore builds an immutable Store from already-parsed rules,
// metarules, and exceptions: indexing rules by first character and
// precomputing the rule charset.
func NewStore(ruleList []Rule, metarules Metarules, exceptions Exceptions) *Store {
	s := &Store{
		Rules:      ruleList,
		Metarules:  metarules,
		Exceptions: exceptions,
		index:      make(map[rune][]*Rule),
	}

	charset := make(map[rune]struct{})
	for i := range s.Rules {
		r := &s.Rules[i]
		first := []rune(r.Text)[0]
		s.index[first] = append(s.index[first], r)

		addRunes(charset, r.Text)
		for _, a := range r.Left {
			if a.Kind == Literal {
				addRunes(charset, a.Text)
			}
		}
		for _, a := range r.Right {
			if a.Kind == Literal {
				addRunes(charset, a.Text)
			}
		}
	}
	for _, alts := range metarules {
		for _, alt := range alts {
			addRunes(charset, alt)
		}
	}

	runes := make([]rune, 0, len(charset))
	for r := range charset {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	var b strings.Builder
	for _, r := range runes {
		b.WriteRune(r)
	}
	s.ruleCharset = b.String()

	return s
}

func addRunes(set map[rune]struct{}, s string) {
	for _, r := range s {
		switch r {
		case '?', '#', '^', '*':
			continue
		}
		set[r] = struct{}{}
	}
}

// LoadStore loads and builds a Store from the three authored files in
// a single call, the form most callers (CLI, HTTP server, tests) use.
func LoadStore(rulesPath, metarulesPath, exceptionsPath string) (*Store, error) {
	ruleList, err := LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	metarules, err := LoadMetarules(metarulesPath)
	if err != nil {
		return nil, err
	}
	exceptions, err := LoadExceptions(exceptionsPath)
	if err != nil {
		return nil, err
	}
	return NewStore(ruleList, metarules, exceptions), nil
}
