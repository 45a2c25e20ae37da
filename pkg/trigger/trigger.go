// Package trigger implements expansion-site trigger matching: plain and
// pattern triggers against the line before the cursor, word-boundary checks,
// and the cheap listing predicate used by completion frontends.
package trigger

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPriority is assigned to templates that do not override it.
const DefaultPriority = 1000

// Opts is the per-template trigger configuration.
type Opts struct {
	// Trigger is the literal trigger text, or a regular expression when
	// Pattern is set.
	Trigger string

	// Name is a short human-readable label shown in listings.
	Name string

	// Description documents the template for completion frontends.
	Description string

	// Pattern interprets Trigger as a regular expression matched against
	// the end of the line before the cursor.
	Pattern bool

	// WordBoundary requires the trigger to start at a word boundary.
	WordBoundary bool

	// Priority orders templates when several match; higher wins.
	Priority int

	// Hidden excludes the template from completion listings.
	Hidden bool

	// AutoTrigger expands the template as soon as it matches, without an
	// explicit expand request from the host.
	AutoTrigger bool
}

// NewOpts returns the default configuration for a literal trigger:
// word-boundary required, default priority, visible, manual expansion.
func NewOpts(trig string) Opts {
	return Opts{
		Trigger:      trig,
		WordBoundary: true,
		Priority:     DefaultPriority,
	}
}

// Condition is the expansion-time predicate. It sees the full match context:
// the line before the cursor, the matched trigger text and any pattern
// captures.
type Condition func(lineBefore, matched string, captures []string) bool

// ShowCondition is the cheap listing predicate. It runs on every keystroke
// over many templates, so it only sees the line before the cursor.
type ShowCondition func(lineBefore string) bool

// Match describes a successful trigger match at the end of a line.
type Match struct {
	// Text is the matched trigger substring.
	Text string

	// Start is the byte offset of the match within the line.
	Start int

	// Captures holds pattern capture groups, empty for literal triggers.
	Captures []string
}

// Matcher evaluates trigger configurations against line-before-cursor text.
// Compiled patterns are kept in an LRU cache; the matcher is safe for
// concurrent use.
type Matcher struct {
	patterns *lru.Cache[string, *regexp.Regexp]
}

// NewMatcher creates a matcher caching up to size compiled patterns.
func NewMatcher(size int) (*Matcher, error) {
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, err
	}
	return &Matcher{patterns: cache}, nil
}

// Match tests opts against the line before the cursor. The trigger must end
// exactly at the cursor.
func (m *Matcher) Match(opts Opts, lineBefore string) (Match, bool) {
	if opts.Pattern {
		return m.matchPattern(opts, lineBefore)
	}
	return matchLiteral(opts, lineBefore)
}

func matchLiteral(opts Opts, lineBefore string) (Match, bool) {
	trig := opts.Trigger
	if trig == "" || len(lineBefore) < len(trig) {
		return Match{}, false
	}
	start := len(lineBefore) - len(trig)
	if lineBefore[start:] != trig {
		return Match{}, false
	}
	if opts.WordBoundary && !boundaryBefore(lineBefore, start) {
		return Match{}, false
	}
	return Match{Text: trig, Start: start}, true
}

func (m *Matcher) matchPattern(opts Opts, lineBefore string) (Match, bool) {
	re, err := m.compile(opts.Trigger)
	if err != nil {
		return Match{}, false
	}
	loc := re.FindStringSubmatchIndex(lineBefore)
	if loc == nil || loc[1] != len(lineBefore) {
		return Match{}, false
	}
	start := loc[0]
	if opts.WordBoundary && !boundaryBefore(lineBefore, start) {
		return Match{}, false
	}
	sub := re.FindStringSubmatch(lineBefore[start:])
	match := Match{Text: lineBefore[start:], Start: start}
	if len(sub) > 1 {
		match.Captures = sub[1:]
	}
	return match, true
}

// compile returns the cached compiled form of pattern, anchoring it to the
// end of the line.
func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	anchored := "(?:" + pattern + ")$"
	if re, ok := m.patterns.Get(anchored); ok {
		return re, nil
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}
	m.patterns.Add(anchored, re)
	return re, nil
}

// boundaryBefore reports whether position start sits at a word boundary:
// line start, or preceded by a non-word rune.
func boundaryBefore(line string, start int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(line[:start])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
