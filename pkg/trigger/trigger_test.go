package trigger

import "testing"

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(16)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	return m
}

func TestMatcher_Literal(t *testing.T) {
	m := newMatcher(t)

	tests := []struct {
		name       string
		opts       Opts
		lineBefore string
		want       bool
		wantStart  int
	}{
		{"at line start", NewOpts("fn"), "fn", true, 0},
		{"after space", NewOpts("fn"), "x fn", true, 2},
		{"after punctuation", NewOpts("fn"), "(fn", true, 1},
		{"inside a word", NewOpts("fn"), "xfn", false, 0},
		{"boundary disabled", Opts{Trigger: "fn", Priority: DefaultPriority}, "xfn", true, 1},
		{"not at cursor", NewOpts("fn"), "fn ", false, 0},
		{"line shorter than trigger", NewOpts("fn"), "f", false, 0},
		{"empty trigger", NewOpts(""), "x", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := m.Match(tt.opts, tt.lineBefore)
			if ok != tt.want {
				t.Fatalf("Match(%q, %q) = %v, want %v", tt.opts.Trigger, tt.lineBefore, ok, tt.want)
			}
			if ok && match.Start != tt.wantStart {
				t.Errorf("Expected start %d, got %d", tt.wantStart, match.Start)
			}
		})
	}
}

func TestMatcher_Pattern(t *testing.T) {
	m := newMatcher(t)

	opts := NewOpts(`h([1-6])`)
	opts.Pattern = true

	match, ok := m.Match(opts, "some h3")
	if !ok {
		t.Fatal("Expected the pattern to match")
	}
	if match.Text != "h3" {
		t.Errorf("Expected matched text %q, got %q", "h3", match.Text)
	}
	if match.Start != 5 {
		t.Errorf("Expected start 5, got %d", match.Start)
	}
	if len(match.Captures) != 1 || match.Captures[0] != "3" {
		t.Errorf("Expected capture [3], got %v", match.Captures)
	}

	// The match must end exactly at the cursor.
	if _, ok := m.Match(opts, "h3 "); ok {
		t.Error("Pattern should not match away from the cursor")
	}
	// Word boundary still applies to the pattern start.
	if _, ok := m.Match(opts, "xh3"); ok {
		t.Error("Pattern should respect the word boundary")
	}
}

func TestMatcher_PatternWithoutBoundary(t *testing.T) {
	m := newMatcher(t)

	opts := NewOpts(`-{2,}`)
	opts.Pattern = true
	opts.WordBoundary = false

	match, ok := m.Match(opts, "text----")
	if !ok {
		t.Fatal("Expected the rule pattern to match")
	}
	if match.Text != "----" {
		t.Errorf("Expected the longest suffix run, got %q", match.Text)
	}
}

func TestMatcher_InvalidPattern(t *testing.T) {
	m := newMatcher(t)

	opts := NewOpts(`[`)
	opts.Pattern = true
	if _, ok := m.Match(opts, "anything"); ok {
		t.Error("An invalid pattern should never match")
	}
}

func TestBoundaryBefore_Unicode(t *testing.T) {
	m := newMatcher(t)

	// A preceding letter outside ASCII still counts as a word rune.
	if _, ok := m.Match(NewOpts("fn"), "éfn"); ok {
		t.Error("Expected no match after a unicode letter")
	}
	if _, ok := m.Match(NewOpts("fn"), "→fn"); !ok {
		t.Error("Expected a match after a unicode symbol")
	}
}
