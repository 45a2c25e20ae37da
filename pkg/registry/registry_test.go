package registry

import (
	"strings"
	"testing"

	"github.com/snipkit/snipkit/pkg/snippet/node"
	"github.com/snipkit/snipkit/pkg/trigger"
)

func def(trig string, priority int) *Definition {
	opts := trigger.NewOpts(trig)
	opts.Priority = priority
	return &Definition{
		Opts:     opts,
		Template: node.MustCompile(node.Text(trig)),
	}
}

func TestRegistry_LookupPriorityOrder(t *testing.T) {
	reg := New()
	low := def("tr", 100)
	high := def("tr", 2000)
	reg.Add("go", low, high)

	found, _, ok := reg.Lookup("go", "tr")
	if !ok {
		t.Fatal("Expected a lookup hit")
	}
	if found != high {
		t.Error("Expected the higher-priority definition to win")
	}
}

func TestRegistry_SpecificBeatsGlobalAtEqualPriority(t *testing.T) {
	reg := New()
	global := def("tr", trigger.DefaultPriority)
	specific := def("tr", trigger.DefaultPriority)
	reg.Add(FiletypeAll, global)
	reg.Add("go", specific)

	found, _, ok := reg.Lookup("go", "tr")
	if !ok {
		t.Fatal("Expected a lookup hit")
	}
	if found != specific {
		t.Error("Expected the filetype-specific definition at equal priority")
	}

	// A filetype with no specific definitions still sees the global one.
	found, _, ok = reg.Lookup("python", "tr")
	if !ok || found != global {
		t.Error("Expected the global definition for other filetypes")
	}
}

func TestRegistry_ConditionGatesExpansion(t *testing.T) {
	reg := New()
	d := def("h1", trigger.DefaultPriority)
	d.Condition = func(lineBefore, matched string, captures []string) bool {
		return strings.TrimSpace(lineBefore) == matched
	}
	reg.Add("markdown", d)

	if _, _, ok := reg.Lookup("markdown", "h1"); !ok {
		t.Error("Expected a match at line start")
	}
	if _, _, ok := reg.Lookup("markdown", "text h1"); ok {
		t.Error("Expected the condition to reject mid-line expansion")
	}
}

func TestRegistry_SetPriority(t *testing.T) {
	reg := New()
	a := def("aa", 100)
	b := def("bb", 200)
	reg.Add("go", a, b)

	if !reg.SetPriority("go", "aa", 300) {
		t.Fatal("Expected SetPriority to find the definition")
	}
	if reg.SetPriority("go", "zz", 1) {
		t.Error("Expected SetPriority to miss an unknown trigger")
	}

	comps := reg.Completions("go", "")
	if len(comps) != 2 || comps[0].Trigger != "aa" {
		t.Errorf("Expected aa first after the priority bump, got %v", comps)
	}
}

func TestRegistry_AutoTriggered(t *testing.T) {
	reg := New()
	manual := def("-", 100)
	auto := def("-", 100)
	auto.Opts.Pattern = true
	auto.Opts.Trigger = `-{3}`
	auto.Opts.WordBoundary = false
	auto.Opts.AutoTrigger = true
	reg.Add("markdown", manual, auto)

	found, match, ok := reg.AutoTriggered("markdown", "---")
	if !ok {
		t.Fatal("Expected an auto-trigger hit")
	}
	if found != auto {
		t.Error("Expected only the auto-trigger definition to be considered")
	}
	if match.Text != "---" {
		t.Errorf("Expected matched text %q, got %q", "---", match.Text)
	}

	if _, _, ok := reg.AutoTriggered("markdown", "x-"); ok {
		t.Error("Expected no auto-trigger hit for the manual definition")
	}
}

func TestRegistry_CompletionsFiltering(t *testing.T) {
	reg := New()

	visible := def("vv", trigger.DefaultPriority)
	visible.Opts.Name = "visible"

	hidden := def("hh", trigger.DefaultPriority)
	hidden.Opts.Hidden = true

	gated := def("gg", trigger.DefaultPriority)
	gated.ShowCondition = func(lineBefore string) bool {
		return strings.HasPrefix(lineBefore, ">")
	}

	reg.Add("go", visible, hidden, gated)

	comps := reg.Completions("go", "plain line")
	if len(comps) != 1 || comps[0].Trigger != "vv" {
		t.Fatalf("Expected only the visible trigger, got %v", comps)
	}
	if comps[0].Name != "visible" {
		t.Errorf("Expected the name to carry through, got %q", comps[0].Name)
	}

	comps = reg.Completions("go", "> quoted")
	if len(comps) != 2 {
		t.Errorf("Expected the gated trigger when its condition holds, got %v", comps)
	}
}

func TestRegistry_Filetypes(t *testing.T) {
	reg := New()
	reg.Add("markdown", def("a", 1))
	reg.Add("go", def("b", 1))
	reg.Add(FiletypeAll, def("c", 1))

	fts := reg.Filetypes()
	want := []string{"all", "go", "markdown"}
	if len(fts) != len(want) {
		t.Fatalf("Expected %v, got %v", want, fts)
	}
	for i := range want {
		if fts[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, fts)
			break
		}
	}
}
