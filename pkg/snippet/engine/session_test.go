package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/snipkit/snipkit/pkg/snippet/node"
)

func TestExpand_RoundTrip(t *testing.T) {
	tpl := node.MustCompile(
		node.Text("a:"),
		node.Insert(1, "b"),
		node.Text("c"),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if got := session.Render(); got != "a:bc" {
		t.Errorf("Expected %q, got %q", "a:bc", got)
	}

	// Jump through without edits and exit; the render must not change.
	for session.State() == StateActive {
		if _, err := session.JumpForward(); err != nil {
			t.Fatalf("JumpForward failed: %v", err)
		}
	}
	if session.State() != StateExited {
		t.Errorf("Expected exited state, got %s", session.State())
	}
}

func TestSession_NestedJumpOrder(t *testing.T) {
	tpl := node.MustCompile(
		node.Insert(1),
		node.Snippet(2,
			node.Insert(1),
			node.Insert(2),
		),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// Root {1, 2, 0} with a nested {1, 2, 0} inside index 2: five
	// addressable stops, not a shared space.
	if got := len(session.Stops()); got != 5 {
		t.Fatalf("Expected 5 stops, got %d", got)
	}

	wantPaths := []string{"$.1", "$.2.1", "$.2.2", "$.2.0", "$.0"}
	for i, stop := range session.Stops() {
		got := node.PathString(node.PathOf(stop))
		if got != wantPaths[i] {
			t.Errorf("Stop %d: expected %s, got %s", i, wantPaths[i], got)
		}
	}
}

func TestSession_JumpBackwardStaysAtFirst(t *testing.T) {
	tpl := node.MustCompile(node.Insert(1))

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	first := session.Active()
	stop, err := session.JumpBackward()
	if err != nil {
		t.Fatalf("JumpBackward failed: %v", err)
	}
	if stop != first {
		t.Error("JumpBackward at the first stop should stay put")
	}
}

func TestSession_ClosedOperations(t *testing.T) {
	tpl := node.MustCompile(node.Insert(1))

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	session.Abort()
	if session.State() != StateExited {
		t.Fatal("Abort should exit the session")
	}

	if _, err := session.JumpForward(); !errors.Is(err, node.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from JumpForward, got %v", err)
	}
	if err := session.SetText("x"); !errors.Is(err, node.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from SetText, got %v", err)
	}
	if err := session.CycleChoice(1); !errors.Is(err, node.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from CycleChoice, got %v", err)
	}

	// Abort is idempotent.
	session.Abort()
	if eng.SessionCount() != 0 {
		t.Errorf("Expected no live sessions, got %d", eng.SessionCount())
	}
}

func TestSession_EditActiveStop(t *testing.T) {
	tpl := node.MustCompile(
		node.Text("hello "),
		node.Insert(1, "world"),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if err := session.SetText("there"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if got := session.Render(); got != "hello there" {
		t.Errorf("Expected %q, got %q", "hello there", got)
	}
}

func TestSession_Callbacks(t *testing.T) {
	tpl := node.MustCompile(
		node.Insert(1),
		node.Insert(2),
	)

	var entered, left []string
	callbacks := Callbacks{
		"$.1": {
			EventEnter: func(s *Session, n *node.Node) { entered = append(entered, "$.1") },
			EventLeave: func(s *Session, n *node.Node) { left = append(left, "$.1") },
		},
		"$.2": {
			EventEnter: func(s *Session, n *node.Node) { entered = append(entered, "$.2") },
		},
	}

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{Callbacks: callbacks})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(entered) != 1 || entered[0] != "$.1" {
		t.Fatalf("Expected enter of $.1 on expand, got %v", entered)
	}

	if _, err := session.JumpForward(); err != nil {
		t.Fatalf("JumpForward failed: %v", err)
	}
	if len(left) != 1 || left[0] != "$.1" {
		t.Errorf("Expected leave of $.1, got %v", left)
	}
	if len(entered) != 2 || entered[1] != "$.2" {
		t.Errorf("Expected enter of $.2, got %v", entered)
	}
}

func TestSession_LinePrefix(t *testing.T) {
	tpl := node.MustCompile(
		node.Text("if x {", "	body", "}"),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{LinePrefix: "  "})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	want := "if x {\n  	body\n  }"
	if got := session.Render(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestChoice_CycleWrapsAndPreservesOrder(t *testing.T) {
	tpl := node.MustCompile(
		node.Choice(1,
			node.Text("A"),
			node.Text("B"),
			node.Text("C"),
		),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if got := session.Render(); got != "A" {
		t.Fatalf("Expected initial alternative A, got %q", got)
	}

	for _, want := range []string{"B", "C", "A"} {
		if err := session.CycleChoice(1); err != nil {
			t.Fatalf("CycleChoice failed: %v", err)
		}
		if got := session.Render(); got != want {
			t.Errorf("Expected %q after cycle, got %q", want, got)
		}
	}

	if err := session.CycleChoice(-1); err != nil {
		t.Fatalf("CycleChoice failed: %v", err)
	}
	if got := session.Render(); got != "C" {
		t.Errorf("Expected backward wrap to C, got %q", got)
	}
}

func TestChoice_RestoreContentSurvivesCycle(t *testing.T) {
	tpl := node.MustCompile(
		node.Choice(1,
			node.Snippet(node.NoIndex,
				node.Text("<a>"),
				node.Restore(1, "shared.body", node.Insert(1, "default")),
			),
			node.Snippet(node.NoIndex,
				node.Text("<b>"),
				node.Restore(1, "shared.body", node.Insert(1, "default")),
			),
		),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// Move onto the insert inside the restore slot and edit it.
	if _, err := session.JumpForward(); err != nil {
		t.Fatalf("JumpForward failed: %v", err)
	}
	active := session.Active()
	if active == nil || active.Kind != node.KindInsert {
		t.Fatalf("Expected an insert stop, got %v", active)
	}
	if err := session.SetText("typed"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}

	if err := session.CycleChoice(1); err != nil {
		t.Fatalf("CycleChoice failed: %v", err)
	}
	if got := session.Render(); got != "<b>typed" {
		t.Errorf("Expected restore content to survive the cycle, got %q", got)
	}
}

func TestChoice_EditInAlternativeUpdatesStore(t *testing.T) {
	tpl := node.MustCompile(
		node.Choice(1,
			node.Snippet(node.NoIndex,
				node.Text("<a>"),
				node.Restore(1, "alt.body", node.Insert(1, "default")),
			),
			node.Snippet(node.NoIndex,
				node.Text("<b>"),
				node.Restore(1, "alt.body", node.Insert(1, "default")),
			),
		),
	)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// Switch to the second alternative and edit its restore slot. The
	// store must see the edit even though the key was first hydrated in
	// the first alternative.
	if err := session.CycleChoice(1); err != nil {
		t.Fatalf("CycleChoice failed: %v", err)
	}
	if _, err := session.JumpForward(); err != nil {
		t.Fatalf("JumpForward failed: %v", err)
	}
	active := session.Active()
	if active == nil || active.Kind != node.KindInsert {
		t.Fatalf("Expected an insert stop, got %v", active)
	}
	if err := session.SetText("edited"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if got := session.Render(); got != "<b>edited" {
		t.Fatalf("Expected %q, got %q", "<b>edited", got)
	}

	content := eng.Store().Get("alt.body")
	if content == nil {
		t.Fatal("Expected the key to be registered")
	}
	if got := strings.Join(RenderNode(content), "\n"); got != "edited" {
		t.Errorf("Expected the store to carry the edit, got %q", got)
	}
}

func TestChoice_RestoreCursorMatchesKey(t *testing.T) {
	choice := node.Choice(1,
		node.Snippet(node.NoIndex,
			node.Text("x:"),
			node.Restore(1, "cur.body", node.Insert(1, "v")),
		),
		node.Snippet(node.NoIndex,
			node.Text("yyy:"),
			node.Restore(1, "cur.body", node.Insert(1, "v")),
		),
	)
	choice.RestoreCursor = true
	tpl := node.MustCompile(choice)

	eng := New()
	session, err := eng.Expand(tpl, ExpandOpts{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	// Land inside the restore slot of the first alternative.
	if _, err := session.JumpForward(); err != nil {
		t.Fatalf("JumpForward failed: %v", err)
	}
	if err := session.CycleChoice(1); err != nil {
		t.Fatalf("CycleChoice failed: %v", err)
	}

	active := session.Active()
	if active == nil || active.Kind != node.KindInsert {
		t.Fatalf("Expected cursor on an insert, got %v", active)
	}
	// The cursor must sit inside the matching restore slot of the new
	// alternative, not back on the choice stop.
	inRestore := false
	for a := active; a != nil; a = a.Parent {
		if a.Kind == node.KindRestore && a.Key == "cur.body" {
			inRestore = true
			break
		}
	}
	if !inRestore {
		t.Error("Expected cursor inside the matching restore slot after cycling")
	}
}
