package node

import "testing"

func TestClone_Independence(t *testing.T) {
	tpl, err := Compile(
		Text("a:"),
		Insert(1, "b"),
	)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	live := tpl.Instantiate()
	ins := ScopeLookup(live, 1)
	if ins == nil {
		t.Fatal("Clone lost the insert node")
	}

	ins.Lines = []string{"edited"}

	orig := ScopeLookup(tpl.Root, 1)
	if orig.Lines[0] != "b" {
		t.Errorf("Editing the clone changed the template: %v", orig.Lines)
	}
}

func TestClone_RewiresParents(t *testing.T) {
	tpl := MustCompile(
		Snippet(1,
			Insert(1),
		),
	)

	live := tpl.Instantiate()
	nested := ScopeLookup(live, 1)
	inner := ScopeLookup(nested, 1)

	if inner.Parent != nested {
		t.Error("Clone did not rewire the inner parent link")
	}
	if inner.Root() != live {
		t.Error("Root() from a cloned leaf should reach the cloned root")
	}
	if nested.Parent != live {
		t.Error("Clone did not rewire the nested snippet's parent")
	}
}

func TestChoice_WrapsBareAlternatives(t *testing.T) {
	c := Choice(1, Text("a"), Snippet(NoIndex, Text("b")))
	if len(c.Kids) != 2 {
		t.Fatalf("Expected 2 alternatives, got %d", len(c.Kids))
	}
	for i, alt := range c.Kids {
		if alt.Kind != KindSnippet {
			t.Errorf("Alternative %d should be wrapped in a snippet, got %s", i, alt.Kind)
		}
	}
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		KindText:     "text",
		KindInsert:   "insert",
		KindChoice:   "choice",
		KindFunction: "function",
		KindDynamic:  "dynamic",
		KindSnippet:  "snippet",
		KindRestore:  "restore",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Kind %d: expected %q, got %q", k, want, k.String())
		}
	}
}

func TestRestore_ContentAccessors(t *testing.T) {
	r := Restore(1, "k", Insert(1, "fallback"))
	content := r.Content()
	if content == nil || content.Kind != KindSnippet {
		t.Fatal("Restore content should be a snippet")
	}

	replacement := Snippet(NoIndex, Text("new"))
	r.SetContent(replacement)
	if r.Content() != replacement {
		t.Error("SetContent did not replace the content")
	}
	if replacement.Parent != r {
		t.Error("SetContent should set the parent link")
	}
}
