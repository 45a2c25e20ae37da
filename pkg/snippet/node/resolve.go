package node

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Template is a compiled, reusable snippet definition. The tree under Root is
// static; Instantiate produces the mutable per-expansion copy.
type Template struct {
	// Root is the anonymous Snippet holding the template body.
	Root *Node
}

// Compile wraps the given nodes into a root scope, validates the tree and
// returns a reusable template.
//
// Validation covers jump-index uniqueness and contiguity per scope, Choice
// arity, reference resolution for Function and Dynamic dependencies and
// dependency acyclicity. A missing terminal stop is synthesized as an empty
// Insert at index 0, appended last in its scope.
func Compile(kids ...*Node) (*Template, error) {
	root := Snippet(NoIndex, kids...)
	if err := Normalize(root); err != nil {
		return nil, err
	}
	if err := checkDependencies(root); err != nil {
		return nil, err
	}
	return &Template{Root: root}, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// statically known snippet definitions.
func MustCompile(kids ...*Node) *Template {
	t, err := Compile(kids...)
	if err != nil {
		panic(err)
	}
	return t
}

// Instantiate deep-copies the template tree for a live session.
func (t *Template) Instantiate() *Node {
	return t.Root.Clone()
}

// Normalize sets parent links, synthesizes missing terminal stops and
// validates scope indices and Choice arity for the tree rooted at snip.
//
// The engine also calls it for subtrees produced by Dynamic generators, which
// are resolved lazily at generation time rather than at template definition.
func Normalize(snip *Node) error {
	if snip == nil {
		return fmt.Errorf("%w: nil subtree", ErrMalformedTemplate)
	}
	return normalizeScope(snip)
}

// normalizeScope handles one Snippet scope and recurses into nested ones.
func normalizeScope(snip *Node) error {
	for _, kid := range snip.Kids {
		kid.Parent = snip
	}

	seen := make(map[int]*Node)
	var indices []int
	for _, kid := range snip.Kids {
		if !kid.IsJumpable() {
			continue
		}
		if kid.Index < 0 {
			return fmt.Errorf("%w: negative jump-index %d in scope %s",
				ErrMalformedTemplate, kid.Index, PathString(PathOf(snip)))
		}
		if _, dup := seen[kid.Index]; dup {
			return fmt.Errorf("%w: duplicate jump-index %d in scope %s",
				ErrMalformedTemplate, kid.Index, PathString(PathOf(snip)))
		}
		seen[kid.Index] = kid
		indices = append(indices, kid.Index)
	}

	// Indices must form 1..n with an optional 0; the 0 stop is synthesized
	// when absent.
	sort.Ints(indices)
	want := 1
	for _, idx := range indices {
		if idx == 0 {
			continue
		}
		if idx != want {
			return fmt.Errorf("%w: jump-index %d out of range in scope %s (expected %d)",
				ErrMalformedTemplate, idx, PathString(PathOf(snip)), want)
		}
		want++
	}
	if _, ok := seen[0]; !ok {
		exit := Insert(0)
		exit.synthesized = true
		exit.Parent = snip
		snip.Kids = append(snip.Kids, exit)
	}

	for _, kid := range snip.Kids {
		switch kid.Kind {
		case KindSnippet:
			if err := normalizeScope(kid); err != nil {
				return err
			}
		case KindChoice:
			if len(kid.Kids) == 0 {
				return fmt.Errorf("%w: choice at %s has no alternatives",
					ErrMalformedTemplate, PathString(PathOf(kid)))
			}
			for _, alt := range kid.Kids {
				alt.Parent = kid
				if err := normalizeScope(alt); err != nil {
					return err
				}
			}
		case KindRestore:
			content := kid.Content()
			if content == nil {
				return fmt.Errorf("%w: restore %q has no fallback content",
					ErrMalformedTemplate, kid.Key)
			}
			content.Parent = kid
			if err := normalizeScope(content); err != nil {
				return err
			}
		case KindDynamic:
			// Generated subtrees are normalized lazily when produced.
		}
	}
	return nil
}

// ScopeOrder returns the jump order of a Snippet scope: indices ascending
// 1..n followed by the terminal 0.
func ScopeOrder(snip *Node) []*Node {
	var members []*Node
	var exit *Node
	for _, kid := range snip.Kids {
		if !kid.IsJumpable() {
			continue
		}
		if kid.Index == 0 {
			exit = kid
			continue
		}
		members = append(members, kid)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Index < members[j].Index })
	if exit != nil {
		members = append(members, exit)
	}
	return members
}

// ScopeLookup returns the jumpable member of a scope with the given local
// index, or nil.
func ScopeLookup(snip *Node, index int) *Node {
	for _, kid := range snip.Kids {
		if kid.IsJumpable() && kid.Index == index {
			return kid
		}
	}
	return nil
}

// ResolveRef resolves a reference declared on from. Sibling references see
// only jumpable members of from's enclosing scope; absolute references are
// walked from the tree root, one jump-index per nesting level.
func ResolveRef(from *Node, ref Ref) (*Node, error) {
	if len(ref.Path) > 0 {
		return NodeAt(from.Root(), ref.Path...)
	}
	scope := from.Scope()
	if scope == nil {
		scope = from.Root()
	}
	if target := ScopeLookup(scope, ref.Index); target != nil {
		return target, nil
	}
	return nil, fmt.Errorf("%w: index %d in scope %s",
		ErrUnresolvedReference, ref.Index, PathString(PathOf(scope)))
}

// NodeAt walks an absolute jump-index path from root. Container nodes are
// entered through their live subtree: a Choice through its active
// alternative, a Dynamic through its generated content, a Restore through its
// stored content.
func NodeAt(root *Node, path ...int) (*Node, error) {
	cur := root
	for depth, idx := range path {
		scope := enterable(cur)
		if scope == nil {
			return nil, fmt.Errorf("%w: path %s stops at non-container %s node",
				ErrUnresolvedReference, PathString(path), cur.Kind)
		}
		next := ScopeLookup(scope, idx)
		if next == nil {
			return nil, fmt.Errorf("%w: path %s has no index %d at depth %d",
				ErrUnresolvedReference, PathString(path), idx, depth)
		}
		cur = next
	}
	return cur, nil
}

// enterable returns the Snippet scope inside a container node, or nil for
// leaf kinds.
func enterable(n *Node) *Node {
	switch n.Kind {
	case KindSnippet:
		return n
	case KindChoice:
		return n.ActiveAlt()
	case KindDynamic:
		return n.Generated()
	case KindRestore:
		return n.Content()
	default:
		return nil
	}
}

// PathOf returns the absolute jump-index path of a node, skipping anonymous
// ancestors. The root scope yields an empty path.
func PathOf(n *Node) []int {
	var rev []int
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.IsJumpable() {
			rev = append(rev, cur.Index)
		}
	}
	path := make([]int, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// PathString formats a jump-index path as a dotted string. The empty path is
// the template root.
func PathString(path []int) string {
	if len(path) == 0 {
		return "$"
	}
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(idx)
	}
	return "$." + strings.Join(parts, ".")
}

// checkDependencies resolves every declared dependency reachable at template
// definition time and rejects cycles. References inside Dynamic generator
// output cannot be checked here; they are resolved when the subtree is
// produced.
func checkDependencies(root *Node) error {
	// edges[target] lists the computed nodes notified when target changes.
	edges := make(map[*Node][]*Node)
	var computed []*Node
	var firstErr error

	root.Walk(func(n *Node) bool {
		if firstErr != nil {
			return false
		}
		if n.Kind != KindFunction && n.Kind != KindDynamic {
			return true
		}
		computed = append(computed, n)
		for _, ref := range n.Deps {
			target, err := ResolveRef(n, ref)
			if err != nil {
				firstErr = err
				return false
			}
			// A dependency on a container is a dependency on every
			// computed node beneath it: any of them changing changes
			// the container's text.
			target.Walk(func(t *Node) bool {
				if t.Kind == KindFunction || t.Kind == KindDynamic {
					edges[t] = append(edges[t], n)
				}
				return true
			})
		}
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[*Node]int, len(computed))
	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("%w: dependency cycle through %s",
				ErrMalformedTemplate, PathString(PathOf(n)))
		case done:
			return nil
		}
		state[n] = visiting
		for _, next := range edges[n] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range computed {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
