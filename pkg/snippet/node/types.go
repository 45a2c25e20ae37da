package node

// Kind represents the type of template node
type Kind uint8

const (
	// KindText represents a literal text node
	KindText Kind = iota
	// KindInsert represents an editable tab-stop node
	KindInsert
	// KindChoice represents a node with multiple alternative subtrees
	KindChoice
	// KindFunction represents a computed text node
	KindFunction
	// KindDynamic represents a computed subtree node
	KindDynamic
	// KindSnippet represents a nested subtree (its own jump-index scope)
	KindSnippet
	// KindRestore represents a key-addressed slot backed by the restore store
	KindRestore
)

// String returns the node kind name
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInsert:
		return "insert"
	case KindChoice:
		return "choice"
	case KindFunction:
		return "function"
	case KindDynamic:
		return "dynamic"
	case KindSnippet:
		return "snippet"
	case KindRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// NoIndex marks a node that does not participate in the jump order.
const NoIndex = -1

// Ref references another node in a template, either by jump-index within the
// same scope or by an absolute index path from the template root.
type Ref struct {
	// Index is the sibling-scope jump-index. Ignored when Path is set.
	Index int

	// Path is an absolute sequence of jump-indices walked from the root
	// scope, one per nesting level.
	Path []int
}

// Rel creates a sibling-scope reference to the node with the given jump-index.
func Rel(index int) Ref {
	return Ref{Index: index}
}

// Abs creates an absolute reference walked from the template root scope.
func Abs(path ...int) Ref {
	return Ref{Index: NoIndex, Path: path}
}

// FuncEval computes the output lines of a Function node from the current text
// of its dependencies and its static arguments.
type FuncEval func(deps [][]string, args []any) ([]string, error)

// GenContext carries the inputs of a Dynamic node's generator invocation.
type GenContext struct {
	// Deps holds the current lines of each declared dependency, in
	// declaration order.
	Deps [][]string

	// Parent is the live parent of the Dynamic node being regenerated,
	// letting generators inspect the surrounding scope.
	Parent *Node

	// State is the opaque value returned by the previous invocation, or nil
	// on the first run. The engine passes it back verbatim; it is never
	// inspected.
	State any

	// Args are the static user arguments given at construction.
	Args []any
}

// Generator produces a fresh subtree for a Dynamic node, plus an opaque state
// value carried into the next invocation.
type Generator func(ctx GenContext) (*Node, any, error)

// Node represents a single node in a template tree.
//
// Node is a tagged variant: Kind selects which fields are meaningful. Template
// trees are static and reusable; Clone produces the mutable per-expansion copy.
type Node struct {
	// Kind determines the type of this node
	Kind Kind

	// Index is the local jump-index within the enclosing scope, or NoIndex
	// for non-jumpable nodes (Text, Function, anonymous Snippet roots).
	Index int

	// Parent is a non-owning back-reference, set during Compile and Clone.
	// It is used for lookup only; ownership flows root to leaves via Kids.
	Parent *Node

	// Kids contains child nodes. For KindSnippet these are the scope
	// members; for KindChoice the alternatives (each a Snippet); for
	// KindDynamic the single generated subtree; for KindRestore the single
	// content Snippet.
	Kids []*Node

	// Lines is the literal content (KindText), the live buffer (KindInsert)
	// or the current output (KindFunction).
	Lines []string

	// Placeholder is the default value of an Insert node.
	Placeholder []string

	// Active is the index of the currently selected Choice alternative.
	Active int

	// RestoreCursor requests cursor recovery across choice cycling, matched
	// by restore key.
	RestoreCursor bool

	// Fn is the evaluator of a Function node.
	Fn FuncEval

	// Gen is the generator of a Dynamic node.
	Gen Generator

	// Deps are the declared dependencies of a Function or Dynamic node.
	Deps []Ref

	// Args are static user arguments passed through to Fn or Gen.
	Args []any

	// State is the opaque carried state of a Dynamic node. Owned by the
	// engine, passed back verbatim on the next regeneration.
	State any

	// Key is the restore-store key of a Restore node.
	Key string

	// synthesized marks the exit stop appended by Compile when a template
	// declares no index 0 of its own.
	synthesized bool
}

// Text creates a literal text node. A single string is one line; additional
// strings are continuation lines, indented relative to the expansion site.
func Text(lines ...string) *Node {
	return &Node{
		Kind:  KindText,
		Index: NoIndex,
		Lines: lines,
	}
}

// Insert creates a tab-stop node with the given jump-index and optional
// placeholder lines. Index 0 is the terminal stop.
func Insert(index int, placeholder ...string) *Node {
	return &Node{
		Kind:        KindInsert,
		Index:       index,
		Lines:       append([]string(nil), placeholder...),
		Placeholder: placeholder,
	}
}

// Snippet creates a nested subtree with its own jump-index scope. Indices of
// its kids restart at 1 and never collide with the parent scope.
func Snippet(index int, kids ...*Node) *Node {
	return &Node{
		Kind:  KindSnippet,
		Index: index,
		Kids:  kids,
	}
}

// Choice creates a node holding ordered alternatives, exactly one active at a
// time. Alternatives that are not already Snippet nodes are wrapped in an
// anonymous one so each alternative forms its own scope.
func Choice(index int, alts ...*Node) *Node {
	wrapped := make([]*Node, 0, len(alts))
	for _, alt := range alts {
		if alt == nil {
			continue
		}
		if alt.Kind != KindSnippet {
			alt = Snippet(NoIndex, alt)
		}
		wrapped = append(wrapped, alt)
	}
	return &Node{
		Kind:  KindChoice,
		Index: index,
		Kids:  wrapped,
	}
}

// Function creates a computed text node. It is non-jumpable; its output is
// recomputed whenever one of its dependencies changes.
func Function(fn FuncEval, deps []Ref, args ...any) *Node {
	return &Node{
		Kind:  KindFunction,
		Index: NoIndex,
		Fn:    fn,
		Deps:  deps,
		Args:  args,
	}
}

// Dynamic creates a computed subtree node. The generator runs on expansion and
// again whenever a dependency changes; its result is index-resolved lazily at
// generation time.
func Dynamic(index int, gen Generator, deps []Ref, args ...any) *Node {
	return &Node{
		Kind:  KindDynamic,
		Index: index,
		Gen:   gen,
		Deps:  deps,
		Args:  args,
	}
}

// Restore creates a key-addressed slot. Its content is a Snippet looked up in
// the restore store under key, falling back to the given kids on first use.
func Restore(index int, key string, fallback ...*Node) *Node {
	return &Node{
		Kind:  KindRestore,
		Index: index,
		Key:   key,
		Kids:  []*Node{Snippet(NoIndex, fallback...)},
	}
}

// IsJumpable returns true if this node occupies a slot in the jump order.
func (n *Node) IsJumpable() bool {
	return n.Index != NoIndex
}

// IsContainer returns true if this node owns a subtree the cursor can enter.
func (n *Node) IsContainer() bool {
	switch n.Kind {
	case KindSnippet, KindChoice, KindDynamic, KindRestore:
		return true
	default:
		return false
	}
}

// ActiveAlt returns the currently selected alternative of a Choice node, or
// nil for other kinds.
func (n *Node) ActiveAlt() *Node {
	if n.Kind != KindChoice || len(n.Kids) == 0 {
		return nil
	}
	return n.Kids[n.Active]
}

// Generated returns the current generated subtree of a Dynamic node, or nil
// if the generator has not run yet.
func (n *Node) Generated() *Node {
	if n.Kind != KindDynamic || len(n.Kids) == 0 {
		return nil
	}
	return n.Kids[0]
}

// Content returns the content Snippet of a Restore node.
func (n *Node) Content() *Node {
	if n.Kind != KindRestore || len(n.Kids) == 0 {
		return nil
	}
	return n.Kids[0]
}

// SetContent replaces the content Snippet of a Restore node.
func (n *Node) SetContent(content *Node) {
	if n.Kind != KindRestore {
		return
	}
	content.Parent = n
	n.Kids = []*Node{content}
}

// Clone deep-copies the node and its subtree. Parent links inside the copy are
// rewired to the copied nodes; the copy's own Parent is nil. Opaque Dynamic
// state and evaluator references are shared, everything else is independent.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:          n.Kind,
		Index:         n.Index,
		Lines:         append([]string(nil), n.Lines...),
		Placeholder:   append([]string(nil), n.Placeholder...),
		Active:        n.Active,
		RestoreCursor: n.RestoreCursor,
		Fn:            n.Fn,
		Gen:           n.Gen,
		Deps:          append([]Ref(nil), n.Deps...),
		Args:          n.Args,
		State:         n.State,
		Key:           n.Key,
		synthesized:   n.synthesized,
	}
	if len(n.Kids) > 0 {
		c.Kids = make([]*Node, len(n.Kids))
		for i, kid := range n.Kids {
			kc := kid.Clone()
			kc.Parent = c
			c.Kids[i] = kc
		}
	}
	return c
}

// Walk visits n and every node below it in depth-first order. Returning false
// from fn stops the descent into that node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, kid := range n.Kids {
		kid.Walk(fn)
	}
}

// Root follows parent links to the top of the tree.
func (n *Node) Root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// Scope follows parent links to the nearest enclosing Snippet node, or nil
// when n is the root scope itself.
func (n *Node) Scope() *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Kind == KindSnippet {
			return p
		}
	}
	return nil
}
