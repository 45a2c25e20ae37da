package engine

import (
	"strings"

	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// Session is one live expansion of a template. All methods must be called
// from the host's input-handling goroutine; the engine performs no background
// work of its own.
type Session struct {
	id     uint32
	engine *Engine
	root   *node.Node
	opts   ExpandOpts
	state  State

	// stops is the flattened jump order of the current tree shape. It is
	// rebuilt after choice cycling and dynamic regeneration.
	stops []*node.Node
	pos   int

	// deps maps a node to the computed nodes notified when it changes.
	deps map[*node.Node][]*node.Node
	// targets holds each computed node's resolved dependencies, in
	// declaration order.
	targets map[*node.Node][]*node.Node
	// rank orders computed nodes so propagation evaluates a node only
	// after everything it depends on.
	rank map[*node.Node]int

	// owner tracks the authoritative live node per restore key; only its
	// edits are pushed back to the store.
	owner map[string]*node.Node
	// held lists acquired store references, released on exit.
	held []string
}

// ID returns the session's unique ID.
func (s *Session) ID() uint32 {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Root returns the live tree root.
func (s *Session) Root() *node.Node {
	return s.root
}

// Active returns the stop currently holding the cursor, or nil once exited.
func (s *Session) Active() *node.Node {
	if s.state != StateActive || s.pos < 0 || s.pos >= len(s.stops) {
		return nil
	}
	return s.stops[s.pos]
}

// ActiveIndex returns the local jump-index of the current stop, or -1.
func (s *Session) ActiveIndex() int {
	if cur := s.Active(); cur != nil {
		return cur.Index
	}
	return -1
}

// Stops returns the current flattened jump order.
func (s *Session) Stops() []*node.Node {
	return s.stops
}

// JumpForward moves the cursor to the next stop. Jumping forward from the
// terminal stop exits the session normally.
func (s *Session) JumpForward() (*node.Node, error) {
	if s.state != StateActive {
		return nil, node.ErrSessionClosed
	}
	cur := s.Active()
	if s.pos+1 >= len(s.stops) {
		s.exit(cur)
		return nil, nil
	}
	s.fire(EventLeave, cur)
	s.pos++
	next := s.stops[s.pos]
	s.fire(EventEnter, next)
	return next, nil
}

// JumpBackward moves the cursor to the previous stop. At the first stop the
// cursor stays put.
func (s *Session) JumpBackward() (*node.Node, error) {
	if s.state != StateActive {
		return nil, node.ErrSessionClosed
	}
	if s.pos == 0 {
		return s.Active(), nil
	}
	s.fire(EventLeave, s.Active())
	s.pos--
	prev := s.stops[s.pos]
	s.fire(EventEnter, prev)
	return prev, nil
}

// SetText replaces the text of the current Insert stop and propagates the
// change to dependent Function and Dynamic nodes before returning.
func (s *Session) SetText(text string) error {
	if s.state != StateActive {
		return node.ErrSessionClosed
	}
	cur := s.Active()
	if cur == nil || cur.Kind != node.KindInsert {
		return nil
	}
	cur.Lines = strings.Split(text, "\n")
	s.pushRestores(cur)
	return s.propagate(cur)
}

// CycleChoice replaces the active alternative of the nearest enclosing Choice
// with the next (dir > 0) or previous (dir < 0) one, wrapping at the ends.
func (s *Session) CycleChoice(dir int) error {
	if s.state != StateActive {
		return node.ErrSessionClosed
	}
	choice := nearestChoice(s.Active())
	if choice == nil || len(choice.Kids) < 2 {
		return nil
	}

	// Remember the restore key under the cursor so it can be recovered in
	// the new alternative.
	var cursorKey string
	if choice.RestoreCursor {
		for n := s.Active(); n != nil && n != choice; n = n.Parent {
			if n.Kind == node.KindRestore {
				cursorKey = n.Key
				break
			}
		}
	}

	oldAlt := choice.ActiveAlt()
	s.fire(EventLeave, s.Active())

	// Entered content in the old alternative survives the switch through
	// the store.
	s.syncRestores(oldAlt)

	n := len(choice.Kids)
	choice.Active = ((choice.Active+dir)%n + n) % n
	newAlt := choice.ActiveAlt()
	s.refreshRestores(newAlt)

	if err := s.rebuildDeps(); err != nil {
		return err
	}
	s.rebuildStops()

	// Default entry point is the choice stop itself; with restore_cursor
	// set, a matching restore key in the new alternative wins.
	target := s.indexOfStop(choice)
	if cursorKey != "" {
		if match := findRestoreStop(s.stops, newAlt, cursorKey); match >= 0 {
			target = match
		}
	}
	if target < 0 {
		target = 0
	}
	s.pos = target
	s.fire(EventEnter, s.Active())

	s.pushRestores(choice)
	return s.propagate(choice)
}

// Exit finishes the session from the host side, equivalent to jumping past
// the terminal stop.
func (s *Session) Exit() {
	if s.state != StateActive {
		return
	}
	s.exit(s.Active())
}

// Abort discards the session immediately. It is idempotent; aborting an
// exited session is a no-op.
func (s *Session) Abort() {
	if s.state != StateActive {
		return
	}
	s.exit(s.Active())
}

// exit tears the session down. Node state is discarded except content already
// pushed to the restore store.
func (s *Session) exit(cur *node.Node) {
	if cur != nil {
		s.fire(EventLeave, cur)
	}
	s.state = StateExited
	s.releaseHeld()
	s.engine.remove(s)
	if debugLog != nil {
		debugLog("[Engine] Session", s.id, "exited")
	}
}

// releaseHeld drops every acquired restore reference.
func (s *Session) releaseHeld() {
	for _, key := range s.held {
		s.engine.store.Release(key)
	}
	s.held = nil
}

// fire invokes the callback registered for a node position and event.
func (s *Session) fire(ev Event, n *node.Node) {
	if n == nil || len(s.opts.Callbacks) == 0 {
		return
	}
	pos := node.PathString(node.PathOf(n))
	if handlers, ok := s.opts.Callbacks[pos]; ok {
		if cb, ok := handlers[ev]; ok {
			cb(s, n)
		}
	}
}

// rebuildStops recomputes the flattened jump order for the current tree
// shape, clamping the cursor into range.
func (s *Session) rebuildStops() {
	s.stops = s.stops[:0]
	s.collectStops(s.root)
	if s.pos >= len(s.stops) {
		s.pos = len(s.stops) - 1
	}
	if s.pos < 0 {
		s.pos = 0
	}
}

// collectStops appends every cursor-holding node below scope in jump order:
// each scope ascending 1..n then 0, containers contributing their inner
// stops in place.
func (s *Session) collectStops(scope *node.Node) {
	for _, m := range node.ScopeOrder(scope) {
		switch m.Kind {
		case node.KindInsert:
			s.stops = append(s.stops, m)
		case node.KindSnippet:
			s.collectStops(m)
		case node.KindChoice:
			s.stops = append(s.stops, m)
			if alt := m.ActiveAlt(); alt != nil {
				s.collectStops(alt)
			}
		case node.KindDynamic:
			if gen := m.Generated(); gen != nil {
				s.collectStops(gen)
			}
		case node.KindRestore:
			if content := m.Content(); content != nil {
				s.collectStops(content)
			}
		}
	}
}

// indexOfStop returns the stop-list position of n, or -1.
func (s *Session) indexOfStop(n *node.Node) int {
	for i, stop := range s.stops {
		if stop == n {
			return i
		}
	}
	return -1
}

// nearestChoice walks up from n to the closest enclosing Choice, n included.
func nearestChoice(n *node.Node) *node.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind == node.KindChoice {
			return cur
		}
	}
	return nil
}

// findRestoreStop returns the position of the first stop inside the restore
// node keyed key under root, or -1.
func findRestoreStop(stops []*node.Node, root *node.Node, key string) int {
	var target *node.Node
	root.Walk(func(n *node.Node) bool {
		if target != nil {
			return false
		}
		if n.Kind == node.KindRestore && n.Key == key {
			target = n
			return false
		}
		return true
	})
	if target == nil {
		return -1
	}
	for i, stop := range stops {
		for cur := stop; cur != nil; cur = cur.Parent {
			if cur == target {
				return i
			}
		}
	}
	return -1
}

// Render returns the full text of the live tree. Continuation lines carry
// the LinePrefix captured at expansion; indentation inside node content is
// otherwise left untouched.
func (s *Session) Render() string {
	lines := renderLines(s.root)
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(lines[0])
	for _, line := range lines[1:] {
		b.WriteString("\n")
		b.WriteString(s.opts.LinePrefix)
		b.WriteString(line)
	}
	return b.String()
}

// renderLines produces the physical lines of a subtree. The first line of a
// node joins the last open line of its predecessor; its remaining lines open
// new physical lines.
func renderLines(n *node.Node) []string {
	acc := []string{""}
	appendNode(&acc, n)
	return acc
}

func appendNode(acc *[]string, n *node.Node) {
	switch n.Kind {
	case node.KindText, node.KindInsert, node.KindFunction:
		appendLines(acc, n.Lines)
	case node.KindSnippet:
		for _, kid := range n.Kids {
			appendNode(acc, kid)
		}
	case node.KindChoice:
		if alt := n.ActiveAlt(); alt != nil {
			appendNode(acc, alt)
		}
	case node.KindDynamic:
		if gen := n.Generated(); gen != nil {
			appendNode(acc, gen)
		}
	case node.KindRestore:
		if content := n.Content(); content != nil {
			appendNode(acc, content)
		}
	}
}

func appendLines(acc *[]string, lines []string) {
	if len(lines) == 0 {
		return
	}
	(*acc)[len(*acc)-1] += lines[0]
	*acc = append(*acc, lines[1:]...)
}

// RenderNode returns the rendered lines of one subtree, used when gathering
// dependency texts.
func RenderNode(n *node.Node) []string {
	return renderLines(n)
}
