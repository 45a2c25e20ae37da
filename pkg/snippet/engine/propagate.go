package engine

import (
	"fmt"
	"strings"

	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// rebuildDeps resolves every declared dependency in the live tree and orders
// computed nodes so each evaluates after everything it depends on.
//
// Template-level cycles are rejected at compile time; this re-checks because
// Dynamic generators can splice in new dependencies at runtime.
func (s *Session) rebuildDeps() error {
	s.deps = make(map[*node.Node][]*node.Node)
	s.rank = make(map[*node.Node]int)
	if s.targets == nil {
		s.targets = make(map[*node.Node][]*node.Node)
	} else {
		for k := range s.targets {
			delete(s.targets, k)
		}
	}

	var computed []*node.Node
	var firstErr error
	s.root.Walk(func(n *node.Node) bool {
		if firstErr != nil {
			return false
		}
		if n.Kind != node.KindFunction && n.Kind != node.KindDynamic {
			return true
		}
		computed = append(computed, n)
		for _, ref := range n.Deps {
			target, err := node.ResolveRef(n, ref)
			if err != nil {
				firstErr = err
				return false
			}
			s.targets[n] = append(s.targets[n], target)
			s.deps[target] = append(s.deps[target], n)
		}
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	// edges[d] lists computed nodes that must evaluate after d. A node
	// inside its own dependency subtree forms a self-edge and is rejected
	// below, same as at template construction.
	edges := make(map[*node.Node][]*node.Node)
	for _, n := range computed {
		for _, target := range s.targets[n] {
			target.Walk(func(t *node.Node) bool {
				if t.Kind == node.KindFunction || t.Kind == node.KindDynamic {
					edges[t] = append(edges[t], n)
				}
				return true
			})
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[*node.Node]int, len(computed))
	next := 0
	var visit func(n *node.Node) error
	visit = func(n *node.Node) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("%w: dependency cycle through %s",
				node.ErrMalformedTemplate, node.PathString(node.PathOf(n)))
		case done:
			return nil
		}
		state[n] = visiting
		for _, d := range edges[n] {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[n] = done
		// Post-order: dependents finish first and get higher ranks.
		next++
		s.rank[n] = len(computed) - next
		return nil
	}
	for _, n := range computed {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// evaluateAll runs every computed node once, in dependency order. Used at
// expansion so the first render reflects Function outputs and Dynamic
// subtrees.
func (s *Session) evaluateAll() error {
	for _, n := range s.computedByRank() {
		if _, err := s.evaluate(n); err != nil {
			return err
		}
	}
	return nil
}

// computedByRank returns all computed nodes sorted by evaluation order.
func (s *Session) computedByRank() []*node.Node {
	out := make([]*node.Node, 0, len(s.rank))
	for n := range s.rank {
		out = append(out, n)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && s.rank[out[j]] < s.rank[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// propagate notifies every computed node depending on changed, directly or
// through an enclosing container, and runs them to a fixed point. Each node
// evaluates at most once per edit; acyclicity guarantees termination.
func (s *Session) propagate(changed *node.Node) error {
	pending := make(map[*node.Node]bool)
	evaluated := make(map[*node.Node]bool)

	seed := func(x *node.Node) {
		for a := x; a != nil; a = a.Parent {
			for _, d := range s.deps[a] {
				if !evaluated[d] {
					pending[d] = true
				}
			}
		}
	}
	seed(changed)

	for len(pending) > 0 {
		var n *node.Node
		for cand := range pending {
			if n == nil || s.rank[cand] < s.rank[n] {
				n = cand
			}
		}
		delete(pending, n)
		if evaluated[n] {
			continue
		}
		evaluated[n] = true

		changedOut, err := s.evaluate(n)
		if err != nil {
			return err
		}
		if changedOut {
			seed(n)
		}
	}
	return nil
}

// evaluate recomputes one Function or Dynamic node. It reports whether the
// node's visible text changed. On failure the prior content stays in place.
func (s *Session) evaluate(n *node.Node) (bool, error) {
	texts := make([][]string, len(s.targets[n]))
	for i, target := range s.targets[n] {
		texts[i] = RenderNode(target)
	}

	switch n.Kind {
	case node.KindFunction:
		out, err := callFunc(n, texts)
		if err != nil {
			return false, &node.GeneratorError{Path: node.PathOf(n), Err: err}
		}
		if linesEqual(n.Lines, out) {
			return false, nil
		}
		n.Lines = out
		s.pushRestores(n)
		return true, nil

	case node.KindDynamic:
		return s.regenerate(n, texts)
	}
	return false, nil
}

// callFunc invokes a Function evaluator, converting panics into errors.
func callFunc(n *node.Node, texts [][]string) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Fn(texts, n.Args)
}

// callGen invokes a Dynamic generator, converting panics into errors.
func callGen(n *node.Node, texts [][]string) (sub *node.Node, state any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Gen(node.GenContext{
		Deps:   texts,
		Parent: n.Parent,
		State:  n.State,
		Args:   n.Args,
	})
}

// regenerate replaces a Dynamic node's subtree with fresh generator output.
// Restore-keyed content reachable in the old subtree survives through the
// store when the new subtree reuses the key; everything else is discarded.
func (s *Session) regenerate(n *node.Node, texts [][]string) (bool, error) {
	oldSub := n.Generated()
	oldState := n.State
	oldRender := ""
	if oldSub != nil {
		oldRender = strings.Join(RenderNode(oldSub), "\n")
	}

	sub, state, err := callGen(n, texts)
	if err != nil {
		return false, &node.GeneratorError{Path: node.PathOf(n), Err: err}
	}
	if sub == nil {
		sub = node.Snippet(node.NoIndex)
	}
	if sub.Kind != node.KindSnippet {
		sub = node.Snippet(node.NoIndex, sub)
	}
	// Generated content is index-resolved lazily, here, not at template
	// definition time.
	if err := node.Normalize(sub); err != nil {
		return false, err
	}

	// Push old restore content to the store before the subtree goes away.
	var oldRestores []*node.Node
	if oldSub != nil {
		collectRestores(oldSub, func(r *node.Node) {
			s.engine.store.Update(r.Key, r.Content())
			oldRestores = append(oldRestores, r)
			if s.owner[r.Key] == r {
				delete(s.owner, r.Key)
			}
		})
	}

	curStop := s.Active()

	sub.Parent = n
	n.Kids = []*node.Node{sub}
	n.State = state

	s.hydrateRestores(sub)

	if err := s.rebuildDeps(); err != nil {
		// The generated subtree broke reference resolution or acyclicity;
		// put the old one back so the session stays usable. The old store
		// references were never released, so only the new acquisitions and
		// ownership need undoing.
		collectRestores(sub, func(r *node.Node) {
			if s.owner[r.Key] == r {
				delete(s.owner, r.Key)
			}
			s.engine.store.Release(r.Key)
			s.dropHeld(r.Key)
		})
		for _, r := range oldRestores {
			if _, taken := s.owner[r.Key]; !taken {
				s.owner[r.Key] = r
			}
		}
		if oldSub != nil {
			n.Kids = []*node.Node{oldSub}
		} else {
			n.Kids = nil
		}
		n.State = oldState
		if rerr := s.rebuildDeps(); rerr != nil && debugLog != nil {
			debugLog("[Engine] rollback rebuild failed:", rerr)
		}
		return false, err
	}

	// The new subtree is accepted; old references can go now. Shared keys
	// were re-acquired by hydration above, so no entry drops to zero here.
	for _, r := range oldRestores {
		s.engine.store.Release(r.Key)
		s.dropHeld(r.Key)
	}

	// Fresh computed nodes inside the new subtree run immediately.
	for _, c := range s.computedByRank() {
		inSub := false
		for a := c; a != nil; a = a.Parent {
			if a == sub {
				inSub = true
				break
			}
		}
		if !inSub {
			continue
		}
		if _, err := s.evaluate(c); err != nil {
			return false, err
		}
	}

	s.rebuildStops()
	if s.state == StateActive {
		if idx := s.indexOfStop(curStop); idx >= 0 {
			s.pos = idx
		} else if idx := firstStopWithin(s.stops, sub); idx >= 0 {
			s.pos = idx
		}
	}

	s.pushRestores(n)
	newRender := strings.Join(RenderNode(sub), "\n")
	return oldRender != newRender, nil
}

// hydrateRestores attaches store-backed content to every Restore node below
// sub, acquiring a live reference per node. The first node seen for a key
// becomes its authoritative writer.
func (s *Session) hydrateRestores(sub *node.Node) {
	if s.owner == nil {
		s.owner = make(map[string]*node.Node)
	}
	var restores []*node.Node
	collectRestores(sub, func(r *node.Node) {
		restores = append(restores, r)
	})
	for _, r := range restores {
		fallback := r.Content()
		content := s.engine.store.GetOrCreate(r.Key, func() *node.Node {
			return fallback
		})
		r.SetContent(content)
		s.held = append(s.held, r.Key)
		if _, taken := s.owner[r.Key]; !taken {
			s.owner[r.Key] = r
		}
	}
}

// pushRestores writes the content of every authoritative Restore node on the
// path from changed to the root back to the store.
func (s *Session) pushRestores(changed *node.Node) {
	for a := changed; a != nil; a = a.Parent {
		if a.Kind != node.KindRestore {
			continue
		}
		if s.owner[a.Key] == a {
			s.engine.store.Update(a.Key, a.Content())
		}
	}
}

// syncRestores pushes every restore node below sub to the store, used when a
// subtree is about to become inactive.
func (s *Session) syncRestores(sub *node.Node) {
	collectRestores(sub, func(r *node.Node) {
		s.engine.store.Update(r.Key, r.Content())
	})
}

// refreshRestores pulls stored content into every restore node below sub and
// makes those nodes the authoritative writers for their keys, used when a
// subtree becomes the displayed one. Write authority has to follow the cursor:
// edits land in the visible node, so a stale owner in a hidden alternative
// would leave the store behind.
func (s *Session) refreshRestores(sub *node.Node) {
	collectRestores(sub, func(r *node.Node) {
		if content := s.engine.store.Get(r.Key); content != nil {
			r.SetContent(content)
		}
		s.owner[r.Key] = r
	})
}

// collectRestores visits every Restore node below sub without descending
// into restore content, so replacing content mid-visit is safe.
func collectRestores(sub *node.Node, fn func(*node.Node)) {
	sub.Walk(func(n *node.Node) bool {
		if n.Kind == node.KindRestore {
			fn(n)
			return false
		}
		return true
	})
}

// dropHeld removes one held reference for key.
func (s *Session) dropHeld(key string) {
	for i, k := range s.held {
		if k == key {
			s.held = append(s.held[:i], s.held[i+1:]...)
			return
		}
	}
}

// firstStopWithin returns the position of the first stop under sub, or -1.
func firstStopWithin(stops []*node.Node, sub *node.Node) int {
	for i, stop := range stops {
		for a := stop; a != nil; a = a.Parent {
			if a == sub {
				return i
			}
		}
	}
	return -1
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
