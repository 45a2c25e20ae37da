// Package engine instantiates compiled snippet templates into live sessions
// and drives jumps, edits, choice cycling and dependency propagation.
package engine

import (
	"sync"

	"github.com/snipkit/snipkit/pkg/snippet/node"
	"github.com/snipkit/snipkit/pkg/snippet/restore"
)

// debugLog is set by the host when tracing is wanted
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// State represents the lifecycle state of a session
type State uint8

const (
	// StateInactive - session created but not yet positioned on a stop
	StateInactive State = iota
	// StateActive - cursor is on a stop, jumps and edits are accepted
	StateActive
	// StateExited - session finished or aborted, no further transitions
	StateExited
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Event is a node lifecycle event observed by callbacks
type Event uint8

const (
	// EventEnter fires when the cursor lands on a node
	EventEnter Event = iota
	// EventLeave fires when the cursor moves off a node
	EventLeave
)

// Callback handles a lifecycle event for a node
type Callback func(s *Session, n *node.Node)

// Callbacks maps a node position (dotted jump-index path, e.g. "$.1") to its
// lifecycle handlers.
type Callbacks map[string]map[Event]Callback

// ExpandOpts configures one expansion.
type ExpandOpts struct {
	// Callbacks are invoked on enter/leave of the addressed nodes.
	Callbacks Callbacks

	// LinePrefix is prepended to continuation lines when rendering, so
	// multi-line snippets keep the indentation of the expansion site.
	LinePrefix string
}

// Engine manages live sessions and the restore store they share.
type Engine struct {
	mu       sync.Mutex
	sessions map[uint32]*Session
	nextID   uint32
	store    *restore.Store
}

// New creates an engine with an empty restore store.
func New() *Engine {
	return &Engine{
		sessions: make(map[uint32]*Session),
		nextID:   1,
		store:    restore.NewStore(),
	}
}

// Store returns the restore store shared by this engine's sessions.
func (e *Engine) Store() *restore.Store {
	return e.store
}

// Expand instantiates a template into a live session positioned on its first
// stop. Function outputs and Dynamic subtrees are evaluated before the
// session is returned, so the initial Render already reflects them.
func (e *Engine) Expand(tpl *node.Template, opts ExpandOpts) (*Session, error) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.mu.Unlock()

	s := &Session{
		id:     id,
		engine: e,
		root:   tpl.Instantiate(),
		opts:   opts,
		state:  StateInactive,
	}

	s.hydrateRestores(s.root)

	if err := s.rebuildDeps(); err != nil {
		s.releaseHeld()
		return nil, err
	}
	if err := s.evaluateAll(); err != nil {
		s.releaseHeld()
		return nil, err
	}

	s.rebuildStops()
	s.state = StateActive
	s.pos = 0
	if cur := s.Active(); cur != nil {
		s.fire(EventEnter, cur)
	}

	e.mu.Lock()
	e.sessions[id] = s
	e.mu.Unlock()

	if debugLog != nil {
		debugLog("[Engine] Expanded session", id, "with", len(s.stops), "stops")
	}
	return s, nil
}

// Session returns a live session by ID, or nil.
func (e *Engine) Session(id uint32) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// remove drops an exited session from the registry.
func (e *Engine) remove(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, s.id)
}
