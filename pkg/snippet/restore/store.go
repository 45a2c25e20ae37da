// Package restore holds the process-wide registry that lets disjoint template
// branches share and recover entered content, keyed by opaque string keys.
package restore

import (
	"sync"

	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// Store is the keyed registry backing Restore nodes. Entries live as long as
// at least one active session holds their key; all content moving in or out
// is cloned, so sessions never alias each other's trees.
//
// Mutation is serialized by the engine's single-threaded event model; the
// mutex only guards against multiple hosts sharing one store.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	content *node.Node // detached Snippet, never part of a live tree
	refs    int
}

// NewStore creates an empty restore store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns a fresh copy of the content registered under key,
// acquiring a live reference. When the key is unknown the fallback builder
// runs once and its result becomes the registered default.
//
// When several templates register differing fallbacks under one key, the
// first to instantiate wins; later fallbacks are never invoked.
func (s *Store) GetOrCreate(key string, fallback func() *node.Node) *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{content: fallback().Clone()}
		s.entries[key] = e
	}
	e.refs++
	return e.content.Clone()
}

// Update replaces the registered content for key. Called whenever the live
// node holding the key changes. Unknown keys are ignored.
func (s *Store) Update(key string, content *node.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.content = content.Clone()
	}
}

// Get returns a copy of the registered content, or nil for unknown keys.
func (s *Store) Get(key string) *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		return e.content.Clone()
	}
	return nil
}

// Release drops one live reference to key. The entry is removed once no
// active session holds it.
func (s *Store) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, key)
	}
}

// Len returns the number of registered keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
