// Package registry keeps per-filetype snippet definitions and answers the two
// questions hosts ask: "which template expands here" and "which triggers
// should the completion menu list".
package registry

import (
	"sort"
	"sync"

	"github.com/snipkit/snipkit/pkg/snippet/node"
	"github.com/snipkit/snipkit/pkg/trigger"
)

// Definition binds a compiled template to its trigger configuration.
type Definition struct {
	// Opts is the trigger configuration.
	Opts trigger.Opts

	// Template is the compiled snippet body.
	Template *node.Template

	// Condition gates expansion with full match context. Nil means always.
	Condition trigger.Condition

	// ShowCondition gates completion listing. It must stay cheap; nil
	// means always.
	ShowCondition trigger.ShowCondition
}

// Completion is one listable trigger, the shape completion frontends consume.
type Completion struct {
	Trigger     string
	Name        string
	Description string
	Priority    int
}

// patternCacheSize bounds the matcher's compiled-pattern LRU.
const patternCacheSize = 256

// Registry holds definitions grouped by filetype. The "all" filetype applies
// everywhere.
type Registry struct {
	mu         sync.RWMutex
	byFiletype map[string][]*Definition
	matcher    *trigger.Matcher
}

// FiletypeAll applies a definition to every filetype.
const FiletypeAll = "all"

// New creates an empty registry.
func New() *Registry {
	matcher, err := trigger.NewMatcher(patternCacheSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Registry{
		byFiletype: make(map[string][]*Definition),
		matcher:    matcher,
	}
}

// Add registers definitions for a filetype, keeping the filetype's list
// sorted by descending priority.
func (r *Registry) Add(filetype string, defs ...*Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.byFiletype[filetype], defs...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Opts.Priority > list[j].Opts.Priority
	})
	r.byFiletype[filetype] = list
}

// SetPriority overrides the priority of the definition with the given
// trigger, re-sorting its filetype list. It reports whether a definition was
// found.
func (r *Registry) SetPriority(filetype, trig string, priority int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byFiletype[filetype]
	found := false
	for _, def := range list {
		if def.Opts.Trigger == trig {
			def.Opts.Priority = priority
			found = true
		}
	}
	if found {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Opts.Priority > list[j].Opts.Priority
		})
	}
	return found
}

// Filetypes returns the filetypes with registered definitions, sorted.
func (r *Registry) Filetypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fts := make([]string, 0, len(r.byFiletype))
	for ft := range r.byFiletype {
		fts = append(fts, ft)
	}
	sort.Strings(fts)
	return fts
}

// candidates returns the definitions applicable to a filetype in priority
// order: filetype-specific first among equal priorities.
func (r *Registry) candidates(filetype string) []*Definition {
	specific := r.byFiletype[filetype]
	global := r.byFiletype[FiletypeAll]
	if filetype == FiletypeAll {
		global = nil
	}
	out := make([]*Definition, 0, len(specific)+len(global))
	out = append(out, specific...)
	out = append(out, global...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Opts.Priority > out[j].Opts.Priority
	})
	return out
}

// Lookup finds the highest-priority definition whose trigger matches the end
// of lineBefore and whose condition accepts the match.
func (r *Registry) Lookup(filetype, lineBefore string) (*Definition, trigger.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.candidates(filetype) {
		match, ok := r.matcher.Match(def.Opts, lineBefore)
		if !ok {
			continue
		}
		if def.Condition != nil && !def.Condition(lineBefore, match.Text, match.Captures) {
			continue
		}
		return def, match, true
	}
	return nil, trigger.Match{}, false
}

// AutoTriggered is like Lookup but only considers auto-trigger definitions.
// Hosts call it after every keystroke.
func (r *Registry) AutoTriggered(filetype, lineBefore string) (*Definition, trigger.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.candidates(filetype) {
		if !def.Opts.AutoTrigger {
			continue
		}
		match, ok := r.matcher.Match(def.Opts, lineBefore)
		if !ok {
			continue
		}
		if def.Condition != nil && !def.Condition(lineBefore, match.Text, match.Captures) {
			continue
		}
		return def, match, true
	}
	return nil, trigger.Match{}, false
}

// Completions lists the visible triggers for a filetype, filtered by each
// definition's show-condition only. No trigger matching happens here; this
// is the cheap per-keystroke path.
func (r *Registry) Completions(filetype, lineBefore string) []Completion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Completion
	for _, def := range r.candidates(filetype) {
		if def.Opts.Hidden {
			continue
		}
		if def.ShowCondition != nil && !def.ShowCondition(lineBefore) {
			continue
		}
		out = append(out, Completion{
			Trigger:     def.Opts.Trigger,
			Name:        def.Opts.Name,
			Description: def.Opts.Description,
			Priority:    def.Opts.Priority,
		})
	}
	return out
}
