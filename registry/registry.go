// Package registry maintains the catalog of node definitions available to
// the planner/engine: registration, deduplication, and category/substring
// search, plus a fluent builder and a plugin discovery hook.
package registry

import (
	"strings"
	"sync"

	"github.com/nodeflowgo/nodeflow/node"
)

// Source is anything that can contribute node definitions: a hand-written
// declarative source, a reflected set of methods, or a third-party plugin.
type Source interface {
	Definitions() []*node.Definition
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() []*node.Definition

func (f SourceFunc) Definitions() []*node.Definition { return f() }

// Registry holds the set of known node definitions.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*node.Definition
	order []string // insertion order, for stable catalog output

	initOnce sync.Once
	initFn   func(*Registry)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*node.Definition)}
}

// NewWithInit creates a registry whose first call to EnsureInitialized runs
// initFn exactly once, even under concurrent callers.
func NewWithInit(initFn func(*Registry)) *Registry {
	r := New()
	r.initFn = initFn
	return r
}

// EnsureInitialized runs the registry's init function, if any, exactly
// once. Safe to call concurrently from multiple goroutines.
func (r *Registry) EnsureInitialized() {
	if r.initFn == nil {
		return
	}
	r.initOnce.Do(func() { r.initFn(r) })
}

// Register inserts def. A duplicate id (already present) is ignored: first
// registration wins.
func (r *Registry) Register(def *node.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[def.ID]; exists {
		return
	}
	r.byID[def.ID] = def
	r.order = append(r.order, def.ID)
}

// RegisterFromSource iterates a declarative node source and registers each
// definition it contributes.
func (r *Registry) RegisterFromSource(source Source) {
	for _, def := range source.Definitions() {
		r.Register(def)
	}
}

// RegisterFromPlugin registers every definition a plugin contributes. It is
// the registry-facing half of the out-of-scope plugin marketplace: the
// marketplace/install flow is an external collaborator, but once a plugin
// is loaded, this is how it hands its node definitions to the engine.
func (r *Registry) RegisterFromPlugin(plugin Source) {
	r.RegisterFromSource(plugin)
}

// Get returns the definition with the given id.
func (r *Registry) Get(id string) (*node.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Definitions returns a stable-ordered snapshot of every registered
// definition.
func (r *Registry) Definitions() []*node.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*node.Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Catalog groups definitions by category, optionally filtered by a
// case-insensitive substring match over id, name, or description.
func (r *Registry) Catalog(query string) map[string][]*node.Definition {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make(map[string][]*node.Definition)
	for _, def := range r.Definitions() {
		if q != "" && !matches(def, q) {
			continue
		}
		out[def.Category] = append(out[def.Category], def)
	}
	return out
}

func matches(def *node.Definition, q string) bool {
	return strings.Contains(strings.ToLower(def.ID), q) ||
		strings.Contains(strings.ToLower(def.Name), q) ||
		strings.Contains(strings.ToLower(def.Description), q)
}
