// Package idstring interns hierarchical dotted paths into dense integer
// handles.
//
// A Registry collects declarations (global paths and member trees), builds
// a forest over them, numbers every node in display order and publishes the
// resulting Handles back into the declaring slots. Handles compare by id;
// the full path is the only stable form and is what gets persisted.
//
// A Set holds handles and answers membership both for its explicit elements
// and for every ancestor they imply.
package idstring

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/idstring/internal/core/events/bus"
	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/hierarchy"
)

// Declarations is the input of one registry build.
type Declarations struct {
	// Defines are global declarations; Define.Name is the full path.
	Defines []Define
	Members []Member
}

// Merge appends other to d.
func (d *Declarations) Merge(other Declarations) {
	d.Defines = append(d.Defines, other.Defines...)
	d.Members = append(d.Members, other.Members...)
}

// Len returns the number of top-level declarations.
func (d Declarations) Len() int { return len(d.Defines) + len(d.Members) }

// Registry is the identifier table. Builds are serialized; each generation
// is immutable and swapped in atomically, so queries are safe for
// concurrent use.
type Registry struct {
	mu         sync.Mutex
	decls      Declarations
	current    atomic.Pointer[table]
	generation uint64

	logger  log.Log
	bus     bus.EventBus
	maxWalk int
}

type Option func(*Registry)

// WithLogger sets the registry logger. Defaults to a nop logger.
func WithLogger(l log.Log) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBus publishes lifecycle events to b.
func WithBus(b bus.EventBus) Option {
	return func(r *Registry) { r.bus = b }
}

// WithMaxWalk bounds hierarchy walks during a build.
func WithMaxWalk(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxWalk = n
		}
	}
}

// NewRegistry returns an uninitialized registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: log.NewNop(), maxWalk: hierarchy.DefaultMaxWalk}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry atomic.Pointer[Registry]

// Default returns the registry installed with SetDefault, or nil.
func Default() *Registry { return defaultRegistry.Load() }

// SetDefault installs r as the registry used when decoding handles. Nil
// uninstalls it.
func SetDefault(r *Registry) { defaultRegistry.Store(r) }

// Declare adds global path declarations. They take effect on the next
// Initialize or Reload.
func (r *Registry) Declare(defs ...Define) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls.Defines = append(r.decls.Defines, defs...)
}

// DeclarePaths declares bare paths with default settings.
func (r *Registry) DeclarePaths(paths ...string) {
	defs := make([]Define, 0, len(paths))
	for _, p := range paths {
		defs = append(defs, Define{Name: p})
	}
	r.Declare(defs...)
}

// DeclareMembers adds member declaration trees.
func (r *Registry) DeclareMembers(members ...Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls.Members = append(r.decls.Members, members...)
}

// Replace swaps the whole declaration set. The live table is kept until the
// next Reload.
func (r *Registry) Replace(d Declarations) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls = Declarations{
		Defines: slices.Clone(d.Defines),
		Members: slices.Clone(d.Members),
	}
}

// Initialize builds the table once. Further calls are no-ops until Reset.
func (r *Registry) Initialize() {
	r.mu.Lock()
	if r.current.Load() != nil {
		r.mu.Unlock()
		return
	}
	t := r.rebuildLocked()
	r.mu.Unlock()
	r.announce(t)
}

// Reload discards the current table and builds a new generation. Ids from
// earlier generations become stale; paths re-resolve.
func (r *Registry) Reload() {
	r.mu.Lock()
	t := r.rebuildLocked()
	r.mu.Unlock()
	r.announce(t)
}

// Reset drops the table. Queries see an empty registry until Initialize.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(nil)
}

// IsInitialized reports whether a table is published.
func (r *Registry) IsInitialized() bool { return r.current.Load() != nil }

// Generation returns the build number of the live table, 0 when none is
// published.
func (r *Registry) Generation() uint64 { return r.load().generation }

func (r *Registry) rebuildLocked() *table {
	start := time.Now()
	r.generation++
	t := newBuilder(r.logger, r.maxWalk).build(r.decls, r.generation)
	r.current.Store(t)

	for _, a := range t.attrs[1:] {
		for _, slot := range a.slots {
			if err := slot.Set(a.handle); err != nil {
				r.logger.Error("idstring: publish handle failed",
					log.String("path", a.path), log.Error(err))
			}
		}
	}

	r.logger.Info("idstring: registry initialized",
		log.Uint64("generation", t.generation),
		log.Int("elements", len(t.attrs)-1),
		log.Int("roots", len(t.roots)),
		log.Duration("took", time.Since(start)))
	return t
}

func (r *Registry) load() *table {
	if t := r.current.Load(); t != nil {
		return t
	}
	return emptyTable()
}

// attr returns the record behind h, or nil when h carries an id from
// another generation.
func (r *Registry) attr(h Handle) *attrData {
	t := r.load()
	if h.id < 0 || h.id >= len(t.attrs) {
		r.logger.Error("idstring: stale handle id",
			log.Int("id", h.id), log.String("path", h.path), log.Uint64("generation", t.generation))
		return nil
	}
	a := t.attrs[h.id]
	if h.id > 0 && a.path != h.path {
		r.logger.Error("idstring: stale handle id",
			log.Int("id", h.id), log.String("path", h.path), log.String("current", a.path))
		return nil
	}
	return a
}

// IsCurrent reports whether h is a valid handle of the live table. Stale
// handles are logged.
func (r *Registry) IsCurrent(h Handle) bool { return h.IsValid() && r.attr(h) != nil }

// Len returns the number of registered identifiers, excluding None.
func (r *Registry) Len() int { return len(r.load().attrs) - 1 }

// Get returns the handle registered under path, or None with a warning.
func (r *Registry) Get(path string) Handle {
	h, ok := r.TryGet(path)
	if !ok {
		r.logger.Warn("idstring: path not found",
			log.String("path", path), log.Bool("initialized", r.IsInitialized()))
	}
	return h
}

// TryGet is Get without the warning.
func (r *Registry) TryGet(path string) (Handle, bool) {
	t := r.load()
	id, ok := t.byPath[CanonicalPath(path)]
	if !ok {
		return None, false
	}
	return t.attrs[id].handle, true
}

// Lookup is Get for callers that want an error.
func (r *Registry) Lookup(path string) (Handle, error) {
	canonical := CanonicalPath(path)
	if canonical == "" {
		return None, ErrEmptyPath
	}
	h, ok := r.TryGet(canonical)
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrNotFound, canonical)
	}
	return h, nil
}

// GetByType returns the handle declared by the type-like member with the
// given key, or None with a warning.
func (r *Registry) GetByType(typeKey string) Handle {
	h, ok := r.TryGetByType(typeKey)
	if !ok {
		r.logger.Warn("idstring: type not found", log.String("type", typeKey))
	}
	return h
}

func (r *Registry) TryGetByType(typeKey string) (Handle, bool) {
	t := r.load()
	id, ok := t.byType[typeKey]
	if !ok {
		return None, false
	}
	return t.attrs[id].handle, true
}

// GetByTypeOf is GetByType keyed by TypeKeyOf[T].
func GetByTypeOf[T any](r *Registry) Handle {
	return r.GetByType(TypeKeyOf[T]())
}

// Parse resolves text to a handle. Unknown paths give a missing handle
// that keeps the text; blank text gives None. No warning is logged.
func (r *Registry) Parse(s string) Handle {
	if h, ok := r.TryGet(s); ok {
		return h
	}
	return missingHandle(s)
}

// Resolve re-resolves h by path against the current generation.
func (r *Registry) Resolve(h Handle) Handle {
	if h.path == "" {
		return None
	}
	return r.Parse(h.path)
}

// IsChildOf reports whether parent is the immediate parent of h.
func (r *Registry) IsChildOf(h, parent Handle) bool {
	a := r.attr(h)
	if a == nil || len(a.ancestors) == 0 {
		return false
	}
	return a.ancestors[len(a.ancestors)-1].Equal(parent)
}

// IsDescendantOf reports whether ancestor is a proper ancestor of h.
func (r *Registry) IsDescendantOf(h, ancestor Handle) bool {
	if !ancestor.IsValid() {
		return false
	}
	a := r.attr(h)
	if a == nil {
		return false
	}
	return slices.ContainsFunc(a.ancestors, ancestor.Equal)
}

// Ancestors returns the ancestors of h, root first.
func (r *Registry) Ancestors(h Handle) []Handle {
	if a := r.attr(h); a != nil {
		return slices.Clone(a.ancestors)
	}
	return nil
}

// Parent returns the immediate parent of h, or None for roots.
func (r *Registry) Parent(h Handle) Handle {
	a := r.attr(h)
	if a == nil || len(a.ancestors) == 0 {
		return None
	}
	return a.ancestors[len(a.ancestors)-1]
}

// Children returns the direct children of h in display order.
func (r *Registry) Children(h Handle) []Handle {
	if r.attr(h) == nil || h.id == 0 {
		return nil
	}
	t := r.load()
	return t.handles(t.children[h.id])
}

// Roots returns the top-level identifiers in display order.
func (r *Registry) Roots() []Handle {
	t := r.load()
	return t.handles(t.roots)
}

// Elements returns every identifier in display (id) order.
func (r *Registry) Elements() []Handle {
	t := r.load()
	out := make([]Handle, 0, len(t.attrs)-1)
	for _, a := range t.attrs[1:] {
		out = append(out, a.handle)
	}
	return out
}

func (t *table) handles(ids []int) []Handle {
	out := make([]Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.attrs[id].handle)
	}
	return out
}

// ElementName returns the last segment of h's path.
func (r *Registry) ElementName(h Handle) string {
	if a := r.attr(h); a != nil {
		return a.elementName
	}
	return ""
}

// Depth returns the number of ancestors of h.
func (r *Registry) Depth(h Handle) int {
	if a := r.attr(h); a != nil {
		return a.depth
	}
	return 0
}

func (r *Registry) Description(h Handle) string {
	if a := r.attr(h); a != nil {
		return a.description
	}
	return ""
}

// IsHidden reports whether h or one of its ancestors is hidden.
func (r *Registry) IsHidden(h Handle) bool {
	if a := r.attr(h); a != nil {
		return a.hidden
	}
	return false
}

// Info is a snapshot of everything the registry knows about a handle.
type Info struct {
	Handle      Handle   `json:"-" yaml:"-"`
	Path        string   `json:"path" yaml:"path"`
	ID          int      `json:"id" yaml:"id"`
	ElementName string   `json:"element_name" yaml:"element_name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	TypeKey     string   `json:"type_key,omitempty" yaml:"type_key,omitempty"`
	Depth       int      `json:"depth" yaml:"depth"`
	Order       int      `json:"order" yaml:"order"`
	Hidden      bool     `json:"hidden" yaml:"hidden"`
	Synthesized bool     `json:"synthesized" yaml:"synthesized"`
	Ancestors   []string `json:"ancestors,omitempty" yaml:"ancestors,omitempty"`
}

// Info describes h. ok is false for None, missing and stale handles.
func (r *Registry) Info(h Handle) (info Info, ok bool) {
	if !h.IsValid() {
		return Info{}, false
	}
	a := r.attr(h)
	if a == nil {
		return Info{}, false
	}
	info = Info{
		Handle:      a.handle,
		Path:        a.path,
		ID:          a.handle.id,
		ElementName: a.elementName,
		Description: a.description,
		TypeKey:     a.typeKey,
		Depth:       a.depth,
		Order:       a.order,
		Hidden:      a.hidden,
		Synthesized: a.synthesized(),
	}
	for _, anc := range a.ancestors {
		info.Ancestors = append(info.Ancestors, anc.path)
	}
	return info, true
}
