// Package hierarchy provides an arena-allocated forest of ordered trees.
//
// Nodes live in one flat slice owned by the Forest and refer to each other
// by index, so a node never owns its children and no pointer cycles exist.
// A Forest is not safe for concurrent mutation.
package hierarchy

import (
	"iter"
	"slices"

	"github.com/zeusync/idstring/internal/core/observability/log"
)

// ID addresses a node inside its Forest.
type ID int

// None is the parent of every root.
const None ID = -1

// DefaultMaxWalk bounds every walk towards the root. Exceeding it means a
// cycle was introduced by misuse of SetParent.
const DefaultMaxWalk = 1 << 20

type node[T any] struct {
	value    T
	parent   ID
	children []ID
	depth    int
	dirty    bool
}

// Forest is a set of ordered trees whose nodes carry a value of type T.
type Forest[T any] struct {
	nodes   []node[T]
	roots   []ID
	maxWalk int
	logger  log.Log
}

type Option func(*options)

type options struct {
	maxWalk int
	logger  log.Log
}

// WithLogger sets the logger used for structural errors.
func WithLogger(l log.Log) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxWalk overrides DefaultMaxWalk.
func WithMaxWalk(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWalk = n
		}
	}
}

// New returns an empty forest.
func New[T any](opts ...Option) *Forest[T] {
	o := options{maxWalk: DefaultMaxWalk, logger: log.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Forest[T]{maxWalk: o.maxWalk, logger: o.logger}
}

// Add appends a new root node holding value and returns its ID.
func (f *Forest[T]) Add(value T) ID {
	id := ID(len(f.nodes))
	f.nodes = append(f.nodes, node[T]{value: value, parent: None})
	f.roots = append(f.roots, id)
	return id
}

// Len returns the number of nodes ever added.
func (f *Forest[T]) Len() int { return len(f.nodes) }

// Valid reports whether id addresses a node of this forest.
func (f *Forest[T]) Valid(id ID) bool { return id >= 0 && int(id) < len(f.nodes) }

// Value returns the value stored at id, or the zero value for an invalid id.
func (f *Forest[T]) Value(id ID) T {
	if !f.Valid(id) {
		var zero T
		return zero
	}
	return f.nodes[id].value
}

// Parent returns the parent of id, or None.
func (f *Forest[T]) Parent(id ID) ID {
	if !f.Valid(id) {
		return None
	}
	return f.nodes[id].parent
}

// Roots returns the root nodes in their current order.
func (f *Forest[T]) Roots() []ID { return slices.Clone(f.roots) }

// Children returns the ordered children of id.
func (f *Forest[T]) Children(id ID) []ID {
	if !f.Valid(id) {
		return nil
	}
	return slices.Clone(f.nodes[id].children)
}

// ChildCount returns the number of direct children of id.
func (f *Forest[T]) ChildCount(id ID) int {
	if !f.Valid(id) {
		return 0
	}
	return len(f.nodes[id].children)
}

// Child returns the index-th child of id.
func (f *Forest[T]) Child(id ID, index int) (ID, bool) {
	if !f.Valid(id) {
		return None, false
	}
	ch := f.nodes[id].children
	if index < 0 || index >= len(ch) {
		return None, false
	}
	return ch[index], true
}

// ChildIndex returns the position of child under parent, or -1.
func (f *Forest[T]) ChildIndex(parent, child ID) int {
	return slices.Index(f.siblings(parent), child)
}

// IndexInParent returns the position of id among its siblings (roots
// included), or -1 for an invalid id.
func (f *Forest[T]) IndexInParent(id ID) int {
	if !f.Valid(id) {
		return -1
	}
	return slices.Index(f.siblings(f.nodes[id].parent), id)
}

// SetParent detaches id from its current parent and inserts it under parent
// at the clamped index. parent None turns id into a root. It returns false
// for invalid ids, self-parenting or when parent already lists id. Cycles
// are not detected here.
func (f *Forest[T]) SetParent(id, parent ID, index int) bool {
	if !f.Valid(id) || (parent != None && !f.Valid(parent)) {
		f.logger.Warn("hierarchy: set parent on invalid node",
			log.Int("node", int(id)), log.Int("parent", int(parent)))
		return false
	}
	if id == parent {
		f.logger.Warn("hierarchy: node cannot be its own parent", log.Int("node", int(id)))
		return false
	}

	current := f.nodes[id].parent
	if current == parent {
		return f.SetChildIndex(parent, id, index)
	}

	f.detach(id)
	if !f.insert(parent, id, index) {
		// keep the node reachable as a root
		if !slices.Contains(f.roots, id) {
			f.roots = append(f.roots, id)
		}
		f.nodes[id].parent = None
		f.markDirty(id)
		f.logger.Warn("hierarchy: insert child failed",
			log.Int("node", int(id)), log.Int("parent", int(parent)))
		return false
	}
	f.nodes[id].parent = parent
	f.markDirty(id)
	return true
}

// AddChild appends child as the last child of parent.
func (f *Forest[T]) AddChild(parent, child ID) bool {
	return f.SetParent(child, parent, f.ChildCount(parent))
}

// RemoveChild turns child into a root if parent currently owns it.
func (f *Forest[T]) RemoveChild(parent, child ID) bool {
	if f.ChildIndex(parent, child) < 0 {
		f.logger.Warn("hierarchy: remove child not found",
			log.Int("node", int(child)), log.Int("parent", int(parent)))
		return false
	}
	return f.SetParent(child, None, len(f.roots))
}

// SetChildIndex moves child to index among the children of parent (or
// among the roots when parent is None).
func (f *Forest[T]) SetChildIndex(parent, child ID, index int) bool {
	list := f.siblings(parent)
	at := slices.Index(list, child)
	if at < 0 {
		f.logger.Error("hierarchy: set child index, child not found",
			log.Int("node", int(child)), log.Int("parent", int(parent)))
		return false
	}
	list = slices.Delete(list, at, at+1)
	list = slices.Insert(list, clamp(index, len(list)), child)
	f.setSiblings(parent, list)
	return true
}

// SortChildren stably sorts the children of id by their values.
func (f *Forest[T]) SortChildren(id ID, cmp func(a, b T) int) {
	if !f.Valid(id) || cmp == nil {
		return
	}
	f.sortIDs(f.nodes[id].children, cmp)
}

// SortRoots stably sorts the root list by value.
func (f *Forest[T]) SortRoots(cmp func(a, b T) int) {
	if cmp == nil {
		return
	}
	f.sortIDs(f.roots, cmp)
}

func (f *Forest[T]) sortIDs(ids []ID, cmp func(a, b T) int) {
	slices.SortStableFunc(ids, func(a, b ID) int {
		return cmp(f.nodes[a].value, f.nodes[b].value)
	})
}

// Root walks up from id. It returns None and logs an error when the walk
// exceeds the iteration cap.
func (f *Forest[T]) Root(id ID) ID {
	if !f.Valid(id) {
		return None
	}
	current := id
	for ct := 0; f.nodes[current].parent != None; ct++ {
		if ct >= f.maxWalk {
			f.logger.Error("hierarchy: root walk limit exceeded", log.Int("node", int(id)))
			return None
		}
		current = f.nodes[current].parent
	}
	return current
}

// Ancestors returns the ancestors of id, root first. The result is partial
// if the walk hits the iteration cap.
func (f *Forest[T]) Ancestors(id ID) []ID {
	if !f.Valid(id) {
		return nil
	}
	var out []ID
	for p, ct := f.nodes[id].parent, 0; p != None; p, ct = f.nodes[p].parent, ct+1 {
		if ct >= f.maxWalk {
			f.logger.Error("hierarchy: ancestor walk limit exceeded", log.Int("node", int(id)))
			break
		}
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// IsDescendant reports whether candidate is id itself or lies below it.
func (f *Forest[T]) IsDescendant(id, candidate ID) bool {
	if !f.Valid(id) || !f.Valid(candidate) {
		return false
	}
	current := candidate
	for ct := 0; current != None; ct++ {
		if current == id {
			return true
		}
		if ct >= f.maxWalk {
			f.logger.Error("hierarchy: descendant walk limit exceeded",
				log.Int("node", int(id)), log.Int("candidate", int(candidate)))
			return false
		}
		current = f.nodes[current].parent
	}
	return false
}

// Depth returns the number of ancestors of id. Depths are memoized and
// recomputed from the root of a tree whose structure changed.
func (f *Forest[T]) Depth(id ID) int {
	if !f.Valid(id) {
		return 0
	}
	if f.nodes[id].dirty {
		root := f.Root(id)
		if root == None {
			return f.nodes[id].depth
		}
		f.updateDepth(root)
	}
	return f.nodes[id].depth
}

// MarkDirty invalidates memoized depths below id, for callers that relink
// nodes outside SetParent.
func (f *Forest[T]) MarkDirty(id ID) {
	if f.Valid(id) {
		f.markDirty(id)
	}
}

// Descendants yields id followed by every node below it in pre-order.
// Mutating the forest during iteration is undefined.
func (f *Forest[T]) Descendants(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		if !f.Valid(id) {
			return
		}
		stack := []ID{id}
		for visited := 0; len(stack) > 0 && visited <= len(f.nodes); visited++ {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			ch := f.nodes[n].children
			for i := len(ch) - 1; i >= 0; i-- {
				stack = append(stack, ch[i])
			}
		}
	}
}

// All yields every node of every tree in root order, pre-order.
func (f *Forest[T]) All() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for _, r := range f.roots {
			for id := range f.Descendants(r) {
				if !yield(id) {
					return
				}
			}
		}
	}
}

func (f *Forest[T]) updateDepth(root ID) {
	type item struct {
		id    ID
		depth int
	}
	stack := []item{{root, 0}}
	for visited := 0; len(stack) > 0; visited++ {
		if visited > len(f.nodes) {
			f.logger.Error("hierarchy: depth update visited more nodes than exist", log.Int("root", int(root)))
			return
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &f.nodes[it.id]
		n.depth = it.depth
		n.dirty = false
		for _, c := range n.children {
			stack = append(stack, item{c, it.depth + 1})
		}
	}
}

func (f *Forest[T]) markDirty(id ID) {
	for n := range f.Descendants(id) {
		f.nodes[n].dirty = true
	}
}

func (f *Forest[T]) detach(id ID) {
	parent := f.nodes[id].parent
	list := f.siblings(parent)
	if at := slices.Index(list, id); at >= 0 {
		f.setSiblings(parent, slices.Delete(list, at, at+1))
	}
	f.nodes[id].parent = None
}

func (f *Forest[T]) insert(parent, id ID, index int) bool {
	list := f.siblings(parent)
	if slices.Contains(list, id) {
		return false
	}
	f.setSiblings(parent, slices.Insert(list, clamp(index, len(list)), id))
	return true
}

func (f *Forest[T]) siblings(parent ID) []ID {
	if parent == None {
		return f.roots
	}
	if !f.Valid(parent) {
		return nil
	}
	return f.nodes[parent].children
}

func (f *Forest[T]) setSiblings(parent ID, list []ID) {
	if parent == None {
		f.roots = list
		return
	}
	f.nodes[parent].children = list
}

func clamp(index, n int) int {
	return max(0, min(index, n))
}
