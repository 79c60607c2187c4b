package idstring

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source answers the hierarchy questions a Set needs. *Registry is the
// production implementation.
type Source interface {
	Generation() uint64
	IsCurrent(h Handle) bool
	Ancestors(h Handle) []Handle
	IsDescendantOf(h, ancestor Handle) bool
	Parse(s string) Handle
}

// ChangeFunc observes Set mutations. added is false for removals.
type ChangeFunc func(h Handle, added bool)

type listener struct {
	id int
	fn ChangeFunc
}

// Set is an ordered collection of handles that also reports membership of
// every ancestor of its elements. Duplicates are allowed.
//
// Counts are rebuilt lazily on the first query after a mutation or a
// source generation change. Elements stale against the source are left out
// of the counts until Refresh. A Set is owned by one goroutine; it is not
// safe for concurrent use.
type Set struct {
	src      Source
	elems    []Handle
	explicit map[int]int
	implicit map[int]int
	dirty    bool
	builtSrc Source
	builtGen uint64

	listeners []listener
	nextID    int
}

// NewSet returns a set resolving hierarchy through src. A nil src falls
// back to Default at query time.
func NewSet(src Source, handles ...Handle) *Set {
	s := &Set{src: src, elems: slices.Clone(handles), dirty: true}
	if reg, ok := src.(*Registry); ok && reg == nil {
		s.src = nil
	}
	return s
}

func (s *Set) source() Source {
	if s.src != nil {
		return s.src
	}
	if reg := Default(); reg != nil {
		return reg
	}
	return nil
}

// OnChange registers fn and returns a function that removes it.
func (s *Set) OnChange(fn ChangeFunc) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.listeners = slices.DeleteFunc(s.listeners, func(l listener) bool { return l.id == id })
	}
}

func (s *Set) changed(h Handle, added bool) {
	s.dirty = true
	for _, l := range slices.Clone(s.listeners) {
		l.fn(h, added)
	}
}

func (s *Set) rebuild() {
	src := s.source()
	var gen uint64
	if src != nil {
		gen = src.Generation()
	}
	if !s.dirty && s.explicit != nil && src == s.builtSrc && gen == s.builtGen {
		return
	}
	s.explicit = make(map[int]int, len(s.elems))
	s.implicit = make(map[int]int)
	for _, h := range s.elems {
		if !h.IsValid() || (src != nil && !src.IsCurrent(h)) {
			continue
		}
		s.explicit[h.id]++
		if src == nil {
			continue
		}
		for _, a := range src.Ancestors(h) {
			s.implicit[a.id]++
		}
	}
	s.dirty = false
	s.builtSrc, s.builtGen = src, gen
}

// Len returns the number of elements, duplicates included.
func (s *Set) Len() int { return len(s.elems) }

// Add appends h.
func (s *Set) Add(h Handle) {
	s.elems = append(s.elems, h)
	s.changed(h, true)
}

// AddUnique appends h unless an equal element is present.
func (s *Set) AddUnique(h Handle) bool {
	if s.Contains(h) {
		return false
	}
	s.Add(h)
	return true
}

// AddFirst prepends h.
func (s *Set) AddFirst(h Handle) { s.Insert(0, h) }

// AddFirstUnique prepends h unless an equal element is present.
func (s *Set) AddFirstUnique(h Handle) bool { return s.InsertUnique(0, h) }

// Insert places h at index, clamped to [0, Len].
func (s *Set) Insert(index int, h Handle) {
	index = max(0, min(index, len(s.elems)))
	s.elems = slices.Insert(s.elems, index, h)
	s.changed(h, true)
}

// InsertUnique is Insert unless an equal element is present.
func (s *Set) InsertUnique(index int, h Handle) bool {
	if s.Contains(h) {
		return false
	}
	s.Insert(index, h)
	return true
}

// Remove deletes the first occurrence of h.
func (s *Set) Remove(h Handle) bool {
	i := s.IndexOf(h)
	if i < 0 {
		return false
	}
	s.RemoveAt(i)
	return true
}

// RemoveFirst deletes up to count leading occurrences of h and returns how
// many were removed.
func (s *Set) RemoveFirst(h Handle, count int) int {
	n := 0
	for n < count && s.Remove(h) {
		n++
	}
	return n
}

// RemoveLast deletes the last occurrence of h.
func (s *Set) RemoveLast(h Handle) bool {
	i := s.LastIndexOf(h)
	if i < 0 {
		return false
	}
	s.RemoveAt(i)
	return true
}

// RemoveLastN deletes up to count trailing occurrences of h.
func (s *Set) RemoveLastN(h Handle, count int) int {
	n := 0
	for n < count && s.RemoveLast(h) {
		n++
	}
	return n
}

// RemoveAt deletes and returns the element at index. ok is false when
// index is out of range.
func (s *Set) RemoveAt(index int) (h Handle, ok bool) {
	if index < 0 || index >= len(s.elems) {
		return None, false
	}
	h = s.elems[index]
	s.elems = slices.Delete(s.elems, index, index+1)
	s.changed(h, false)
	return h, true
}

// RemoveAll deletes every occurrence of h.
func (s *Set) RemoveAll(h Handle) int {
	n := 0
	for i := len(s.elems) - 1; i >= 0; i-- {
		if s.elems[i].Equal(h) {
			s.RemoveAt(i)
			n++
		}
	}
	return n
}

// Clear removes every element, notifying once per element in order.
func (s *Set) Clear() {
	old := s.elems
	for _, h := range old {
		s.changed(h, false)
	}
	s.elems = nil
	s.dirty = true
}

// AddLeafElement keeps only the most specific entries of each lineage. h
// is rejected when it equals or descends from an element; elements that
// descend from h are removed before h is appended.
func (s *Set) AddLeafElement(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	src := s.source()
	for _, e := range s.elems {
		if e.Equal(h) || (src != nil && src.IsDescendantOf(h, e)) {
			return false
		}
	}
	if src != nil {
		for i := len(s.elems) - 1; i >= 0; i-- {
			if src.IsDescendantOf(s.elems[i], h) {
				s.RemoveAt(i)
			}
		}
	}
	s.Add(h)
	return true
}

// Has reports whether h is an element or an ancestor of one.
func (s *Set) Has(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	s.rebuild()
	return s.explicit[h.id] > 0 || s.implicit[h.id] > 0
}

// HasExact reports whether h is an element.
func (s *Set) HasExact(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	s.rebuild()
	return s.explicit[h.id] > 0
}

// HasAny reports whether s Has some element of other.
func (s *Set) HasAny(other *Set) bool {
	return other != nil && slices.ContainsFunc(other.elems, s.Has)
}

// HasAnyExact reports whether s HasExact some element of other.
func (s *Set) HasAnyExact(other *Set) bool {
	return other != nil && slices.ContainsFunc(other.elems, s.HasExact)
}

// HasAll reports whether s Has every element of other. An empty other is
// always contained.
func (s *Set) HasAll(other *Set) bool {
	if other == nil {
		return true
	}
	for _, h := range other.elems {
		if !s.Has(h) {
			return false
		}
	}
	return true
}

// HasAllExact reports whether s HasExact every element of other.
func (s *Set) HasAllExact(other *Set) bool {
	if other == nil {
		return true
	}
	for _, h := range other.elems {
		if !s.HasExact(h) {
			return false
		}
	}
	return true
}

// Contains reports whether an equal element is present, without counting
// ancestors.
func (s *Set) Contains(h Handle) bool { return s.IndexOf(h) >= 0 }

func (s *Set) IndexOf(h Handle) int {
	return slices.IndexFunc(s.elems, h.Equal)
}

func (s *Set) LastIndexOf(h Handle) int {
	for i := len(s.elems) - 1; i >= 0; i-- {
		if s.elems[i].Equal(h) {
			return i
		}
	}
	return -1
}

// Get returns the element at index. It panics when index is out of range.
func (s *Set) Get(index int) Handle {
	s.checkIndex(index)
	return s.elems[index]
}

// Set replaces the element at index, notifying the removal of the old
// value and then the addition of h. It panics when index is out of range.
func (s *Set) Set(index int, h Handle) {
	s.checkIndex(index)
	old := s.elems[index]
	s.elems[index] = h
	s.changed(old, false)
	s.changed(h, true)
}

// At is Get with an error instead of a panic.
func (s *Set) At(index int) (Handle, error) {
	if index < 0 || index >= len(s.elems) {
		return None, fmt.Errorf("%w: %d, len %d", ErrIndexOutOfRange, index, len(s.elems))
	}
	return s.elems[index], nil
}

// SetAt is Set with an error instead of a panic.
func (s *Set) SetAt(index int, h Handle) error {
	if index < 0 || index >= len(s.elems) {
		return fmt.Errorf("%w: %d, len %d", ErrIndexOutOfRange, index, len(s.elems))
	}
	s.Set(index, h)
	return nil
}

func (s *Set) checkIndex(index int) {
	if index < 0 || index >= len(s.elems) {
		panic(fmt.Errorf("%w: %d, len %d", ErrIndexOutOfRange, index, len(s.elems)))
	}
}

// First returns the first element.
func (s *Set) First() (Handle, bool) {
	if len(s.elems) == 0 {
		return None, false
	}
	return s.elems[0], true
}

// Last returns the last element.
func (s *Set) Last() (Handle, bool) {
	if len(s.elems) == 0 {
		return None, false
	}
	return s.elems[len(s.elems)-1], true
}

// Elements returns a copy of the elements in order.
func (s *Set) Elements() []Handle { return slices.Clone(s.elems) }

// All yields index and element pairs. Mutating s while ranging is
// undefined.
func (s *Set) All() iter.Seq2[int, Handle] {
	return slices.All(s.elems)
}

// Paths returns the full path of every element.
func (s *Set) Paths() []string {
	out := make([]string, len(s.elems))
	for i, h := range s.elems {
		out[i] = h.path
	}
	return out
}

// Clone copies the elements and source. Listeners are not copied.
func (s *Set) Clone() *Set {
	return &Set{src: s.src, elems: slices.Clone(s.elems), dirty: true}
}

// Refresh re-resolves every element by path, for use after a registry
// reload. Elements that no longer exist become missing handles.
func (s *Set) Refresh() {
	src := s.source()
	if src == nil {
		return
	}
	for i, h := range s.elems {
		if h.path != "" {
			s.elems[i] = src.Parse(h.path)
		}
	}
	s.dirty = true
}

// Missing returns the elements whose path did not resolve.
func (s *Set) Missing() []Handle {
	var out []Handle
	for _, h := range s.elems {
		if h.IsMissing() {
			out = append(out, h)
		}
	}
	return out
}

func (s *Set) String() string {
	return "[" + strings.Join(s.Paths(), ", ") + "]"
}

// Load replaces the elements with the parsed paths. Listeners see a
// removal for every old element, then an addition for every new one.
func (s *Set) Load(paths []string) {
	src := s.source()
	elems := make([]Handle, 0, len(paths))
	for _, p := range paths {
		var h Handle
		if src != nil {
			h = src.Parse(p)
		} else {
			h = missingHandle(p)
		}
		if h.IsNone() {
			continue
		}
		elems = append(elems, h)
	}
	s.Clear()
	for _, h := range elems {
		s.Add(h)
	}
}

// MarshalJSON encodes the set as a list of full paths.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Paths())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return fmt.Errorf("idstring: decode set: %w", err)
	}
	s.Load(paths)
	return nil
}

func (s *Set) MarshalYAML() (any, error) {
	return s.Paths(), nil
}

func (s *Set) UnmarshalYAML(value *yaml.Node) error {
	var paths []string
	if err := value.Decode(&paths); err != nil {
		return fmt.Errorf("idstring: decode set: %w", err)
	}
	s.Load(paths)
	return nil
}
