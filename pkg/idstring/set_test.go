package idstring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type change struct {
	path  string
	added bool
}

func recordChanges(s *Set) (*[]change, func()) {
	var got []change
	cancel := s.OnChange(func(h Handle, added bool) {
		got = append(got, change{h.Path(), added})
	})
	return &got, cancel
}

func tagRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.DeclarePaths("Parent.Child", "A.B", "A.B.C1", "A.B.C2", "A.D", "Solo")
	r.Initialize()
	return r
}

func TestSetHasAndHasExact(t *testing.T) {
	r := tagRegistry(t)
	parent, child := r.Get("Parent"), r.Get("Parent.Child")

	s := NewSet(r, child)
	assert.True(t, s.Has(parent))
	assert.False(t, s.HasExact(parent))
	assert.True(t, s.HasExact(child))

	require.True(t, s.Remove(child))
	assert.False(t, s.Has(parent))
	assert.False(t, s.HasExact(parent))
	assert.False(t, s.Has(child))
}

func TestSetHasIgnoresNone(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Parse("Gone.Away"))
	assert.False(t, s.Has(None))
	assert.False(t, s.HasExact(None))
	assert.Len(t, s.Missing(), 1)
}

func TestSetAddLeafElement(t *testing.T) {
	r := tagRegistry(t)
	ab, c1, c2 := r.Get("A.B"), r.Get("A.B.C1"), r.Get("A.B.C2")

	t.Run("ancestor evicts descendants", func(t *testing.T) {
		s := NewSet(r)
		assert.True(t, s.AddLeafElement(c1))
		assert.True(t, s.AddLeafElement(c2))
		assert.True(t, s.AddLeafElement(ab))
		assert.Equal(t, []Handle{ab}, s.Elements())
	})

	t.Run("descendant is rejected", func(t *testing.T) {
		s := NewSet(r)
		assert.True(t, s.AddLeafElement(ab))
		assert.False(t, s.AddLeafElement(c1))
		assert.Equal(t, []Handle{ab}, s.Elements())
	})

	t.Run("equal and unrelated", func(t *testing.T) {
		s := NewSet(r, c1)
		assert.False(t, s.AddLeafElement(c1))
		assert.True(t, s.AddLeafElement(c2))
		assert.True(t, s.AddLeafElement(r.Get("Solo")))
		assert.False(t, s.AddLeafElement(None))
		assert.Equal(t, 3, s.Len())
	})

	t.Run("eviction notifies", func(t *testing.T) {
		s := NewSet(r, c1, r.Get("A.D"))
		got, _ := recordChanges(s)
		assert.True(t, s.AddLeafElement(r.Get("A")))
		assert.Equal(t, []change{{"A.D", false}, {"A.B.C1", false}, {"A", true}}, *got)
	})
}

func TestSetChangeNotifications(t *testing.T) {
	r := tagRegistry(t)
	ab, solo := r.Get("A.B"), r.Get("Solo")

	s := NewSet(r)
	got, cancel := recordChanges(s)

	s.Add(ab)
	s.AddFirst(solo)
	s.Set(1, solo)
	assert.True(t, s.Remove(solo))
	s.Add(ab)
	s.Clear()

	assert.Equal(t, []change{
		{"A.B", true},
		{"Solo", true},
		{"A.B", false},
		{"Solo", true},
		{"Solo", false},
		{"A.B", true},
		{"Solo", false},
		{"A.B", false},
	}, *got)
	assert.Zero(t, s.Len())

	cancel()
	s.Add(ab)
	assert.Len(t, *got, 8)
}

func TestSetPositionalOps(t *testing.T) {
	r := tagRegistry(t)
	a, b, c := r.Get("A"), r.Get("A.B"), r.Get("Solo")

	s := NewSet(r, a, b, a, c, a)
	assert.Equal(t, 0, s.IndexOf(a))
	assert.Equal(t, 4, s.LastIndexOf(a))

	assert.True(t, s.RemoveLast(a))
	assert.Equal(t, []Handle{a, b, a, c}, s.Elements())
	assert.Equal(t, 1, s.RemoveFirst(a, 1))
	assert.Equal(t, []Handle{b, a, c}, s.Elements())

	s.Insert(1, c)
	s.Add(c)
	assert.Equal(t, 2, s.RemoveLastN(c, 2))
	assert.Equal(t, []Handle{b, c, a}, s.Elements())

	assert.False(t, s.AddUnique(a))
	assert.False(t, s.AddFirstUnique(b))
	assert.False(t, s.InsertUnique(1, c))
	assert.True(t, s.AddFirstUnique(r.Get("A.D")))

	first, ok := s.First()
	require.True(t, ok)
	assert.Equal(t, r.Get("A.D"), first)
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, a, last)

	removed, ok := s.RemoveAt(1)
	require.True(t, ok)
	assert.Equal(t, b, removed)
	s.Add(a)
	assert.Equal(t, 2, s.RemoveAll(a))
	assert.False(t, s.HasExact(a))
	assert.Equal(t, []string{"A.D", "Solo"}, s.Paths())
	assert.Equal(t, "[A.D, Solo]", s.String())
}

func TestSetIndexBounds(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("Solo"))

	assert.Equal(t, r.Get("Solo"), s.Get(0))
	assert.Panics(t, func() { s.Get(1) })
	assert.Panics(t, func() { s.Set(-1, None) })

	_, err := s.At(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetAt(5, None), ErrIndexOutOfRange)
	require.NoError(t, s.SetAt(0, r.Get("A")))
	h, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, r.Get("A"), h)

	events, _ := recordChanges(s)
	_, ok := s.RemoveAt(3)
	assert.False(t, ok)
	_, ok = s.RemoveAt(-1)
	assert.False(t, ok)
	assert.Empty(t, *events, "failed removal does not notify")

	s.Insert(5, r.Get("A.D"))
	s.Insert(-2, r.Get("A.B"))
	assert.Equal(t, []string{"A.B", "A", "A.D"}, s.Paths(), "insert clamps the index")
	assert.Len(t, *events, 2)

	empty := NewSet(r)
	_, ok = empty.First()
	assert.False(t, ok)
}

func TestSetAnyAll(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("A.B.C1"))

	assert.True(t, s.HasAny(NewSet(r, r.Get("Solo"), r.Get("A"))))
	assert.False(t, s.HasAnyExact(NewSet(r, r.Get("Solo"), r.Get("A"))))
	assert.True(t, s.HasAnyExact(NewSet(r, r.Get("A.B.C1"))))
	assert.False(t, s.HasAny(NewSet(r)))
	assert.True(t, s.HasAll(NewSet(r)))
	assert.True(t, s.HasAll(NewSet(r, r.Get("A"), r.Get("A.B"))))
	assert.False(t, s.HasAll(NewSet(r, r.Get("A"), r.Get("Solo"))))
}

func TestSetDuplicatesCount(t *testing.T) {
	r := tagRegistry(t)
	c1 := r.Get("A.B.C1")
	s := NewSet(r, c1, c1)

	assert.True(t, s.Remove(c1))
	assert.True(t, s.Has(r.Get("A")), "one occurrence left")
	assert.True(t, s.Remove(c1))
	assert.False(t, s.Has(r.Get("A")))
}

func TestSetCloneIsIndependent(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("Solo"))
	got, _ := recordChanges(s)

	c := s.Clone()
	c.Add(r.Get("A"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
	assert.Empty(t, *got)
}

func TestSetAllIterates(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("A"), r.Get("Solo"))

	var paths []string
	for i, h := range s.All() {
		assert.Equal(t, s.Get(i), h)
		paths = append(paths, h.Path())
	}
	assert.Equal(t, []string{"A", "Solo"}, paths)
}

func TestSetMarshal(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("A.B.C1"), r.Get("Solo"))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["A.B.C1","Solo"]`, string(data))

	back := NewSet(r)
	require.NoError(t, json.Unmarshal([]byte(`["A.B.C1"," Solo ","Removed.Tag",""]`), back))
	assert.Equal(t, 3, back.Len())
	assert.True(t, back.Has(r.Get("A.B")))
	assert.Equal(t, []string{"Removed.Tag"}, pathsOf(back.Missing()))

	ydata, err := yaml.Marshal(s)
	require.NoError(t, err)
	yback := NewSet(r)
	require.NoError(t, yaml.Unmarshal(ydata, yback))
	assert.Equal(t, s.Elements(), yback.Elements())
}

func TestSetDecodeNotifies(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("Solo"))
	events, _ := recordChanges(s)

	require.NoError(t, yaml.Unmarshal([]byte("[A.D, Gone]"), s))
	assert.Equal(t, []change{
		{"Solo", false},
		{"A.D", true},
		{"Gone", true},
	}, *events)

	*events = nil
	require.NoError(t, json.Unmarshal([]byte(`[]`), s))
	assert.Equal(t, []change{{"A.D", false}, {"Gone", false}}, *events)
	assert.Zero(t, s.Len())
}

func TestSetRefreshAfterReload(t *testing.T) {
	r := tagRegistry(t)
	s := NewSet(r, r.Get("A.B.C1"))

	r.Replace(Declarations{Defines: []Define{{Name: "Other"}, {Name: "A.B.C1"}}})
	r.Reload()
	s.Refresh()

	assert.True(t, s.HasExact(r.Get("A.B.C1")))
	assert.True(t, s.Has(r.Get("A")))
}

func TestSetIgnoresStaleElements(t *testing.T) {
	logger, logs := observed()
	r := NewRegistry(WithLogger(logger))
	r.DeclarePaths("A")
	r.Initialize()
	a := r.Get("A")
	s := NewSet(r, a)
	require.True(t, s.HasExact(a))

	r.Replace(Declarations{Defines: []Define{{Name: "B.C"}}})
	r.Reload()
	b := r.Get("B")
	require.Equal(t, a.ID(), b.ID(), "B reuses the id of A")
	logs.TakeAll()

	assert.False(t, s.HasExact(b))
	assert.False(t, s.Has(b))
	assert.False(t, s.Has(r.Get("B.C")))
	assert.NotZero(t, logs.FilterMessage("idstring: stale handle id").Len())
	assert.Equal(t, 1, s.Len(), "stale elements stay until Refresh")

	s.Refresh()
	assert.False(t, s.Has(b))
	require.Len(t, s.Missing(), 1)
	assert.Equal(t, "A", s.Missing()[0].Path())
}

func TestSetWithoutSource(t *testing.T) {
	useDefault(t, nil)
	r := tagRegistry(t)
	c1 := r.Get("A.B.C1")

	s := NewSet(nil, c1)
	assert.True(t, s.HasExact(c1))
	assert.False(t, s.Has(r.Get("A")), "no source, no implicit membership")

	useDefault(t, r)
	s.Add(r.Get("Solo"))
	assert.True(t, s.Has(r.Get("A")), "falls back to the default registry")
}
