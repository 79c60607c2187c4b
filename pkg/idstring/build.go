package idstring

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/hierarchy"
)

// attrData is the registry-side record of one identifier.
type attrData struct {
	define      *Define // nil for synthesized parents
	path        string
	elementName string
	parentPath  string
	typeKey     string
	description string
	hide        bool
	order       int
	defineOrder int
	slots       []Slot

	node      hierarchy.ID
	handle    Handle
	ancestors []Handle // root first
	hidden    bool     // own flag or any ancestor's
	depth     int
}

func (a *attrData) synthesized() bool { return a.define == nil }

func compareAttr(a, b *attrData) int {
	if c := cmp.Compare(a.order, b.order); c != 0 {
		return c
	}
	return cmp.Compare(a.defineOrder, b.defineOrder)
}

// table is one immutable registry generation. attrs[id] is the record of
// id; attrs[0] is the none sentinel.
type table struct {
	generation  uint64
	attrs       []*attrData
	byPath      map[string]int
	byType      map[string]int
	roots       []int
	children    [][]int
	fingerprint uint64
}

func emptyTable() *table {
	return &table{
		attrs:    []*attrData{{node: hierarchy.None}},
		byPath:   map[string]int{},
		byType:   map[string]int{},
		children: [][]int{nil},
	}
}

// memberContext carries what a member inherits from its enclosing members.
// local is the enclosing path without its namespace.
type memberContext struct {
	local     string
	namespace string
	nsPolicy  NamespacePolicy
	parent    ParentPolicy
}

type builder struct {
	logger    log.Log
	forest    *hierarchy.Forest[*attrData]
	byPath    map[string]*attrData
	list      []*attrData
	typeKeys  map[string]*attrData
	nextOrder int
}

func newBuilder(logger log.Log, maxWalk int) *builder {
	return &builder{
		logger:   logger,
		forest:   hierarchy.New[*attrData](hierarchy.WithLogger(logger), hierarchy.WithMaxWalk(maxWalk)),
		byPath:   make(map[string]*attrData),
		typeKeys: make(map[string]*attrData),
	}
}

// build runs the full initialization over d and returns the new generation.
func (b *builder) build(d Declarations, generation uint64) *table {
	for i := range d.Defines {
		def := d.Defines[i]
		b.declare(def.Name, &def, "", nil)
	}
	for _, m := range d.Members {
		b.walk(m, memberContext{})
	}
	b.link()
	b.sort()
	return b.assign(generation)
}

// declare registers one canonical path. The first declaration of a path
// wins; later sites only add their slot.
func (b *builder) declare(name string, def *Define, typeKey string, slot Slot) *attrData {
	path := CanonicalPath(name)
	if path == "" {
		b.logger.Warn("idstring: empty declared name skipped", log.String("name", name))
		return nil
	}
	if a, ok := b.byPath[path]; ok {
		b.logger.Debug("idstring: duplicate declaration", log.String("path", path))
		if slot != nil {
			a.slots = append(a.slots, slot)
		}
		if typeKey != "" {
			b.indexType(typeKey, a)
		}
		return a
	}

	a := &attrData{define: def, path: path, defineOrder: b.nextOrder}
	b.nextOrder++
	a.parentPath, a.elementName = SplitParent(path)
	if def != nil {
		a.description = def.Description
		a.hide = def.Hide
		a.order = def.Order
		if def.NonHierarchical {
			a.parentPath, a.elementName = "", path
		}
	}
	if slot != nil {
		a.slots = append(a.slots, slot)
	}
	b.add(a)
	if typeKey != "" {
		b.indexType(typeKey, a)
	}
	return a
}

func (b *builder) add(a *attrData) {
	a.node = b.forest.Add(a)
	b.byPath[a.path] = a
	b.list = append(b.list, a)
}

func (b *builder) indexType(key string, a *attrData) {
	if prev, ok := b.typeKeys[key]; ok && prev != a {
		b.logger.Warn("idstring: type key declared twice",
			log.String("type", key), log.String("path", prev.path), log.String("ignored", a.path))
		return
	}
	b.typeKeys[key] = a
	if a.typeKey == "" {
		a.typeKey = key
	}
}

func (b *builder) walk(m Member, ctx memberContext) {
	if m.Kind == KindType && strings.Contains(m.TypeKey, "[") {
		b.logger.Error("idstring: generic type cannot declare identifiers",
			log.String("type", m.TypeKey), log.String("member", m.Name))
		return
	}
	if m.Namespace != "" {
		ctx.namespace = m.Namespace
	}
	if m.Define == nil {
		if m.Slot != nil {
			b.logger.Warn("idstring: slot without definition ignored", log.String("member", m.Name))
		}
		for _, child := range m.Members {
			b.walk(child, ctx)
		}
		return
	}

	def := m.Define
	if def.Namespace != NamespaceInherit {
		ctx.nsPolicy = def.Namespace
	}
	if def.ParentPath != ParentInherit {
		ctx.parent = def.ParentPath
	}
	name := def.Name
	if name == "" {
		name = m.Name
	}
	name = CanonicalPath(name)
	if name == "" {
		b.logger.Warn("idstring: member without name skipped", log.String("type", m.TypeKey))
		return
	}
	if m.Kind == KindValue && m.Slot == nil {
		b.logger.Warn("idstring: value member without slot skipped", log.String("member", name))
		return
	}

	local := name
	if resolveParent(ctx.parent) == ParentInclude && ctx.local != "" {
		local = JoinPath(ctx.local, name)
	}
	path := local
	if resolveNamespace(ctx.nsPolicy) == NamespaceInclude && ctx.namespace != "" {
		path = JoinPath(CanonicalPath(ctx.namespace), local)
	}

	typeKey := ""
	if m.Kind == KindType {
		typeKey = m.TypeKey
	}
	a := b.declare(path, def, typeKey, m.Slot)
	if a == nil || m.Kind != KindType {
		return
	}
	ctx.local = local
	for _, child := range m.Members {
		b.walk(child, ctx)
	}
}

func resolveNamespace(p NamespacePolicy) NamespacePolicy {
	if p == NamespaceInherit {
		return DefaultNamespacePolicy
	}
	return p
}

func resolveParent(p ParentPolicy) ParentPolicy {
	if p == ParentInherit {
		return DefaultParentPolicy
	}
	return p
}

// link attaches every record to its parent, synthesizing missing parents.
// Synthesized records are appended to the list and linked in turn.
func (b *builder) link() {
	checked := make(map[*attrData]struct{}, len(b.list))
	for i := 0; i < len(b.list); i++ {
		b.linkParent(b.list[i], checked)
	}
}

func (b *builder) linkParent(a *attrData, checked map[*attrData]struct{}) {
	if _, ok := checked[a]; ok {
		return
	}
	checked[a] = struct{}{}
	if a.parentPath == "" {
		return
	}
	parent, ok := b.byPath[a.parentPath]
	if !ok {
		parent = &attrData{path: a.parentPath, defineOrder: a.defineOrder}
		parent.parentPath, parent.elementName = SplitParent(parent.path)
		b.add(parent)
		b.logger.Debug("idstring: synthesized parent", log.String("path", parent.path),
			log.String("child", a.path))
	}
	b.forest.AddChild(parent.node, a.node)
	b.linkParent(parent, checked)
}

func (b *builder) sort() {
	b.forest.SortRoots(compareAttr)
	for _, a := range b.list {
		b.forest.SortChildren(a.node, compareAttr)
	}
}

// assign walks the sorted forest in pre-order, numbering from 1.
func (b *builder) assign(generation uint64) *table {
	t := &table{
		generation: generation,
		attrs:      make([]*attrData, 1, len(b.list)+1),
		byPath:     make(map[string]int, len(b.list)),
		byType:     make(map[string]int, len(b.typeKeys)),
	}
	t.attrs[0] = &attrData{node: hierarchy.None}

	digest := xxhash.New()
	for node := range b.forest.All() {
		a := b.forest.Value(node)
		id := len(t.attrs)
		a.handle = newHandle(a.path, id)
		a.hidden = a.hide
		if p := b.forest.Parent(node); p != hierarchy.None {
			pa := b.forest.Value(p)
			a.ancestors = append(append(make([]Handle, 0, len(pa.ancestors)+1), pa.ancestors...), pa.handle)
			a.hidden = a.hidden || pa.hidden
		}
		a.depth = b.forest.Depth(node)
		t.attrs = append(t.attrs, a)
		t.byPath[a.path] = id

		_, _ = digest.WriteString(strconv.Itoa(id))
		_, _ = digest.WriteString(":")
		_, _ = digest.WriteString(a.path)
		_, _ = digest.WriteString("\n")
	}
	t.fingerprint = digest.Sum64()

	t.children = make([][]int, len(t.attrs))
	for id, a := range t.attrs {
		if id == 0 {
			continue
		}
		for _, c := range b.forest.Children(a.node) {
			t.children[id] = append(t.children[id], b.forest.Value(c).handle.id)
		}
	}
	for _, r := range b.forest.Roots() {
		t.roots = append(t.roots, b.forest.Value(r).handle.id)
	}
	for key, a := range b.typeKeys {
		t.byType[key] = a.handle.id
	}
	return t
}
