// Package manifest loads identifier declarations from YAML or JSON files.
//
// A manifest lists global defines and member trees:
//
//	defines:
//	  - name: Status.Dead
//	    description: character died
//	members:
//	  - name: Ability
//	    kind: type
//	    type_key: app.Ability
//	    define: {}
//	    members:
//	      - name: Jump
//	        kind: value
//	        define: {order: 1}
//
// Value members have no Go field to write to, so their handles are
// published into a Bindings table keyed by ref.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/idstring/pkg/concurrent"
	"github.com/zeusync/idstring/pkg/idstring"
)

var (
	ErrUnknownKind   = errors.New("manifest: unknown member kind")
	ErrUnknownFormat = errors.New("manifest: unknown file format")
)

// File is one decoded manifest.
type File struct {
	Defines []idstring.Define `json:"defines,omitempty" yaml:"defines,omitempty"`
	Members []Member          `json:"members,omitempty" yaml:"members,omitempty"`
}

// Member mirrors idstring.Member. A nil Define makes the member transparent.
type Member struct {
	Name      string           `json:"name" yaml:"name"`
	Kind      string           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Namespace string           `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	TypeKey   string           `json:"type_key,omitempty" yaml:"type_key,omitempty"`
	Ref       string           `json:"ref,omitempty" yaml:"ref,omitempty"`
	Define    *idstring.Define `json:"define,omitempty" yaml:"define,omitempty"`
	Members   []Member         `json:"members,omitempty" yaml:"members,omitempty"`
}

// LoadJSON decodes a manifest from r.
func LoadJSON(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadYAML decodes a manifest from r. An empty document is an empty
// manifest.
func LoadYAML(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// Load reads path, choosing the decoder by extension.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var f *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err = LoadJSON(fh)
	case ".yaml", ".yml":
		f, err = LoadYAML(fh)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return f, nil
}

// Declarations converts f, binding value members into b.
func (f *File) Declarations(b *Bindings) (idstring.Declarations, error) {
	d := idstring.Declarations{Defines: append([]idstring.Define(nil), f.Defines...)}
	for _, m := range f.Members {
		member, err := m.convert("", b)
		if err != nil {
			return idstring.Declarations{}, err
		}
		d.Members = append(d.Members, member)
	}
	return d, nil
}

func (m Member) convert(parentRef string, b *Bindings) (idstring.Member, error) {
	out := idstring.Member{
		Name:      m.Name,
		Namespace: m.Namespace,
		TypeKey:   m.TypeKey,
		Define:    m.Define,
	}
	ref := m.Ref
	if ref == "" {
		ref = idstring.JoinPath(parentRef, m.Name)
	}

	switch strings.ToLower(m.Kind) {
	case "", "type":
		out.Kind = idstring.KindType
	case "value":
		out.Kind = idstring.KindValue
		out.Slot = b.slot(ref)
	default:
		return idstring.Member{}, fmt.Errorf("%w: %q (member %s)", ErrUnknownKind, m.Kind, ref)
	}

	for _, child := range m.Members {
		c, err := child.convert(ref, b)
		if err != nil {
			return idstring.Member{}, err
		}
		out.Members = append(out.Members, c)
	}
	return out, nil
}

// LoadFiles loads paths concurrently, at most limit at a time, and merges
// them in argument order.
func LoadFiles(ctx context.Context, limit int, paths ...string) (idstring.Declarations, *Bindings, error) {
	files, err := concurrent.Map(ctx, paths, limit, func(_ context.Context, path string) (*File, error) {
		return Load(path)
	})
	if err != nil {
		return idstring.Declarations{}, nil, err
	}

	b := NewBindings()
	var all idstring.Declarations
	for i, f := range files {
		d, err := f.Declarations(b)
		if err != nil {
			return idstring.Declarations{}, nil, fmt.Errorf("manifest %s: %w", paths[i], err)
		}
		all.Merge(d)
	}
	return all, b, nil
}

// Bindings receives the handles of manifest value members.
type Bindings struct {
	mu      sync.RWMutex
	handles map[string]idstring.Handle
}

func NewBindings() *Bindings {
	return &Bindings{handles: make(map[string]idstring.Handle)}
}

func (b *Bindings) slot(ref string) idstring.Slot {
	return idstring.SlotFunc(func(h idstring.Handle) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handles[ref] = h
		return nil
	})
}

// Get returns the handle published for ref.
func (b *Bindings) Get(ref string) (idstring.Handle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.handles[ref]
	return h, ok
}

func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handles)
}
