package idstring

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/zeusync/idstring/internal/core/observability/log"
)

// ViewFilter selects elements for display.
type ViewFilter struct {
	// Prefix keeps the path itself and everything below it.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// TypeKey keeps the descendants of the element declared by that type.
	TypeKey           string `json:"type_key,omitempty" yaml:"type_key,omitempty"`
	IncludeTypeItself bool   `json:"include_type_itself,omitempty" yaml:"include_type_itself,omitempty"`
	// IgnoreHidden lists hidden elements too.
	IgnoreHidden bool `json:"ignore_hidden,omitempty" yaml:"ignore_hidden,omitempty"`
}

// View returns the elements matching f in display order. An unknown type
// key matches nothing.
func (r *Registry) View(f ViewFilter) []Handle {
	t := r.load()

	typeRoot := None
	if f.TypeKey != "" {
		id, ok := t.byType[f.TypeKey]
		if !ok {
			r.logger.Warn("idstring: view type not found", log.String("type", f.TypeKey))
			return nil
		}
		typeRoot = t.attrs[id].handle
	}
	prefix := CanonicalPath(f.Prefix)

	var out []Handle
	for _, a := range t.attrs[1:] {
		if a.hidden && !f.IgnoreHidden {
			continue
		}
		if prefix != "" && a.path != prefix && !strings.HasPrefix(a.path, prefix+Separator) {
			continue
		}
		if typeRoot.IsValid() {
			self := a.handle.Equal(typeRoot)
			if self && !f.IncludeTypeItself {
				continue
			}
			if !self && !containsHandle(a.ancestors, typeRoot) {
				continue
			}
		}
		out = append(out, a.handle)
	}
	return out
}

// Dump writes "id : path" for every element, indented by depth.
func (r *Registry) Dump(w io.Writer) error {
	return r.DumpView(w, ViewFilter{IgnoreHidden: true})
}

// DumpView is Dump restricted to View(f).
func (r *Registry) DumpView(w io.Writer, f ViewFilter) error {
	bw := bufio.NewWriter(w)
	for _, h := range r.View(f) {
		a := r.attr(h)
		if a == nil {
			continue
		}
		marker := ""
		if a.hidden {
			marker = " (hidden)"
		}
		if _, err := fmt.Fprintf(bw, "%s%d : %s%s\n",
			strings.Repeat("  ", a.depth), h.id, h.path, marker); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Fingerprint digests the ordered id:path table of the live generation.
// Identical declarations give identical fingerprints.
func (r *Registry) Fingerprint() uint64 { return r.load().fingerprint }

func containsHandle(list []Handle, h Handle) bool {
	for _, x := range list {
		if x.Equal(h) {
			return true
		}
	}
	return false
}
