package idstring

import (
	"encoding"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	_ encoding.TextMarshaler   = Handle{}
	_ encoding.TextUnmarshaler = (*Handle)(nil)
	_ yaml.Marshaler           = Handle{}
	_ yaml.Unmarshaler         = (*Handle)(nil)
	_ fmt.Stringer             = Handle{}
)

// Handle is a resolved reference to an identifier of a Registry.
//
// Two handles are Equal iff their ids are equal. Ids are dense indexes into
// the registry generation that issued them and are meaningless after a
// reload; the full path is the stable key and the only thing persisted.
//
// The zero value is None. A handle whose path could not be resolved keeps
// the path with id 0 and reports IsMissing.
type Handle struct {
	path string
	id   int
}

// None is the reserved "no identifier" handle.
var None Handle

func newHandle(path string, id int) Handle {
	return Handle{path: path, id: id}
}

// ID returns the registry-local id. 0 for None and missing handles.
func (h Handle) ID() int { return h.id }

// Path returns the full dotted path.
func (h Handle) Path() string { return h.path }

func (h Handle) String() string { return h.path }

// IsValid reports whether h refers to a registered identifier.
func (h Handle) IsValid() bool { return h.id > 0 }

// IsNone reports whether h is the empty None handle.
func (h Handle) IsNone() bool { return h.id == 0 && h.path == "" }

// IsMissing reports whether h carries a path that did not resolve.
func (h Handle) IsMissing() bool { return h.id == 0 && h.path != "" }

// Equal compares by id only, so every missing handle equals None.
func (h Handle) Equal(other Handle) bool { return h.id == other.id }

// Hash returns a key suitable for maps that must follow Equal.
func (h Handle) Hash() int { return h.id }

// MarshalText writes the full path.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.path), nil
}

// UnmarshalText re-resolves text through the default registry when one is
// installed. Otherwise the handle stays missing until Registry.Resolve.
func (h *Handle) UnmarshalText(text []byte) error {
	*h = decodeHandle(string(text))
	return nil
}

func (h Handle) MarshalYAML() (any, error) {
	return h.path, nil
}

func (h *Handle) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("idstring: decode handle: %w", err)
	}
	*h = decodeHandle(s)
	return nil
}

func decodeHandle(s string) Handle {
	if reg := Default(); reg != nil {
		return reg.Parse(s)
	}
	return missingHandle(s)
}

// missingHandle keeps the original text so tooling can show what was lost.
// Blank text yields None.
func missingHandle(s string) Handle {
	if CanonicalPath(s) == "" {
		return None
	}
	return newHandle(s, 0)
}
