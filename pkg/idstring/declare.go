package idstring

import (
	"fmt"
	"reflect"
	"strings"
)

// NamespacePolicy controls whether a member's namespace prefixes its path.
type NamespacePolicy uint8

const (
	// NamespaceInherit uses the nearest enclosing member's setting.
	NamespaceInherit NamespacePolicy = iota
	NamespaceInclude
	NamespaceExclude
)

// ParentPolicy controls whether the enclosing member's path prefixes a
// member's path.
type ParentPolicy uint8

const (
	// ParentInherit uses the nearest enclosing member's setting.
	ParentInherit ParentPolicy = iota
	ParentInclude
	ParentExclude
)

var policyNames = [...]string{"inherit", "include", "exclude"}

func parsePolicy(kind string, text []byte) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "" {
		return 0, nil
	}
	for i, name := range policyNames {
		if s == name {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("idstring: unknown %s policy %q", kind, s)
}

func policyName(p uint8) string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", p)
}

func (p NamespacePolicy) String() string { return policyName(uint8(p)) }

func (p NamespacePolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *NamespacePolicy) UnmarshalText(text []byte) error {
	v, err := parsePolicy("namespace", text)
	*p = NamespacePolicy(v)
	return err
}

func (p ParentPolicy) String() string { return policyName(uint8(p)) }

func (p ParentPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ParentPolicy) UnmarshalText(text []byte) error {
	v, err := parsePolicy("parent", text)
	*p = ParentPolicy(v)
	return err
}

// Defaults applied when the member chain never sets a policy.
const (
	DefaultNamespacePolicy = NamespaceExclude
	DefaultParentPolicy    = ParentInclude
)

// Define describes one identifier declaration. For global declarations
// Name is the full path; for members it overrides the member name.
// NonHierarchical registers the path as a root and stops automatic parent
// synthesis for it.
type Define struct {
	Name            string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Hide            bool            `json:"hide,omitempty" yaml:"hide,omitempty"`
	Order           int             `json:"order,omitempty" yaml:"order,omitempty"`
	NonHierarchical bool            `json:"non_hierarchical,omitempty" yaml:"non_hierarchical,omitempty"`
	Namespace       NamespacePolicy `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	ParentPath      ParentPolicy    `json:"parent_path,omitempty" yaml:"parent_path,omitempty"`
}

// Kind tells type-like members (which group children and can be looked up
// by type key) from value members (which only receive a handle).
type Kind uint8

const (
	KindType Kind = iota
	KindValue
)

// Member is one node of a declaration tree, the explicit stand-in for
// marked types and static fields.
//
// A member with a nil Define is transparent: it registers nothing, but its
// children are walked with the enclosing path.
type Member struct {
	Name      string
	Kind      Kind
	Namespace string // empty inherits the enclosing one
	TypeKey   string // indexes KindType members for GetByType
	Define    *Define
	Slot      Slot // receives the published handle
	Members   []Member
}

// Slot is a declaration site that receives its handle.
type Slot interface {
	Set(Handle) error
}

// SlotFunc adapts a function to Slot.
type SlotFunc func(Handle) error

func (f SlotFunc) Set(h Handle) error { return f(h) }

type ptrSlot struct{ p *Handle }

func (s ptrSlot) Set(h Handle) error {
	if s.p == nil {
		return ErrSlotUnset
	}
	*s.p = h
	return nil
}

// Ptr returns a Slot writing into p.
func Ptr(p *Handle) Slot { return ptrSlot{p: p} }

// TypeKeyOf returns the type key of T: its package path and name.
func TypeKeyOf[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Type declares a type-like member keyed by T.
func Type[T any](name string, def Define, members ...Member) Member {
	return Member{
		Name:    name,
		Kind:    KindType,
		TypeKey: TypeKeyOf[T](),
		Define:  &def,
		Members: members,
	}
}

// Group declares a type-like member without a type key.
func Group(name string, def Define, members ...Member) Member {
	return Member{Name: name, Kind: KindType, Define: &def, Members: members}
}

// Value declares a value member publishing into p.
func Value(name string, p *Handle, def Define) Member {
	return Member{Name: name, Kind: KindValue, Define: &def, Slot: Ptr(p)}
}
