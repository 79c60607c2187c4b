package idstring

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxPathLength caps a declared path, in runes, before canonicalisation.
	MaxPathLength = 512
	// Separator joins path segments.
	Separator = "."
)

// Sanitize truncates s to MaxPathLength runes, strips control characters,
// normalises to NFC and trims surrounding whitespace.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	if r := []rune(s); len(r) > MaxPathLength {
		s = string(r[:MaxPathLength])
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(norm.NFC.String(s))
}

// SplitPath sanitises path and returns its non-empty, trimmed segments.
func SplitPath(path string) []string {
	raw := strings.Split(Sanitize(path), Separator)
	out := raw[:0]
	for _, seg := range raw {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// CanonicalPath returns the canonical form of path: sanitised segments
// joined by Separator. "  A..B . C " becomes "A.B.C".
func CanonicalPath(path string) string {
	return strings.Join(SplitPath(path), Separator)
}

// JoinPath appends add to base, skipping empty operands.
func JoinPath(base, add string) string {
	switch {
	case add == "":
		return base
	case base == "":
		return add
	default:
		return base + Separator + add
	}
}

// SplitParent splits a canonical path into its parent path and last
// segment. A single-segment path has an empty parent.
func SplitParent(path string) (parent, element string) {
	idx := strings.LastIndex(path, Separator)
	if idx <= 0 {
		return "", path
	}
	return path[:idx], path[idx+len(Separator):]
}
