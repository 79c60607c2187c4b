package idstring

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "A.B.C", "A.B.C"},
		{"spaces and empty segments", "  A..B . C ", "A.B.C"},
		{"leading and trailing separators", ".A.B.", "A.B"},
		{"control characters", "A\x00.\tB\n", "A.B"},
		{"case kept", "Status.Dead", "Status.Dead"},
		{"nfc", "Cafe\u0301", "Caf\u00e9"},
		{"only separators", " . . ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalPath(tt.in))
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxPathLength+10)
	got := Sanitize(long)
	assert.Equal(t, MaxPathLength, utf8.RuneCountInString(got))
}

func TestSplitParent(t *testing.T) {
	parent, elem := SplitParent("A.B.C")
	assert.Equal(t, "A.B", parent)
	assert.Equal(t, "C", elem)

	parent, elem = SplitParent("Root")
	assert.Empty(t, parent)
	assert.Equal(t, "Root", elem)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "A.B", JoinPath("A", "B"))
	assert.Equal(t, "B", JoinPath("", "B"))
	assert.Equal(t, "A", JoinPath("A", ""))
}
