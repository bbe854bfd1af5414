package shape

import (
	"strings"
	"unicode"
)

// DefaultType is the type given to keys without a namespace.
const DefaultType = "regular"

const problemChars = `=+/&<>;'"?%#$@,.`

// Tag is a decomposed tag key.
type Tag struct {
	Type string
	Key  string
	// Namespaced is set when the raw key carried a "type:" prefix.
	Namespaced bool
}

// FullKey rebuilds the raw key.
func (t Tag) FullKey() string {
	if t.Namespaced {
		return t.Type + ":" + t.Key
	}
	return t.Key
}

// HasProblemChars reports whether k cannot be stored as a tag key.
func HasProblemChars(k string) bool {
	return strings.ContainsAny(k, problemChars) || strings.IndexFunc(k, unicode.IsSpace) >= 0
}

// Decompose splits k on its first colon. The second result is false when k
// contains a problem character and the tag must be dropped.
func Decompose(k, defaultType string) (Tag, bool) {
	if HasProblemChars(k) {
		return Tag{}, false
	}

	typ, key, found := strings.Cut(k, ":")
	if !found {
		return Tag{Type: defaultType, Key: k}, true
	}
	return Tag{Type: typ, Key: key, Namespaced: true}, true
}
