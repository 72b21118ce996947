// Package sanitize normalizes submitted relationship id lists and item
// slugs.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Key lowercases s and drops every character outside [a-z0-9_-].
func Key(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Clean trims and key-normalizes every element of raw, removes every
// occurrence of strip when it is non-empty, and drops elements that end up
// empty. Order and duplicates are preserved. The result is never nil.
func Clean(raw []string, strip string) []types.StableID {
	out := make([]types.StableID, 0, len(raw))
	strip = strings.ToLower(strip)
	for _, r := range raw {
		id := Key(strings.TrimSpace(r))
		if strip != "" {
			id = strings.ReplaceAll(id, strip, "")
		}
		if id == "" {
			continue
		}
		out = append(out, types.StableID(id))
	}
	return out
}

// Split splits a comma-joined form value. An empty value yields no
// elements.
func Split(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// CleanString is Clean(Split(raw), strip).
func CleanString(raw, strip string) []types.StableID {
	return Clean(Split(raw), strip)
}

// Title turns a title into a URL slug: accents folded, lowercase, runs of
// anything other than letters and digits collapsed to a single '-'.
func Title(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
