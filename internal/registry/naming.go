package registry

import (
	"strings"
	"unicode"
)

// DeriveName converts a unit identifier into the wire naming convention:
// ManageAsset -> manage_asset, ExecuteMenuItem -> execute_menu_item.
// Acronym runs stay together: HTTPProbe -> http_probe. Already-lowercase
// names pass through unchanged.
func DeriveName(unit string) string {
	rs := []rune(strings.TrimSpace(unit))
	var b strings.Builder
	b.Grow(len(rs) + 4)

	for i, r := range rs {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && needsBoundary(rs, i) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			// Spaces, dashes and other separators collapse to underscores.
			if i > 0 && rs[i-1] != '_' && b.Len() > 0 {
				b.WriteByte('_')
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// needsBoundary reports whether an underscore belongs before rs[i], an
// uppercase rune. True after a lowercase/digit, or at the end of an acronym
// run (the next rune is lowercase).
func needsBoundary(rs []rune, i int) bool {
	prev := rs[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]) {
		return true
	}
	return false
}
