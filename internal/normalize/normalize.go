// Package normalize holds the string canonicalization rules shared by the
// stores, the auth layer and the listing filters.
package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Fold lower-cases and trims s for case-insensitive matching.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ContainsFold reports whether needle occurs in haystack ignoring case and
// surrounding whitespace. An empty haystack never contains a non-empty needle.
func ContainsFold(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	h := Fold(haystack)
	if h == "" {
		return false
	}
	return strings.Contains(h, n)
}

// EqualFold reports whether a and b are equal ignoring case and surrounding
// whitespace.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
