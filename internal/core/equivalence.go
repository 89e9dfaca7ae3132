package core

import "strings"

// EqualFlattened reports whether two flattened values should be treated as
// unchanged. Text properties get looser rules: null and blank-after-trim are
// equivalent, and the comparison is case-insensitive. Every other kind
// compares exactly.
func EqualFlattened(kind PropertyKind, old, new string) bool {
	if kind == KindText {
		return EqualText(old, new)
	}
	return old == new
}

// EqualText applies the text equivalence rules to two flattened strings.
func EqualText(old, new string) bool {
	oldTrim := strings.TrimSpace(old)
	newTrim := strings.TrimSpace(new)
	if oldTrim == "" && newTrim == "" {
		return true
	}
	return strings.EqualFold(old, new)
}
