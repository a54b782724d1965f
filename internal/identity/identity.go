// Package identity resolves raw-record references against node tables built
// earlier in a discovery run.
package identity

import (
	"unicode/utf8"

	"smiscope/internal/domain"
)

// Resolve returns the key under which ref is present in table.
//
// An exact (scope, local id) match wins. Otherwise, if the scope is not empty,
// the lookup is retried once with the last character of the scope removed;
// some providers append a delimiter to the scope they embed in references.
// ok is false when neither lookup hits, which callers treat as an intentionally
// unresolved reference.
func Resolve[V any](ref domain.Reference, table map[domain.Reference]V) (domain.Reference, bool) {
	if _, ok := table[ref]; ok {
		return ref, true
	}
	if ref.Scope == "" {
		return domain.Reference{}, false
	}
	_, size := utf8.DecodeLastRuneInString(ref.Scope)
	trimmed := domain.Reference{Scope: ref.Scope[:len(ref.Scope)-size], LocalID: ref.LocalID}
	if _, ok := table[trimmed]; ok {
		return trimmed, true
	}
	return domain.Reference{}, false
}

// Lookup resolves ref and returns the table value
func Lookup[V any](ref domain.Reference, table map[domain.Reference]V) (V, bool) {
	key, ok := Resolve(ref, table)
	if !ok {
		var zero V
		return zero, false
	}
	return table[key], true
}
