package store

import "github.com/dhrubo326/imds/internal/skiplist"

// ValueKind tags the kind of value a key holds.
type ValueKind uint8

const (
	// KindString is a plain byte-string value.
	KindString ValueKind = iota
	// KindSortedSet is an ordered set of (score, member) pairs.
	KindSortedSet
)

// String returns the kind name used in wrong-type error messages.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindSortedSet:
		return "sorted-set"
	default:
		return "unknown"
	}
}

// Value is the tagged union stored at a key: exactly one of Str or Set is
// meaningful, selected by Kind. Command handlers switch exhaustively on
// Kind so a future third kind is a compile-visible change.
type Value struct {
	Kind ValueKind
	Str  string
	Set  *skiplist.SortedSet
}

// StringValue wraps a byte-string.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// SortedSetValue wraps an ordered set.
func SortedSetValue(set *skiplist.SortedSet) Value {
	return Value{Kind: KindSortedSet, Set: set}
}
