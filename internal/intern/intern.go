// Package intern implements the process-wide string intern table: every
// ObjString produced through an Interner is deduplicated by content, so
// that two strings with equal bytes are always the same heap object
// (spec.md §3 "Object" invariants, §4.3 "string intern").
package intern

import (
	"github.com/tephra-lang/tephra/internal/table"
	"github.com/tephra-lang/tephra/internal/value"
)

const fnvOffsetBasis uint32 = 2166136261
const fnvPrime uint32 = 16777619

// Hash computes the 32-bit FNV-1a hash of b, as spec.md §3 prescribes for
// the String payload.
func Hash(b []byte) uint32 {
	h := fnvOffsetBasis
	for _, c := range b {
		h ^= uint32(c)
		h *= fnvPrime
	}
	return h
}

// Interner owns the intern table and hands out *value.ObjString values
// that are unique per distinct byte content.
type Interner struct {
	strings *table.Table
}

func New() *Interner {
	return &Interner{strings: table.New()}
}

// Copy interns a copy of b: if an equal string is already interned, the
// existing object is returned and b is left untouched by the interner (the
// caller keeps ownership of b). Otherwise a fresh buffer is allocated, b is
// copied into it, and that copy is interned. Used for string literals,
// identifier names and native results; concatenation results go through
// Take instead.
func (in *Interner) Copy(b []byte) *value.ObjString {
	hash := Hash(b)
	if existing := in.strings.FindString(b, hash); existing != nil {
		return existing
	}

	owned := make([]byte, len(b))
	copy(owned, b)
	return in.insert(owned, hash)
}

// Take interns b directly, taking ownership of the slice: if an equal
// string is already interned, b is discarded and the existing object
// returned; otherwise b itself becomes the new ObjString's backing array.
// Used for values the caller has already allocated solely to intern (e.g.
// the result of string concatenation).
func (in *Interner) Take(b []byte) *value.ObjString {
	hash := Hash(b)
	if existing := in.strings.FindString(b, hash); existing != nil {
		return existing
	}
	return in.insert(b, hash)
}

func (in *Interner) insert(b []byte, hash uint32) *value.ObjString {
	s := &value.ObjString{Chars: b, Hash: hash}
	in.strings.Set(s, value.Nil{})
	return s
}
