// Package table implements the open-addressed hash table used both for
// the VM's global-variable table and as the backing store for string
// interning (spec.md §4.3). Linear probing, tombstone deletion, load
// factor 0.75, capacity doubling from an initial 8 — the same design the
// teacher's SymbolTable/globals slice stand in for with a plain Go map,
// generalized here into the data structure spec.md actually calls for.
package table

import "github.com/tephra-lang/tephra/internal/value"

const initialCapacity = 8
const maxLoad = 0.75

type entry struct {
	key   *value.ObjString
	val   value.Value
	tomb  bool
	empty bool
}

// Table is an open-addressed map from interned string keys to Values.
type Table struct {
	count   int // live entries, including tombstones (mirrors the C original)
	live    int // live entries, excluding tombstones
	entries []entry
}

func New() *Table {
	return &Table{}
}

// Get looks up key, probing until it finds a matching key or an empty
// non-tombstone slot.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := t.find(key)
	if e.empty {
		return nil, false
	}
	return e.val, true
}

// Set inserts or overwrites key's value. It returns true if this inserted
// a brand new key (not previously present, including via tombstone reuse).
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}

	idx := t.findIndex(key)
	e := &t.entries[idx]
	isNew := e.empty
	if isNew && !e.tomb {
		t.count++
	}
	if isNew {
		t.live++
	}

	e.key = key
	e.val = val
	e.empty = false
	e.tomb = false

	return isNew
}

// Delete removes key, leaving a tombstone (key=nil, val=Bool(true)) so
// later probes for other keys sharing its probe sequence still succeed.
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findIndex(key)
	e := &t.entries[idx]
	if e.empty {
		return false
	}

	e.key = nil
	e.val = value.Bool(true)
	e.empty = true
	e.tomb = true
	t.live--
	return true
}

// FindString is the string-interning lookup: unlike Get/Set, which compare
// keys by identity, this scans the probe sequence comparing raw byte
// content and the precomputed hash directly, exactly as spec.md §4.3
// describes. It returns the existing interned ObjString if one with equal
// content is already present.
func (t *Table) FindString(chars []byte, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}

	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.empty && !e.tomb {
			return nil
		}
		if e.key != nil && e.key.Hash == hash && bytesEqual(e.key.Chars, chars) {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// find returns the entry for key (identity comparison, since keys are
// always interned), or the first empty non-tombstone slot in its probe
// sequence.
func (t *Table) find(key *value.ObjString) *entry {
	return &t.entries[t.findIndex(key)]
}

func (t *Table) findIndex(key *value.ObjString) int {
	mask := uint32(len(t.entries) - 1)
	idx := key.Hash & mask
	var tombstone = -1

	for {
		e := &t.entries[idx]
		if e.empty {
			if !e.tomb {
				if tombstone != -1 {
					return tombstone
				}
				return int(idx)
			}
			if tombstone == -1 {
				tombstone = int(idx)
			}
		} else if e.key == key {
			return int(idx)
		}
		idx = (idx + 1) & mask
	}
}

// grow doubles capacity (or initializes it) and rebuilds the table from
// live entries, discarding tombstones, exactly as spec.md §4.3 requires.
func (t *Table) grow() {
	newCap := initialCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}

	old := t.entries
	t.entries = make([]entry, newCap)
	for i := range t.entries {
		t.entries[i].empty = true
	}
	t.count = 0

	for _, e := range old {
		if e.empty || e.tomb {
			continue
		}
		idx := t.findIndex(e.key)
		t.entries[idx] = e
		t.count++
	}
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

// Each calls fn for every live entry, in table order. Used by globals
// dumps in debug tooling; iteration order is not semantically meaningful.
func (t *Table) Each(fn func(key *value.ObjString, val value.Value)) {
	for _, e := range t.entries {
		if e.empty || e.tomb {
			continue
		}
		fn(e.key, e.val)
	}
}
