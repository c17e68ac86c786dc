package table

import (
	"fmt"
	"testing"

	"github.com/tephra-lang/tephra/internal/value"
)

// internedKeys memoizes key() so that equal content always yields the
// same *ObjString, mirroring the interning invariant the real table
// depends on: Set/Get/Delete key by pointer identity (only FindString
// does a content probe), so two distinct allocations of "foo" are two
// distinct keys as far as this table is concerned.
var internedKeys = map[string]*value.ObjString{}

func key(s string) *value.ObjString {
	if k, ok := internedKeys[s]; ok {
		return k
	}
	k := &value.ObjString{Chars: []byte(s), Hash: fnv(s)}
	internedKeys[s] = k
	return k
}

// fnv reproduces internal/intern's hash function without importing it
// (that package depends on this one), so keys here hash the same way
// interned keys would.
func fnv(s string) uint32 {
	h := uint32(2166136261)
	for _, c := range []byte(s) {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}

func TestSetGetRoundTrip(t *testing.T) {
	tb := New()
	k := key("foo")
	if !tb.Set(k, value.Number(1)) {
		t.Fatalf("expected Set of a new key to report isNew=true")
	}
	v, ok := tb.Get(k)
	if !ok || v != value.Number(1) {
		t.Fatalf("got %v %v, want 1 true", v, ok)
	}
}

func TestSetOverwriteReportsNotNew(t *testing.T) {
	tb := New()
	k := key("foo")
	tb.Set(k, value.Number(1))
	if tb.Set(k, value.Number(2)) {
		t.Fatalf("expected overwrite to report isNew=false")
	}
	v, _ := tb.Get(k)
	if v != value.Number(2) {
		t.Fatalf("got %v, want 2", v)
	}
}

func TestDeleteLeavesTombstoneThatDoesNotBreakOtherProbes(t *testing.T) {
	tb := New()
	a, b := key("a"), key("b")
	tb.Set(a, value.Number(1))
	tb.Set(b, value.Number(2))

	if !tb.Delete(a) {
		t.Fatalf("expected Delete of a present key to succeed")
	}
	if _, ok := tb.Get(a); ok {
		t.Fatalf("deleted key should no longer be found")
	}
	if v, ok := tb.Get(b); !ok || v != value.Number(2) {
		t.Fatalf("got %v %v, want 2 true", v, ok)
	}
}

func TestGrowRebuildsWithoutTombstones(t *testing.T) {
	tb := New()
	for i := 0; i < 20; i++ {
		tb.Set(key(fmt.Sprintf("k%d", i)), value.Number(float64(i)))
	}
	for i := 0; i < 20; i += 2 {
		tb.Delete(key(fmt.Sprintf("k%d", i)))
	}
	// Force another resize, which should discard the tombstones left above.
	for i := 20; i < 40; i++ {
		tb.Set(key(fmt.Sprintf("k%d", i)), value.Number(float64(i)))
	}

	if got, want := tb.Len(), 10+20; got != want {
		t.Fatalf("got %d live entries, want %d", got, want)
	}
	for i := 1; i < 20; i += 2 {
		if _, ok := tb.Get(key(fmt.Sprintf("k%d", i))); !ok {
			t.Fatalf("expected k%d to survive the resize", i)
		}
	}
}

func TestFindStringMatchesByContent(t *testing.T) {
	tb := New()
	s := key("hello")
	tb.Set(s, value.Nil{})

	found := tb.FindString([]byte("hello"), fnv("hello"))
	if found != s {
		t.Fatalf("FindString did not return the interned object by identity")
	}

	if tb.FindString([]byte("goodbye"), fnv("goodbye")) != nil {
		t.Fatalf("expected no match for an absent string")
	}
}
