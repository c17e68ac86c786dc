package chunk

import (
	"testing"

	"github.com/tephra-lang/tephra/internal/value"
)

func TestWriteAndConstants(t *testing.T) {
	c := New()
	idx := c.AddConstant(value.Number(1.5))
	c.WriteOpCode(OpConstant, 1)
	c.WriteOpCode(OpCode(idx), 1)

	if len(c.Code) != 2 {
		t.Fatalf("got %d bytes, want 2", len(c.Code))
	}
	if len(c.Lines) != len(c.Code) {
		t.Fatalf("Lines length %d does not track Code length %d", len(c.Lines), len(c.Code))
	}
	if c.Constants[idx] != value.Number(1.5) {
		t.Fatalf("got constant %v, want 1.5", c.Constants[idx])
	}
}

func TestPatchAndReadUint16(t *testing.T) {
	c := New()
	c.WriteOpCode(OpJump, 1)
	offset := len(c.Code)
	c.WriteUint16(0xffff, 1)

	c.PatchUint16(offset, 0x1234)
	if got := c.ReadUint16(offset); got != 0x1234 {
		t.Fatalf("got %#x, want %#x", got, 0x1234)
	}
}

func TestLookupKnownAndUnknownOpcodes(t *testing.T) {
	def, ok := Lookup(byte(OpReturn))
	if !ok || def.Name != "OP_RETURN" {
		t.Fatalf("got %v %v, want OP_RETURN", def, ok)
	}

	if _, ok := Lookup(0xfe); ok {
		t.Fatalf("expected unknown opcode to be absent from the definition table")
	}
}
