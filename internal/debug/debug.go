// Package debug implements the bytecode disassembler: per-instruction
// byte offset, source line (or "|" when unchanged from the previous
// instruction), mnemonic and operands, used by the VM's trace mode and by
// a standalone disassembly dump (spec.md §4.2 "Disassembly", §4.5
// "Tracing"). Grounded on the teacher's bytecode.go Disassemble/
// formatInstruction, generalized to internal/chunk's Definition table and
// the CLOSURE opcode's variable-length trailing upvalue pairs.
package debug

import (
	"fmt"
	"os"

	"github.com/tephra-lang/tephra/internal/chunk"
	"github.com/tephra-lang/tephra/internal/table"
	"github.com/tephra-lang/tephra/internal/value"
)

// DisassembleChunk prints every instruction in c to stderr under a name
// header, e.g. "== <script> ==".
func DisassembleChunk(c *chunk.Chunk, name string) {
	fmt.Fprintf(os.Stderr, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(c, offset)
	}
}

// DumpGlobals prints every live global under a "== globals ==" header,
// via Table.Each, for trace mode to show the state a run finished in.
func DumpGlobals(tb *table.Table) {
	fmt.Fprintln(os.Stderr, "== globals ==")
	tb.Each(func(key *value.ObjString, val value.Value) {
		fmt.Fprintf(os.Stderr, "%s = %s\n", key.String(), val.String())
	})
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the instruction following it.
func DisassembleInstruction(c *chunk.Chunk, offset int) int {
	fmt.Fprintf(os.Stderr, "%04d ", offset)

	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(os.Stderr, "   | ")
	} else {
		fmt.Fprintf(os.Stderr, "%4d ", c.Lines[offset])
	}

	op := c.Code[offset]
	def, ok := chunk.Lookup(op)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown opcode %d\n", op)
		return offset + 1
	}

	switch chunk.OpCode(op) {
	case chunk.OpConstant:
		return constantInstruction(c, def.Name, offset, 1)
	case chunk.OpConstantLong:
		return constantInstruction(c, def.Name, offset, 2)
	case chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal:
		return constantInstruction(c, def.Name, offset, 1)
	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpGetUpvalue, chunk.OpSetUpvalue, chunk.OpCall:
		return byteInstruction(c, def.Name, offset)
	case chunk.OpJump, chunk.OpJumpIfFalse:
		return jumpInstruction(c, def.Name, offset, 1)
	case chunk.OpLoop:
		return jumpInstruction(c, def.Name, offset, -1)
	case chunk.OpClosure:
		return closureInstruction(c, offset)
	default:
		fmt.Fprintln(os.Stderr, def.Name)
		return offset + 1
	}
}

func constantInstruction(c *chunk.Chunk, name string, offset, width int) int {
	var idx int
	if width == 1 {
		idx = int(c.Code[offset+1])
	} else {
		idx = int(c.ReadUint16(offset + 1))
	}
	fmt.Fprintf(os.Stderr, "%-18s %4d '%v'\n", name, idx, c.Constants[idx])
	return offset + 1 + width
}

func byteInstruction(c *chunk.Chunk, name string, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(os.Stderr, "%-18s %4d\n", name, slot)
	return offset + 2
}

func jumpInstruction(c *chunk.Chunk, name string, offset int, sign int) int {
	jump := int(c.ReadUint16(offset + 1))
	target := offset + 3 + sign*jump
	fmt.Fprintf(os.Stderr, "%-18s %4d -> %d\n", name, offset, target)
	return offset + 3
}

// closureInstruction prints the CLOSURE opcode's function-constant
// operand, then one trailing line per captured upvalue pair it reads
// from the bytecode that immediately follows (spec.md §4.2 "CLOSURE").
func closureInstruction(c *chunk.Chunk, offset int) int {
	constIdx := int(c.Code[offset+1])
	fmt.Fprintf(os.Stderr, "%-18s %4d '%v'\n", "OP_CLOSURE", constIdx, c.Constants[constIdx])
	offset += 2

	fn := c.Constants[constIdx].(*value.ObjFunction)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(os.Stderr, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
