// Package chunk implements the bytecode container: a dynamic byte array of
// opcodes, a parallel line-number array for diagnostics, and a pool of
// constant Values. It mirrors the teacher's bytecode.go (Definition table,
// makeOpcode/readOperands) but emits the opcode set and line-tracking
// spec.md §4.2 describes instead of ion's.
package chunk

import (
	"encoding/binary"

	"github.com/tephra-lang/tephra/internal/value"
)

// OpCode is a single bytecode instruction's tag byte.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpConstantLong
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpClosure
	OpCloseUpvalue
	OpReturn
)

// Definition describes an opcode's mnemonic and the byte width of each of
// its immediate operands, used by both the emitter (to size instructions)
// and the disassembler (to decode them).
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[OpCode]*Definition{
	OpConstant:     {"OP_CONSTANT", []int{1}},
	OpConstantLong: {"OP_CONSTANT_LONG", []int{2}},
	OpNil:          {"OP_NIL", nil},
	OpTrue:         {"OP_TRUE", nil},
	OpFalse:        {"OP_FALSE", nil},
	OpPop:          {"OP_POP", nil},
	OpGetLocal:     {"OP_GET_LOCAL", []int{1}},
	OpSetLocal:     {"OP_SET_LOCAL", []int{1}},
	OpGetGlobal:    {"OP_GET_GLOBAL", []int{1}},
	OpDefineGlobal: {"OP_DEFINE_GLOBAL", []int{1}},
	OpSetGlobal:    {"OP_SET_GLOBAL", []int{1}},
	OpGetUpvalue:   {"OP_GET_UPVALUE", []int{1}},
	OpSetUpvalue:   {"OP_SET_UPVALUE", []int{1}},
	OpEqual:        {"OP_EQUAL", nil},
	OpGreater:      {"OP_GREATER", nil},
	OpLess:         {"OP_LESS", nil},
	OpAdd:          {"OP_ADD", nil},
	OpSubtract:     {"OP_SUBTRACT", nil},
	OpMultiply:     {"OP_MULTIPLY", nil},
	OpDivide:       {"OP_DIVIDE", nil},
	OpNot:          {"OP_NOT", nil},
	OpNegate:       {"OP_NEGATE", nil},
	OpPrint:        {"OP_PRINT", nil},
	OpJump:         {"OP_JUMP", []int{2}},
	OpJumpIfFalse:  {"OP_JUMP_IF_FALSE", []int{2}},
	OpLoop:         {"OP_LOOP", []int{2}},
	OpCall:         {"OP_CALL", []int{1}},
	// OpClosure's trailing (is_local, index) pairs are variable-length and
	// handled specially by the disassembler/reader, not through OperandWidths.
	OpClosure:      {"OP_CLOSURE", []int{1}},
	OpCloseUpvalue: {"OP_CLOSE_UPVALUE", nil},
	OpReturn:       {"OP_RETURN", nil},
}

// Lookup returns the Definition for an opcode byte, or false if it's unknown.
func Lookup(op byte) (*Definition, bool) {
	def, ok := definitions[OpCode(op)]
	return def, ok
}

// Chunk is an ordered sequence of bytecode bytes, a parallel ordered
// sequence of source line numbers (same length as Code), and a pool of
// constant Values addressed by the CONSTANT family of opcodes.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte to Code and its source line to Lines in lockstep.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOpCode is Write with the opcode's byte value.
func (c *Chunk) WriteOpCode(op OpCode, line int) int {
	offset := len(c.Code)
	c.Write(byte(op), line)
	return offset
}

// WriteUint16 appends a big-endian 16-bit immediate, used for jump offsets
// and long-form operands.
func (c *Chunk) WriteUint16(v uint16, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// AddConstant appends a Value to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// PatchUint16 overwrites the big-endian 16-bit immediate at offset, used to
// back-patch a forward jump once its target is known.
func (c *Chunk) PatchUint16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:], v)
}

// ReadUint16 reads a big-endian 16-bit immediate at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}
