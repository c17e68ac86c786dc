// Package value defines the runtime value representation shared by the
// compiler and the virtual machine: the tagged union of nil, bool, number
// and heap object, and the heap object kinds themselves (strings,
// functions, native functions, closures, upvalues).
package value

import (
	"fmt"
	"strconv"
)

// Value is the tagged union every bytecode operand, stack slot, local and
// constant-pool entry carries. Nil, Bool, Number, and the object pointer
// types (*ObjString, *ObjFunction, *ObjNative, *ObjClosure, *ObjUpvalue) are
// the concrete types that satisfy it.
type Value interface {
	String() string
	Truthy() bool
}

// Nil is the singleton nil value; Go's untyped nil is deliberately not
// reused as a Value so that a missing/zero Value and an explicit nil are
// never confused.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Truthy() bool   { return false }

var NilValue Value = Nil{}

type Bool bool

func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}
func (v Bool) Truthy() bool { return bool(v) }

// Number is the language's sole numeric type, an IEEE-754 double.
type Number float64

func (v Number) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}
func (v Number) Truthy() bool { return true }

// Equal implements the equality invariant from the data model: same tag
// and same payload, with object identity (not content) deciding equality
// for everything but numbers and bools. Interning is what makes string
// identity coincide with string content.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	default:
		return a == b
	}
}

func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	return v.Truthy()
}

// ObjKind distinguishes heap object payloads for callers that need to
// branch on kind without a type switch on every concrete pointer type.
type ObjKind int

const (
	ObjStringKind ObjKind = iota
	ObjFunctionKind
	ObjNativeKind
	ObjClosureKind
)

// ObjString is a heap-allocated, interned character buffer. Every
// ObjString produced through the interner (internal/intern) is unique for
// its byte content, so pointer equality is content equality.
type ObjString struct {
	Chars []byte
	Hash  uint32
}

func (s *ObjString) String() string { return string(s.Chars) }
func (s *ObjString) Truthy() bool   { return true }
func (s *ObjString) Kind() ObjKind  { return ObjStringKind }

// FunctionKind distinguishes the implicit top-level script function from
// ordinary `fun` declarations, mirroring the compiler's two function
// contexts.
type FunctionKind int

const (
	FunctionScript FunctionKind = iota
	FunctionFunction
)

// ObjFunction is a compiled function: its arity, the chunk of bytecode
// implementing its body, and how many upvalues its CLOSURE instruction
// captures. The (is_local, index) pair for each captured upvalue is not
// duplicated here — it lives only in the bytecode immediately following
// the CLOSURE opcode (spec.md §4.2), and UpvalueCount just tells the
// disassembler/VM how many trailing pairs to read. Chunk is `interface{}`
// here to avoid an import cycle with internal/chunk (which itself holds
// Values in its constant pool); the compiler and VM both import
// internal/chunk and assert the concrete type back.
type ObjFunction struct {
	Arity        int
	Name         *ObjString
	FnKind       FunctionKind
	UpvalueCount int
	Chunk        interface{}
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.String())
}
func (f *ObjFunction) Truthy() bool  { return true }
func (f *ObjFunction) Kind() ObjKind { return ObjFunctionKind }

// NativeFn is the signature every native (host-implemented) function must
// satisfy: it receives its argument slice and returns either a result or a
// runtime error message.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a host function so it can live in the globals table and
// be called through OpCall exactly like a closure.
type ObjNative struct {
	Name string
	Fn   NativeFn
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *ObjNative) Truthy() bool   { return true }
func (n *ObjNative) Kind() ObjKind  { return ObjNativeKind }

// ObjUpvalue is the indirection a closure uses to read or write a variable
// declared in an enclosing function. While IsOpen it aliases a live stack
// slot (Slot is an index into the VM's value stack); once the VM closes it
// it owns its own Value storage (Closed) and Slot/stack access stop being
// consulted. Next chains open upvalues into the VM's sorted open-upvalue
// list.
type ObjUpvalue struct {
	Slot   int // stack index this upvalue aliases while open
	Closed Value
	IsOpen bool
	Next   *ObjUpvalue
}

func (u *ObjUpvalue) String() string { return "<upvalue>" }
func (u *ObjUpvalue) Truthy() bool   { return true }

// ObjClosure pairs a compiled function with the upvalues it captured at
// creation time.
type ObjClosure struct {
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) String() string { return c.Function.String() }
func (c *ObjClosure) Truthy() bool   { return true }
func (c *ObjClosure) Kind() ObjKind  { return ObjClosureKind }

// TypeName returns the language-level type name of any Value, used by the
// `type` native.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case *ObjString:
		return "string"
	case *ObjFunction, *ObjClosure, *ObjNative:
		return "function"
	default:
		return "unknown"
	}
}
