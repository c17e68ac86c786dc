package compiler

import (
	"strings"
	"testing"

	"github.com/tephra-lang/tephra/internal/chunk"
	"github.com/tephra-lang/tephra/internal/intern"
	"github.com/tephra-lang/tephra/internal/value"
)

func compileOK(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	fn, errs := Compile(src, intern.New())
	if fn == nil {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	return fn.Chunk.(*chunk.Chunk)
}

func TestCompileArithmeticEmitsExpectedOpcodes(t *testing.T) {
	c := compileOK(t, "print 1 + 2 * 3;")

	want := []chunk.OpCode{
		chunk.OpConstant, chunk.OpConstant, chunk.OpConstant,
		chunk.OpMultiply, chunk.OpAdd, chunk.OpPrint,
		chunk.OpNil, chunk.OpReturn,
	}
	var got []chunk.OpCode
	for i := 0; i < len(c.Code); {
		op := chunk.OpCode(c.Code[i])
		got = append(got, op)
		def, _ := chunk.Lookup(byte(op))
		i += 1 + sumWidths(def.OperandWidths)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d opcodes %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcode %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func sumWidths(ws []int) int {
	total := 0
	for _, w := range ws {
		total += w
	}
	return total
}

func TestCompileUndefinedVariableIsNotACompileError(t *testing.T) {
	// Referencing an unresolved identifier compiles to OP_GET_GLOBAL; the
	// undefined-global check only happens at runtime (spec.md §4.5).
	_, errs := Compile("print nope;", intern.New())
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
}

func TestCompileErrorMessageFormat(t *testing.T) {
	_, errs := Compile("1 +;", intern.New())
	if len(errs) == 0 {
		t.Fatalf("expected a compile error")
	}
	if !strings.HasPrefix(errs[0], "[line 1] Error at ';'") {
		t.Fatalf("got %q, want a diagnostic starting with \"[line 1] Error at ';'\"", errs[0])
	}
}

func TestCompileErrorAtEndOfInput(t *testing.T) {
	_, errs := Compile("var x =", intern.New())
	if len(errs) == 0 {
		t.Fatalf("expected a compile error")
	}
	if !strings.Contains(errs[0], "at end") {
		t.Fatalf("got %q, want it to mention \"at end\"", errs[0])
	}
}

func TestCompileDuplicateLocalIsAnError(t *testing.T) {
	_, errs := Compile("{ var a = 1; var a = 2; }", intern.New())
	if len(errs) == 0 {
		t.Fatalf("expected a compile error for duplicate local declaration")
	}
}

func TestCompileRedeclaredGlobalIsAllowed(t *testing.T) {
	_, errs := Compile("var a = 1; var a = 2; print a;", intern.New())
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors for redeclared global: %v", errs)
	}
}

func TestCompileReturnOutsideFunctionIsAnError(t *testing.T) {
	_, errs := Compile("return 1;", intern.New())
	if len(errs) == 0 {
		t.Fatalf("expected a compile error for top-level return")
	}
}

func TestCompileClosureCapturesEnclosingLocal(t *testing.T) {
	c := compileOK(t, `
fun makeCounter() {
  var count = 0;
  fun increment() {
    count = count + 1;
    return count;
  }
  return increment;
}
`)

	var makeCounter *value.ObjFunction
	for _, k := range c.Constants {
		if fn, ok := k.(*value.ObjFunction); ok {
			makeCounter = fn
		}
	}
	if makeCounter == nil {
		t.Fatalf("expected the script's constants to hold makeCounter")
	}
	body := makeCounter.Chunk.(*chunk.Chunk)

	// makeCounter's body: OP_CONSTANT 0, OP_CLOSURE <increment>, then one
	// (is_local=1, index=1) pair capturing count from local slot 1.
	foundClosure := false
	for i := 0; i+3 < len(body.Code); i++ {
		if chunk.OpCode(body.Code[i]) == chunk.OpClosure {
			fn, ok := body.Constants[body.Code[i+1]].(*value.ObjFunction)
			if ok && fn.UpvalueCount == 1 && body.Code[i+2] == 1 && body.Code[i+3] == 1 {
				foundClosure = true
			}
		}
	}
	if !foundClosure {
		t.Fatalf("expected makeCounter's body to emit OP_CLOSURE for increment capturing local slot 1")
	}
}
