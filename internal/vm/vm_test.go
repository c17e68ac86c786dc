package vm

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/tephra-lang/tephra/internal/compiler"
	"github.com/tephra-lang/tephra/internal/intern"
)

// runSource compiles and interprets src, capturing everything written to
// stdout via OP_PRINT, and returns that output alongside any runtime
// error.
func runSource(t *testing.T, src string) (string, error) {
	t.Helper()

	interner := intern.New()
	fn, errs := compiler.Compile(src, interner)
	if fn == nil {
		t.Fatalf("unexpected compile errors: %v", errs)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w

	machine := New(interner)
	runErr := machine.Interpret(fn)

	w.Close()
	os.Stdout = stdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := runSource(t, "print 1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("got %q, want \"7\"", out)
	}
}

func TestStringConcatenationAndEquality(t *testing.T) {
	out, err := runSource(t, `
var a = "foo" + "bar";
print a == "foobar";
`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("got %q, want \"true\"", out)
	}
}

func TestForLoopAccumulation(t *testing.T) {
	out, err := runSource(t, `
var total = 0;
for (var i = 0; i < 5; i = i + 1) {
  total = total + i;
}
print total;
`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "10" {
		t.Fatalf("got %q, want \"10\"", out)
	}
}

func TestClosureCapturesOutOfScopeParameter(t *testing.T) {
	out, err := runSource(t, `
fun makeAdder(x) {
  fun adder(y) {
    return x + y;
  }
  return adder;
}

var addFive = makeAdder(5);
print addFive(3);
`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "8" {
		t.Fatalf("got %q, want \"8\"", out)
	}
}

func TestRecursiveFibonacci(t *testing.T) {
	out, err := runSource(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "55" {
		t.Fatalf("got %q, want \"55\"", out)
	}
}

func TestUndefinedGlobalIsARuntimeError(t *testing.T) {
	_, err := runSource(t, "print nope;")
	if err == nil {
		t.Fatalf("expected a runtime error for an undefined global")
	}
	if !strings.Contains(err.Error(), "Undefined variable 'nope'") {
		t.Fatalf("got %q, want it to mention the undefined variable", err.Error())
	}
}

func TestEachClosureGetsItsOwnUpvalue(t *testing.T) {
	out, err := runSource(t, `
fun makeCounter() {
  var count = 0;
  fun increment() {
    count = count + 1;
    return count;
  }
  return increment;
}

var counterA = makeCounter();
var counterB = makeCounter();
print counterA();
print counterA();
print counterB();
`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	got := strings.Fields(out)
	want := []string{"1", "2", "1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCallingANonFunctionIsARuntimeError(t *testing.T) {
	_, err := runSource(t, `
var notAFunction = 1;
notAFunction();
`)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Can only call functions") {
		t.Fatalf("got %q, want it to mention calling a non-function", err.Error())
	}
}

func TestWrongArityIsARuntimeError(t *testing.T) {
	_, err := runSource(t, `
fun needsTwo(a, b) { return a + b; }
needsTwo(1);
`)
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Expected 2 arguments but got 1") {
		t.Fatalf("got %q, want it to mention the arity mismatch", err.Error())
	}
}
