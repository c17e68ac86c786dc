// Package diagnostic formats compiler and runtime failures for the CLI
// layer to print to stderr, matching spec.md §6/§7's message shape
// exactly. Kept deliberately thin and fmt-only: the teacher's own
// diagnostics (compiler.go's parser.error, main.go's error printing) are
// themselves plain fmt.Fprintln calls, so no logging library earns its
// place here.
package diagnostic

import (
	"fmt"
	"os"
)

// PrintCompileErrors writes every compile-time diagnostic, one per line,
// to stderr.
func PrintCompileErrors(errs []string) {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
}

// PrintRuntimeError writes a runtime error (already including its
// call-stack trace) to stderr.
func PrintRuntimeError(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
}
