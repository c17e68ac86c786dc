// Command tephra is the language's CLI: with no arguments it starts a
// readline-backed REPL with syntax highlighting; with one argument it
// compiles and runs that file. Grounded on the teacher's bin/main.go
// (flag-based usage, reeflective/readline REPL, fatih/color) restructured
// around this compiler/vm instead of ion's core package, and on spec.md
// §6's exit-code table.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/reeflective/readline"

	"github.com/tephra-lang/tephra/internal/compiler"
	"github.com/tephra-lang/tephra/internal/diagnostic"
	"github.com/tephra-lang/tephra/internal/highlight"
	"github.com/tephra-lang/tephra/internal/intern"
	"github.com/tephra-lang/tephra/internal/vm"
)

const helpMessage = `tephra is a tiny scripting language.

Usage:
  tephra [file]
`

// Exit codes, spec.md §6.
const (
	exitOK         = 0
	exitUsage      = 64
	exitCompileErr = 65
	exitRuntimeErr = 70
	exitIOErr      = 74
)

var trace = flag.Bool("trace", false, "trace each instruction as it executes")

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpMessage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	switch len(args) {
	case 0:
		repl()
	case 1:
		runFile(args[0])
	default:
		fmt.Fprintln(os.Stderr, "Usage: tephra [file]")
		os.Exit(exitUsage)
	}
}

func runFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitIOErr)
	}

	interner := intern.New()
	fn, errs := compiler.Compile(string(content), interner)
	if fn == nil {
		diagnostic.PrintCompileErrors(errs)
		os.Exit(exitCompileErr)
	}

	machine := vm.New(interner)
	machine.Trace = *trace
	if err := machine.Interpret(fn); err != nil {
		diagnostic.PrintRuntimeError(err)
		os.Exit(exitRuntimeErr)
	}
	os.Exit(exitOK)
}

func repl() {
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return color.CyanString("> ") })
	rl.SyntaxHighlighter = highlight.Line

	interner := intern.New()
	machine := vm.New(interner)
	machine.Trace = *trace

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}

		fn, errs := compiler.Compile(line, interner)
		if fn == nil {
			diagnostic.PrintCompileErrors(errs)
			continue
		}

		if err := machine.Interpret(fn); err != nil {
			diagnostic.PrintRuntimeError(err)
		}
	}
}
