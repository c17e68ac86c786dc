// Package highlight wires a custom chroma lexer for REPL syntax
// highlighting, replacing the teacher's hand-rolled bin/main.go
// highlight() (which walked its own tokenizer output and called
// color.GreenString/color.MagentaString directly) with the same
// Tokenise-then-format pipeline chroma itself exists for.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/styles"
)

var lexer = chroma.MustNewLexer(
	&chroma.Config{
		Name:      "tephra",
		Filenames: []string{"*.tephra"},
		MimeTypes: []string{"text/x-tephra"},
	},
	chroma.Rules{
		"root": {
			{Pattern: `//.*$`, Type: chroma.CommentSingle, Mutator: nil},
			{Pattern: `\s+`, Type: chroma.TextWhitespace, Mutator: nil},
			{Pattern: `"[^"]*"`, Type: chroma.LiteralString, Mutator: nil},
			{Pattern: `\d+(\.\d+)?`, Type: chroma.LiteralNumber, Mutator: nil},
			{Pattern: `\b(and|class|else|false|for|fun|if|nil|or|print|return|super|this|true|var|while)\b`, Type: chroma.Keyword, Mutator: nil},
			{Pattern: `[A-Za-z_][A-Za-z0-9_]*`, Type: chroma.Name, Mutator: nil},
			{Pattern: `[(){};,.]`, Type: chroma.Punctuation, Mutator: nil},
			{Pattern: `[-+*/!=<>]+`, Type: chroma.Operator, Mutator: nil},
			{Pattern: `.`, Type: chroma.Error, Mutator: nil},
		},
	},
)

var style = styles.Get("monokai")
var formatter = formatters.TTY16

// Line renders one line of source with ANSI color codes, for use as a
// readline syntax highlighter callback. On any lexer/formatter error it
// falls back to the plain, uncolored line rather than dropping input.
func Line(line []rune) string {
	source := string(line)
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var out strings.Builder
	if err := formatter.Format(&out, style, iterator); err != nil {
		return source
	}
	return out.String()
}
