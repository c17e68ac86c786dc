package compiler

import "github.com/tephra-lang/tephra/internal/token"

// Precedence is the Pratt parser's binding-power ladder, ascending from
// "no expression at all" to the tightest-binding primary expressions
// (spec.md §4.4 "Pratt table").
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// parseFn is a closed set of rule tags, dispatched through a switch in
// dispatchPrefix/dispatchInfix rather than a table of Go function values —
// this keeps the table-driven shape of a Pratt grammar (spec.md §9 design
// note) without reaching for dynamic dispatch.
type parseFn int

const (
	fnNone parseFn = iota
	fnGrouping
	fnUnary
	fnBinary
	fnNumber
	fnString
	fnLiteral
	fnVariable
	fnAnd
	fnOr
	fnCall
)

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules = map[token.Kind]rule{
	token.LeftParen:    {fnGrouping, fnCall, PrecCall},
	token.RightParen:   {fnNone, fnNone, PrecNone},
	token.LeftBrace:    {fnNone, fnNone, PrecNone},
	token.RightBrace:   {fnNone, fnNone, PrecNone},
	token.Comma:        {fnNone, fnNone, PrecNone},
	token.Dot:          {fnNone, fnNone, PrecNone},
	token.Minus:        {fnUnary, fnBinary, PrecTerm},
	token.Plus:         {fnNone, fnBinary, PrecTerm},
	token.Semicolon:    {fnNone, fnNone, PrecNone},
	token.Slash:        {fnNone, fnBinary, PrecFactor},
	token.Star:         {fnNone, fnBinary, PrecFactor},
	token.Bang:         {fnUnary, fnNone, PrecNone},
	token.BangEqual:    {fnNone, fnBinary, PrecEquality},
	token.Equal:        {fnNone, fnNone, PrecNone},
	token.EqualEqual:   {fnNone, fnBinary, PrecEquality},
	token.Greater:      {fnNone, fnBinary, PrecComparison},
	token.GreaterEqual: {fnNone, fnBinary, PrecComparison},
	token.Less:         {fnNone, fnBinary, PrecComparison},
	token.LessEqual:    {fnNone, fnBinary, PrecComparison},
	token.Identifier:   {fnVariable, fnNone, PrecNone},
	token.String:       {fnString, fnNone, PrecNone},
	token.Number:       {fnNumber, fnNone, PrecNone},
	token.And:          {fnNone, fnAnd, PrecAnd},
	token.Class:        {fnNone, fnNone, PrecNone},
	token.Else:         {fnNone, fnNone, PrecNone},
	token.False:        {fnLiteral, fnNone, PrecNone},
	token.For:          {fnNone, fnNone, PrecNone},
	token.Fun:          {fnNone, fnNone, PrecNone},
	token.If:           {fnNone, fnNone, PrecNone},
	token.Nil:          {fnLiteral, fnNone, PrecNone},
	token.Or:           {fnNone, fnOr, PrecOr},
	token.Print:        {fnNone, fnNone, PrecNone},
	token.Return:       {fnNone, fnNone, PrecNone},
	token.Super:        {fnNone, fnNone, PrecNone},
	token.This:         {fnNone, fnNone, PrecNone},
	token.True:         {fnLiteral, fnNone, PrecNone},
	token.Var:          {fnNone, fnNone, PrecNone},
	token.While:        {fnNone, fnNone, PrecNone},
	token.Error:        {fnNone, fnNone, PrecNone},
	token.EOF:          {fnNone, fnNone, PrecNone},
}

func getRule(k token.Kind) rule {
	if r, ok := rules[k]; ok {
		return r
	}
	return rule{fnNone, fnNone, PrecNone}
}
