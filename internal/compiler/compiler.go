// Package compiler implements the single-pass Pratt compiler: scanning,
// parsing, lexical-scope resolution (globals, locals, captured upvalues)
// and bytecode emission all happen in one fused pass with no intermediate
// AST (spec.md §4.4, §9 "Single-pass compile"). It is grounded on the
// teacher's compiler.go (SymbolTable/scopes/emit/patchJump) and parse.go
// (precedence-climbing parser), generalized from ion's two-phase
// AST-then-compile design into the fused scan-parse-emit structure
// spec.md requires, and from ion's free-variable capture (defineFree/
// resolve) into true open/closed upvalues.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/tephra-lang/tephra/internal/chunk"
	"github.com/tephra-lang/tephra/internal/intern"
	"github.com/tephra-lang/tephra/internal/token"
	"github.com/tephra-lang/tephra/internal/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxConstants = 256

// local is a compile-time-only record of a declared local variable: its
// name, the scope depth it was declared at (-1 while its initializer is
// being compiled), and whether any nested function captures it as an
// upvalue.
type local struct {
	name     string
	depth    int
	captured bool
}

// upvalueDesc is a compile-time descriptor of a captured variable, as
// spec.md §3 "Upvalue descriptor" describes: an index into the enclosing
// function's locals (IsLocal) or its own upvalues, and which.
type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// state is one compiler record per function being compiled, linked to its
// enclosing record — spec.md §3 "Compiler record".
type state struct {
	enclosing  *state
	function   *value.ObjFunction
	chunk      *chunk.Chunk
	kind       value.FunctionKind
	locals     []local
	upvalues   []upvalueDesc
	scopeDepth int
}

// Compiler holds parser state (current/previous token, error flags) plus
// the chain of function compiler records.
type Compiler struct {
	scanner   *token.Scanner
	interner  *intern.Interner
	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool
	errors    []string
	state     *state
}

// Compile compiles source into a top-level script function, or returns
// nil with the formatted diagnostics (spec.md §6 format) if compilation
// failed. interner is the shared string intern table (spec.md §4.3) string
// constants are interned into.
func Compile(source string, interner *intern.Interner) (*value.ObjFunction, []string) {
	c := &Compiler{scanner: token.New(source), interner: interner}
	c.state = newState(nil, value.FunctionScript, nil)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endCompiler()
	if c.hadError {
		return nil, c.errors
	}
	return fn, c.errors
}

func newState(enclosing *state, kind value.FunctionKind, name *value.ObjString) *state {
	st := &state{
		enclosing: enclosing,
		function:  &value.ObjFunction{FnKind: kind, Name: name},
		chunk:     chunk.New(),
		kind:      kind,
	}
	// Slot 0 is reserved: for a called function it holds the callee
	// itself (the closure), letting a bare function body reference slot
	// 0 uniformly; the script's "caller" follows the same convention.
	st.locals = append(st.locals, local{name: "", depth: 0})
	return st
}

func (c *Compiler) currentChunk() *chunk.Chunk { return c.state.chunk }

// ---- token stream -------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Kind != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// ---- error reporting -----------------------------------------------------

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

// errorAt formats a diagnostic exactly as spec.md §6 requires and
// suppresses cascades while panicMode is set (spec.md §7 "Compile
// errors").
func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch {
	case tok.Kind == token.EOF:
		where = " at end"
	case tok.Kind == token.Error:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errors = append(c.errors, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg))
}

func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// ---- emission -------------------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op chunk.OpCode) {
	c.currentChunk().WriteOpCode(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op chunk.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

// emitJump emits a jump family instruction with a placeholder 16-bit
// offset and returns the offset of that placeholder for later patching.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.currentChunk().PatchUint16(offset, uint16(jump))
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) emitReturn() {
	c.emitOp(chunk.OpNil)
	c.emitOp(chunk.OpReturn)
}

// makeConstant appends v to the current chunk's constant pool and returns
// its index, erroring only if the index would not fit a 16-bit operand.
// Callers that address the constant with a 1-byte operand (GET/SET/DEFINE
// GLOBAL, CLOSURE's fn-idx) check the 0xff limit themselves; emitConstant
// below is the one path that falls back to the 16-bit long form instead of
// erroring.
func (c *Compiler) makeConstant(v value.Value) int {
	idx := c.currentChunk().AddConstant(v)
	if idx > 0xffff {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return idx
}

// emitConstant pushes v via OP_CONSTANT, or OP_CONSTANT_LONG once the pool
// exceeds the 1-byte index range — the optional 16-bit variant spec.md
// §4.2 allows.
func (c *Compiler) emitConstant(v value.Value) {
	idx := c.makeConstant(v)
	if idx <= 0xff {
		c.emitOpByte(chunk.OpConstant, byte(idx))
	} else {
		c.emitOp(chunk.OpConstantLong)
		c.emitByte(byte(idx >> 8))
		c.emitByte(byte(idx))
	}
}

func (c *Compiler) endCompiler() *value.ObjFunction {
	c.emitReturn()
	fn := c.state.function
	fn.Chunk = c.state.chunk
	fn.UpvalueCount = len(c.state.upvalues)
	return fn
}

// ---- scopes ---------------------------------------------------------------

func (c *Compiler) beginScope() { c.state.scopeDepth++ }

func (c *Compiler) endScope() {
	c.state.scopeDepth--
	st := c.state
	for len(st.locals) > 0 && st.locals[len(st.locals)-1].depth > st.scopeDepth {
		last := st.locals[len(st.locals)-1]
		if last.captured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		st.locals = st.locals[:len(st.locals)-1]
	}
}

// ---- declarations -----------------------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Fun):
		c.funDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(value.FunctionFunction)
	c.defineVariable(global)
}

func (c *Compiler) function(kind value.FunctionKind) {
	name := c.interner.Copy([]byte(c.previous.Lexeme))
	enclosingState := c.state
	c.state = newState(enclosingState, kind, name)

	c.beginScope()

	c.consume(token.LeftParen, "Expect '(' after function name.")
	if !c.check(token.RightParen) {
		for {
			c.state.function.Arity++
			if c.state.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramConst)
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after parameters.")
	c.consume(token.LeftBrace, "Expect '{' before function body.")
	c.block()

	fn := c.endCompiler()
	upvalues := c.state.upvalues
	c.state = enclosingState

	idx := c.makeConstant(fn)
	if idx <= 0xff {
		c.emitOpByte(chunk.OpClosure, byte(idx))
	} else {
		c.error("Too many constants in one chunk.")
	}
	for _, uv := range upvalues {
		c.emitByte(boolByte(uv.isLocal))
		c.emitByte(uv.index)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

// parseVariable consumes an identifier, declares it (as a local if inside
// a scope) and, for globals, returns the constant-pool index of its name;
// for locals the return value is unused by the caller.
func (c *Compiler) parseVariable(msg string) int {
	c.consume(token.Identifier, msg)
	name := c.previous.Lexeme

	c.declareVariable(name)
	if c.state.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) identifierConstant(name string) int {
	return c.makeConstant(c.interner.Copy([]byte(name)))
}

// declareVariable adds name as a local in the current scope, unless we're
// at global scope (depth 0), where declaration is deferred entirely to
// DEFINE_GLOBAL and re-declaration is legal (spec.md §9 open question:
// only locals are checked for duplicates).
func (c *Compiler) declareVariable(name string) {
	if c.state.scopeDepth == 0 {
		return
	}

	st := c.state
	for i := len(st.locals) - 1; i >= 0; i-- {
		l := st.locals[i]
		if l.depth != -1 && l.depth < st.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with same name in this scope.")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.state.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.state.locals = append(c.state.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.state.scopeDepth == 0 {
		return
	}
	c.state.locals[len(c.state.locals)-1].depth = c.state.scopeDepth
}

func (c *Compiler) defineVariable(global int) {
	if c.state.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	if global <= 0xff {
		c.emitOpByte(chunk.OpDefineGlobal, byte(global))
	} else {
		c.error("Too many constants in one chunk.")
	}
}

// ---- statements -------------------------------------------------------------

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.state.kind == value.FunctionScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after return value.")
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(chunk.OpPop)
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}

	c.endScope()
}

// ---- expressions ------------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Kind).prefix
	if prefix == fnNone {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	c.dispatchPrefix(prefix, canAssign)

	for prec <= getRule(c.current.Kind).prec {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		c.dispatchInfix(infix, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) dispatchPrefix(fn parseFn, canAssign bool) {
	switch fn {
	case fnGrouping:
		c.grouping()
	case fnUnary:
		c.unary()
	case fnNumber:
		c.number()
	case fnString:
		c.string()
	case fnLiteral:
		c.literal()
	case fnVariable:
		c.variable(canAssign)
	}
}

func (c *Compiler) dispatchInfix(fn parseFn, canAssign bool) {
	switch fn {
	case fnBinary:
		c.binary()
	case fnAnd:
		c.and()
	case fnOr:
		c.or()
	case fnCall:
		c.call()
	}
}

func (c *Compiler) grouping() {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary() {
	op := c.previous.Kind
	c.parsePrecedence(PrecUnary)

	switch op {
	case token.Minus:
		c.emitOp(chunk.OpNegate)
	case token.Bang:
		c.emitOp(chunk.OpNot)
	}
}

func (c *Compiler) binary() {
	op := c.previous.Kind
	r := getRule(op)
	c.parsePrecedence(r.prec + 1)

	switch op {
	case token.Plus:
		c.emitOp(chunk.OpAdd)
	case token.Minus:
		c.emitOp(chunk.OpSubtract)
	case token.Star:
		c.emitOp(chunk.OpMultiply)
	case token.Slash:
		c.emitOp(chunk.OpDivide)
	case token.EqualEqual:
		c.emitOp(chunk.OpEqual)
	case token.BangEqual:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.Greater:
		c.emitOp(chunk.OpGreater)
	case token.GreaterEqual:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.Less:
		c.emitOp(chunk.OpLess)
	case token.LessEqual:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	}
}

func (c *Compiler) and() {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or() {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) call() {
	argc := c.argumentList()
	c.emitOpByte(chunk.OpCall, byte(argc))
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(token.RightParen) {
		for {
			c.expression()
			if argc == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after arguments.")
	return argc
}

func (c *Compiler) number() {
	v, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(v))
}

func (c *Compiler) string() {
	lexeme := c.previous.Lexeme
	text := lexeme[1 : len(lexeme)-1]
	s := c.interner.Copy([]byte(text))
	c.emitConstant(s)
}

func (c *Compiler) literal() {
	switch c.previous.Kind {
	case token.False:
		c.emitOp(chunk.OpFalse)
	case token.True:
		c.emitOp(chunk.OpTrue)
	case token.Nil:
		c.emitOp(chunk.OpNil)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var arg int

	if idx, ok := c.resolveLocal(c.state, name.Lexeme); ok {
		arg, getOp, setOp = idx, chunk.OpGetLocal, chunk.OpSetLocal
	} else if idx, ok := c.resolveUpvalue(c.state, name.Lexeme); ok {
		arg, getOp, setOp = idx, chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg, getOp, setOp = c.identifierConstant(name.Lexeme), chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if arg > 0xff {
		c.error("Too many constants in one chunk.")
		return
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

// resolveLocal walks st's locals top to bottom by exact name match
// (spec.md §4.4 "Local resolution").
func (c *Compiler) resolveLocal(st *state, name string) (int, bool) {
	for i := len(st.locals) - 1; i >= 0; i-- {
		if st.locals[i].name == name {
			if st.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return -1, false
}

// resolveUpvalue recursively resolves name in enclosing compiler records,
// marking the enclosing local captured and registering an upvalue
// descriptor at each level it has to cross (spec.md §4.4 "Upvalue
// resolution").
func (c *Compiler) resolveUpvalue(st *state, name string) (int, bool) {
	if st.enclosing == nil {
		return -1, false
	}

	if localIdx, ok := c.resolveLocal(st.enclosing, name); ok {
		st.enclosing.locals[localIdx].captured = true
		return c.addUpvalue(st, uint8(localIdx), true), true
	}

	if upvalIdx, ok := c.resolveUpvalue(st.enclosing, name); ok {
		return c.addUpvalue(st, uint8(upvalIdx), false), true
	}

	return -1, false
}

// addUpvalue registers a descriptor in st's function, reusing a matching
// existing one so repeated references to the same captured variable share
// a single upvalue slot (idempotent registration, spec.md §4.4).
func (c *Compiler) addUpvalue(st *state, index uint8, isLocal bool) int {
	for i, uv := range st.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(st.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	st.upvalues = append(st.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	return len(st.upvalues) - 1
}
