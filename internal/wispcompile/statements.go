package wispcompile

import (
	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wisplex"
)

// declaration is the top of the statement grammar: anything that can
// introduce a new name falls through to statement() otherwise (spec.md
// §4.G).
func (c *Compiler) declaration() {
	switch {
	case c.match(wisplex.TokenClass):
		c.classDeclaration()
	case c.match(wisplex.TokenFun):
		c.funDeclaration()
	case c.match(wisplex.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(wisplex.TokenPrint):
		c.printStatement()
	case c.match(wisplex.TokenIf):
		c.ifStatement()
	case c.match(wisplex.TokenWhile):
		c.whileStatement()
	case c.match(wisplex.TokenFor):
		c.forStatement()
	case c.match(wisplex.TokenForeach):
		c.foreachStatement()
	case c.match(wisplex.TokenReturn):
		c.returnStatement()
	case c.match(wisplex.TokenBreak):
		c.breakStatement()
	case c.match(wisplex.TokenContinue):
		c.continueStatement()
	case c.match(wisplex.TokenTry):
		c.tryStatement()
	case c.match(wisplex.TokenThrow):
		c.throwStatement()
	case c.match(wisplex.TokenImport):
		c.importStatement()
	case c.match(wisplex.TokenLeftBrace):
		c.blockStatement()
	default:
		c.expressionStatement()
	}
}

// block compiles declarations up to a closing '}', which it consumes;
// the opening '{' is always consumed by the caller, since function
// bodies and brace-statement bodies reach it from different places.
func (c *Compiler) block() {
	for !c.check(wisplex.TokenRightBrace) && !c.check(wisplex.TokenEOF) {
		c.declaration()
		if c.panicMode {
			c.synchronize()
		}
	}
	c.consume(wisplex.TokenRightBrace, "expected '}' after block")
}

func (c *Compiler) blockStatement() {
	c.beginScope()
	c.block()
	c.endScope()
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(wisplex.TokenSemicolon, "expected ';' after expression")
	c.emitOp(wisp.OpPop)
}

// printStatement has no dedicated opcode: `print expr;` compiles to a
// call of the "print" global the standard library installs, the same
// way any other builtin is invoked.
func (c *Compiler) printStatement() {
	idx := c.identifierConstant("print")
	c.emitOpU16(wisp.OpGetGlobal, uint16(idx))
	c.expression()
	c.consume(wisplex.TokenSemicolon, "expected ';' after value")
	c.emitOpU8(wisp.OpCall, 1)
	c.emitOp(wisp.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(wisplex.TokenLeftParen, "expected '(' after 'if'")
	c.expression()
	c.consume(wisplex.TokenRightParen, "expected ')' after condition")

	thenJump := c.emitJump(wisp.OpJumpIfFalse)
	c.emitOp(wisp.OpPop)
	c.statement()
	elseJump := c.emitJump(wisp.OpJump)

	c.patchJump(thenJump)
	c.emitOp(wisp.OpPop)
	if c.match(wisplex.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.currentOffset()
	c.consume(wisplex.TokenLeftParen, "expected '(' after 'while'")
	c.expression()
	c.consume(wisplex.TokenRightParen, "expected ')' after condition")

	exitJump := c.emitJump(wisp.OpJumpIfFalse)
	c.emitOp(wisp.OpPop)

	loop := &loopContext{start: loopStart, scopeDepth: c.fc.scopeDepth, handlerDepth: c.fc.handlerDepth, enclosing: c.fc.loop}
	c.fc.loop = loop

	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(wisp.OpPop)
	for _, b := range loop.breaks {
		c.patchJump(b)
	}
	c.fc.loop = loop.enclosing
}

// forStatement compiles the classic three-clause C-style for loop,
// desugaring the increment clause into a jump dance around the loop
// body so the condition test still sits at the top (spec.md §4.G).
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(wisplex.TokenLeftParen, "expected '(' after 'for'")

	switch {
	case c.match(wisplex.TokenSemicolon):
	case c.match(wisplex.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentOffset()
	exitJump := -1
	if !c.match(wisplex.TokenSemicolon) {
		c.expression()
		c.consume(wisplex.TokenSemicolon, "expected ';' after loop condition")
		exitJump = c.emitJump(wisp.OpJumpIfFalse)
		c.emitOp(wisp.OpPop)
	}

	if !c.check(wisplex.TokenRightParen) {
		bodyJump := c.emitJump(wisp.OpJump)
		incrStart := c.currentOffset()
		c.expression()
		c.emitOp(wisp.OpPop)
		c.consume(wisplex.TokenRightParen, "expected ')' after for clauses")
		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	} else {
		c.consume(wisplex.TokenRightParen, "expected ')' after for clauses")
	}

	loop := &loopContext{start: loopStart, scopeDepth: c.fc.scopeDepth, handlerDepth: c.fc.handlerDepth, enclosing: c.fc.loop}
	c.fc.loop = loop

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(wisp.OpPop)
	}
	for _, b := range loop.breaks {
		c.patchJump(b)
	}
	c.fc.loop = loop.enclosing
	c.endScope()
}

// foreachStatement compiles `foreach (x in expr) body` and the
// two-variable `foreach (k, v in expr) body`, driving FOREACH_INIT's
// hasNext()/next() pair directly (spec.md §4.J). The two-variable form
// unpacks next()'s result, which is only meaningful when the iterable
// yields a Tuple per step (maps do; arrays and tuples don't, and over
// one of those UNPACK's non-tuple rule applies: the element goes to the
// first variable and the second gets nil, with no error raised).
func (c *Compiler) foreachStatement() {
	c.beginScope()
	c.consume(wisplex.TokenLeftParen, "expected '(' after 'foreach'")
	c.consume(wisplex.TokenIdentifier, "expected loop variable name")
	firstName := c.prev.Lexeme
	secondName := ""
	if c.match(wisplex.TokenComma) {
		c.consume(wisplex.TokenIdentifier, "expected second loop variable name")
		secondName = c.prev.Lexeme
	}
	c.consume(wisplex.TokenIn, "expected 'in' after loop variable")

	c.emitOp(wisp.OpNil)
	c.addLocal("@hasNext")
	c.markInitialized()
	hasNextSlot := len(c.fc.locals) - 1

	c.emitOp(wisp.OpNil)
	c.addLocal("@next")
	c.markInitialized()
	nextSlot := len(c.fc.locals) - 1

	c.expression()
	c.consume(wisplex.TokenRightParen, "expected ')' after iterable expression")
	c.emitOpU16(wisp.OpForeachInit, uint16(hasNextSlot))
	c.emitU16(uint16(nextSlot))

	c.emitOp(wisp.OpNil)
	c.declareVariable(firstName)
	c.markInitialized()
	firstSlot := len(c.fc.locals) - 1

	secondSlot := -1
	if secondName != "" {
		c.emitOp(wisp.OpNil)
		c.declareVariable(secondName)
		c.markInitialized()
		secondSlot = len(c.fc.locals) - 1
	}

	loop := &loopContext{scopeDepth: c.fc.scopeDepth, handlerDepth: c.fc.handlerDepth, enclosing: c.fc.loop}
	loopStart := c.currentOffset()
	loop.start = loopStart
	c.fc.loop = loop

	c.emitLocalOp(wisp.OpGetLocal, hasNextSlot, false)
	c.emitOpU8(wisp.OpCall, 0)
	exitJump := c.emitJump(wisp.OpJumpIfFalse)
	c.emitOp(wisp.OpPop)

	c.emitLocalOp(wisp.OpGetLocal, nextSlot, false)
	c.emitOpU8(wisp.OpCall, 0)
	if secondSlot >= 0 {
		c.emitOpU8(wisp.OpUnpack, 2)
		c.emitByte(byte(wisp.StorageLocal))
		c.emitU16(uint16(firstSlot))
		c.emitByte(byte(wisp.StorageLocal))
		c.emitU16(uint16(secondSlot))
	} else {
		c.emitLocalOp(wisp.OpSetLocal, firstSlot, false)
		c.emitOp(wisp.OpPop)
	}

	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(wisp.OpPop)
	for _, b := range loop.breaks {
		c.patchJump(b)
	}
	c.fc.loop = loop.enclosing
	c.endScope()
}

func (c *Compiler) breakStatement() {
	loop := c.fc.loop
	if loop == nil {
		c.error("'break' outside a loop")
		return
	}
	c.consume(wisplex.TokenSemicolon, "expected ';' after 'break'")
	c.runPendingFinallies(loop.scopeDepth)
	c.emitLoopUnwind(loop)
	loop.breaks = append(loop.breaks, c.emitJump(wisp.OpJump))
}

func (c *Compiler) continueStatement() {
	loop := c.fc.loop
	if loop == nil {
		c.error("'continue' outside a loop")
		return
	}
	c.consume(wisplex.TokenSemicolon, "expected ';' after 'continue'")
	c.runPendingFinallies(loop.scopeDepth)
	c.emitLoopUnwind(loop)
	c.emitLoop(loop.start)
}

// emitLoopUnwind pops every local and exception handler pushed since
// the loop was entered, so break/continue leave the operand stack and
// per-frame handler list exactly as loop entry found them regardless
// of how deep inside the body they fire.
func (c *Compiler) emitLoopUnwind(loop *loopContext) {
	n := 0
	for i := len(c.fc.locals) - 1; i >= 0 && c.fc.locals[i].depth > loop.scopeDepth; i-- {
		n++
	}
	if n > 0 {
		c.emitOpU8(wisp.OpPopN, byte(n))
	}
	for i := c.fc.handlerDepth; i > loop.handlerDepth; i-- {
		c.emitOp(wisp.OpPopExceptionHandler)
	}
}

func (c *Compiler) returnStatement() {
	if c.match(wisplex.TokenSemicolon) {
		c.runPendingFinallies(-1)
		c.emitReturn()
		return
	}
	if c.fc.isInit {
		c.error("cannot return a value from an initializer")
	}
	c.expression()
	c.consume(wisplex.TokenSemicolon, "expected ';' after return value")
	c.runPendingFinallies(-1)
	c.emitOp(wisp.OpReturn)
}

func (c *Compiler) throwStatement() {
	c.expression()
	c.consume(wisplex.TokenSemicolon, "expected ';' after thrown value")
	c.emitOp(wisp.OpThrow)
}

func (c *Compiler) importStatement() {
	c.consume(wisplex.TokenString, "expected module name string after 'import'")
	nameBytes, err := wisplex.Unescape(c.prev.Lexeme)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.consume(wisplex.TokenSemicolon, "expected ';' after import statement")
	idx := c.identifierConstant(string(nameBytes))
	c.emitOpU16(wisp.OpImport, uint16(idx))
	c.emitOp(wisp.OpPop)
}

// tryStatement compiles try/catch/finally over PUSH_EXCEPTION_HANDLER's
// handler table (spec.md §4.K). Catch bodies are compiled first, in
// source order, with the handler table written once every
// TargetOffset is known; the earlier PUSH_EXCEPTION_HANDLER is then
// backpatched to the table's final position.
//
// When a finally clause is present (detected by peekFinally before a
// single byte of the try body is compiled, since the one-pass compiler
// would otherwise only learn of it after walking past everything that
// might need to run it), three things change: return/break/continue
// compiled anywhere inside the try or catch bodies replay the finally
// block inline before their own exit instruction (funcCompiler.finally,
// consulted by runPendingFinallies); the normal-completion and
// caught-exception paths converge on the same point so the finally body
// compiled at its ordinary source position runs exactly once for both;
// and an implicit `catch (Exception e) { <finally>; throw e; }` is
// appended after the user's own catch clauses so an exception this try
// doesn't catch still runs finally before propagating further (spec.md
// §4.G "propagated throw"). That implicit clause only catches Exception
// subtypes, matching every built-in and user exception that descends
// from the root Exception class; a thrown value of an unrelated class
// skips it the same way it would skip any other catch naming a
// non-matching type.
func (c *Compiler) tryStatement() {
	hasFinally, snap := c.peekFinally()

	handlerPatch := c.emitJump(wisp.OpPushExceptionHandler)
	c.fc.handlerDepth++

	var fctx *finallyCtx
	if hasFinally {
		snap.scopeDepthAtEntry = c.fc.scopeDepth
		snap.enclosing = c.fc.finally
		fctx = &snap
		c.fc.finally = fctx
	}

	c.consume(wisplex.TokenLeftBrace, "expected '{' after 'try'")
	c.blockStatement()

	c.fc.handlerDepth--
	c.emitOp(wisp.OpPopExceptionHandler)
	afterTry := c.emitJump(wisp.OpJump)

	var records []wisp.HandlerRecord
	var catchJumps []int
	for c.match(wisplex.TokenCatch) {
		c.consume(wisplex.TokenLeftParen, "expected '(' after 'catch'")
		c.consume(wisplex.TokenIdentifier, "expected exception type name")
		varClass, varHandle := c.resolveStorage(c.prev.Lexeme)
		c.consume(wisplex.TokenIdentifier, "expected exception variable name")
		varName := c.prev.Lexeme
		c.consume(wisplex.TokenRightParen, "expected ')' after catch clause")

		catchStart := c.currentOffset()
		c.beginScope()
		// The caught instance is already sitting on the stack at this
		// slot: unwind() truncates the stack to the handler's
		// StackLevel and pushes exactly one value before jumping here.
		c.declareVariable(varName)
		c.markInitialized()

		c.consume(wisplex.TokenLeftBrace, "expected '{' after catch clause")
		c.block()
		c.endScope()

		catchJumps = append(catchJumps, c.emitJump(wisp.OpJump))
		records = append(records, wisp.HandlerRecord{VarType: varClass, Handle: varHandle, TargetOffset: uint16(catchStart)})
	}
	if len(records) == 0 {
		c.error("'try' requires at least one 'catch' clause")
	}

	if hasFinally {
		// Leave the try's dynamic extent before compiling anything
		// that runs the finally body itself, so a return/break/continue
		// written inside the finally clause isn't treated as still
		// being inside its own try.
		c.fc.finally = fctx.enclosing

		classIdx := c.identifierConstant("Exception")
		catchStart := c.currentOffset()
		c.beginScope()
		c.addLocal("@rethrow")
		c.markInitialized()
		excSlot := len(c.fc.locals) - 1

		c.replayFinallyBlock(fctx)

		c.emitLocalOp(wisp.OpGetLocal, excSlot, false)
		c.emitOp(wisp.OpThrow)
		c.endScope()
		records = append(records, wisp.HandlerRecord{VarType: wisp.StorageGlobal, Handle: uint16(classIdx), TargetOffset: uint16(catchStart)})
	}

	tableAddr := c.chunk().WriteHandlerTable(records, c.prev.Line)
	c.patchJumpTo(handlerPatch, tableAddr)

	c.patchJump(afterTry)
	for _, j := range catchJumps {
		c.patchJump(j)
	}

	if c.match(wisplex.TokenFinally) {
		c.consume(wisplex.TokenLeftBrace, "expected '{' after 'finally'")
		c.blockStatement()
	}
}

// peekFinally scans ahead of the try body (c.cur sits on its opening
// brace, not yet consumed) through the try body and every catch clause
// using a throwaway copy of the lexer, to learn before compiling a
// single byte of the try body whether a trailing `finally` clause
// follows. Reports false (not just "no finally" but also "give up on
// the lookahead") on anything malformed, so the real pass — which parses
// these same tokens properly — is the one that reports the syntax
// error.
func (c *Compiler) peekFinally() (bool, finallyCtx) {
	lx := *c.lex
	tok := c.cur
	if !skipBracedRegion(&lx, &tok) {
		return false, finallyCtx{}
	}
	for tok.Type == wisplex.TokenCatch {
		tok = lx.Next() // '('
		for tok.Type != wisplex.TokenRightParen && tok.Type != wisplex.TokenEOF {
			tok = lx.Next()
		}
		tok = lx.Next() // '{'
		if !skipBracedRegion(&lx, &tok) {
			return false, finallyCtx{}
		}
	}
	if tok.Type != wisplex.TokenFinally {
		return false, finallyCtx{}
	}
	brace := lx.Next()
	return true, finallyCtx{lexer: lx, startTok: brace}
}

// skipBracedRegion advances lx past a `{ ... }` region already
// positioned at its opening brace (*tok), leaving *tok as the token
// immediately following the matching closing brace.
func skipBracedRegion(lx *wisplex.Lexer, tok *wisplex.Token) bool {
	if tok.Type != wisplex.TokenLeftBrace {
		return false
	}
	depth := 1
	for depth > 0 {
		*tok = lx.Next()
		switch tok.Type {
		case wisplex.TokenLeftBrace:
			depth++
		case wisplex.TokenRightBrace:
			depth--
		case wisplex.TokenEOF:
			return false
		}
	}
	*tok = lx.Next()
	return true
}

// replayFinallyBlock recompiles the source text of f's finally clause
// in place, reusing the lexer snapshot peekFinally captured before the
// try body was compiled. Lexer is a plain value type over an immutable
// source string, so the snapshot can be replayed any number of times —
// once per non-local exit plus once more for the normal-completion
// path — without disturbing the real compile position, the same trick
// peekIsMethodHead uses for single-token lookahead.
func (c *Compiler) replayFinallyBlock(f *finallyCtx) {
	savedLex, savedCur, savedPrev := c.lex, c.cur, c.prev
	replay := f.lexer
	c.lex = &replay
	c.cur = f.startTok
	c.consume(wisplex.TokenLeftBrace, "expected '{' after 'finally'")
	c.blockStatement()
	c.lex, c.cur, c.prev = savedLex, savedCur, savedPrev
}

// runPendingFinallies replays every pending finally block (innermost
// first) whose try was entered at a scope deeper than minScopeDepth,
// inline right before a non-local exit leaves that scope (spec.md
// §4.G). Pass -1 to run every finally pending in the current function,
// which is what `return` always does; break/continue pass the target
// loop's entry scope depth, so a finally belonging to a try that wraps
// the loop itself — rather than sitting inside it — is left to run
// later, when its own try is actually exited.
func (c *Compiler) runPendingFinallies(minScopeDepth int) {
	for f := c.fc.finally; f != nil && f.scopeDepthAtEntry > minScopeDepth; f = f.enclosing {
		c.replayFinallyBlock(f)
	}
}

// resolveStorage resolves name to wherever handler-table records and
// UNPACK targets expect a variable reference encoded: local slot, upvalue
// index, or global name constant, in that scoping order.
func (c *Compiler) resolveStorage(name string) (wisp.StorageClass, uint16) {
	if slot, _, ok := resolveLocal(c.fc, name); ok {
		return wisp.StorageLocal, uint16(slot)
	}
	if idx, _, ok := resolveUpvalue(c.fc, name); ok {
		return wisp.StorageUpvalue, uint16(idx)
	}
	idx := c.identifierConstant(name)
	return wisp.StorageGlobal, uint16(idx)
}

func (c *Compiler) varDeclaration() {
	if c.match(wisplex.TokenLeftParen) {
		c.varTupleDeclaration()
		return
	}
	c.consume(wisplex.TokenIdentifier, "expected variable name")
	name := c.prev.Lexeme
	c.declareVariable(name)
	if c.match(wisplex.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(wisp.OpNil)
	}
	c.consume(wisplex.TokenSemicolon, "expected ';' after variable declaration")
	c.defineVariable(name)
}

type unpackTarget struct {
	class  wisp.StorageClass
	handle uint16
}

// varTupleDeclaration compiles `var (a, b, ...) = expr;`, declaring
// every name before evaluating expr so UNPACK's targets already have
// committed stack slots (locals) or are ready to DEFINE_GLOBAL
// (globals) the moment it runs (spec.md §4.G "tuple unpacking").
// Re-assigning an already-declared tuple of names (without `var`) is
// out of scope: it collides grammatically with a parenthesized
// expression statement and the grouping expression, and spec.md never
// requires it outside declarations.
func (c *Compiler) varTupleDeclaration() {
	var names []string
	for {
		c.consume(wisplex.TokenIdentifier, "expected variable name")
		names = append(names, c.prev.Lexeme)
		if !c.match(wisplex.TokenComma) {
			break
		}
	}
	c.consume(wisplex.TokenRightParen, "expected ')' after variable list")
	c.consume(wisplex.TokenEqual, "expected '=' after variable list")

	isLocal := c.fc.scopeDepth > 0
	targets := make([]unpackTarget, len(names))
	for i, name := range names {
		if isLocal {
			c.emitOp(wisp.OpNil)
			c.declareVariable(name)
			c.markInitialized()
			targets[i] = unpackTarget{wisp.StorageLocal, uint16(len(c.fc.locals) - 1)}
		} else {
			idx := c.identifierConstant(name)
			targets[i] = unpackTarget{wisp.StorageGlobal, uint16(idx)}
		}
	}

	c.expression()
	c.consume(wisplex.TokenSemicolon, "expected ';' after variable declaration")

	c.emitOpU8(wisp.OpUnpack, byte(len(targets)))
	for _, t := range targets {
		c.emitByte(byte(t.class))
		c.emitU16(t.handle)
	}
}

func (c *Compiler) funDeclaration() {
	c.consume(wisplex.TokenIdentifier, "expected function name")
	name := c.prev.Lexeme
	c.declareVariable(name)
	c.markInitialized()
	c.function(funcFunction, name)
	c.defineVariable(name)
}

// classDeclaration compiles `class Name [: Super] { members }`. The
// class value is defined under its name first (so methods and nested
// expressions inside the body can refer to the class by name, e.g. a
// factory method returning `Name()`), then refetched by that same
// name for the body to operate on, matching how a global's value must
// be re-read after DEFINE_GLOBAL consumes the one OP_CLASS pushed.
func (c *Compiler) classDeclaration() {
	c.consume(wisplex.TokenIdentifier, "expected class name")
	nameTok := c.prev
	className := nameTok.Lexeme
	c.declareVariable(className)

	cc := &classCompiler{enclosing: c.fc.classCompiler, memberIndex: map[string]int{}}
	prevCC := c.fc.classCompiler
	c.fc.classCompiler = cc

	nameIdx := c.identifierConstant(className)
	c.emitOpU16(wisp.OpClass, uint16(nameIdx))
	c.defineVariable(className)

	if c.match(wisplex.TokenColon) {
		c.consume(wisplex.TokenIdentifier, "expected superclass name")
		if c.prev.Lexeme == className {
			c.error("a class cannot inherit from itself")
		}
		cc.hasSuper = true
		c.namedVariable(c.prev, false)
		c.namedVariable(nameTok, false)
		c.emitOp(wisp.OpInherit)
		c.emitOp(wisp.OpPop)
	}

	c.namedVariable(nameTok, false)
	c.consume(wisplex.TokenLeftBrace, "expected '{' before class body")
	for !c.check(wisplex.TokenRightBrace) && !c.check(wisplex.TokenEOF) {
		c.classMember(className)
	}
	c.consume(wisplex.TokenRightBrace, "expected '}' after class body")

	idx := c.chunk().AddMemberDescs(cc.memberRefs)
	c.emitOpU16(wisp.OpResolveMembers, uint16(idx))
	c.emitOp(wisp.OpPop)

	c.fc.classCompiler = prevCC
}

// classMember compiles one field, method, or static declaration inside
// a class body. "static" has no lexer keyword of its own, the same
// contextual-identifier treatment as "instanceof" (spec.md §4.F keeps
// neither reserved). A method may be written with an explicit `fun`
// keyword or, matching spec.md §8's own example scripts (`f(){...}`
// inside a class body with no `fun`), as a bare `name(params){body}` —
// the two are equivalent; whichever the name is followed by a `(`
// decides method vs. field without requiring the keyword.
func (c *Compiler) classMember(className string) {
	isStatic := c.check(wisplex.TokenIdentifier) && c.cur.Lexeme == "static"
	if isStatic {
		c.advance()
	}

	explicitFun := c.match(wisplex.TokenFun)
	if explicitFun || (c.check(wisplex.TokenIdentifier) && c.peekIsMethodHead()) {
		c.consume(wisplex.TokenIdentifier, "expected method name")
		name := c.prev.Lexeme
		kind := funcMethod
		isCtorName := (className != "" && name == className) || (className == "" && name == "init")
		if !isStatic && isCtorName {
			kind = funcInitializer
		}
		c.function(kind, name)
		idx := c.identifierConstant(name)
		if isStatic {
			c.emitOpU16(wisp.OpStatic, uint16(idx))
		} else {
			c.emitOpU16(wisp.OpMethod, uint16(idx))
		}
		return
	}

	c.consume(wisplex.TokenIdentifier, "expected field name")
	name := c.prev.Lexeme
	if isStatic {
		c.consume(wisplex.TokenEqual, "expected '=' after static field name")
		c.expression()
		c.consume(wisplex.TokenSemicolon, "expected ';' after static field")
		idx := c.identifierConstant(name)
		c.emitOpU16(wisp.OpStatic, uint16(idx))
		return
	}
	c.consume(wisplex.TokenSemicolon, "expected ';' after field declaration")
	idx := c.identifierConstant(name)
	c.emitOpU16(wisp.OpField, uint16(idx))
}
