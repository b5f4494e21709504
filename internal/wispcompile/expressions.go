package wispcompile

import (
	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wisplex"
)

// precedence orders binding strength low to high, the same ladder
// every Pratt parser climbs (spec.md §4.G): assignment is loosest,
// primary expressions bind tightest.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type prefixParseFn func(c *Compiler, canAssign bool)
type infixParseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix prefixParseFn
	infix  infixParseFn
	prec   precedence
}

var rules map[wisplex.TokenType]parseRule

func init() {
	rules = map[wisplex.TokenType]parseRule{
		wisplex.TokenLeftParen:    {prefix: grouping, infix: call, prec: precCall},
		wisplex.TokenDot:          {infix: dotExpr, prec: precCall},
		wisplex.TokenLeftBracket:  {prefix: arrayLiteral, infix: indexExpr, prec: precCall},
		wisplex.TokenLeftBrace:    {prefix: mapLiteral},
		wisplex.TokenFun:          {prefix: lambdaExpr},
		wisplex.TokenClass:        {prefix: anonClassExpr},

		wisplex.TokenMinus: {prefix: unary, infix: binary, prec: precTerm},
		wisplex.TokenPlus:  {infix: binary, prec: precTerm},
		wisplex.TokenSlash:   {infix: binary, prec: precFactor},
		wisplex.TokenStar:    {infix: binary, prec: precFactor},
		wisplex.TokenPercent: {infix: binary, prec: precFactor},
		wisplex.TokenBang:    {prefix: unary},

		wisplex.TokenBangEqual:    {infix: binary, prec: precEquality},
		wisplex.TokenEqualEqual:   {infix: binary, prec: precEquality},
		wisplex.TokenGreater:      {infix: binary, prec: precComparison},
		wisplex.TokenGreaterEqual: {infix: binary, prec: precComparison},
		wisplex.TokenLess:         {infix: binary, prec: precComparison},
		wisplex.TokenLessEqual:    {infix: binary, prec: precComparison},

		// "instanceof" has no reserved-word entry in the lexer's keyword
		// table (spec.md §4.F's keyword list omits it); it is recognized
		// contextually as a plain identifier sitting in comparison
		// position instead, via TokenIdentifier's infix slot.
		wisplex.TokenIdentifier: {prefix: variable, infix: instanceOfInfix, prec: precComparison},

		wisplex.TokenString: {prefix: stringLit},
		wisplex.TokenNumber: {prefix: numberLit},
		wisplex.TokenAnd:    {infix: logicalAnd, prec: precAnd},
		wisplex.TokenOr:     {infix: logicalOr, prec: precOr},
		wisplex.TokenTrue:   {prefix: literalTrue},
		wisplex.TokenFalse:  {prefix: literalFalse},
		wisplex.TokenNil:    {prefix: literalNil},
		wisplex.TokenThis:   {prefix: thisExpr},
		wisplex.TokenSuper:  {prefix: superExpr},
	}
}

func ruleFor(t wisplex.TokenType) parseRule { return rules[t] }

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

// parsePrecedence is the Pratt engine: it has already NOT consumed the
// first token of the expression when called, and leaves the cursor
// just past the lowest-precedence operator it won't bind.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := ruleFor(c.prev.Type).prefix
	if prefix == nil {
		c.error("expected expression")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.cur.Type).prec {
		c.advance()
		infix := ruleFor(c.prev.Type).infix
		if infix == nil {
			c.error("expected operator")
			return
		}
		infix(c, canAssign)
	}

	if canAssign && c.match(wisplex.TokenEqual) {
		c.error("invalid assignment target")
	}
}

func grouping(c *Compiler, canAssign bool) {
	c.expression()
	c.consume(wisplex.TokenRightParen, "expected ')' after expression")
}

func call(c *Compiler, canAssign bool) {
	argCount := c.argumentList()
	c.emitOpU8(wisp.OpCall, byte(argCount))
}

// argumentList parses a parenthesized, comma-separated argument list
// whose opening '(' has already been consumed by the caller.
func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(wisplex.TokenRightParen) {
		for {
			c.expression()
			count++
			if count > 255 {
				c.error("too many arguments")
			}
			if !c.match(wisplex.TokenComma) {
				break
			}
		}
	}
	c.consume(wisplex.TokenRightParen, "expected ')' after arguments")
	return count
}

func dotExpr(c *Compiler, canAssign bool) {
	c.consume(wisplex.TokenIdentifier, "expected property name after '.'")
	name := c.prev.Lexeme

	if canAssign && c.match(wisplex.TokenEqual) {
		c.expression()
		idx := c.identifierConstant(name)
		c.emitOpU16(wisp.OpSetProperty, uint16(idx))
		return
	}
	if c.match(wisplex.TokenLeftParen) {
		argCount := c.argumentList()
		idx := c.identifierConstant(name)
		c.emitOpU16(wisp.OpInvoke, uint16(idx))
		c.emitByte(byte(argCount))
		return
	}
	idx := c.identifierConstant(name)
	c.emitOpU16(wisp.OpGetProperty, uint16(idx))
}

func indexExpr(c *Compiler, canAssign bool) {
	c.expression()
	c.consume(wisplex.TokenRightBracket, "expected ']' after index")
	if canAssign && c.match(wisplex.TokenEqual) {
		c.expression()
		c.emitOp(wisp.OpIndexStore)
		return
	}
	c.emitOp(wisp.OpIndex)
}

func arrayLiteral(c *Compiler, canAssign bool) {
	count := 0
	if !c.check(wisplex.TokenRightBracket) {
		for {
			c.expression()
			count++
			if !c.match(wisplex.TokenComma) {
				break
			}
		}
	}
	c.consume(wisplex.TokenRightBracket, "expected ']' after array literal")
	c.emitOpU16(wisp.OpArrayBuild, uint16(count))
}

func mapLiteral(c *Compiler, canAssign bool) {
	count := 0
	if !c.check(wisplex.TokenRightBrace) {
		for {
			c.expression()
			c.consume(wisplex.TokenColon, "expected ':' after map key")
			c.expression()
			count++
			if !c.match(wisplex.TokenComma) {
				break
			}
		}
	}
	c.consume(wisplex.TokenRightBrace, "expected '}' after map literal")
	c.emitOpU16(wisp.OpMapBuild, uint16(count))
}

func lambdaExpr(c *Compiler, canAssign bool) {
	c.function(funcLambda, "")
}

func unary(c *Compiler, canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case wisplex.TokenMinus:
		c.emitOp(wisp.OpNegate)
	case wisplex.TokenBang:
		c.emitOp(wisp.OpNot)
	}
}

func binary(c *Compiler, canAssign bool) {
	opType := c.prev.Type
	rule := ruleFor(opType)
	c.parsePrecedence(rule.prec + 1)
	switch opType {
	case wisplex.TokenPlus:
		c.emitOp(wisp.OpAdd)
	case wisplex.TokenMinus:
		c.emitOp(wisp.OpSubtract)
	case wisplex.TokenStar:
		c.emitOp(wisp.OpMultiply)
	case wisplex.TokenSlash:
		c.emitOp(wisp.OpDivide)
	case wisplex.TokenPercent:
		c.emitOp(wisp.OpModulo)
	case wisplex.TokenEqualEqual:
		c.emitOp(wisp.OpEqual)
	case wisplex.TokenBangEqual:
		c.emitOp(wisp.OpEqual)
		c.emitOp(wisp.OpNot)
	case wisplex.TokenGreater:
		c.emitOp(wisp.OpGreater)
	case wisplex.TokenGreaterEqual:
		c.emitOp(wisp.OpLess)
		c.emitOp(wisp.OpNot)
	case wisplex.TokenLess:
		c.emitOp(wisp.OpLess)
	case wisplex.TokenLessEqual:
		c.emitOp(wisp.OpGreater)
		c.emitOp(wisp.OpNot)
	}
}

// instanceOfInfix backs the contextual "instanceof" operator: any other
// identifier reaching here would mean an identifier token followed
// another complete expression with no real operator between them,
// which is a syntax error in every other case.
func instanceOfInfix(c *Compiler, canAssign bool) {
	if c.prev.Lexeme != "instanceof" {
		c.error("expected operator")
		return
	}
	c.parsePrecedence(precComparison + 1)
	c.emitOp(wisp.OpInstanceOf)
}

func logicalAnd(c *Compiler, canAssign bool) {
	endJump := c.emitJump(wisp.OpJumpIfFalse)
	c.emitOp(wisp.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func logicalOr(c *Compiler, canAssign bool) {
	elseJump := c.emitJump(wisp.OpJumpIfFalse)
	endJump := c.emitJump(wisp.OpJump)
	c.patchJump(elseJump)
	c.emitOp(wisp.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func numberLit(c *Compiler, canAssign bool) {
	c.emitConstant(wisp.NumberVal(parseNumber(c.prev.Lexeme)))
}

func stringLit(c *Compiler, canAssign bool) {
	idx, err := c.stringConstant(c.prev.Lexeme)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitConstantIndex(idx)
}

func literalTrue(c *Compiler, canAssign bool)  { c.emitOp(wisp.OpTrue) }
func literalFalse(c *Compiler, canAssign bool) { c.emitOp(wisp.OpFalse) }
func literalNil(c *Compiler, canAssign bool)   { c.emitOp(wisp.OpNil) }

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.prev, canAssign)
}

// namedVariable compiles a bare identifier reference, resolving it as
// a local, an upvalue, or (failing both) a global, and handling a
// trailing "= expr" as an assignment when canAssign allows it (spec.md
// §4.G scope resolution order).
func (c *Compiler) namedVariable(tok wisplex.Token, canAssign bool) {
	name := tok.Lexeme
	assign := canAssign && c.check(wisplex.TokenEqual)

	if slot, postArgs, ok := resolveLocal(c.fc, name); ok {
		if assign {
			c.advance()
			c.expression()
			c.emitLocalOp(wisp.OpSetLocal, slot, postArgs)
		} else {
			c.emitLocalOp(wisp.OpGetLocal, slot, postArgs)
		}
		return
	}
	if idx, _, ok := resolveUpvalue(c.fc, name); ok {
		if assign {
			c.advance()
			c.expression()
			c.emitOpU16(wisp.OpSetUpvalue, uint16(idx))
		} else {
			c.emitOpU16(wisp.OpGetUpvalue, uint16(idx))
		}
		return
	}
	idx := c.identifierConstant(name)
	if assign {
		c.advance()
		c.expression()
		c.emitOpU16(wisp.OpSetGlobal, uint16(idx))
	} else {
		c.emitOpU16(wisp.OpGetGlobal, uint16(idx))
	}
}

// pushThis loads the receiver onto the stack; usable from anywhere
// "this" resolves, whether as the method's own slot 0 or captured as
// an upvalue by a nested function.
func pushThis(c *Compiler) {
	if slot, postArgs, ok := resolveLocal(c.fc, "this"); ok {
		c.emitLocalOp(wisp.OpGetLocal, slot, postArgs)
		return
	}
	if idx, _, ok := resolveUpvalue(c.fc, "this"); ok {
		c.emitOpU16(wisp.OpGetUpvalue, uint16(idx))
		return
	}
	c.error("'this' outside a method")
}

func (c *Compiler) inMethod() bool {
	for fc := c.fc; fc != nil; fc = fc.enclosing {
		if fc.isMethod {
			return true
		}
	}
	return false
}

// thisExpr compiles both bare `this` and `this.name`/`this.name(...)`;
// the latter route through the member-ref cache (GET_MEMBER_PROPERTY/
// SET_MEMBER_PROPERTY/MEMBER_INVOKE) rather than the generic by-name
// property opcodes, since `this` member access is what RESOLVE_MEMBERS
// pre-resolves (spec.md §4.G "member-ref cache").
func thisExpr(c *Compiler, canAssign bool) {
	if !c.inMethod() {
		c.error("'this' can only be used inside a method")
	}
	pushThis(c)
	if !c.match(wisplex.TokenDot) {
		return
	}
	c.consume(wisplex.TokenIdentifier, "expected property name after '.'")
	name := c.prev.Lexeme
	cc := c.fc.classCompiler
	if cc == nil {
		c.error("'this' outside a class")
		return
	}
	if canAssign && c.match(wisplex.TokenEqual) {
		c.expression()
		idx := cc.recordMember(name, false)
		c.emitOpU16(wisp.OpSetMemberProperty, uint16(idx))
		return
	}
	if c.match(wisplex.TokenLeftParen) {
		argCount := c.argumentList()
		idx := cc.recordMember(name, false)
		c.emitOpU16(wisp.OpMemberInvoke, uint16(idx))
		c.emitByte(byte(argCount))
		return
	}
	idx := cc.recordMember(name, false)
	c.emitOpU16(wisp.OpGetMemberProperty, uint16(idx))
}

// superExpr compiles `super(args)` (the superclass initializer chain
// call) and `super.name`/`super.name(args)` (superclass member
// access), both of which need the receiver pushed first exactly like
// INVOKE's calling convention.
func superExpr(c *Compiler, canAssign bool) {
	cc := c.fc.classCompiler
	if cc == nil || !cc.hasSuper {
		c.error("'super' can only be used in a subclass")
	}
	if c.match(wisplex.TokenLeftParen) {
		pushThis(c)
		argCount := c.argumentList()
		c.emitOpU8(wisp.OpSuperInit, byte(argCount))
		return
	}
	c.consume(wisplex.TokenDot, "expected '.' or '(' after 'super'")
	c.consume(wisplex.TokenIdentifier, "expected superclass member name")
	name := c.prev.Lexeme
	pushThis(c)
	if c.match(wisplex.TokenLeftParen) {
		argCount := c.argumentList()
		idx := cc.recordMember(name, true)
		c.emitOpU16(wisp.OpSuperInvoke, uint16(idx))
		c.emitByte(byte(argCount))
		return
	}
	idx := cc.recordMember(name, true)
	c.emitOpU16(wisp.OpGetSuper, uint16(idx))
}

// anonClassExpr compiles a class literal usable as an expression (for
// example assigned straight to a variable). It mirrors classDeclaration
// but, having no name to refetch by, stashes the fresh class value in
// a synthetic local so the same slot can be re-read wherever the
// statement form would re-resolve by name.
func anonClassExpr(c *Compiler, canAssign bool) {
	cc := &classCompiler{enclosing: c.fc.classCompiler, memberIndex: map[string]int{}}
	prevCC := c.fc.classCompiler
	c.fc.classCompiler = cc

	c.emitOp(wisp.OpAnonClass)
	c.addLocal("")
	c.markInitialized()
	selfSlot := len(c.fc.locals) - 1

	if c.match(wisplex.TokenColon) {
		c.consume(wisplex.TokenIdentifier, "expected superclass name")
		cc.hasSuper = true
		c.namedVariable(c.prev, false)
		c.emitLocalOp(wisp.OpGetLocal, selfSlot, false)
		c.emitOp(wisp.OpInherit)
		c.emitOp(wisp.OpPop)
	}

	c.consume(wisplex.TokenLeftBrace, "expected '{' before class body")
	for !c.check(wisplex.TokenRightBrace) && !c.check(wisplex.TokenEOF) {
		c.classMember("")
	}
	c.consume(wisplex.TokenRightBrace, "expected '}' after class body")

	idx := c.chunk().AddMemberDescs(cc.memberRefs)
	c.emitOpU16(wisp.OpResolveMembers, uint16(idx))
	c.emitLocalOp(wisp.OpGetLocal, selfSlot, false)

	c.fc.classCompiler = prevCC
}
