package wispcompile

import (
	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wisplex"
)

// funcKind distinguishes the handful of cases that change how a
// function body's implicit slot 0 and implicit return behave.
type funcKind int

const (
	funcScript funcKind = iota
	funcFunction
	funcMethod
	funcInitializer
	funcLambda
)

// pushFunction enters a new funcCompiler for a nested definition,
// reserving slot 0 for either the receiver (methods/initializers) or
// the closure itself (plain functions), matching the calling
// convention internal/wisp's CallFrame.BaseSlot establishes.
func (c *Compiler) pushFunction(kind funcKind, name string) {
	fc := &funcCompiler{
		enclosing:     c.fc,
		fn:            wisp.NewFunction(name),
		isMethod:      kind == funcMethod || kind == funcInitializer,
		isInit:        kind == funcInitializer,
		classCompiler: c.fc.classCompiler,
	}
	slot0 := ""
	if fc.isMethod {
		slot0 = "this"
	}
	fc.locals = append(fc.locals, local{name: slot0, depth: 0})
	c.fc = fc
}

// popFunction closes the current funcCompiler, wiring its accumulated
// upvalue descriptors onto the finished prototype, and restores the
// enclosing one.
func (c *Compiler) popFunction() *wisp.ObjFunction {
	c.emitReturn()
	fn := c.fc.fn
	fn.UpvalueDescs = make([]wisp.UpvalueDesc, len(c.fc.upvalues))
	for i, u := range c.fc.upvalues {
		fn.UpvalueDescs[i] = wisp.UpvalueDesc{Index: u.index, IsLocal: u.isLocal, PostArgs: u.postArgs}
	}
	c.fc = c.fc.enclosing
	return fn
}

// function compiles a parameter list and body for kind, emitting the
// finished prototype as a constant and a CLOSURE instruction that
// captures it in the enclosing function.
func (c *Compiler) function(kind funcKind, name string) {
	c.pushFunction(kind, name)
	// Parameters declare as locals, and declareVariable only adds locals
	// at scopeDepth > 0; pushFunction itself opens no scope, so the
	// function body needs one wrapping it. No matching endScope is
	// needed: popFunction discards this whole funcCompiler's local
	// bookkeeping regardless.
	c.beginScope()
	c.compileParamsAndBody()
	fn := c.popFunction()
	idx := c.chunk().AddConstant(wisp.ObjVal(fn))
	c.emitOpU16(wisp.OpClosure, uint16(idx))
}

func (c *Compiler) compileParamsAndBody() {
	fc := c.fc
	c.consume(wisplex.TokenLeftParen, "expected '(' after function name")
	if !c.check(wisplex.TokenRightParen) {
		for {
			if fc.fn.HasVarargs {
				c.error("parameters cannot follow a varargs pack")
			}
			if c.match(wisplex.TokenDotDotDot) {
				c.consume(wisplex.TokenIdentifier, "expected parameter name after '...'")
				fc.fn.HasVarargs = true
				fc.fn.MaxArgs = 255
				c.declareVariable(c.prev.Lexeme)
				c.markInitialized()
				fc.pastVarargs = true
			} else {
				c.consume(wisplex.TokenIdentifier, "expected parameter name")
				pname := c.prev.Lexeme
				c.declareVariable(pname)
				c.markInitialized()
				fc.fn.Arity++
				if !fc.fn.HasVarargs {
					fc.fn.MaxArgs = fc.fn.Arity
				}
				if c.match(wisplex.TokenEqual) {
					fc.fn.Defaults = append(fc.fn.Defaults, c.constantDefault())
				} else if len(fc.fn.Defaults) > 0 {
					c.error("a required parameter cannot follow a defaulted one")
				}
			}
			if !c.match(wisplex.TokenComma) {
				break
			}
		}
	}
	c.consume(wisplex.TokenRightParen, "expected ')' after parameters")
	c.consume(wisplex.TokenLeftBrace, "expected '{' before function body")
	c.block()
}

// constantDefault parses a default-argument expression, which spec.md
// §4.G requires be foldable directly into the constant pool rather
// than re-evaluated per call; only literals qualify.
func (c *Compiler) constantDefault() wisp.Value {
	switch {
	case c.match(wisplex.TokenNumber):
		return wisp.NumberVal(parseNumber(c.prev.Lexeme))
	case c.match(wisplex.TokenString):
		bytes, err := wisplex.Unescape(c.prev.Lexeme)
		if err != nil {
			c.error(err.Error())
			return wisp.Nil
		}
		return wisp.ObjVal(c.ctx.Intern(bytes))
	case c.match(wisplex.TokenTrue):
		return wisp.BoolVal(true)
	case c.match(wisplex.TokenFalse):
		return wisp.BoolVal(false)
	case c.match(wisplex.TokenNil):
		return wisp.Nil
	default:
		c.error("default argument must be a constant literal")
		return wisp.Nil
	}
}
