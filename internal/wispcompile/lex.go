package wispcompile

import "github.com/kristofer/wisp/internal/wisplex"

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.lex.Next()
		if c.cur.Type != wisplex.TokenError {
			break
		}
		c.errorAtCurrent(c.cur.Lexeme)
	}
}

func (c *Compiler) check(t wisplex.TokenType) bool { return c.cur.Type == t }

// peekIsMethodHead reports whether the token after c.cur (the current
// identifier, not yet consumed) is '(', distinguishing a class body's
// bare `name(params){...}` method shorthand from a field declaration
// without committing to either: the lexer is a plain value type, so
// scanning one token ahead and restoring it is just a struct copy.
func (c *Compiler) peekIsMethodHead() bool {
	saved := *c.lex
	next := c.lex.Next()
	*c.lex = saved
	return next.Type == wisplex.TokenLeftParen
}

func (c *Compiler) match(t wisplex.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t wisplex.TokenType, msg string) {
	if c.cur.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

// errorAt records the first compile error seen; later calls (within
// the same panic window, or after) are ignored so one malformed token
// doesn't cascade into a wall of spurious diagnostics.
func (c *Compiler) errorAt(tok wisplex.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	if !c.hadErr {
		c.hadErr = true
		c.errMsg = msg
		c.errLine = tok.Line
	}
}

// synchronize skips tokens until a likely statement boundary, letting
// Compile keep scanning for further (unreported) errors after the
// first rather than stopping dead at the first malformed token.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Type != wisplex.TokenEOF {
		if c.prev.Type == wisplex.TokenSemicolon {
			return
		}
		switch c.cur.Type {
		case wisplex.TokenClass, wisplex.TokenFun, wisplex.TokenVar, wisplex.TokenFor,
			wisplex.TokenIf, wisplex.TokenWhile, wisplex.TokenPrint, wisplex.TokenReturn,
			wisplex.TokenTry, wisplex.TokenThrow, wisplex.TokenImport, wisplex.TokenForeach:
			return
		}
		c.advance()
	}
}
