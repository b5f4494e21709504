// Package wispcompile implements the one-pass compiler (spec.md §4.G):
// a Pratt-style recursive-descent parser that walks the token stream
// produced by internal/wisplex and emits bytecode directly into an
// internal/wisp.Chunk. No AST is ever built; every grammar production
// both parses and emits in the same pass, the same way the teacher
// keeps its own compiler a single top-to-bottom walk rather than a
// multi-phase pipeline.
package wispcompile

import (
	"fmt"

	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wisplex"
)

const maxLocals = 256
const maxUpvalues = 256

type local struct {
	name     string
	depth    int
	captured bool
	postArgs bool
}

type upvalueRef struct {
	index    int
	isLocal  bool
	postArgs bool
}

type loopContext struct {
	start        int
	scopeDepth   int
	handlerDepth int
	breaks       []int
	enclosing    *loopContext
}

// finallyCtx records one in-progress try statement's `finally` clause
// so return/break/continue encountered anywhere inside its try or catch
// bodies can replay the finally block inline before their own exit
// instruction (spec.md §4.G: "the compiler tracks finallyDepth and
// ensures non-local exits... run pending finally blocks before
// departure"). lexer/startTok are a snapshot of the token stream
// positioned at the finally clause's opening brace, captured by
// peekFinally before the try body is compiled — the one-pass compiler
// otherwise has no way to know a finally exists until it has already
// walked past the statements that might need to run it.
type finallyCtx struct {
	enclosing         *finallyCtx
	scopeDepthAtEntry int
	lexer             wisplex.Lexer
	startTok          wisplex.Token
}

// funcCompiler is one function's compile-time state: its locals,
// upvalues, and the function prototype being built. The stack of these
// (parented via enclosing) is exactly what spec.md §4.G calls "a stack
// of per-function Compiler records". This stack is not a GC root;
// instead Compile pauses collection for its whole pass (a compile can
// start mid-run, e.g. for IMPORT), matching the teacher's compiler
// package which likewise holds its own state outside any VM-visible
// root set.
type funcCompiler struct {
	enclosing   *funcCompiler
	fn          *wisp.ObjFunction
	locals      []local
	upvalues    []upvalueRef
	scopeDepth  int
	isMethod    bool
	isInit      bool
	pastVarargs bool

	// handlerDepth counts currently-open try handlers in this function,
	// so break/continue can emit exactly the right number of
	// POP_EXCEPTION_HANDLER instructions when jumping out of one or more
	// enclosing try blocks (spec.md §4.K).
	handlerDepth int

	classCompiler *classCompiler
	loop          *loopContext
	finally       *finallyCtx
}

type classCompiler struct {
	enclosing *classCompiler
	hasSuper  bool
	memberRefs []wisp.MemberRefDesc
	memberIndex map[string]int
}

// recordMember accumulates a this.*/super.* reference for later
// RESOLVE_MEMBERS emission, returning its index (spec.md §4.G).
func (cc *classCompiler) recordMember(name string, fromSuper bool) int {
	key := name
	if fromSuper {
		key = "super." + name
	}
	if idx, ok := cc.memberIndex[key]; ok {
		return idx
	}
	idx := len(cc.memberRefs)
	cc.memberRefs = append(cc.memberRefs, wisp.MemberRefDesc{Name: name, FromSuper: fromSuper})
	cc.memberIndex[key] = idx
	return idx
}

// Compiler drives one top-to-bottom compile of a single source unit
// (a script or a module body) into a single top-level ObjFunction.
type Compiler struct {
	lex       *wisplex.Lexer
	cur       wisplex.Token
	prev      wisplex.Token
	hadErr    bool
	panicMode bool
	errMsg    string
	errLine   int

	fc  *funcCompiler
	ctx *wisp.Context
}

// CompileError is returned by Compile on a parse/compile failure.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Message)
}

// Compile compiles source into a top-level ObjFunction ready for
// ctx.Interpret. name is used only for stack traces; moduleName never
// appears as a bare parameter in this signature because Compile itself
// doubles as the wisp.Compiler hook IMPORT installs via SetCompiler.
func Compile(ctx *wisp.Context, source, name string) (*wisp.ObjFunction, error) {
	// A nested function's prototype and constants aren't reachable from
	// any GC root until its enclosing function finishes compiling and
	// embeds it in a constant pool, so a collection triggered mid-
	// compile could sweep a still-needed string out from under an
	// in-progress funcCompiler (spec.md §9's compiler-stack-as-root
	// note). Pausing collection for the whole single pass sidesteps
	// that without threading the compiler stack into the VM's root set.
	ctx.PauseGC()
	defer ctx.ResumeGC()

	c := &Compiler{lex: wisplex.New(source), ctx: ctx}
	fn := wisp.NewFunction(name)
	c.fc = &funcCompiler{fn: fn}
	c.fc.locals = append(c.fc.locals, local{name: "", depth: 0})

	c.advance()
	for !c.check(wisplex.TokenEOF) {
		c.declaration()
		if c.panicMode {
			c.synchronize()
		}
	}
	c.emitReturn()

	if c.hadErr {
		return nil, &CompileError{Message: c.errMsg, Line: c.errLine}
	}
	return fn, nil
}
