// Package wisp is the embedding surface spec.md §6 describes: a host
// Go program links this package, not internal/wisp directly, the same
// separation the teacher draws between its pkg/vm engine and whatever
// wraps it for outside callers. It owns nothing the interpreter
// doesn't already own; it exists to keep internal/wisp's types
// (Context, Value, the Obj hierarchy) out of a host's import unless the
// host specifically wants to reach into them, and to wire
// internal/wispcompile into internal/wisp without the latter importing
// the former (which would be an import cycle, since wispcompile already
// imports wisp for Chunk/OpCode/Value).
package wisp

import (
	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wispcompile"
	"github.com/kristofer/wisp/internal/wispstd"
)

// Re-exported so a host never has to import internal/wisp to hold onto
// the values this package's functions hand back.
type (
	Value          = wisp.Value
	NativeFn       = wisp.NativeFn
	Class          = wisp.ObjClass
	Handle         = wisp.Handle
	ModuleLoader   = wisp.ModuleLoader
	RuntimeError   = wisp.RuntimeError
	CompileError   = wispcompile.CompileError
	StackTraceEntry = wisp.StackTraceEntry
)

var Nil = wisp.Nil

// Config controls how Init builds its Context (spec.md §6, expanded
// per SPEC_FULL.md's ambient configuration section). Zero value is a
// usable default: no stdlib natives, no module loader, a no-op logger,
// stdio streams.
type Config struct {
	wisp.Config
	// Loader resolves module names for `import`; nil disables imports.
	Loader ModuleLoader
	// Stdlib installs internal/wispstd's natives (print, assert, clock,
	// typeName, len, find, startsWith, gmatch, gsub) when true. A host
	// embedding the language purely as a sandboxed expression evaluator
	// may prefer false and register only its own natives.
	Stdlib bool
}

// Status is the three-way outcome spec.md §6's interpret() names,
// carried back out of Interpret alongside a Go error so a
// CLI can map it onto the exit codes spec.md §6 specifies (0/65/70).
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

// Interp is one interpreter instance: spec.md §6's initContext/
// destroyContext lifecycle, holding everything an interpreted program
// needs (globals, heap, call stack) independent of any other Interp.
type Interp struct {
	ctx *wisp.Context
}

// Init constructs a ready-to-use interpreter (spec.md §6
// "initContext"). Call Close when done; Go's own garbage collector
// reclaims everything regardless, but Close exists for symmetry with
// the embedding surface's named lifecycle and to give a host an
// explicit point to drop its last reference.
func Init(cfg Config) *Interp {
	ctx := wisp.NewContext(cfg.Config, cfg.Loader)
	ctx.SetCompiler(wispcompile.Compile)
	if cfg.Stdlib {
		wispstd.Install(ctx)
	}
	return &Interp{ctx: ctx}
}

// Close releases in's interpreter state (spec.md §6 "destroyContext").
// After Close, in must not be used again.
func (in *Interp) Close() { in.ctx = nil }

// Interpret compiles source as a module named moduleName and runs its
// top-level body, reporting which of the three outcomes spec.md §6
// names occurred. A CompileError or RuntimeError is both returned as a
// typed error (via errors.As) and reflected in the returned Status, so
// a caller that only cares about the exit code doesn't need to type-
// switch the error.
func (in *Interp) Interpret(source, moduleName string) (Status, Value, error) {
	fn, err := wispcompile.Compile(in.ctx, source, moduleName)
	if err != nil {
		return StatusCompileError, Nil, err
	}
	v, err := in.ctx.Interpret(fn)
	if err != nil {
		return StatusRuntimeError, Nil, err
	}
	return StatusOK, v, nil
}

// RegisterNativeFunction installs a free function callable from script
// code as a global (spec.md §6 "registerNativeFunction").
func (in *Interp) RegisterNativeFunction(name string, arity int, fn NativeFn) {
	in.ctx.RegisterNativeFunction(name, arity, fn)
}

// AddNativeMethod installs a native method on class (spec.md §6
// "addNativeMethod").
func (in *Interp) AddNativeMethod(class *Class, name string, arity int, fn NativeFn) {
	in.ctx.AddNativeMethod(class, name, arity, fn)
}

// NewNativeClass creates an empty class a host populates with native
// methods via AddNativeMethod, then exposes to scripts as a global.
func (in *Interp) NewNativeClass(name string) *Class { return in.ctx.NewNativeClass(name) }

// LookupClass finds a class already registered under name (builtin or
// host-defined), for a host extending rather than replacing it.
func (in *Interp) LookupClass(name string) (*Class, bool) { return in.ctx.LookupClass(name) }

// NewArray/NewMap/NewTuple/NewString let host code build language
// values to pass into a script, e.g. as an argument to a callback
// Value obtained from a Protect'd Handle.
func (in *Interp) NewArray(items []Value) Value { return in.ctx.NewArray(items) }
func (in *Interp) NewMap() Value                { return in.ctx.NewMap() }
func (in *Interp) NewTuple(items []Value) Value { return in.ctx.NewTuple(items) }
func (in *Interp) NewString(s string) Value     { return in.ctx.NewString(s) }

// Protect/Unprotect keep a Value reachable across GC cycles while a
// host holds it outside of any call frame (spec.md §6, expanded per
// SPEC_FULL.md's embedding API).
func (in *Interp) Protect(v Value) Handle  { return in.ctx.Protect(v) }
func (in *Interp) Unprotect(h Handle)      { in.ctx.Unprotect(h) }

// Display renders v the way `print` would, for a host that wants to
// show a result without writing its own formatter.
func (in *Interp) Display(v Value) string { return in.ctx.Display(v) }

// Context exposes the underlying internal/wisp.Context for advanced
// embedding uses this package doesn't wrap (spec.md §6's push/pop/peek/
// getArg/runtimeError native-function surface lives directly on it).
// Most hosts never need this.
func (in *Interp) Context() *wisp.Context { return in.ctx }
