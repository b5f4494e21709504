package wisp

import "github.com/pkg/errors"

// Compiler is the function internal/wispcompile exposes back to this
// package; wired in by pkg/wisp at startup to avoid an import cycle
// (internal/wispcompile imports internal/wisp for Value/Chunk/OpCode,
// so internal/wisp cannot import it back).
type Compiler func(ctx *Context, source, moduleName string) (*ObjFunction, error)

// SetCompiler installs the module-body compiler used by IMPORT and by
// the top-level Interpret entry point in pkg/wisp.
func (ctx *Context) SetCompiler(c Compiler) { ctx.compile = c }

// importModule implements IMPORT (spec.md §4.L). The language has no
// per-module namespace: a module's top-level declarations run directly
// against the shared global table, the same as the script that imports
// it. ctx.modules is only a load-once marker, set before the body runs
// rather than after, so a cyclic import sees whatever the first,
// still-executing pass has defined so far instead of recursing, and any
// import of an already-loaded or still-loading name is a no-op.
func (ctx *Context) importModule(name string) (Value, error) {
	if ctx.modules[name] {
		return Nil, nil
	}
	ctx.modules[name] = true

	if ctx.loader == nil {
		return Nil, errors.Errorf("no module loader configured, cannot import %q", name)
	}
	source, err := ctx.loader.Load(name)
	if err != nil {
		return Nil, errors.Wrapf(err, "loading module %q", name)
	}
	if ctx.compile == nil {
		return Nil, errors.New("no compiler installed, cannot import modules")
	}

	fn, err := ctx.compile(ctx, source, name)
	if err != nil {
		return Nil, errors.Wrapf(err, "compiling module %q", name)
	}
	closure := newClosure(fn)
	ctx.registerObject(closure)
	if _, err := ctx.callValue(ObjVal(closure), nil); err != nil {
		return Nil, err
	}
	return Nil, nil
}
