package wisp

// Handle is an opaque token protecting a Value from collection even
// when the embedding host, not the interpreter, is the only thing
// still holding it (spec.md §6, expanded per SPEC_FULL.md's embedding
// API). Typical use: a native function stashes a callback Value for
// later invocation outside of any call frame.
type Handle struct {
	h *handle
}

// Protect registers v as a GC root until Unprotect is called, and
// returns the Handle used to release it.
func (ctx *Context) Protect(v Value) Handle {
	h := &handle{v: v}
	ctx.handles[h] = struct{}{}
	return Handle{h: h}
}

// Unprotect releases a previously protected value. Calling it twice,
// or with a Handle from a different Context, is a no-op.
func (ctx *Context) Unprotect(h Handle) {
	delete(ctx.handles, h.h)
}

// Value returns the handle's protected value.
func (h Handle) Value() Value { return h.h.v }
