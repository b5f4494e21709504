package wisp

// captureUpvalue returns the open upvalue for the stack slot at
// location, reusing an existing one if the VM already opened one for
// that slot (so two closures capturing the same local share a cell),
// or creating and linking a new one otherwise. The open list stays
// sorted by descending Slot so closeUpvalues can stop early (spec.md
// §4.I "Upvalue").
func (ctx *Context) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	curr := ctx.openUpvals
	for curr != nil && curr.Slot > slot {
		prev = curr
		curr = curr.NextOpen
	}
	if curr != nil && curr.Slot == slot {
		return curr
	}

	created := &ObjUpvalue{Location: &ctx.stack[slot], Slot: slot, NextOpen: curr}
	created.kind = objUpvalue
	ctx.registerObject(created)
	if prev == nil {
		ctx.openUpvals = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above fromSlot, copying
// the stack value into the upvalue's own storage so it survives the
// frame's locals being popped (OP_CLOSE_UPVALUE, and implicitly on
// every return).
func (ctx *Context) closeUpvalues(fromSlot int) {
	for ctx.openUpvals != nil && ctx.openUpvals.Slot >= fromSlot {
		uv := ctx.openUpvals
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		ctx.openUpvals = uv.NextOpen
		uv.NextOpen = nil
	}
}

// makeClosure builds an ObjClosure for fn, resolving each upvalue
// descriptor against the enclosing frame: IsLocal descriptors capture
// a slot in that frame directly, others reuse one of the enclosing
// closure's own upvalues (spec.md §4.G "CLOSURE" / §4.I).
func (ctx *Context) makeClosure(fn *ObjFunction, enclosing *CallFrame) *ObjClosure {
	cl := newClosure(fn)
	for i, d := range fn.UpvalueDescs {
		if d.IsLocal {
			slot := enclosing.BaseSlot + d.Index
			cl.Upvalues[i] = ctx.captureUpvalue(slot)
		} else {
			cl.Upvalues[i] = enclosing.Closure.Upvalues[d.Index]
		}
	}
	ctx.registerObject(cl)
	return cl
}
