package wisp

import "go.uber.org/zap"

// collectGarbage runs one full tri-color mark-and-sweep cycle (spec.md
// §4.E). Roots are the operand stack, every active frame's closure,
// the open-upvalue list, the global table, the pending exception, the
// built-in collection, iterator and exception classes, and the
// embedder's handle set. The compiler's bookkeeping is not a root:
// Compile runs with collection paused (PauseGC/ResumeGC). The
// loaded-module table holds only name markers, not objects, so it needs
// no root of its own. Marking is iterative via an explicit worklist
// rather than recursive, since user object graphs can be arbitrarily
// deep.
func (ctx *Context) collectGarbage() {
	ctx.gcPaused++
	defer func() { ctx.gcPaused-- }()

	ctx.log.Debug("gc begin", zap.Int("bytesAllocated", ctx.bytesAllocated), zap.Int("nextGC", ctx.nextGC))

	var gray []Obj
	mark := func(o Obj) {
		if o == nil {
			return
		}
		hdr := o.objHeader()
		if hdr.marked {
			return
		}
		hdr.marked = true
		gray = append(gray, o)
	}
	markValue := func(v Value) {
		if v.Kind == KObj && v.Obj != nil {
			mark(v.Obj)
		}
	}

	for i := 0; i < ctx.stackTop; i++ {
		markValue(ctx.stack[i])
	}
	for i := range ctx.frames {
		mark(ctx.frames[i].Closure)
	}
	for uv := ctx.openUpvals; uv != nil; uv = uv.NextOpen {
		mark(uv)
	}
	markMapRoots(ctx.globals, markValue)
	markValue(ctx.pending)
	for _, c := range []*ObjClass{
		ctx.arrayClass, ctx.mapClass, ctx.tupleClass,
		ctx.arrayIterClass, ctx.mapIterClass, ctx.iteratorClass,
		ctx.exceptionClass, ctx.runtimeExceptionClass,
	} {
		if c != nil {
			mark(c)
		}
	}
	for h := range ctx.handles {
		markValue(h.v)
	}

	for len(gray) > 0 {
		o := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		ctx.blacken(o, mark, markValue)
	}

	ctx.strings.sweep()
	ctx.sweep()

	ctx.nextGC = int(float64(ctx.bytesAllocated) * ctx.cfg.HeapGrowFactor)
	if ctx.nextGC < ctx.cfg.InitialHeapSize {
		ctx.nextGC = ctx.cfg.InitialHeapSize
	}
	ctx.log.Debug("gc end", zap.Int("bytesAllocated", ctx.bytesAllocated), zap.Int("nextGC", ctx.nextGC))
}

// blacken traces o's outgoing references, marking (graying) whatever it
// points to. Every heap object kind that can hold a Value or an Obj
// reference has a case here; anything without one (ObjString,
// ObjUpvalue's Closed scalar fields) needs no tracing beyond marking
// itself.
func (ctx *Context) blacken(o Obj, mark func(Obj), markValue func(Value)) {
	switch v := o.(type) {
	case *ObjString:
		// leaf
	case *ObjFunction:
		for _, k := range v.Chunk.Constants {
			markValue(k)
		}
		for _, d := range v.Defaults {
			markValue(d)
		}
		if v.ParentClass != nil {
			mark(v.ParentClass)
		}
	case *ObjClosure:
		mark(v.Fn)
		for _, uv := range v.Upvalues {
			mark(uv)
		}
	case *ObjUpvalue:
		if v.Location != nil {
			markValue(*v.Location)
		} else {
			markValue(v.Closed)
		}
	case *ObjNative:
		// leaf
	case *ObjNativeClosure:
		for _, b := range v.Bound {
			markValue(b)
		}
	case *ObjClass:
		if v.Super != nil {
			mark(v.Super)
		}
		for _, cell := range v.Methods {
			markValue(*cell)
		}
		for _, cell := range v.StaticValues {
			markValue(*cell)
		}
		markValue(v.Initializer)
	case *ObjInstance:
		mark(v.Class)
		for _, f := range v.Fields {
			markValue(f)
		}
		if it, ok := v.Native.(*arrayIteratorState); ok {
			mark(it.array)
		}
		if it, ok := v.Native.(*mapIteratorState); ok {
			mark(it.m)
		}
	case *ObjBoundMethod:
		markValue(v.Receiver)
		markValue(v.Method)
	case *ObjArray:
		for _, item := range v.Items {
			markValue(item)
		}
	case *ObjTuple:
		for _, item := range v.Items {
			markValue(item)
		}
	case *ObjMap:
		markMapRoots(v.Table, markValue)
	}
}

// markMapRoots walks every live key/value pair of a deterministic map
// for root marking, using its iterator rather than reaching into
// internal/wisptable's unexported fields.
func markMapRoots(t *valueTable, markValue func(Value)) {
	if t == nil {
		return
	}
	it := t.NewIterator()
	for {
		k, v, ok, err := it.Next()
		if err != nil || !ok {
			return
		}
		markValue(k)
		markValue(v)
	}
}

// sweep frees every unmarked object from the intrusive GC list and
// unmarks survivors for the next cycle.
func (ctx *Context) sweep() {
	var prev Obj
	curr := ctx.objects
	for curr != nil {
		hdr := curr.objHeader()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			prev = curr
		} else {
			if prev == nil {
				ctx.objects = next
			} else {
				prev.objHeader().next = next
			}
		}
		curr = next
	}
}
