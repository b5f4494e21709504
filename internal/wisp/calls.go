package wisp

// callOpts lets prepareCall's few unusual callers (SUPER_INVOKE,
// SUPER_INIT) substitute the callee without disturbing the argument
// window already sitting on the stack.
type callOpts struct {
	calleeOverride Value
	hasOverride    bool
}

// CallOption configures prepareCall. withCallee is the only one.
type CallOption func(*callOpts)

func withCallee(v Value) CallOption {
	return func(o *callOpts) { o.calleeOverride = v; o.hasOverride = true }
}

// prepareCall implements spec.md §4.I's calling convention for the CALL
// family of opcodes: calleeSlot holds the callable (or, with
// withCallee, is overwritten by it first) and the argCount values
// above it are the arguments. A closure call pushes a new CallFrame and
// returns (true, nil); a native call runs to completion immediately,
// replaces the whole [calleeSlot, stackTop) window with its single
// result, and returns (false, nil).
func (ctx *Context) prepareCall(calleeSlot, argCount int, opts ...CallOption) (bool, error) {
	var o callOpts
	for _, opt := range opts {
		opt(&o)
	}
	callee := ctx.stack[calleeSlot]
	if o.hasOverride {
		// The override changes what gets dispatched to, not what sits
		// in slot 0: callers that need a particular receiver bound
		// there (INVOKE, SUPER_INVOKE, SUPER_INIT) arrange for
		// ctx.stack[calleeSlot] to already hold it.
		callee = o.calleeOverride
	}

	switch fn := callee.Obj.(type) {
	case nil:
		if callee.Kind == KNil && o.hasOverride {
			// SUPER_INIT with no superclass constructor: no-op call
			// that simply discards the arguments and yields nil.
			ctx.stackTop = calleeSlot
			ctx.push(Nil)
			return false, nil
		}
		return false, ctx.raiseRuntime("value is not callable")
	case *ObjClosure:
		args := ctx.stack[calleeSlot+1 : ctx.stackTop]
		adjusted, fixed, varc, err := ctx.adjustArgs(fn.Fn, args)
		if err != nil {
			return false, ctx.failWith(err)
		}
		ctx.stackTop = calleeSlot + 1
		for _, v := range adjusted {
			ctx.push(v)
		}
		if len(ctx.frames) >= maxFrames {
			return false, ctx.raiseRuntime("stack overflow")
		}
		ctx.frames = append(ctx.frames, CallFrame{
			Closure:   fn,
			BaseSlot:  calleeSlot,
			FixedArgs: fixed,
			VarArgs:   varc,
		})
		return true, nil
	case *ObjNative:
		// A native reached through an override (a method call) sees its
		// receiver as args[0]; a plain native function call sees only
		// its arguments.
		start := calleeSlot
		if !o.hasOverride {
			start = calleeSlot + 1
		}
		args := append([]Value(nil), ctx.stack[start:ctx.stackTop]...)
		result := fn.Fn(ctx, args)
		ctx.stackTop = calleeSlot
		if result.Kind == KException {
			return false, ctx.unwind()
		}
		ctx.push(result)
		return false, nil
	case *ObjNativeClosure:
		args := append([]Value(nil), ctx.stack[calleeSlot+1:ctx.stackTop]...)
		result := fn.Fn(ctx, fn.Bound, args)
		ctx.stackTop = calleeSlot
		if result.Kind == KException {
			return false, ctx.unwind()
		}
		ctx.push(result)
		return false, nil
	case *ObjClass:
		inst := ctx.NewInstance(fn)
		ctx.stack[calleeSlot] = ObjVal(inst)
		if fn.Initializer.IsNil() {
			ctx.stackTop = calleeSlot + 1
			return false, nil
		}
		return ctx.prepareCall(calleeSlot, argCount, withCallee(fn.Initializer))
	case *ObjBoundMethod:
		ctx.stack[calleeSlot] = fn.Receiver
		return ctx.prepareCall(calleeSlot, argCount, withCallee(fn.Method))
	default:
		return false, ctx.raiseRuntime("value is not callable")
	}
}

// callValue invokes callee with args synchronously from Go code (used
// by hashCode/equals dispatch and by native stdlib functions that take
// a callback), running a nested dispatch loop if callee turns out to be
// a closure.
func (ctx *Context) callValue(callee Value, args []Value) (Value, error) {
	calleeSlot := ctx.stackTop
	ctx.push(callee)
	for _, a := range args {
		ctx.push(a)
	}
	pushedFrame, err := ctx.prepareCall(calleeSlot, len(args))
	if err != nil {
		return Nil, err
	}
	if pushedFrame {
		if err := ctx.run(len(ctx.frames) - 1); err != nil {
			return Nil, err
		}
	}
	return ctx.pop(), nil
}

// invoke implements INVOKE: a combined GET_PROPERTY+CALL for the common
// `receiver.name(args)` shape, avoiding the intermediate bound-method
// allocation (spec.md §4.G "INVOKE").
func (ctx *Context) invoke(name string, argCount int) error {
	calleeSlot := ctx.stackTop - argCount - 1
	receiver := ctx.stack[calleeSlot]
	method, err := ctx.lookupPropertyCallable(receiver, name)
	if err != nil {
		return ctx.failWith(err)
	}
	ctx.stack[calleeSlot] = receiver
	_, callErr := ctx.prepareCall(calleeSlot, argCount, withCallee(method))
	return callErr
}

// lookupPropertyCallable resolves receiver.name to a callable Value,
// binding it to receiver when it resolves to an instance method.
func (ctx *Context) lookupPropertyCallable(receiver Value, name string) (Value, error) {
	inst, ok := receiver.Obj.(*ObjInstance)
	if !ok {
		return Nil, ctx.newRuntimeError("cannot call method %q on a %s", name, receiver.TypeName())
	}
	if method, ok := resolveMethod(inst.Class, name); ok {
		return method, nil
	}
	return Nil, ctx.newRuntimeError("undefined method %q on %s", name, inst.Class.Name)
}

// getProperty implements GET_PROPERTY: a dynamic, by-name property
// read used whenever the compiler could not pre-resolve the reference
// to a member-ref cache slot (every case except this.*/super.*), e.g.
// `someExpr.field`.
func (ctx *Context) getProperty(name string) error {
	receiver := ctx.pop()
	inst, ok := receiver.Obj.(*ObjInstance)
	if !ok {
		return ctx.raiseRuntime("cannot read property %q of a %s", name, receiver.TypeName())
	}
	if idx, ok := inst.Class.FieldIndex[name]; ok {
		ctx.push(inst.Fields[idx])
		return nil
	}
	if method, ok := resolveMethod(inst.Class, name); ok {
		ctx.push(bindMethod(receiver, method))
		return nil
	}
	return ctx.raiseRuntime("undefined property %q on %s", name, inst.Class.Name)
}

func (ctx *Context) setProperty(name string) error {
	value := ctx.pop()
	receiver := ctx.pop()
	inst, ok := receiver.Obj.(*ObjInstance)
	if !ok {
		return ctx.raiseRuntime("cannot set property %q of a %s", name, receiver.TypeName())
	}
	idx, ok := inst.Class.FieldIndex[name]
	if !ok {
		return ctx.raiseRuntime("undefined field %q on %s", name, inst.Class.Name)
	}
	inst.Fields[idx] = value
	ctx.push(value)
	return nil
}

func (ctx *Context) mapGet() error {
	key := ctx.pop()
	receiver := ctx.pop()
	m, ok := receiver.Obj.(*ObjMap)
	if !ok {
		return ctx.raiseRuntime("cannot map-index a %s", receiver.TypeName())
	}
	v, ok := m.Table.Get(key)
	if !ok {
		ctx.push(Nil)
		return nil
	}
	ctx.push(v)
	return nil
}

func (ctx *Context) mapSet() error {
	value := ctx.pop()
	key := ctx.pop()
	receiver := ctx.pop()
	m, ok := receiver.Obj.(*ObjMap)
	if !ok {
		return ctx.raiseRuntime("cannot map-index a %s", receiver.TypeName())
	}
	m.Table.Set(key, value)
	ctx.push(value)
	return nil
}

// index implements INDEX for arrays (numeric, bounds-checked), tuples,
// maps, and strings (single-character substring).
func (ctx *Context) index() error {
	key := ctx.pop()
	receiver := ctx.pop()
	switch v := receiver.Obj.(type) {
	case *ObjArray:
		i, err := ctx.indexInt(key, len(v.Items))
		if err != nil {
			return err
		}
		ctx.push(v.Items[i])
	case *ObjTuple:
		i, err := ctx.indexInt(key, len(v.Items))
		if err != nil {
			return err
		}
		ctx.push(v.Items[i])
	case *ObjMap:
		val, ok := v.Table.Get(key)
		if !ok {
			ctx.push(Nil)
			return nil
		}
		ctx.push(val)
	case *ObjString:
		i, err := ctx.indexInt(key, len(v.Bytes))
		if err != nil {
			return err
		}
		ctx.push(ObjVal(ctx.Intern(v.Bytes[i : i+1])))
	default:
		return ctx.raiseRuntime("cannot index a %s", receiver.TypeName())
	}
	return nil
}

func (ctx *Context) indexInt(key Value, length int) (int, error) {
	if !key.IsNumber() {
		return 0, ctx.raiseRuntime("index must be a number")
	}
	i := int(key.Num)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, ctx.raiseRuntime("index out of bounds")
	}
	return i, nil
}

func (ctx *Context) indexStore() error {
	value := ctx.pop()
	key := ctx.pop()
	receiver := ctx.pop()
	switch v := receiver.Obj.(type) {
	case *ObjArray:
		i, err := ctx.indexInt(key, len(v.Items))
		if err != nil {
			return err
		}
		v.Items[i] = value
	case *ObjMap:
		v.Table.Set(key, value)
	default:
		return ctx.raiseRuntime("cannot index-assign a %s", receiver.TypeName())
	}
	ctx.push(value)
	return nil
}

// classOf returns the class FOREACH_INIT/the iterator protocol should
// resolve "iterator"/"hasNext"/"next" against for v: its own class for
// an instance, or one of the synthetic built-in classes for the
// collection types (spec.md §4.J).
func (ctx *Context) classOf(v Value) (*ObjClass, bool) {
	switch o := v.Obj.(type) {
	case *ObjInstance:
		return o.Class, true
	case *ObjArray:
		return ctx.arrayClass, true
	case *ObjMap:
		return ctx.mapClass, true
	case *ObjTuple:
		return ctx.tupleClass, true
	default:
		return nil, false
	}
}

// foreachInit implements FOREACH_INIT (spec.md §4.J): pop the iterable.
// If its class resolves an iterator() method, call it to obtain the
// iterator instance; otherwise, if the value's own class is an
// Iterator subclass, it serves as its own iterator (a hand-written
// iterator class needs no separate factory method). Either way, the
// iterator instance's hasNext/next methods are bound directly into the
// two local slots the opcode names, so the compiled loop body invokes
// them each pass without re-resolving anything.
func (ctx *Context) foreachInit(frame *CallFrame, hasNextSlot, nextSlot int) error {
	receiver := ctx.pop()
	class, ok := ctx.classOf(receiver)
	if !ok {
		return ctx.raiseRuntime("cannot iterate a %s", receiver.TypeName())
	}

	iterSource := receiver
	if iterMethod, ok := resolveMethod(class, "iterator"); ok {
		var err error
		iterSource, err = ctx.callValue(bindMethod(receiver, iterMethod), nil)
		if err != nil {
			return err
		}
	} else if !InstanceOf(class, ctx.iteratorClass) {
		return ctx.raiseRuntime("%s has no iterator() method and is not an Iterator", class.Name)
	}

	iterInst, ok := iterSource.Obj.(*ObjInstance)
	if !ok {
		return ctx.raiseRuntime("iterator() did not produce an instance")
	}
	hasNext, ok := resolveMethod(iterInst.Class, "hasNext")
	if !ok {
		return ctx.raiseRuntime("%s has no hasNext() method", iterInst.Class.Name)
	}
	next, ok := resolveMethod(iterInst.Class, "next")
	if !ok {
		return ctx.raiseRuntime("%s has no next() method", iterInst.Class.Name)
	}
	ctx.stack[frame.BaseSlot+hasNextSlot] = bindMethod(iterSource, hasNext)
	ctx.stack[frame.BaseSlot+nextSlot] = bindMethod(iterSource, next)
	return nil
}

// unpack implements UNPACK n (spec.md §4.G "tuple unpacking", §4.J
// "UNPACK n"): pops one value, then reads n inline (storageClass,
// index) target records and assigns element i of the popped
// tuple/array to target i (nil if the source was shorter), or — for a
// non-aggregate value — the value itself to target 0 and nil to every
// other target.
func (ctx *Context) unpack(chunk *Chunk, frame *CallFrame, n int) error {
	v := ctx.pop()
	var items []Value
	aggregate := true
	switch o := v.Obj.(type) {
	case *ObjTuple:
		items = o.Items
	case *ObjArray:
		items = o.Items
	default:
		aggregate = false
	}

	for i := 0; i < n; i++ {
		storageClass := StorageClass(ctx.readU8(chunk, frame))
		idx := ctx.readU16(chunk, frame)

		var val Value
		if aggregate {
			if i < len(items) {
				val = items[i]
			} else {
				val = Nil
			}
		} else if i == 0 {
			val = v
		} else {
			val = Nil
		}

		switch storageClass {
		case StorageLocal:
			ctx.stack[frame.BaseSlot+int(idx)] = val
		case StorageUpvalue:
			*frame.Closure.Upvalues[idx].Location = val
		case StorageGlobal:
			name := chunk.Constants[idx].AsString()
			ctx.defineGlobal(string(name.Bytes), val)
		}
	}
	return nil
}
