package wisp

import "fmt"

// installExceptionClass sets up the two built-in classes every runtime
// error and `throw` statement ultimately instantiate: Exception (the
// root, carrying a "message" field) and RuntimeException (what host
// runtime errors synthesize, per spec.md §7 "all runtime errors
// synthesize an instance of RuntimeException"), subclassing Exception
// so `catch (Exception e)` also catches a RuntimeException. Both share
// a native initializer that stores its first argument, if any, in
// "message".
func (ctx *Context) installExceptionClass() {
	ctx.exceptionClass = ctx.newClass("Exception")
	ctx.exceptionClass.DefineField("message")
	initException := nativeMethod("Exception", 1, func(ctx *Context, args []Value) Value {
		if len(args) > 1 {
			args[0].Obj.(*ObjInstance).Fields[0] = args[1]
		}
		return args[0]
	})
	ctx.exceptionClass.DefineMethod("Exception", initException)
	ctx.defineGlobal("Exception", ObjVal(ctx.exceptionClass))

	ctx.runtimeExceptionClass = ctx.newClass("RuntimeException")
	_ = ctx.Inherit(ctx.runtimeExceptionClass, ctx.exceptionClass)
	ctx.runtimeExceptionClass.Initializer = initException
	ctx.defineGlobal("RuntimeException", ObjVal(ctx.runtimeExceptionClass))
}

// Throw raises a host-formatted RuntimeException from native or VM
// code: it builds the instance with the given message, stashes it as
// the pending exception, and returns ExceptionSentinel, which the
// calling convention treats as "a native just raised" (spec.md §6, §7).
func (ctx *Context) Throw(format string, args ...any) Value {
	inst := ctx.NewInstance(ctx.runtimeExceptionClass)
	inst.Fields[0] = ObjVal(ctx.InternString(fmt.Sprintf(format, args...)))
	ctx.pending = ObjVal(inst)
	return ExceptionSentinel
}

// ThrowValue raises an already-constructed value, implementing the
// THROW opcode (`throw expr`). Per spec.md §7, throwing a non-instance
// is itself a runtime error.
func (ctx *Context) ThrowValue(v Value) error {
	if v.Kind != KObj {
		return ctx.newRuntimeError("can only throw an instance, got %s", v.TypeName())
	}
	if _, ok := v.Obj.(*ObjInstance); !ok {
		return ctx.newRuntimeError("can only throw an instance, got %s", v.TypeName())
	}
	ctx.pending = v
	return ctx.unwind()
}

// unwind implements spec.md §4.K's exception propagation: walk frames
// innermost-first, and within each frame its active handlers
// innermost-first, looking for one whose guarded class the pending
// exception is an instance of. The first match truncates the operand
// stack to the handler's recorded level, pushes the exception value,
// and resumes at the handler's target offset. Exhausting every frame
// without a match makes the exception escape to the caller of
// Interpret as an error.
func (ctx *Context) unwind() error {
	if ctx.unwinding {
		return ctx.newRuntimeError("exception raised while handling another exception: %s", ctx.describePending())
	}
	ctx.unwinding = true
	defer func() { ctx.unwinding = false }()

	trace := ctx.captureTrace()
	for len(ctx.frames) > 0 {
		frame := &ctx.frames[len(ctx.frames)-1]
		for i := len(frame.handlers) - 1; i >= 0; i-- {
			h := frame.handlers[i]
			records := ReadHandlerTable(frame.Closure.Fn.Chunk, h.TableAddr)
			for _, rec := range records {
				classVal, err := ctx.resolveHandlerClass(frame, rec)
				if err != nil {
					return err
				}
				class, ok := classVal.Obj.(*ObjClass)
				if !ok {
					continue
				}
				instance := ctx.pending.Obj.(*ObjInstance)
				if !InstanceOf(instance.Class, class) {
					continue
				}
				frame.handlers = frame.handlers[:i]
				ctx.closeUpvalues(h.StackLevel)
				ctx.stackTop = h.StackLevel
				ctx.push(ctx.pending)
				frame.IP = int(rec.TargetOffset)
				ctx.pending = Nil
				return nil
			}
		}
		ctx.closeUpvalues(frame.BaseSlot)
		ctx.stackTop = frame.BaseSlot
		ctx.frames = ctx.frames[:len(ctx.frames)-1]
	}

	msg := ctx.describePending()
	ctx.pending = Nil
	return &RuntimeError{Message: "uncaught exception: " + msg, Trace: trace}
}

// resolveHandlerClass reads the exception-type operand of a handler
// record out of whichever storage class it names: a local slot in
// frame, an upvalue of frame's closure, or a global (by name, via the
// record's Handle treated as an index into the chunk's constant pool
// holding the class name).
func (ctx *Context) resolveHandlerClass(frame *CallFrame, rec HandlerRecord) (Value, error) {
	switch rec.VarType {
	case StorageLocal:
		return ctx.stack[frame.BaseSlot+int(rec.Handle)], nil
	case StorageUpvalue:
		return *frame.Closure.Upvalues[rec.Handle].Location, nil
	case StorageGlobal:
		name := frame.Closure.Fn.Chunk.Constants[rec.Handle].AsString()
		v, ok := ctx.getGlobal(string(name.Bytes))
		if !ok {
			return Nil, ctx.newRuntimeError("undefined global exception type %q", name.Bytes)
		}
		return v, nil
	}
	return Nil, ctx.newRuntimeError("malformed handler record")
}

func (ctx *Context) describePending() string {
	if inst, ok := ctx.pending.Obj.(*ObjInstance); ok {
		if idx, ok := inst.Class.FieldIndex["message"]; ok {
			msg := inst.Fields[idx]
			if msg.IsString() {
				return string(msg.AsString().Bytes)
			}
		}
		return inst.Class.Name
	}
	return "<non-instance exception>"
}
