package wisp

import "fmt"

// Interpret compiles nothing itself (that is internal/wispcompile's
// job) and instead runs an already-compiled top-level function as a
// fresh module body, returning whatever the implicit top-level return
// produces. It is the entry point invoked by pkg/wisp.Interpret (spec.md
// §6).
func (ctx *Context) Interpret(fn *ObjFunction) (Value, error) {
	closure := newClosure(fn)
	ctx.registerObject(closure)
	ctx.push(ObjVal(closure))
	if _, err := ctx.prepareCall(ctx.stackTop-1, 0); err != nil {
		return Nil, err
	}
	if err := ctx.run(0); err != nil {
		return Nil, err
	}
	if ctx.stackTop == 0 {
		return Nil, nil
	}
	return ctx.pop(), nil
}

// run executes instructions until the frame count drops back to
// stopDepth (a complete call returning) or a runtime error/uncaught
// exception escapes. It is re-entrant: native calls that call back into
// the interpreter (callValue) invoke run recursively with a deeper
// stopDepth, exactly mirroring how the Go call stack itself nests.
func (ctx *Context) run(stopDepth int) error {
	for len(ctx.frames) > stopDepth {
		frame := &ctx.frames[len(ctx.frames)-1]
		chunk := frame.Closure.Fn.Chunk
		op := OpCode(chunk.Code[frame.IP])
		frame.IP++

		switch op {
		case OpConst8:
			idx := int(ctx.readU8(chunk, frame))
			ctx.push(chunk.Constants[idx])
		case OpConst16:
			idx := int(ctx.readU16(chunk, frame))
			ctx.push(chunk.Constants[idx])
		case OpImm8:
			ctx.push(NumberVal(float64(ctx.readU8(chunk, frame))))
		case OpImm16:
			ctx.push(NumberVal(float64(ctx.readU16(chunk, frame))))
		case OpNil:
			ctx.push(Nil)
		case OpTrue:
			ctx.push(BoolVal(true))
		case OpFalse:
			ctx.push(BoolVal(false))
		case OpPop:
			ctx.pop()
		case OpPopN:
			n := int(ctx.readU8(chunk, frame))
			ctx.stackTop -= n

		case OpGetLocal:
			slot := ctx.localSlot(chunk, frame)
			ctx.push(ctx.stack[frame.BaseSlot+slot])
		case OpSetLocal:
			slot := ctx.localSlot(chunk, frame)
			ctx.stack[frame.BaseSlot+slot] = ctx.peek(0)
		case OpGetVararg:
			idx := int(ctx.readU16(chunk, frame))
			va := ctx.stack[frame.BaseSlot+1+frame.FixedArgs].Obj.(*ObjArray)
			if idx >= len(va.Items) {
				ctx.push(Nil)
			} else {
				ctx.push(va.Items[idx])
			}
		case OpSetVararg:
			idx := int(ctx.readU16(chunk, frame))
			va := ctx.stack[frame.BaseSlot+1+frame.FixedArgs].Obj.(*ObjArray)
			if idx < len(va.Items) {
				va.Items[idx] = ctx.peek(0)
			}
		case OpNumVarargs:
			ctx.push(NumberVal(float64(frame.VarArgs)))

		case OpGetGlobal:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			v, ok := ctx.getGlobal(string(name.Bytes))
			if !ok {
				if err := ctx.raiseRuntime("undefined global %q", name.Bytes); err != nil {
					return err
				}
				continue
			}
			ctx.push(v)
		case OpSetGlobal:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			if !ctx.setGlobal(string(name.Bytes), ctx.peek(0)) {
				if err := ctx.raiseRuntime("undefined global %q", name.Bytes); err != nil {
					return err
				}
			}
		case OpDefineGlobal:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			ctx.defineGlobal(string(name.Bytes), ctx.peek(0))
			ctx.pop()
		case OpGetUpvalue:
			idx := int(ctx.readU16(chunk, frame))
			ctx.push(*frame.Closure.Upvalues[idx].Location)
		case OpSetUpvalue:
			idx := int(ctx.readU16(chunk, frame))
			*frame.Closure.Upvalues[idx].Location = ctx.peek(0)

		case OpGetProperty:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			if err := ctx.getProperty(string(name.Bytes)); err != nil {
				return err
			}
		case OpSetProperty:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			if err := ctx.setProperty(string(name.Bytes)); err != nil {
				return err
			}
		case OpGetMemberProperty:
			idx := int(ctx.readU16(chunk, frame))
			ref := frame.Closure.Fn.ParentClass.MemberRefs[idx]
			inst := ctx.peek(0).Obj.(*ObjInstance)
			ctx.pop()
			ctx.push(*GetMemberRef(ref, inst))
		case OpSetMemberProperty:
			idx := int(ctx.readU16(chunk, frame))
			ref := frame.Closure.Fn.ParentClass.MemberRefs[idx]
			value := ctx.pop()
			inst := ctx.pop().Obj.(*ObjInstance)
			*GetMemberRef(ref, inst) = value
			ctx.push(value)
		case OpGetSuper:
			idx := int(ctx.readU16(chunk, frame))
			ref := frame.Closure.Fn.ParentClass.MemberRefs[idx]
			inst := ctx.pop().Obj.(*ObjInstance)
			ctx.push(bindMethod(ObjVal(inst), *ref.ValueCell))
		case OpMapGet:
			if err := ctx.mapGet(); err != nil {
				return err
			}
		case OpMapSet:
			if err := ctx.mapSet(); err != nil {
				return err
			}

		case OpEqual:
			b, a := ctx.pop(), ctx.pop()
			eq, err := ctx.valuesEqual(a, b)
			if err != nil {
				if err2 := ctx.failWith(err); err2 != nil {
					return err2
				}
				continue
			}
			ctx.push(BoolVal(eq))
		case OpGreater, OpLess:
			if err := ctx.compare(op); err != nil {
				return err
			}
		case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo:
			if err := ctx.arith(op); err != nil {
				return err
			}
		case OpNot:
			ctx.push(BoolVal(ctx.pop().IsFalsey()))
		case OpNegate:
			v := ctx.pop()
			if !v.IsNumber() {
				if err := ctx.raiseRuntime("operand must be a number"); err != nil {
					return err
				}
				continue
			}
			ctx.push(NumberVal(-v.Num))
		case OpInstanceOf:
			b, a := ctx.pop(), ctx.pop()
			cls, ok := b.Obj.(*ObjClass)
			if !ok || a.Kind != KObj {
				ctx.push(BoolVal(false))
				break
			}
			inst, ok := a.Obj.(*ObjInstance)
			if !ok {
				ctx.push(BoolVal(false))
				break
			}
			ctx.push(BoolVal(InstanceOf(inst.Class, cls)))

		case OpJump:
			offset := int(ctx.readU16(chunk, frame))
			frame.IP += offset
		case OpJumpIfFalse:
			offset := int(ctx.readU16(chunk, frame))
			if ctx.peek(0).IsFalsey() {
				frame.IP += offset
			}
		case OpLoop:
			offset := int(ctx.readU16(chunk, frame))
			frame.IP -= offset

		case OpCall:
			argCount := int(ctx.readU8(chunk, frame))
			calleeSlot := ctx.stackTop - argCount - 1
			if _, err := ctx.prepareCall(calleeSlot, argCount); err != nil {
				if err2 := ctx.failWith(err); err2 != nil {
					return err2
				}
			}
		case OpInvoke:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			argCount := int(ctx.readU8(chunk, frame))
			if err := ctx.invoke(string(name.Bytes), argCount); err != nil {
				return err
			}
		case OpMemberInvoke:
			idx := int(ctx.readU16(chunk, frame))
			argCount := int(ctx.readU8(chunk, frame))
			ref := frame.Closure.Fn.ParentClass.MemberRefs[idx]
			calleeSlot := ctx.stackTop - argCount - 1
			inst := ctx.stack[calleeSlot].Obj.(*ObjInstance)
			method := *GetMemberRef(ref, inst)
			if _, err := ctx.prepareCall(calleeSlot, argCount, withCallee(method)); err != nil {
				return err
			}
		case OpSuperInvoke:
			idx := int(ctx.readU16(chunk, frame))
			argCount := int(ctx.readU8(chunk, frame))
			ref := frame.Closure.Fn.ParentClass.MemberRefs[idx]
			calleeSlot := ctx.stackTop - argCount - 1
			if _, err := ctx.prepareCall(calleeSlot, argCount, withCallee(*ref.ValueCell)); err != nil {
				return err
			}
		case OpSuperInit:
			argCount := int(ctx.readU8(chunk, frame))
			super := frame.Closure.Fn.ParentClass.Super
			calleeSlot := ctx.stackTop - argCount - 1
			callee := Nil
			if super != nil {
				callee = super.Initializer
			}
			if _, err := ctx.prepareCall(calleeSlot, argCount, withCallee(callee)); err != nil {
				return err
			}
		case OpReturn:
			result := ctx.pop()
			ctx.closeUpvalues(frame.BaseSlot)
			ctx.stackTop = frame.BaseSlot
			ctx.frames = ctx.frames[:len(ctx.frames)-1]
			ctx.push(result)
		case OpClosure:
			idx := int(ctx.readU16(chunk, frame))
			fn := chunk.Constants[idx].Obj.(*ObjFunction)
			ctx.push(ObjVal(ctx.makeClosure(fn, frame)))
		case OpCloseUpvalue:
			ctx.closeUpvalues(ctx.stackTop - 1)
			ctx.pop()

		case OpClass:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			ctx.push(ObjVal(ctx.newClass(string(name.Bytes))))
		case OpAnonClass:
			ctx.push(ObjVal(ctx.newClass("")))
		case OpInherit:
			super, ok := ctx.peek(1).Obj.(*ObjClass)
			if !ok {
				if err := ctx.raiseRuntime("superclass must be a class"); err != nil {
					return err
				}
				continue
			}
			sub := ctx.peek(0).Obj.(*ObjClass)
			if err := ctx.Inherit(sub, super); err != nil {
				if err2 := ctx.failWith(err); err2 != nil {
					return err2
				}
				continue
			}
			ctx.pop()
		case OpMethod:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			method := ctx.pop()
			class := ctx.peek(0).Obj.(*ObjClass)
			// A method's prototype is only ever referenced from this one
			// class body, so binding ParentClass here (rather than at
			// compile time, when the runtime class does not exist yet) is
			// exactly what GET_MEMBER_PROPERTY/GET_SUPER/RESOLVE_MEMBERS
			// need: frame.Closure.Fn.ParentClass must be the live class.
			if closure, ok := method.Obj.(*ObjClosure); ok {
				closure.Fn.ParentClass = class
			}
			class.DefineMethod(string(name.Bytes), method)
		case OpField:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			class := ctx.peek(0).Obj.(*ObjClass)
			if class.Super != nil {
				if _, shadows := class.Super.FieldIndex[string(name.Bytes)]; shadows {
					if err := ctx.raiseRuntime("field %q shadows a superclass field", name.Bytes); err != nil {
						return err
					}
					continue
				}
			}
			class.DefineField(string(name.Bytes))
		case OpStatic:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			value := ctx.pop()
			class := ctx.peek(0).Obj.(*ObjClass)
			class.DefineStatic(string(name.Bytes), value)
		case OpResolveMembers:
			idx := int(ctx.readU16(chunk, frame))
			descs := frame.Closure.Fn.Chunk.memberDescs[idx]
			class := ctx.peek(0).Obj.(*ObjClass)
			if err := ctx.ResolveMembers(class, descs); err != nil {
				if err2 := ctx.failWith(err); err2 != nil {
					return err2
				}
			}

		case OpArrayBuild:
			n := int(ctx.readU16(chunk, frame))
			items := make([]Value, n)
			copy(items, ctx.stack[ctx.stackTop-n:ctx.stackTop])
			ctx.stackTop -= n
			ctx.push(ObjVal(ctx.newArray(items)))
		case OpMapBuild:
			n := int(ctx.readU16(chunk, frame))
			m := ctx.newMap()
			base := ctx.stackTop - 2*n
			for i := 0; i < n; i++ {
				k := ctx.stack[base+2*i]
				v := ctx.stack[base+2*i+1]
				m.Table.Set(k, v)
			}
			ctx.stackTop = base
			ctx.push(ObjVal(m))
		case OpIndex:
			if err := ctx.index(); err != nil {
				return err
			}
		case OpIndexStore:
			if err := ctx.indexStore(); err != nil {
				return err
			}

		case OpThrow:
			v := ctx.pop()
			if err := ctx.ThrowValue(v); err != nil {
				return err
			}
		case OpPushExceptionHandler:
			tableAddr := frame.IP + int(ctx.readU16(chunk, frame))
			frame.pushHandler(ctx.stackTop, tableAddr)
		case OpPopExceptionHandler:
			frame.popHandler()

		case OpForeachInit:
			hasNextSlot := int(ctx.readU16(chunk, frame))
			nextSlot := int(ctx.readU16(chunk, frame))
			if err := ctx.foreachInit(frame, hasNextSlot, nextSlot); err != nil {
				return err
			}
		case OpUnpack:
			n := int(ctx.readU8(chunk, frame))
			if err := ctx.unpack(chunk, frame, n); err != nil {
				return err
			}

		case OpImport:
			name := chunk.Constants[ctx.readU16(chunk, frame)].AsString()
			mod, err := ctx.importModule(string(name.Bytes))
			if err != nil {
				if err2 := ctx.failWith(err); err2 != nil {
					return err2
				}
				continue
			}
			ctx.push(mod)

		case OpData:
			// Never executed in well-formed bytecode: control flow
			// always jumps over an embedded handler table.
			return ctx.newRuntimeError("fell into embedded handler table data")

		default:
			return ctx.newRuntimeError("unknown opcode %d", op)
		}
	}
	return nil
}

func (ctx *Context) readU8(chunk *Chunk, frame *CallFrame) byte {
	b := chunk.Code[frame.IP]
	frame.IP++
	return b
}

func (ctx *Context) readU16(chunk *Chunk, frame *CallFrame) uint16 {
	hi := chunk.Code[frame.IP]
	lo := chunk.Code[frame.IP+1]
	frame.IP += 2
	return uint16(hi)<<8 | uint16(lo)
}

// localSlot decodes GET_LOCAL/SET_LOCAL's two-byte operand: a raw slot
// number and a postArgs flag. adjustArgs packs every extra argument
// into the single varargs array slot, so a local declared after a
// varargs parameter already sits at a fixed slot: the flag is read but
// does not shift the slot (makeClosure treats captured locals the same
// way).
func (ctx *Context) localSlot(chunk *Chunk, frame *CallFrame) int {
	slot := int(ctx.readU8(chunk, frame))
	ctx.readU8(chunk, frame) // postArgs flag
	return slot
}

// raiseRuntime raises a host-level runtime error as a throwable
// Exception instance, so that user `try`/`catch` can handle the
// ordinary failures the spec lists (e.g. "division by zero") exactly
// like any other exception (spec.md §7).
func (ctx *Context) raiseRuntime(format string, args ...any) error {
	ctx.Throw(format, args...)
	return ctx.unwind()
}

// failWith converts a Go error produced by host bookkeeping (class
// overflow, malformed RESOLVE_MEMBERS input, etc.) into a thrown
// exception carrying that error's message, then unwinds.
func (ctx *Context) failWith(err error) error {
	ctx.Throw("%s", err.Error())
	return ctx.unwind()
}

func (ctx *Context) compare(op OpCode) error {
	b, a := ctx.pop(), ctx.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return ctx.raiseRuntime("operands must be numbers")
	}
	if op == OpGreater {
		ctx.push(BoolVal(a.Num > b.Num))
	} else {
		ctx.push(BoolVal(a.Num < b.Num))
	}
	return nil
}

func (ctx *Context) arith(op OpCode) error {
	b, a := ctx.pop(), ctx.pop()
	// ADD also concatenates when either side is a string, stringifying
	// the other operand the same way `print` displays it (spec.md §8's
	// `k+"="+v` scenario needs a string+number ADD to produce "a=3").
	if op == OpAdd && (a.IsString() || b.IsString()) {
		concat := append(append([]byte(nil), ctx.concatBytes(a)...), ctx.concatBytes(b)...)
		ctx.push(ObjVal(ctx.Intern(concat)))
		return nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return ctx.raiseRuntime("operands must be numbers")
	}
	switch op {
	case OpAdd:
		ctx.push(NumberVal(a.Num + b.Num))
	case OpSubtract:
		ctx.push(NumberVal(a.Num - b.Num))
	case OpMultiply:
		ctx.push(NumberVal(a.Num * b.Num))
	case OpDivide:
		if b.Num == 0 {
			return ctx.raiseRuntime("division by zero")
		}
		ctx.push(NumberVal(a.Num / b.Num))
	case OpModulo:
		if b.Num == 0 {
			return ctx.raiseRuntime("division by zero")
		}
		ctx.push(NumberVal(fmodLike(a.Num, b.Num)))
	}
	return nil
}

// concatBytes renders v for string concatenation: a string contributes
// its raw bytes unchanged, anything else contributes its Display form.
func (ctx *Context) concatBytes(v Value) []byte {
	if v.IsString() {
		return v.AsString().Bytes
	}
	return []byte(ctx.Display(v))
}

func fmodLike(a, b float64) float64 {
	q := float64(int64(a / b))
	return a - q*b
}

// valuesEqual implements language-level `==`, which for instances
// dispatches to a user-defined equals method before falling back to
// identity (spec.md §4.A, §8).
func (ctx *Context) valuesEqual(a, b Value) (bool, error) {
	if a.Kind == KObj && b.Kind == KObj {
		if ai, ok := a.Obj.(*ObjInstance); ok {
			if method, ok := ctx.resolveEquals(ai.Class); ok {
				result, err := ctx.callValue(bindMethod(a, method), []Value{b})
				if err != nil {
					return false, err
				}
				return !result.IsFalsey(), nil
			}
		}
	}
	return RawEqual(a, b), nil
}

// Display renders v the way `print` shows it to a user: numbers
// without a superfluous trailing ".0", strings raw (no quoting),
// aggregates bracketed element-by-element, and instances through a
// user-defined toString() when the class provides one, falling back to
// "ClassName instance" otherwise.
func (ctx *Context) Display(v Value) string {
	switch v.Kind {
	case KNil:
		return "nil"
	case KBool:
		return fmt.Sprintf("%t", v.Bool)
	case KNumber:
		if v.Num == float64(int64(v.Num)) {
			return fmt.Sprintf("%d", int64(v.Num))
		}
		return fmt.Sprintf("%g", v.Num)
	case KObj:
		switch o := v.Obj.(type) {
		case *ObjString:
			return string(o.Bytes)
		case *ObjArray:
			return ctx.displayItems("[", o.Items, "]")
		case *ObjTuple:
			return ctx.displayItems("(", o.Items, ")")
		case *ObjMap:
			return ctx.displayMap(o)
		case *ObjInstance:
			if method, ok := resolveMethod(o.Class, "toString"); ok {
				if result, err := ctx.callValue(bindMethod(v, method), nil); err == nil && result.IsString() {
					return string(result.AsString().Bytes)
				}
			}
			return o.Class.Name + " instance"
		case *ObjClass:
			return "class " + o.Name
		}
	}
	return v.TypeName()
}

func (ctx *Context) displayItems(open string, items []Value, close string) string {
	s := open
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += ctx.Display(it)
	}
	return s + close
}

func (ctx *Context) displayMap(m *ObjMap) string {
	s := "{"
	it := m.Table.NewIterator()
	first := true
	for {
		k, v, ok, err := it.Next()
		if err != nil || !ok {
			break
		}
		if !first {
			s += ", "
		}
		first = false
		s += ctx.Display(k) + ": " + ctx.Display(v)
	}
	return s + "}"
}

// AggregateLen reports the element count of v if it is an array, tuple,
// or map, for the `len` native's benefit.
func (ctx *Context) AggregateLen(v Value) (int, bool) {
	switch o := v.Obj.(type) {
	case *ObjArray:
		return len(o.Items), true
	case *ObjTuple:
		return len(o.Items), true
	case *ObjMap:
		return o.Table.Len(), true
	default:
		return 0, false
	}
}
