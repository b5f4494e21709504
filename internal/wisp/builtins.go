package wisp

// installBuiltinClasses wires up the synthetic classes that back
// arrays, maps, and tuples with the same "iterator()"-returning-an-
// instance protocol used for user classes, so that FOREACH_INIT has
// exactly one dispatch path (spec.md §4.J "Iteration") regardless of
// whether the collection is built in or user-defined.
func (ctx *Context) installBuiltinClasses() {
	// Iterator is the base class FOREACH_INIT's second dispatch path
	// checks for (spec.md §4.J "otherwise if the value's class is an
	// Iterator subclass, use it directly"): a user class that defines
	// its own hasNext/next and subclasses Iterator needs no separate
	// iterator() factory method.
	ctx.iteratorClass = ctx.newClass("Iterator")
	ctx.defineGlobal("Iterator", ObjVal(ctx.iteratorClass))

	ctx.arrayClass = ctx.newClass("Array")
	ctx.arrayClass.DefineMethod("iterator", nativeMethod("iterator", 0, arrayIteratorNative))

	arrayIterClass := ctx.newClass("ArrayIterator")
	_ = ctx.Inherit(arrayIterClass, ctx.iteratorClass)
	arrayIterClass.DefineMethod("hasNext", nativeMethod("hasNext", 0, arrayHasNextNative))
	arrayIterClass.DefineMethod("next", nativeMethod("next", 0, arrayNextNative))
	ctx.arrayIterClass = arrayIterClass

	ctx.mapClass = ctx.newClass("Map")
	ctx.mapClass.DefineMethod("iterator", nativeMethod("iterator", 0, mapIteratorNative))

	mapIterClass := ctx.newClass("MapIterator")
	_ = ctx.Inherit(mapIterClass, ctx.iteratorClass)
	mapIterClass.DefineMethod("hasNext", nativeMethod("hasNext", 0, mapHasNextNative))
	mapIterClass.DefineMethod("next", nativeMethod("next", 0, mapNextNative))
	ctx.mapIterClass = mapIterClass

	ctx.tupleClass = ctx.newClass("Tuple")
	ctx.tupleClass.DefineMethod("iterator", nativeMethod("iterator", 0, tupleIteratorNative))
}

func nativeMethod(name string, arity int, fn NativeFn) Value {
	n := &ObjNative{Name: name, Arity: arity, Fn: fn}
	n.kind = objNative
	return ObjVal(n)
}

// arrayIteratorState is stashed in an ArrayIterator instance's hidden
// Native field; it is not itself an Obj and carries no object header,
// so the collector traces the array it references directly from
// blacken's *ObjInstance case.
type arrayIteratorState struct {
	array *ObjArray
	index int
}

func arrayIteratorNative(ctx *Context, args []Value) Value {
	arr, ok := args[0].Obj.(*ObjArray)
	if !ok {
		return ctx.Throw("iterator() receiver is not an array")
	}
	inst := ctx.NewInstance(ctx.arrayIterClass)
	inst.Native = &arrayIteratorState{array: arr}
	return ObjVal(inst)
}

func arrayHasNextNative(ctx *Context, args []Value) Value {
	st := args[0].Obj.(*ObjInstance).Native.(*arrayIteratorState)
	return BoolVal(st.index < len(st.array.Items))
}

func arrayNextNative(ctx *Context, args []Value) Value {
	st := args[0].Obj.(*ObjInstance).Native.(*arrayIteratorState)
	if st.index >= len(st.array.Items) {
		return ctx.Throw("iterator exhausted")
	}
	v := st.array.Items[st.index]
	st.index++
	return v
}

// mapIteratorState mirrors arrayIteratorState for maps, holding the
// table's own Iterator so deterministic insertion-order traversal and
// concurrent-modification detection (internal/wisptable) carry straight
// through to user-level foreach.
type mapIteratorState struct {
	m    *ObjMap
	iter *wisptableIterator
}

func mapIteratorNative(ctx *Context, args []Value) Value {
	m, ok := args[0].Obj.(*ObjMap)
	if !ok {
		return ctx.Throw("iterator() receiver is not a map")
	}
	inst := ctx.NewInstance(ctx.mapIterClass)
	inst.Native = &mapIteratorState{m: m, iter: newWisptableIterator(m.Table)}
	return ObjVal(inst)
}

func mapHasNextNative(ctx *Context, args []Value) Value {
	st := args[0].Obj.(*ObjInstance).Native.(*mapIteratorState)
	has := st.iter.hasNext()
	if st.iter.modified {
		return ctx.Throw("Map modified during iteration")
	}
	return BoolVal(has)
}

func mapNextNative(ctx *Context, args []Value) Value {
	st := args[0].Obj.(*ObjInstance).Native.(*mapIteratorState)
	k, v, ok := st.iter.next()
	if st.iter.modified {
		return ctx.Throw("Map modified during iteration")
	}
	if !ok {
		return ctx.Throw("iterator exhausted")
	}
	return ObjVal(ctx.newTuple([]Value{k, v}))
}

func tupleIteratorNative(ctx *Context, args []Value) Value {
	t, ok := args[0].Obj.(*ObjTuple)
	if !ok {
		return ctx.Throw("iterator() receiver is not a tuple")
	}
	inst := ctx.NewInstance(ctx.arrayIterClass)
	inst.Native = &arrayIteratorState{array: &ObjArray{Items: t.Items}}
	return ObjVal(inst)
}
