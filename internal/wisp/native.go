package wisp

// RegisterNativeFunction installs a free function callable from script
// code as a global (spec.md §6). arity is recorded on the native but
// not enforced: fn receives exactly the arguments the call passed,
// unpadded, starting at args[0] (no receiver).
func (ctx *Context) RegisterNativeFunction(name string, arity int, fn NativeFn) {
	n := &ObjNative{Name: name, Arity: arity, Fn: fn}
	n.kind = objNative
	ctx.registerObject(n)
	ctx.defineGlobal(name, ObjVal(n))
}

// LookupClass finds a previously registered class by its global name,
// for host code that wants to extend a builtin (e.g. adding methods to
// the Exception class) rather than define a new one via NewNativeClass.
func (ctx *Context) LookupClass(name string) (*ObjClass, bool) {
	v, ok := ctx.getGlobal(name)
	if !ok {
		return nil, false
	}
	c, ok := v.Obj.(*ObjClass)
	return c, ok
}

// AddNativeMethod installs a native method on a class obtained via
// LookupClass/NewNativeClass. Unlike a native function, a native method
// receives its receiver as args[0], followed by the call's arguments
// (spec.md §6).
func (ctx *Context) AddNativeMethod(class *ObjClass, name string, arity int, fn NativeFn) {
	class.DefineMethod(name, nativeMethod(name, arity, fn))
}

// NewNativeClass creates an empty class intended to be populated with
// native methods and registered as a global, the mechanism host
// embedders use to expose a new builtin type (spec.md §6).
func (ctx *Context) NewNativeClass(name string) *ObjClass {
	c := ctx.newClass(name)
	ctx.defineGlobal(name, ObjVal(c))
	return c
}

// NewArray/NewMap/NewString/NewTuple let native code build language
// values to pass back to script code.
func (ctx *Context) NewArray(items []Value) Value { return ObjVal(ctx.newArray(items)) }
func (ctx *Context) NewMap() Value                { return ObjVal(ctx.newMap()) }
func (ctx *Context) NewTuple(items []Value) Value { return ObjVal(ctx.newTuple(items)) }
func (ctx *Context) NewString(s string) Value      { return ObjVal(ctx.InternString(s)) }

// MapSet/MapGet are convenience wrappers for native code manipulating
// an ObjMap without reaching into internal/wisptable directly.
func MapSet(m Value, key, value Value) { m.Obj.(*ObjMap).Table.Set(key, value) }
func MapGet(m Value, key Value) (Value, bool) {
	v, ok := m.Obj.(*ObjMap).Table.Get(key)
	return v, ok
}

// ArgError is a convenience a native function returns (via
// ctx.Throw-wrapping) when an argument is missing or the wrong type.
func (ctx *Context) ArgError(fname string, index int, expected string, got Value) Value {
	return ctx.Throw("%s: argument %d must be %s, got %s", fname, index, expected, got.TypeName())
}

// Push/Pop/Peek expose the operand stack to native code that needs it
// directly rather than through the args slice (spec.md §6 embedding
// surface: "push, pop, peek, getArg(index)"). Most natives only need
// args; these exist for the rarer case of a native that builds a
// temporary value and wants it protected from collection for the
// duration of a callback it makes back into script code.
func (ctx *Context) Push(v Value) { ctx.push(v) }
func (ctx *Context) Pop() Value   { return ctx.pop() }
func (ctx *Context) Peek(distance int) Value { return ctx.peek(distance) }

// GetArg is the embedding surface's getArg(index): args[index], or Nil
// if index is out of range (a native's arity is not checked before the
// call, so args may be shorter than the native expects).
func GetArg(args []Value, index int) Value {
	if index < 0 || index >= len(args) {
		return Nil
	}
	return args[index]
}

// RuntimeError is the embedding surface's runtimeError(format, ...): an
// alias for Throw under the name spec.md §6 uses.
func (ctx *Context) RuntimeError(format string, args ...any) Value {
	return ctx.Throw(format, args...)
}
