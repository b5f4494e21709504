package wisp

// ValueKind discriminates the tagged union that is Value (spec.md §3, §4.A).
type ValueKind uint8

const (
	KNil ValueKind = iota
	KBool
	KNumber
	KObj
	// KUndefined marks empty hash-table slots and unassigned globals.
	// User code never observes it directly.
	KUndefined
	// KException is a non-value sentinel a native function returns to
	// signal that it has installed a raised exception; it is never
	// stored in a variable or passed as an argument.
	KException
)

// Value is the VM's tagged value: nil, boolean, IEEE-754 double, or
// object pointer, plus the two in-band sentinels above.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Obj  Obj
}

// Nil is the VM's nil value.
var Nil = Value{Kind: KNil}

// Undefined is the hash-table tombstone/unassigned-global sentinel.
var Undefined = Value{Kind: KUndefined}

// ExceptionSentinel signals that a native call raised; see KException.
var ExceptionSentinel = Value{Kind: KException}

// BoolVal constructs a boolean value.
func BoolVal(b bool) Value { return Value{Kind: KBool, Bool: b} }

// NumberVal constructs a numeric value.
func NumberVal(n float64) Value { return Value{Kind: KNumber, Num: n} }

// ObjVal constructs a value wrapping a heap object.
func ObjVal(o Obj) Value { return Value{Kind: KObj, Obj: o} }

// IsFalsey reports whether v is false in a boolean context: nil or the
// boolean false. Every other value, including 0 and the empty string,
// is truthy.
func (v Value) IsFalsey() bool {
	switch v.Kind {
	case KNil:
		return true
	case KBool:
		return !v.Bool
	default:
		return false
	}
}

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.Kind == KNil }

// IsNumber reports whether v holds a double.
func (v Value) IsNumber() bool { return v.Kind == KNumber }

// IsString reports whether v holds a string object.
func (v Value) IsString() bool {
	_, ok := v.Obj.(*ObjString)
	return v.Kind == KObj && ok
}

// AsString returns v's string bytes. The caller must have checked IsString.
func (v Value) AsString() *ObjString { return v.Obj.(*ObjString) }

// TypeName returns the language-level type name of v, used in error
// messages and by the `typeName` native.
func (v Value) TypeName() string {
	switch v.Kind {
	case KNil:
		return "nil"
	case KBool:
		return "bool"
	case KNumber:
		return "number"
	case KUndefined:
		return "undefined"
	case KException:
		return "exception"
	case KObj:
		switch o := v.Obj.(type) {
		case *ObjString:
			return "string"
		case *ObjFunction:
			return "function"
		case *ObjClosure:
			return "function"
		case *ObjNative, *ObjNativeClosure:
			return "native"
		case *ObjUpvalue:
			return "upvalue"
		case *ObjClass:
			return "class"
		case *ObjInstance:
			return o.Class.Name
		case *ObjBoundMethod:
			return "bound method"
		case *ObjArray:
			return "array"
		case *ObjTuple:
			return "tuple"
		case *ObjMap:
			return "map"
		}
	}
	return "unknown"
}

// RawEqual implements identity-law equality for every kind except
// instances, which additionally dispatch to a user-defined `equals`
// method — that dispatch requires calling back into the interpreter
// and so lives on Context.valuesEqual, which falls back to RawEqual
// for everything else. NaN is unequal to itself, matching IEEE-754 and
// spec.md §8's identity-law invariant.
func RawEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KNil, KUndefined:
		return true
	case KBool:
		return a.Bool == b.Bool
	case KNumber:
		return a.Num == b.Num
	case KException:
		return true
	case KObj:
		if as, ok := a.Obj.(*ObjString); ok {
			if bs, ok := b.Obj.(*ObjString); ok {
				// Strings are interned: identity suffices once interned.
				return as == bs
			}
			return false
		}
		return a.Obj == b.Obj
	}
	return false
}
