package wisp

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/kristofer/wisp/internal/wisptable"
)

// addrString renders an object's pointer identity as a string suitable
// for hashing. Used only for identity-hash fallback.
func addrString(o Obj) string { return fmt.Sprintf("%p", o) }

// valueTable is the deterministic, insertion-ordered map (module C)
// instantiated over Value keys and values. The generic container
// itself (internal/wisptable) carries no knowledge of Value; the hash
// and equality callbacks supplied here give it type-aware semantics
// per spec.md §3 "Map": numbers hash by bit pattern, strings by cached
// hash, instances via a user-defined hashCode method, and everything
// else falls back to identity.
type valueTable = wisptable.Table[Value, Value]

// newValueTable creates an ObjMap's backing table bound to ctx so that
// hashing/equality can dispatch to a user-defined hashCode/equals.
func (ctx *Context) newValueTable() *valueTable {
	return wisptable.New[Value, Value](ctx.hashValue, ctx.mapKeysEqual)
}

// hashValue computes the type-appropriate hash for a map key.
func (ctx *Context) hashValue(v Value) uint64 {
	switch v.Kind {
	case KNil:
		return 0
	case KBool:
		if v.Bool {
			return 1
		}
		return 2
	case KNumber:
		return math.Float64bits(v.Num)
	case KObj:
		switch o := v.Obj.(type) {
		case *ObjString:
			return o.Hash
		case *ObjInstance:
			if h, ok := ctx.userHashCode(o); ok {
				return h
			}
			return o.IdentityHash
		default:
			return identityHash(o)
		}
	}
	return 0
}

// identityHash derives a stable hash from an object's address. It is
// used for any object kind with no value-based or user-defined notion
// of hashing.
func identityHash(o Obj) uint64 {
	// The object header's address is stable for the object's lifetime
	// (objects are never moved by this collector).
	return xxhash.Sum64String(addrString(o))
}

// userHashCode calls the instance's hashCode method if its class
// defines one, per spec.md §3's "instances via a user-defined hashCode
// method" rule. ok is false if no such method exists, in which case
// the caller falls back to identity.
func (ctx *Context) userHashCode(inst *ObjInstance) (uint64, bool) {
	method, ok := ctx.resolveHashCode(inst.Class)
	if !ok {
		return 0, false
	}
	result, err := ctx.callValue(bindMethod(ObjVal(inst), method), nil)
	if err != nil || result.Kind != KNumber {
		return 0, false
	}
	return math.Float64bits(result.Num), true
}

// mapKeysEqual implements key equality for the deterministic map,
// dispatching to a user-defined equals method for instances exactly
// as value equality does at the language level (spec.md §4.A).
func (ctx *Context) mapKeysEqual(a, b Value) bool {
	eq, err := ctx.valuesEqual(a, b)
	if err != nil {
		return false
	}
	return eq
}
