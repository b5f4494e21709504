package wisp

import "github.com/pkg/errors"

// ErrClassIdOverflow is returned when a class hierarchy grows deep
// enough that the classId product would overflow uint64, per spec.md
// §3's invariant that implementations must detect this rather than
// silently wrap.
var ErrClassIdOverflow = errors.New("class hierarchy too deep: classId would overflow")

// nextPrime draws the smallest prime strictly greater than after,
// trial-dividing by every odd candidate (class counts stay small
// enough in practice that a sieve would be premature). This mirrors
// the original's unbounded per-class prime generator
// (_examples/original_source/elox/lib/vm.c:434's initPrimeGen) rather
// than cycling a fixed pool: a fixed pool repeats primes once the
// class count exceeds its length, and a repeated base prime makes
// InstanceOf (a classId modulo test) return true for two unrelated
// classes that happen to share it.
func nextPrime(after uint64) uint64 {
	candidate := after + 1
	if candidate <= 2 {
		return 2
	}
	if candidate%2 == 0 {
		candidate++
	}
	for {
		if isPrime(candidate) {
			return candidate
		}
		candidate += 2
	}
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// newClass allocates a class with no super, drawing a fresh base prime
// strictly larger than any prime drawn so far so every class in the
// context's lifetime gets a unique baseId (spec.md §3 "Class"); classId
// is the product of a class's own baseId and its super's classId,
// which makes instanceOf a single modulo: instanceOf(A, B) ⇔ B.classId
// % A.classId == 0. Use Inherit to link a superclass before the class
// is used.
func (ctx *Context) newClass(name string) *ObjClass {
	c := &ObjClass{
		Name:        name,
		FieldIndex:  make(map[string]int),
		Methods:     make(map[string]*Value),
		StaticIndex: make(map[string]int),
		Initializer: Nil,
	}
	c.kind = objClass
	ctx.lastPrime = nextPrime(ctx.lastPrime)
	c.ClassId = ctx.lastPrime
	ctx.allClasses = append(ctx.allClasses, c)
	ctx.registerObject(c)
	return c
}

// Inherit links super beneath c, folding super's field layout in ahead
// of c's own fields, copying down inherited methods that c does not
// itself override (each into a fresh cell, so a later override in c
// leaves super's method untouched; statics are not copied), and
// multiplying classId by super's classId (spec.md §3, §4.G "class X : Y").
func (ctx *Context) Inherit(c, super *ObjClass) error {
	if super == nil {
		return errors.New("cannot inherit from nil class")
	}
	product := c.ClassId * super.ClassId
	if super.ClassId != 0 && product/super.ClassId != c.ClassId {
		return ErrClassIdOverflow
	}
	c.Super = super
	c.ClassId = product

	for _, name := range super.FieldOrder {
		if _, exists := c.FieldIndex[name]; !exists {
			c.FieldIndex[name] = len(c.FieldOrder)
			c.FieldOrder = append(c.FieldOrder, name)
		}
	}
	for name, cell := range super.Methods {
		if _, exists := c.Methods[name]; !exists {
			inherited := new(Value)
			*inherited = *cell
			c.Methods[name] = inherited
		}
	}
	return nil
}

// DefineField reserves a field slot. Redeclaring a field name that a
// superclass already defines is the "field shadows super" runtime
// error (spec.md §7); callers should check FieldIndex before calling.
func (c *ObjClass) DefineField(name string) int {
	if idx, ok := c.FieldIndex[name]; ok {
		return idx
	}
	idx := len(c.FieldOrder)
	c.FieldIndex[name] = idx
	c.FieldOrder = append(c.FieldOrder, name)
	return idx
}

// DefineMethod installs a method (an ObjClosure- or ObjNative-wrapped
// Value) under name, refreshing the hashCode/equals fast slots
// (spec.md §3 "fast slots for hashCode/equals").
func (c *ObjClass) DefineMethod(name string, v Value) {
	cell, ok := c.Methods[name]
	if !ok {
		cell = new(Value)
		c.Methods[name] = cell
	}
	*cell = v
	if name == "hashCode" {
		c.hashCodeMethod, c.hasHashCode = v, true
	}
	if name == "equals" {
		c.equalsMethod, c.hasEquals = v, true
	}
	if name == c.Name {
		c.Initializer = v
	}
}

// DefineStatic reserves a static-member slot with an initial value.
func (c *ObjClass) DefineStatic(name string, v Value) int {
	if idx, ok := c.StaticIndex[name]; ok {
		*c.StaticValues[idx] = v
		return idx
	}
	idx := len(c.StaticValues)
	cell := new(Value)
	*cell = v
	c.StaticIndex[name] = idx
	c.StaticValues = append(c.StaticValues, cell)
	return idx
}

// resolveMethod looks up name starting at class and walking the
// super-chain, implementing ordinary (non-super) method dispatch.
func resolveMethod(class *ObjClass, name string) (Value, bool) {
	for c := class; c != nil; c = c.Super {
		if cell, ok := c.Methods[name]; ok {
			return *cell, true
		}
	}
	return Nil, false
}

// resolveMethodCell is resolveMethod but returns the stable storage
// cell itself, used by RESOLVE_MEMBERS to populate a MemberRef.
func resolveMethodCell(class *ObjClass, name string) (*Value, bool) {
	for c := class; c != nil; c = c.Super {
		if cell, ok := c.Methods[name]; ok {
			return cell, true
		}
	}
	return nil, false
}

// resolveHashCode/resolveEquals expose the fast-slot lookup, checking
// the whole super-chain since a subclass without its own override
// should still use an ancestor's hashCode/equals.
func (ctx *Context) resolveHashCode(class *ObjClass) (Value, bool) {
	for c := class; c != nil; c = c.Super {
		if c.hasHashCode {
			return c.hashCodeMethod, true
		}
	}
	return Nil, false
}

func (ctx *Context) resolveEquals(class *ObjClass) (Value, bool) {
	for c := class; c != nil; c = c.Super {
		if c.hasEquals {
			return c.equalsMethod, true
		}
	}
	return Nil, false
}

// InstanceOf implements spec.md §3's constant-time instanceOf test:
// sub is an instance of super iff super appears on sub's super-chain,
// which holds iff sub.ClassId is divisible by super.ClassId.
func InstanceOf(sub, super *ObjClass) bool {
	if sub == nil || super == nil || super.ClassId == 0 {
		return false
	}
	return sub.ClassId%super.ClassId == 0
}

// bindMethod constructs a bound method pairing receiver with a method
// value looked up (and cached) via the class's method table (spec.md
// §4.H).
func bindMethod(receiver Value, method Value) Value {
	bm := &ObjBoundMethod{Receiver: receiver, Method: method}
	bm.kind = objBoundMethod
	return ObjVal(bm)
}

// countAllFields returns the total instance-field slot count for class
// (its own fields plus everything inherited, already folded into
// FieldOrder by Inherit).
func (c *ObjClass) countAllFields() int { return len(c.FieldOrder) }

// NewInstance allocates a zeroed instance of class, with Nil in every
// field slot and a freshly drawn identity hash.
func (ctx *Context) NewInstance(class *ObjClass) *ObjInstance {
	fields := make([]Value, class.countAllFields())
	for i := range fields {
		fields[i] = Nil
	}
	inst := &ObjInstance{Class: class, Fields: fields, IdentityHash: ctx.nextIdentityHash()}
	inst.kind = objInstance
	ctx.registerObject(inst)
	return inst
}
