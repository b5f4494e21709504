package wisp

// objKind discriminates the heap object kinds named in spec.md §3.
type objKind uint8

const (
	objString objKind = iota
	objFunction
	objClosure
	objNative
	objNativeClosure
	objUpvalue
	objClass
	objInstance
	objBoundMethod
	objArray
	objTuple
	objMap
)

// object is the header every heap object carries: a mark bit for the
// tri-color collector and an intrusive link in the GC's object list
// (spec.md §3 "Object").
type object struct {
	marked bool
	next   Obj
	kind   objKind
}

func (o *object) objHeader() *object { return o }

// Obj is any heap-allocated entity. Every concrete object type embeds
// object and so gets objHeader for free; Kind identifies which
// concrete type it is without a type switch in hot paths that only
// need the tag.
type Obj interface {
	objHeader() *object
	Kind() objKind
}

// ObjString is an immutable byte sequence plus a precomputed hash
// (spec.md §3 "String"). All ObjStrings with equal bytes are the same
// object once interned (internal/wisp/intern.go).
type ObjString struct {
	object
	Bytes []byte
	Hash  uint64
}

func (s *ObjString) Kind() objKind { return objString }

func newString(bytes []byte, hash uint64) *ObjString {
	o := &ObjString{Bytes: bytes, Hash: hash}
	o.kind = objString
	return o
}

// UpvalueDesc is a compile-time descriptor recorded on a function
// prototype: when a closure is built from this function, the CLOSURE
// opcode uses one descriptor per captured upvalue to either grab the
// enclosing frame's local (IsLocal) or reuse the enclosing closure's
// own upvalue (!IsLocal). PostArgs mirrors GET_LOCAL/SET_LOCAL's
// postArgs bit for upvalues capturing a local declared after a varargs
// pack; since the pack occupies one array slot, CLOSURE does not
// adjust the index by it.
type UpvalueDesc struct {
	Index    int
	IsLocal  bool
	PostArgs bool
}

// ObjFunction is a compiled function prototype (spec.md §3 "Function").
type ObjFunction struct {
	object
	Name         string // "" if anonymous
	Arity        int
	MaxArgs      int // Arity, or 255 if HasVarargs
	HasVarargs   bool
	UpvalueDescs []UpvalueDesc
	Chunk        *Chunk
	ParentClass  *ObjClass // non-nil if this function is a method body
	Defaults     []Value   // default-argument values, parallel to the trailing optional parameters
}

func (f *ObjFunction) Kind() objKind { return objFunction }

func newFunction() *ObjFunction {
	f := &ObjFunction{Chunk: newChunk()}
	f.kind = objFunction
	return f
}

// NewFunction creates an empty function prototype with name, for the
// compiler to fill in as it emits a function body. Prototypes are
// built before any Context exists (compilation precedes interpretation)
// and are kept alive transitively once a closure references them, so
// they need no GC registration of their own.
func NewFunction(name string) *ObjFunction {
	f := newFunction()
	f.Name = name
	return f
}

// ObjClosure wraps a function prototype with its captured upvalues
// (spec.md §3 "Closure").
type ObjClosure struct {
	object
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() objKind { return objClosure }

func newClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Fn: fn, Upvalues: make([]*ObjUpvalue, len(fn.UpvalueDescs))}
	c.kind = objClosure
	return c
}

// ObjUpvalue is either open (Location points at a live stack slot) or
// closed (it owns Closed). Open upvalues are linked by the VM in a
// list ordered by descending stack slot so that multiple closures
// capturing the same local observe the same cell (spec.md §3 "Upvalue").
type ObjUpvalue struct {
	object
	Location *Value
	Closed   Value
	Slot     int
	NextOpen *ObjUpvalue
}

func (u *ObjUpvalue) Kind() objKind { return objUpvalue }

// NativeFn is a host function registered against the VM (spec.md §6).
// It receives already-evaluated arguments and returns either a normal
// result or, after calling Context.RuntimeError/Context.Throw,
// ExceptionSentinel.
type NativeFn func(ctx *Context, args []Value) Value

// ObjNative wraps a stateless native function.
type ObjNative struct {
	object
	Name       string
	Arity      int
	HasVarargs bool
	Fn         NativeFn
}

func (n *ObjNative) Kind() objKind { return objNative }

// ObjNativeClosure is a native function bound to captured Values.
// Distinguishing it from ObjNative lets the collector trace Bound.
type ObjNativeClosure struct {
	object
	Name       string
	Arity      int
	HasVarargs bool
	Fn         func(ctx *Context, bound []Value, args []Value) Value
	Bound      []Value
}

func (n *ObjNativeClosure) Kind() objKind { return objNativeClosure }

// MemberRef is a pre-resolved member reference, populated once by
// RESOLVE_MEMBERS (spec.md §4.H "Member Ref Cache"). Exactly one of
// FieldIndex (for an instance-field reference) or ValueCell (for a
// method or statically-bound class member) is meaningful, selected by
// IsField.
type MemberRef struct {
	Name      string
	IsField   bool
	FieldIndex int
	ValueCell  *Value // points into a class's Methods/StaticValues storage
}

// ObjClass records everything spec.md §3 "Class" names: identity via
// ClassId (a product of primes along the super-chain, giving O(1)
// instanceOf), the field layout, method table, static members, and the
// member-ref cache populated by RESOLVE_MEMBERS.
type ObjClass struct {
	object
	Name         string
	Super        *ObjClass
	ClassId      uint64
	FieldIndex   map[string]int
	FieldOrder   []string
	// Methods and StaticValues store *Value (a stable heap cell per
	// member) rather than Value directly so that MemberRef.ValueCell
	// can point straight at a member's storage regardless of later map
	// growth or slice reallocation.
	Methods      map[string]*Value
	StaticIndex  map[string]int
	StaticValues []*Value
	Initializer  Value // Nil if the class has none
	MemberRefs   []*MemberRef

	// hashCodeMethod/equalsMethod cache the result of looking up
	// "hashCode"/"equals" on this class so the map/equality hot paths
	// avoid a name lookup per comparison (spec.md §4.H).
	hashCodeMethod Value
	hasHashCode    bool
	equalsMethod   Value
	hasEquals      bool
}

func (c *ObjClass) Kind() objKind { return objClass }

// ObjInstance is an instance of a class: a dense field array indexed
// by the class's field layout, plus an identity hash assigned once from
// the Context's sequential counter (spec.md §3 "Instance"). Native is
// non-nil only for instances of VM-internal classes (array/map
// iterators) and is invisible to user code; the collector traces the
// collection an iterator's Native state refers to.
type ObjInstance struct {
	object
	Class        *ObjClass
	Fields       []Value
	IdentityHash uint64
	Native       any
}

func (i *ObjInstance) Kind() objKind { return objInstance }

// ObjBoundMethod couples a receiver with a resolved callable (closure
// or native), produced by bindMethod (spec.md §4.H).
type ObjBoundMethod struct {
	object
	Receiver Value
	Method   Value
}

func (m *ObjBoundMethod) Kind() objKind { return objBoundMethod }

// ObjArray is a mutable, growable value buffer.
type ObjArray struct {
	object
	Items []Value
}

func (a *ObjArray) Kind() objKind { return objArray }

// ObjTuple is an immutable value buffer, built once by native code (a
// map iterator's next() yields (key, value) tuples; NewTuple builds
// others). No opcode builds a tuple.
type ObjTuple struct {
	object
	Items []Value
}

func (t *ObjTuple) Kind() objKind { return objTuple }

// ObjMap wraps the deterministic hash table (internal/wisptable) keyed
// by Value, giving insertion-ordered iteration (spec.md §3 "Map").
type ObjMap struct {
	object
	Table *valueTable
}

func (m *ObjMap) Kind() objKind { return objMap }
