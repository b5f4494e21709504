// Package wisp implements the bytecode virtual machine: value and
// object representation, call frames and closures, the class/method
// model and its member-ref cache, the garbage collector, the dispatch
// loop, the exception mechanism, and the module registry. These are
// kept in one package for the same reason the teacher keeps
// ClassDefinition, Instance, Block, Array, call frames, and the
// dispatch loop all inside pkg/vm: they share unexported state too
// tightly to separate without exporting everything.
package wisp

// OpCode is a single bytecode instruction's operation.
type OpCode byte

// The complete opcode set (spec.md §4.D), grouped as the spec groups
// them.
const (
	// Stack/constants
	OpConst8 OpCode = iota
	OpConst16
	OpImm8
	OpImm16
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpPopN

	// Locals & globals
	OpGetLocal
	OpSetLocal
	OpGetVararg
	OpSetVararg
	OpNumVarargs
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetUpvalue
	OpSetUpvalue

	// Properties
	OpGetProperty
	OpSetProperty
	OpGetMemberProperty
	OpSetMemberProperty
	OpGetSuper
	OpMapGet
	OpMapSet

	// Arithmetic & logic
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNot
	OpNegate
	OpInstanceOf

	// Control
	OpJump
	OpJumpIfFalse
	OpLoop

	// Calls/returns
	OpCall
	OpInvoke
	OpMemberInvoke
	OpSuperInvoke
	OpSuperInit
	OpReturn
	OpClosure
	OpCloseUpvalue

	// Classes
	OpClass
	OpAnonClass
	OpInherit
	OpMethod
	OpField
	OpStatic
	OpResolveMembers

	// Aggregates
	OpArrayBuild
	OpMapBuild
	OpIndex
	OpIndexStore

	// Exceptions
	OpThrow
	OpPushExceptionHandler
	OpPopExceptionHandler

	// Iteration & unpacking
	OpForeachInit
	OpUnpack

	// Module
	OpImport

	// Sentinel: never executed; marks the start of an embedded handler table.
	OpData
)

var opcodeNames = map[OpCode]string{
	OpConst8: "CONST8", OpConst16: "CONST16", OpImm8: "IMM8", OpImm16: "IMM16",
	OpNil: "NIL", OpTrue: "TRUE", OpFalse: "FALSE", OpPop: "POP", OpPopN: "POPN",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL", OpGetVararg: "GET_VARARG",
	OpSetVararg: "SET_VARARG", OpNumVarargs: "NUM_VARARGS", OpGetGlobal: "GET_GLOBAL",
	OpSetGlobal: "SET_GLOBAL", OpDefineGlobal: "DEFINE_GLOBAL", OpGetUpvalue: "GET_UPVALUE",
	OpSetUpvalue: "SET_UPVALUE", OpGetProperty: "GET_PROPERTY", OpSetProperty: "SET_PROPERTY",
	OpGetMemberProperty: "GET_MEMBER_PROPERTY", OpSetMemberProperty: "SET_MEMBER_PROPERTY",
	OpGetSuper: "GET_SUPER", OpMapGet: "MAP_GET", OpMapSet: "MAP_SET",
	OpEqual: "EQUAL", OpGreater: "GREATER", OpLess: "LESS", OpAdd: "ADD",
	OpSubtract: "SUBTRACT", OpMultiply: "MULTIPLY", OpDivide: "DIVIDE", OpModulo: "MODULO",
	OpNot: "NOT", OpNegate: "NEGATE", OpInstanceOf: "INSTANCEOF",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpLoop: "LOOP",
	OpCall: "CALL", OpInvoke: "INVOKE", OpMemberInvoke: "MEMBER_INVOKE",
	OpSuperInvoke: "SUPER_INVOKE", OpSuperInit: "SUPER_INIT", OpReturn: "RETURN",
	OpClosure: "CLOSURE", OpCloseUpvalue: "CLOSE_UPVALUE",
	OpClass: "CLASS", OpAnonClass: "ANON_CLASS", OpInherit: "INHERIT",
	OpMethod: "METHOD", OpField: "FIELD", OpStatic: "STATIC",
	OpResolveMembers: "RESOLVE_MEMBERS",
	OpArrayBuild:     "ARRAY_BUILD", OpMapBuild: "MAP_BUILD", OpIndex: "INDEX", OpIndexStore: "INDEX_STORE",
	OpThrow: "THROW", OpPushExceptionHandler: "PUSH_EXCEPTION_HANDLER",
	OpPopExceptionHandler: "POP_EXCEPTION_HANDLER",
	OpForeachInit:         "FOREACH_INIT", OpUnpack: "UNPACK",
	OpImport: "IMPORT", OpData: "DATA",
}

// String returns the opcode's mnemonic, used by the disassembler.
func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// StorageClass identifies where an UNPACK target or an exception
// handler record's exception-type operand resolves its slot.
type StorageClass byte

const (
	StorageLocal StorageClass = iota
	StorageUpvalue
	StorageGlobal
)
