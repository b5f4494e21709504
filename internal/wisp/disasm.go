package wisp

import (
	"fmt"
	"strings"
)

// Disassemble renders chunk's instruction stream as one line per
// instruction: byte offset, source line (shown as "|" when unchanged
// from the previous instruction, matching the teacher's own disassembler
// convention), mnemonic, and decoded operand. It mirrors exactly the
// operand widths run() itself reads, instruction by instruction, so it
// can never drift from what the dispatch loop actually executes the
// way a hand-maintained opcode-width table could.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	offset := 0
	lastLine := -1
	for offset < len(c.Code) {
		next, line := c.disassembleOne(&b, offset, lastLine)
		offset = next
		lastLine = line
	}
	return b.String()
}

func (c *Chunk) disassembleOne(b *strings.Builder, offset, lastLine int) (next int, line int) {
	op := OpCode(c.Code[offset])
	line = c.LineAt(offset)
	lineCol := "   |"
	if line != lastLine {
		lineCol = fmt.Sprintf("%4d", line)
	}
	fmt.Fprintf(b, "%04d %s %-20s", offset, lineCol, op)

	switch op {
	case OpConst8, OpImm8, OpPopN:
		arg := c.Code[offset+1]
		fmt.Fprintf(b, "%d", arg)
		next = offset + 2
	case OpGetLocal, OpSetLocal:
		slot := c.Code[offset+1]
		postArgs := c.Code[offset+2] != 0
		fmt.Fprintf(b, "slot=%d postArgs=%t", slot, postArgs)
		next = offset + 3
	case OpConst16, OpImm16, OpGetVararg, OpSetVararg, OpGetGlobal, OpSetGlobal,
		OpDefineGlobal, OpGetUpvalue, OpSetUpvalue, OpGetProperty, OpSetProperty,
		OpGetMemberProperty, OpSetMemberProperty, OpGetSuper, OpJump, OpJumpIfFalse,
		OpLoop, OpClosure, OpClass, OpMethod, OpField, OpStatic, OpResolveMembers,
		OpArrayBuild, OpMapBuild, OpImport, OpPushExceptionHandler:
		arg := u16At(c.Code, offset+1)
		fmt.Fprintf(b, "%d", arg)
		next = offset + 3
	case OpCall:
		fmt.Fprintf(b, "%d", c.Code[offset+1])
		next = offset + 2
	case OpUnpack:
		// n, then n inline (storageClass u8, index u16) target records.
		n := int(c.Code[offset+1])
		fmt.Fprintf(b, "%d", n)
		next = offset + 2 + 3*n
	case OpInvoke, OpMemberInvoke, OpSuperInvoke:
		nameIdx := u16At(c.Code, offset+1)
		argCount := c.Code[offset+3]
		fmt.Fprintf(b, "idx=%d argc=%d", nameIdx, argCount)
		next = offset + 4
	case OpSuperInit:
		fmt.Fprintf(b, "argc=%d", c.Code[offset+1])
		next = offset + 2
	case OpForeachInit:
		hasNext := u16At(c.Code, offset+1)
		nextSlot := u16At(c.Code, offset+3)
		fmt.Fprintf(b, "hasNext=%d next=%d", hasNext, nextSlot)
		next = offset + 5
	case OpData:
		totalBytes := int(u16At(c.Code, offset+1))
		fmt.Fprintf(b, "(%d bytes)", totalBytes)
		next = offset + 3 + totalBytes
	default:
		// No operand: NIL, TRUE, FALSE, POP, NUM_VARARGS, MAP_GET,
		// MAP_SET, EQUAL, GREATER, LESS, ADD, SUBTRACT, MULTIPLY,
		// DIVIDE, MODULO, NOT, NEGATE, INSTANCEOF, RETURN,
		// CLOSE_UPVALUE, ANON_CLASS, INHERIT, INDEX, INDEX_STORE,
		// THROW, POP_EXCEPTION_HANDLER.
		next = offset + 1
	}
	fmt.Fprintln(b)
	return next, line
}

func u16At(code []byte, i int) uint16 {
	return uint16(code[i])<<8 | uint16(code[i+1])
}
