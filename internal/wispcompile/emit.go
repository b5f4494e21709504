package wispcompile

import (
	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wisplex"
)

func (c *Compiler) chunk() *wisp.Chunk { return c.fc.fn.Chunk }

func (c *Compiler) emitByte(b byte) { c.chunk().Write(b, c.prev.Line) }

func (c *Compiler) emitOp(op wisp.OpCode) { c.chunk().WriteOp(op, c.prev.Line) }

func (c *Compiler) emitU16(v uint16) { c.chunk().WriteU16(v, c.prev.Line) }

func (c *Compiler) emitOpU16(op wisp.OpCode, v uint16) {
	c.emitOp(op)
	c.emitU16(v)
}

func (c *Compiler) emitOpU8(op wisp.OpCode, v byte) {
	c.emitOp(op)
	c.emitByte(v)
}

// emitReturn closes out a function body: a bare `}`/EOF with no
// explicit return produces `return nil;`, except an initializer,
// which implicitly returns `this` (slot 0) instead.
func (c *Compiler) emitReturn() {
	if c.fc.isInit {
		c.emitOpU8(wisp.OpGetLocal, 0)
		c.emitByte(0)
	} else {
		c.emitOp(wisp.OpNil)
	}
	c.emitOp(wisp.OpReturn)
}

// emitConstant adds v to the chunk's constant pool and emits the
// narrowest CONST op that can address it.
func (c *Compiler) emitConstant(v wisp.Value) {
	idx := c.chunk().AddConstant(v)
	c.emitConstantIndex(idx)
}

func (c *Compiler) emitConstantIndex(idx int) {
	if idx < 256 {
		c.emitOpU8(wisp.OpConst8, byte(idx))
	} else if idx < 65536 {
		c.emitOpU16(wisp.OpConst16, uint16(idx))
	} else {
		c.error("too many constants in one chunk")
	}
}

// identifierConstant interns name against the VM's global string table
// and returns its constant-pool index in the CURRENT function's chunk.
// Interning yields the same ObjString for every use of a name, and
// AddConstant reuses an existing entry, so a name appears at most once
// per chunk; each chunk that uses it still carries its own entry.
func (c *Compiler) identifierConstant(name string) int {
	str := c.ctx.InternString(name)
	return c.chunk().AddConstant(wisp.ObjVal(str))
}

// stringConstant is identifierConstant's counterpart for string literal
// expressions: the scanned lexeme (quotes and escapes still raw) is
// decoded once and interned.
func (c *Compiler) stringConstant(lexeme string) (int, error) {
	bytes, err := wisplex.Unescape(lexeme)
	if err != nil {
		return 0, err
	}
	str := c.ctx.Intern(bytes)
	return c.chunk().AddConstant(wisp.ObjVal(str)), nil
}

// emitJump emits a jump opcode with a placeholder 16-bit operand and
// returns the operand's byte offset, to be fixed up by patchJump.
func (c *Compiler) emitJump(op wisp.OpCode) int {
	c.emitOp(op)
	c.emitU16(0xFFFF)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	c.patchJumpTo(offset, len(c.chunk().Code))
}

// patchJumpTo backpatches the placeholder at offset (as returned by
// emitJump) to land at an explicit target byte offset, for jumps whose
// destination was already fixed before more code was emitted after it
// (PUSH_EXCEPTION_HANDLER's table offset, which is written only after
// every catch body has been compiled).
func (c *Compiler) patchJumpTo(offset, target int) {
	jump := target - offset - 2
	if jump < 0 || jump > 0xFFFF {
		c.error("jump target too far")
		return
	}
	code := c.chunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

// emitLocalOp emits a GET_LOCAL/SET_LOCAL-family instruction, whose
// operand is a slot byte followed by a postArgs flag byte (spec.md
// §4.G "locals declared after a varargs pack").
func (c *Compiler) emitLocalOp(op wisp.OpCode, slot int, postArgs bool) {
	c.emitOpU8(op, byte(slot))
	pa := byte(0)
	if postArgs {
		pa = 1
	}
	c.emitByte(pa)
}

func (c *Compiler) currentOffset() int { return len(c.chunk().Code) }

// emitLoop emits a backward LOOP to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(wisp.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		c.error("loop body too large")
	}
	c.emitU16(uint16(offset))
}
