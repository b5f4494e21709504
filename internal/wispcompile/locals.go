package wispcompile

import "github.com/kristofer/wisp/internal/wisp"

func (c *Compiler) beginScope() { c.fc.scopeDepth++ }

// endScope pops every local declared at the scope being closed,
// closing over it instead of popping when a nested closure captured
// it (spec.md §4.G "Closing a scope emits POP / CLOSE_UPVALUE per
// local depending on whether the local was captured").
func (c *Compiler) endScope() {
	c.fc.scopeDepth--
	for len(c.fc.locals) > 0 && c.fc.locals[len(c.fc.locals)-1].depth > c.fc.scopeDepth {
		last := c.fc.locals[len(c.fc.locals)-1]
		if last.captured {
			c.emitOp(wisp.OpCloseUpvalue)
		} else {
			c.emitOp(wisp.OpPop)
		}
		c.fc.locals = c.fc.locals[:len(c.fc.locals)-1]
	}
}

// declareVariable registers prev (already consumed as an identifier)
// as a new local in the current scope, rejecting a redeclaration at
// the same depth. Globals are declared lazily by DEFINE_GLOBAL and
// never touch c.fc.locals.
func (c *Compiler) declareVariable(name string) {
	if c.fc.scopeDepth == 0 {
		return
	}
	for i := len(c.fc.locals) - 1; i >= 0; i-- {
		l := c.fc.locals[i]
		if l.depth != -1 && l.depth < c.fc.scopeDepth {
			break
		}
		if l.name == name {
			c.error("a variable with this name is already declared in this scope")
			return
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.fc.locals) >= maxLocals {
		c.error("too many local variables in one function")
		return
	}
	c.fc.locals = append(c.fc.locals, local{name: name, depth: -1, postArgs: c.fc.pastVarargs})
}

// markInitialized marks the most recently declared local usable,
// resolved against its declaring scope's depth rather than the
// current one so a function literal's own name can refer to itself.
func (c *Compiler) markInitialized() {
	if c.fc.scopeDepth == 0 {
		return
	}
	c.fc.locals[len(c.fc.locals)-1].depth = c.fc.scopeDepth
}

// resolveLocal searches fc's own locals for name, returning its slot
// and postArgs bit.
func resolveLocal(fc *funcCompiler, name string) (int, bool, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				return 0, false, false
			}
			return i, fc.locals[i].postArgs, true
		}
	}
	return 0, false, false
}

// resolveUpvalue implements spec.md §4.G's capture chain: the first
// enclosing function in which name is a local creates an upvalue
// capturing that local; every intermediate function acquires a
// non-local upvalue chaining to the outer one. Duplicate captures at
// any one level are coalesced.
func resolveUpvalue(fc *funcCompiler, name string) (int, bool, bool) {
	if fc.enclosing == nil {
		return 0, false, false
	}
	if slot, postArgs, ok := resolveLocal(fc.enclosing, name); ok {
		fc.enclosing.locals[slot].captured = true
		return addUpvalue(fc, slot, true, postArgs), true, true
	}
	if idx, postArgs, ok := resolveUpvalue(fc.enclosing, name); ok {
		return addUpvalue(fc, idx, false, postArgs), true, true
	}
	return 0, false, false
}

func addUpvalue(fc *funcCompiler, index int, isLocal, postArgs bool) int {
	for i, u := range fc.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal, postArgs: postArgs})
	return len(fc.upvalues) - 1
}

// defineVariable finishes declaring name: for a local it just marks it
// initialized (its value is already sitting in its stack slot); for a
// global it emits DEFINE_GLOBAL, consuming the value on top of stack.
func (c *Compiler) defineVariable(name string) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	idx := c.identifierConstant(name)
	c.emitOpU16(wisp.OpDefineGlobal, uint16(idx))
}
