package wisp

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuntimeError is a host-level error produced by the interpreter itself
// (as opposed to a language-level exception raised by THROW and carried
// as a Value). Compile failures are reported as a CompileError instead.
// Wrapped with github.com/pkg/errors so callers retain a
// stack trace across the cgo-free boundary between packages.
type RuntimeError struct {
	Message string
	Line    int
	Trace   []StackTraceEntry
}

// StackTraceEntry names one frame in a synthesized trace (spec.md §4.K
// "stack-trace synthesis").
type StackTraceEntry struct {
	FunctionName string
	Line         int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// newRuntimeError builds a RuntimeError from the currently executing
// frame's line, without a stack trace (callers that can unwind attach
// one via captureTrace).
func (ctx *Context) newRuntimeError(format string, args ...any) error {
	line := 0
	if n := len(ctx.frames); n > 0 {
		f := &ctx.frames[n-1]
		line = f.Closure.Fn.Chunk.LineAt(f.IP)
	}
	return errors.WithStack(&RuntimeError{Message: fmt.Sprintf(format, args...), Line: line})
}

// captureTrace walks the active frames, innermost first, building a
// StackTraceEntry per frame (spec.md §4.K).
func (ctx *Context) captureTrace() []StackTraceEntry {
	trace := make([]StackTraceEntry, 0, len(ctx.frames))
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		f := &ctx.frames[i]
		name := f.Closure.Fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		trace = append(trace, StackTraceEntry{FunctionName: name, Line: f.Closure.Fn.Chunk.LineAt(f.IP)})
	}
	return trace
}

// CompileError reports a failure during lexing or compilation, before
// the VM ever runs the resulting chunk.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Message)
}
