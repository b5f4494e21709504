// Package wispstd registers the small set of native bindings a running
// script actually needs to do anything observable: printing, assertion,
// a monotonic clock, runtime type inspection, and a handful of string
// helpers. None of this is language semantics — it is the reference
// instantiation of the registerNativeFunction/addNativeMethod surface
// (spec.md §6) that elox/lib/builtins.c plays in the sources this
// module was distilled from, trimmed to what SPEC_FULL.md's
// SUPPLEMENTED FEATURES section calls out.
//
// The pattern-matching engine behind gmatch/gsub stays out of scope as
// a reimplementation; it is wired straight to Go's regexp package,
// which is the external collaborator here exactly as spec.md's
// Non-goals intend for string-builtin internals.
package wispstd

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kristofer/wisp/internal/wisp"
)

// Install registers every native this package provides against ctx. A
// host that wants a bare interpreter (no stdlib surface at all) simply
// never calls this.
func Install(ctx *wisp.Context) {
	ctx.RegisterNativeFunction("print", -1, printNative)
	ctx.RegisterNativeFunction("printf", -1, printfNative)
	ctx.RegisterNativeFunction("assert", -1, assertNative)
	ctx.RegisterNativeFunction("clock", 0, clockNative)
	ctx.RegisterNativeFunction("typeName", 1, typeNameNative)
	ctx.RegisterNativeFunction("len", 1, lenNative)
	ctx.RegisterNativeFunction("find", 2, findNative)
	ctx.RegisterNativeFunction("startsWith", 2, startsWithNative)
	ctx.RegisterNativeFunction("gmatch", 2, gmatchNative)
	ctx.RegisterNativeFunction("gsub", 3, gsubNative)
}

// printNative implements `print(...)`: every argument's display form,
// space-separated, newline-terminated, to ctx's configured Stdout. No
// arity check (-1) since print accepts any number of arguments,
// mirroring elox's variadic print.
func printNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	out := ctx.Stdout()
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(out, " ")
		}
		fmt.Fprint(out, ctx.Display(a))
	}
	fmt.Fprintln(out)
	return wisp.Nil
}

// printfNative implements `printf(fmt, ...)` by handing the format
// string and display forms of the remaining arguments straight to
// fmt.Fprintf, so %v/%d/%s/%.2f etc. all work exactly as they do
// anywhere else in Go — printf's internals are explicitly out of scope
// (spec.md Non-goals), Go's fmt package is the external collaborator.
func printfNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) == 0 || !args[0].IsString() {
		return ctx.ArgError("printf", 0, "string", firstOrNil(args))
	}
	format := string(args[0].AsString().Bytes)
	rest := make([]any, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = displayArg(ctx, a)
	}
	fmt.Fprintf(ctx.Stdout(), format, rest...)
	return wisp.Nil
}

// displayArg picks the Go value fmt.Fprintf should format a given
// script value as: numbers and strings pass through as their natural
// Go type so that %d/%.2f/%s verbs behave the way a user expects,
// anything else falls back to its display string.
func displayArg(ctx *wisp.Context, v wisp.Value) any {
	switch {
	case v.IsNumber():
		return v.Num
	case v.IsString():
		return string(v.AsString().Bytes)
	default:
		return ctx.Display(v)
	}
}

// assertNative implements `assert(condition, message)`: raises a
// RuntimeException carrying message (or a default) when condition is
// falsey, the same assert elox/lib/builtins.c exposes.
func assertNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) == 0 || !args[0].IsFalsey() {
		return wisp.Nil
	}
	msg := "assertion failed"
	if len(args) > 1 && args[1].IsString() {
		msg = string(args[1].AsString().Bytes)
	}
	return ctx.Throw("%s", msg)
}

// clockNative returns seconds since the Unix epoch as a float, the same
// granularity elox's clock() native exposes for benchmarking scripts.
func clockNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	return wisp.NumberVal(float64(time.Now().UnixNano()) / 1e9)
}

func typeNameNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) == 0 {
		return ctx.ArgError("typeName", 0, "any", wisp.Nil)
	}
	return wisp.ObjVal(ctx.Intern([]byte(args[0].TypeName())))
}

// lenNative implements the `len` string/array/map/tuple builtin
// (spec.md §4.A aggregates + strings); it is a free function rather
// than a true method because this module's string values are not
// ObjInstances and so carry no method table of their own.
func lenNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) == 0 {
		return ctx.ArgError("len", 0, "string, array, map, or tuple", wisp.Nil)
	}
	v := args[0]
	switch {
	case v.IsString():
		return wisp.NumberVal(float64(len(v.AsString().Bytes)))
	}
	if n, ok := ctx.AggregateLen(v); ok {
		return wisp.NumberVal(float64(n))
	}
	return ctx.ArgError("len", 0, "string, array, map, or tuple", v)
}

func findNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) < 2 || !args[0].IsString() || !args[1].IsString() {
		return ctx.ArgError("find", 0, "string", firstOrNil(args))
	}
	s := string(args[0].AsString().Bytes)
	needle := string(args[1].AsString().Bytes)
	idx := indexOf(s, needle)
	return wisp.NumberVal(float64(idx))
}

func startsWithNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) < 2 || !args[0].IsString() || !args[1].IsString() {
		return ctx.ArgError("startsWith", 0, "string", firstOrNil(args))
	}
	s := string(args[0].AsString().Bytes)
	prefix := string(args[1].AsString().Bytes)
	return wisp.BoolVal(len(s) >= len(prefix) && s[:len(prefix)] == prefix)
}

// gmatchNative returns an array of every substring Go's regexp engine
// finds for pattern in s, the non-reimplemented stand-in for elox's
// hand-rolled gmatch.
func gmatchNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) < 2 || !args[0].IsString() || !args[1].IsString() {
		return ctx.ArgError("gmatch", 0, "string", firstOrNil(args))
	}
	re, err := regexp.Compile(string(args[1].AsString().Bytes))
	if err != nil {
		return ctx.Throw("gmatch: invalid pattern: %v", err)
	}
	matches := re.FindAllString(string(args[0].AsString().Bytes), -1)
	items := make([]wisp.Value, len(matches))
	for i, m := range matches {
		items[i] = ctx.NewString(m)
	}
	return ctx.NewArray(items)
}

// gsubNative replaces every match of pattern in s with replacement,
// delegating to regexp.ReplaceAllString rather than reimplementing
// substitution, per the same Non-goal as gmatchNative.
func gsubNative(ctx *wisp.Context, args []wisp.Value) wisp.Value {
	if len(args) < 3 || !args[0].IsString() || !args[1].IsString() || !args[2].IsString() {
		return ctx.ArgError("gsub", 0, "string", firstOrNil(args))
	}
	re, err := regexp.Compile(string(args[1].AsString().Bytes))
	if err != nil {
		return ctx.Throw("gsub: invalid pattern: %v", err)
	}
	s := string(args[0].AsString().Bytes)
	repl := string(args[2].AsString().Bytes)
	return ctx.NewString(re.ReplaceAllString(s, repl))
}

func indexOf(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if s[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func firstOrNil(args []wisp.Value) wisp.Value {
	if len(args) == 0 {
		return wisp.Nil
	}
	return args[0]
}
