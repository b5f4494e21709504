package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kristofer/wisp/internal/wisp"
	"github.com/kristofer/wisp/internal/wispcompile"
	"github.com/spf13/cobra"
)

// newCompileCmd compiles a .wisp file and writes its disassembly to a
// file, the closest equivalent this module offers to the teacher's
// source-to-bytecode-file pipeline: spec.md §6 states the bytecode
// format is "in-memory only in this core", so there is no binary
// on-disk form to persist — what compile produces is the same
// human-readable listing `disassemble` prints, saved instead of shown.
func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <in.wisp> [out.disasm]",
		Short: "Compile a source file and save its disassembly",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := ""
			if len(args) == 2 {
				out = args[1]
			} else {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".disasm"
			}
			lastExitCode = compileToDisasm(in, out, cmd.ErrOrStderr())
			return nil
		},
	}
}

func compileToDisasm(in, out string, stderr io.Writer) int {
	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(stderr, "wisp: %v\n", err)
		return exitUsageError
	}
	ctx := wisp.NewContext(wisp.Config{}, nil)
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	fn, err := wispcompile.Compile(ctx, string(data), name)
	if err != nil {
		fmt.Fprintf(stderr, "compile error: %v\n", err)
		return exitCompileError
	}
	listing := disassembleFunction(fn, name)
	if err := os.WriteFile(out, []byte(listing), 0o644); err != nil {
		fmt.Fprintf(stderr, "wisp: %v\n", err)
		return exitRuntimeError
	}
	fmt.Printf("compiled %s -> %s\n", in, out)
	return exitOK
}

// disassembleFunction walks fn and every nested closure prototype it
// references in its constant pool, so a listing covers an entire
// script rather than only its top-level body.
func disassembleFunction(fn *wisp.ObjFunction, name string) string {
	var b strings.Builder
	seen := map[*wisp.ObjFunction]bool{}
	var walk func(f *wisp.ObjFunction, label string)
	walk = func(f *wisp.ObjFunction, label string) {
		if seen[f] {
			return
		}
		seen[f] = true
		b.WriteString(f.Chunk.Disassemble(label))
		b.WriteString("\n")
		for _, c := range f.Chunk.Constants {
			if nested, ok := c.Obj.(*wisp.ObjFunction); ok {
				walk(nested, nested.Name)
			}
		}
	}
	walk(fn, name)
	return b.String()
}
