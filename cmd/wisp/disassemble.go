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

// newDisassembleCmd compiles a source file and prints its bytecode
// listing to stdout, the debugging aid spec.md's bytecode-file-layout
// paragraph implies a host should be able to produce even though this
// core never persists bytecode to disk itself.
func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "disassemble <file.wisp>",
		Aliases: []string{"disasm"},
		Short:   "Print a compiled file's bytecode listing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lastExitCode = disassembleFile(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}
}

func disassembleFile(path string, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "wisp: %v\n", err)
		return exitUsageError
	}
	ctx := wisp.NewContext(wisp.Config{}, nil)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fn, err := wispcompile.Compile(ctx, string(data), name)
	if err != nil {
		fmt.Fprintf(stderr, "compile error: %v\n", err)
		return exitCompileError
	}
	fmt.Fprint(stdout, disassembleFunction(fn, name))
	return exitOK
}
