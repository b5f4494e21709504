// Command wisp is the CLI entry point spec.md §1 calls an out-of-scope
// external collaborator: a thin shell around pkg/wisp with no language
// semantics of its own. It follows the bare three-way contract spec.md
// §6 specifies (no args → REPL, one path → run it, anything else →
// usage error) at the root, and layers repl/run/compile/disassemble/
// version subcommands on top via cobra, the way SPEC_FULL.md's domain
// stack section replaces the teacher's hand-rolled os.Args switch.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}
	return lastExitCode
}
