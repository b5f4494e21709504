package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wisp [path]",
		Short:         "wisp - a single-pass bytecode-compiled scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation contract (spec.md §6): no args starts the
			// REPL, one argument runs it as a file, anything else (more
			// than one positional argument) is a usage error — enforced
			// above by MaximumNArgs, surfaced here as exit code 64.
			if len(args) == 0 {
				lastExitCode = runRepl(cmd.OutOrStdout(), cmd.ErrOrStderr())
				return nil
			}
			lastExitCode = runFile(args[0], cmd.ErrOrStderr())
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newReplCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newDisassembleCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wisp version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "wisp version %s\n", version)
			lastExitCode = exitOK
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and run a .wisp source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lastExitCode = runFile(args[0], cmd.ErrOrStderr())
			return nil
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lastExitCode = runRepl(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}
}
