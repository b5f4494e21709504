package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	wisp "github.com/kristofer/wisp/pkg/wisp"
)

// fileLoader resolves an `import` to a sibling .wisp file in dir, the
// simplest ModuleLoader a standalone CLI needs (spec.md §4.L leaves the
// resolution strategy to the embedder).
type fileLoader struct{ dir string }

func (l fileLoader) Load(name string) (string, error) {
	path := filepath.Join(l.dir, name+".wisp")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newInterp(dir string) *wisp.Interp {
	return wisp.Init(wisp.Config{
		Loader: fileLoader{dir: dir},
		Stdlib: true,
	})
}

// runFile loads, compiles, and executes a .wisp source file, printing
// whichever of the three outcomes spec.md §6 names and returning the
// matching exit code.
func runFile(path string, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "wisp: %v\n", err)
		return exitUsageError
	}
	in := newInterp(filepath.Dir(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	status, _, err := in.Interpret(string(data), name)
	return reportStatus(status, err, stderr)
}

func reportStatus(status wisp.Status, err error, stderr io.Writer) int {
	switch status {
	case wisp.StatusOK:
		return exitOK
	case wisp.StatusCompileError:
		fmt.Fprintf(stderr, "compile error: %v\n", err)
		return exitCompileError
	case wisp.StatusRuntimeError:
		fmt.Fprintf(stderr, "runtime error: %v\n", err)
		return exitRuntimeError
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitRuntimeError
	}
}

// runRepl starts an interactive session: one `in := newInterp` persists
// across inputs so variables and classes defined in one line remain
// visible to the next, the same persistent-session behavior the
// teacher's own REPL provides.
func runRepl(stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "wisp %s\n", version)
	fmt.Fprintln(stdout, "Type an expression or statement; Ctrl-D to exit.")

	in := newInterp(".")
	scanner := bufio.NewScanner(os.Stdin)
	lineNum := 0
	for {
		fmt.Fprint(stdout, "wisp> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return exitOK
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNum++
		moduleName := fmt.Sprintf("<repl:%d>", lineNum)
		status, v, err := in.Interpret(line, moduleName)
		switch status {
		case wisp.StatusOK:
			if !v.IsNil() {
				fmt.Fprintln(stdout, in.Display(v))
			}
		case wisp.StatusCompileError:
			fmt.Fprintf(stderr, "compile error: %v\n", err)
		case wisp.StatusRuntimeError:
			fmt.Fprintf(stderr, "runtime error: %v\n", err)
		}
	}
}
