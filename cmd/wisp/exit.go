package main

// Exit codes follow the POSIX convention spec.md §6 names explicitly:
// 0 success, 65 compile error, 70 runtime error, 64 usage error.
const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitUsageError   = 64
)

// lastExitCode is set by whichever subcommand ran, then read by main
// once cobra's Execute returns nil (meaning the command handled its own
// error reporting rather than letting cobra print a usage message).
var lastExitCode = exitOK
