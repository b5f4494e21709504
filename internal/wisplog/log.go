// Package wisplog provides constructors for the zap logger type that
// internal/wisp accepts through wisp.Config.Logger (the GC logs its
// cycles to it). It wraps zap the same way the pack's systems-scale
// repositories do (the erigon manifest under
// _examples/other_examples/manifests declares go.uber.org/zap) rather
// than the teacher's bare fmt.Printf debug statements.
//
// Library code defaults to a no-op logger so importing internal/wisp
// never prints anything unless a host explicitly wires one in via
// wisp.Config.Logger. No package in this module imports wisplog, and
// cmd/wisp wires no logger.
package wisplog

import "go.uber.org/zap"

// Logger is the structured logger type used throughout the module.
type Logger = *zap.Logger

// NewNop returns a logger that discards everything, used as the
// default inside library code.
func NewNop() Logger { return zap.NewNop() }

// NewDevelopment returns a human-readable, colorized development
// logger suitable for the CLI.
func NewDevelopment() Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
