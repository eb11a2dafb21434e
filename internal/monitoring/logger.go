// Package monitoring holds the package-level diagnostic logger shared by the
// clustering engine, the debug writers and the command line tools.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Verbosef logs through Logf only when verbosity is at least level.
// Level 1 is progress output, level 2 adds artifact bookkeeping.
func Verbosef(verbosity, level int, format string, v ...interface{}) {
	if verbosity < level {
		return
	}
	Logf(format, v...)
}

// Warnf logs a recoverable problem. Warnings are emitted regardless of
// verbosity because they signal that requested output was not produced.
func Warnf(format string, v ...interface{}) {
	Logf("[Warning] "+format, v...)
}
