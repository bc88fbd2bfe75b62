// Package recovery turns panics into logged failures.
package recovery

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// HandlePanic should be deferred at the top of main().
// It prints the panic and stack to stderr and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup step before exiting, e.g.
// restoring a terminal left in raw mode.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		if cleanup != nil {
			cleanup()
		}
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// Recover is deferred by background goroutines. A panic is logged with its
// stack and cleanup runs so the owner sees the goroutine as finished; the
// process keeps running.
//
//	go func() {
//		defer recovery.Recover(log, "playback", func() { close(done) })
//		...
//	}()
func Recover(logger *slog.Logger, name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("goroutine panic", "goroutine", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	if cleanup != nil {
		cleanup()
	}
}
