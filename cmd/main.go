package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/flowrunner/internal/observability"
)

const (
	panicLogFile = "panic.log"
	exitPanic    = 2
)

// Function variables allow tests to observe the exit and crash paths.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

// Main runs exec under a context cancelled by SIGINT/SIGTERM and exits the
// process with the status ExitCode assigns. A panic is recorded in
// panicLogFile and exits 2. Every flowrunner binary enters through here.
func Main(exec func(ctx context.Context) error) {
	defer handlePanic()

	// Cancelling the context also ends a kept-open browser.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := ExitCode(exec(ctx))
	stop()
	osExit(code)
}

// handlePanic records an unexpected crash in panicLogFile and exits 2.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(exitPanic)
		return
	}
	fmt.Fprintf(os.Stderr, "flowrunner crashed; details written to %s\n", panicLogFile)
	osExit(exitPanic)
}
