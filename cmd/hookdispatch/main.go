// Command hookdispatch is the process a host invokes once per event:
// it reads one JSON event record from stdin and writes the dispatcher's
// response to stdout. It always exits zero — a non-zero exit is
// reserved for uncatchable faults the dispatcher itself could not
// degrade around.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Hidden-History/ai-memory-sub002/internal/app"
	"github.com/Hidden-History/ai-memory-sub002/internal/logging"
)

func main() {
	configPath := os.Getenv("AI_MEMORY_CONFIG")
	if configPath == "" {
		configPath = ".ai-memory/config.yaml"
	}
	os.Exit(run(configPath, os.Stdin, os.Stdout))
}

// run wires the app and dispatches one hook event, with its config path
// and I/O streams passed explicitly so it can be driven from a test
// without touching the process environment or stdio.
func run(configPath string, stdin io.Reader, stdout io.Writer) int {
	a, err := app.New(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookdispatch: startup failed: %v\n", err)
		// Startup failure is the one uncatchable fault: the dispatcher
		// never got to run, so there is no graceful-degradation path.
		return 1
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.HookWarn("hookdispatch: close failed: %v", cerr)
		}
		logging.CloseAll()
	}()

	if err := a.Hook.Run(context.Background(), stdin, stdout); err != nil {
		logging.HookError("hookdispatch: dispatch failed: %v", err)
		return 1
	}
	return 0
}
