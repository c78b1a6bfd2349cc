// Command memoryctl is the operator-facing administrative CLI for the
// memory layer: purge, freshness scans, queue replay, and dead-letter
// requeue, the maintenance surface that exists alongside the
// per-event hook dispatcher.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
