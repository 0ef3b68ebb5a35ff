// Package lifecycle owns the process-level concerns a running bridge
// needs outside the cross-connect engine itself: writing (and cleaning
// up) a PID file, and turning SIGINT/SIGTERM into an orderly exit signal.
package lifecycle

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

// WritePIDFile writes the current process ID to path. Returns a cleanup
// function that removes the file; callers should defer it.
func WritePIDFile(path string) (cleanup func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("lifecycle: write pidfile %s: %w", path, err)
	}
	return func() { os.Remove(path) }, nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM arrives.
func WaitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
