// Package term provides user-facing terminal output for the vibe-reachout CLI.
// This is distinct from operational logging (see internal/clog).
//
// Hook mode must never use this package's stdout functions: stdout is
// reserved for the single JSON decision consumed by the host assistant.
package term

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput sets the writer for stdout output.
// Pass nil to use os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		stdout = os.Stdout
	} else {
		stdout = w
	}
}

// SetErrOutput sets the writer for stderr output.
// Pass nil to use os.Stderr.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		stderr = os.Stderr
	} else {
		stderr = w
	}
}

// Printf formats according to a format specifier and writes to stdout.
func Printf(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(stdout, format, a...)
}

// Println formats and writes to stdout with a trailing newline.
func Println(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintln(stdout, a...)
}

// Error writes an error message to stderr with "Error: " prefix.
func Error(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintf(stderr, "Error: %s\n", msg)
}
