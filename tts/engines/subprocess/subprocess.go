// Package subprocess runs speech engine binaries safely.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a run when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// MaxOutput caps the bytes read from stdout.
const MaxOutput = 50 * 1024 * 1024

// ErrNoOutput is returned when the process wrote nothing to stdout.
var ErrNoOutput = errors.New("process produced no output")

// Error describes a failed run.
type Error struct {
	Binary string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Run executes name with args, feeding it stdin, and returns stdout.
// Stdin is attached before the process starts so it can never miss input.
// On cancellation the process is interrupted first and killed shortly after.
func Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.Stdin = stdin
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, n: MaxOutput}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &Error{Binary: name, Stderr: stderr.String(), Err: err}
	}
	if stdout.Len() == 0 {
		return nil, &Error{Binary: name, Stderr: stderr.String(), Err: ErrNoOutput}
	}
	return stdout.Bytes(), nil
}

// Available reports whether name can be found on PATH or as a path.
func Available(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// Find returns the first candidate found on PATH, or "".
func Find(candidates ...string) string {
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	return ""
}

type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > l.n {
		return 0, fmt.Errorf("output exceeds %d bytes", MaxOutput)
	}
	l.n -= len(p)
	return l.w.Write(p)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
