package subprocess

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if !Available("sh") || !Available("cat") {
		t.Skip("sh and cat are required")
	}
}

func TestRun(t *testing.T) {
	requireShell(t)

	out, err := Run(context.Background(), strings.NewReader("hello"), "cat")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("Run() = %q, want %q", out, "hello")
	}
}

func TestRunFailure(t *testing.T) {
	requireShell(t)

	_, err := Run(context.Background(), nil, "sh", "-c", "echo first >&2; echo model missing >&2; exit 3")
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if !strings.HasSuffix(pe.Error(), "model missing") {
		t.Errorf("Error() = %q, want last stderr line", pe.Error())
	}
}

func TestRunNoOutput(t *testing.T) {
	requireShell(t)

	_, err := Run(context.Background(), nil, "sh", "-c", "exit 0")
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("error = %v, want ErrNoOutput", err)
	}
}

func TestRunTimeout(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, nil, "sh", "-c", "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("process was not stopped promptly")
	}
}

func TestFind(t *testing.T) {
	requireShell(t)

	if got := Find("/nonexistent/bin", "sh"); got == "" {
		t.Error("Find() should locate sh")
	}
	if got := Find("/nonexistent/bin"); got != "" {
		t.Errorf("Find() = %q, want empty", got)
	}
	if Available("") {
		t.Error("empty name should not be available")
	}
}
