package command

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requireBinary(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Skipf("%s not available: %v", path, err)
	}
}

func TestShellDeliveryWritesControlFile(t *testing.T) {
	requireBinary(t, "/bin/bash")
	path := filepath.Join(t.TempDir(), "zomboid.control")
	ex, err := New(Config{Delivery: DeliveryShell, Shell: "/bin/bash", ControlFile: path}, testLogger())
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	if err := ex.Execute(context.Background(), "Players"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read control file: %v", err)
	}
	if string(data) != "Players\n" {
		t.Fatalf("control file = %q, want %q", data, "Players\n")
	}
}

func TestShellDeliveryExitStatus(t *testing.T) {
	requireBinary(t, "/bin/bash")
	path := filepath.Join(t.TempDir(), "missing", "zomboid.control")
	ex, err := New(Config{Delivery: DeliveryShell, ControlFile: path}, testLogger())
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	err = ex.Execute(context.Background(), "Players")
	var cmdErr *Error
	if !errors.As(err, &cmdErr) || cmdErr.Kind != KindExitStatus {
		t.Fatalf("expected exit status error, got %v", err)
	}
	if cmdErr.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", cmdErr.ExitCode)
	}
}

func TestShellDeliveryInvalidShellPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zomboid.control")
	ex, err := New(Config{Delivery: DeliveryShell, Shell: "/nonexistent/bash", ControlFile: path}, testLogger())
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	err = ex.Execute(context.Background(), "Players")
	if KindOf(err) != KindIO {
		t.Fatalf("kind = %s, want io (err=%v)", KindOf(err), err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped spawn error, got %v", err)
	}
}

func TestExecRunnerKillsOnDeadline(t *testing.T) {
	requireBinary(t, "/bin/sh")
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := ExecRunner{}.Run(ctx, "/bin/sh", "-c", "exec sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if took := time.Since(start); took > 3*time.Second {
		t.Fatalf("child was not killed in time: %s", took)
	}
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	requireBinary(t, "/bin/sh")
	out, code, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if string(out) != "oops\n" {
		t.Fatalf("combined output = %q", out)
	}
}
