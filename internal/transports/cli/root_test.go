package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	control := filepath.Join(dir, "zomboid.control")
	cfg := fmt.Sprintf(`agent:
  log_level: error
server:
  control_file: %s
  delivery: file
sqlite:
  driver: sqlite
  path: %s
web:
  enabled: false
`, control, filepath.Join(dir, "pzadmin.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, control
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New("1.2.3")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != "1.2.3" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestSendWritesControlFile(t *testing.T) {
	cfgPath, control := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "send", "servermsg", `"Restart soon"`); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, err := run(t, "--config", cfgPath, "send", "--response", "players")
	if err != nil {
		t.Fatalf("send --response: %v", err)
	}
	if !strings.Contains(out, `"output": "players\n"`) {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(control)
	if err != nil {
		t.Fatalf("read control file: %v", err)
	}
	if string(data) != "servermsg \"Restart soon\"\nplayers\n" {
		t.Fatalf("control file = %q", data)
	}
}

func TestSendRejectsMultiline(t *testing.T) {
	cfgPath, control := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "send", "save\nquit"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(control); !os.IsNotExist(err) {
		t.Fatalf("control file must not be created, stat err = %v", err)
	}
}

func TestExecAndTickets(t *testing.T) {
	cfgPath, control := writeConfig(t)
	if _, err := run(t, "--config", cfgPath, "exec", "/server", "save"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if data, _ := os.ReadFile(control); string(data) != "save\n" {
		t.Fatalf("control file = %q", data)
	}
	out, err := run(t, "--config", cfgPath, "tickets", "list", "--status", "open")
	if err != nil {
		t.Fatalf("tickets list: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("unexpected tickets output %q", out)
	}
	if _, err := run(t, "--config", cfgPath, "tickets", "list", "--status", "pending"); err == nil {
		t.Fatal("expected status error")
	}
}
