package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"pzadmin/internal/config"
	"pzadmin/internal/storage"
	"pzadmin/internal/storage/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.ControlFile = filepath.Join(dir, "zomboid.control")
	cfg.SQLite.Driver = sqlite.DriverPure
	cfg.SQLite.Path = filepath.Join(dir, "state", "pzadmin.db")
	cfg.Web.Enabled = false
	cfg.Scheduler.Commands = []config.ScheduledCommand{{Spec: "@hourly", Command: "save"}}
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewAppRegistersModules(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	got := a.Registry.Providers()
	if len(got) != 2 || got[0] != "host" || got[1] != "server" {
		t.Fatalf("unexpected providers: %v", got)
	}
}

func TestNewAppRejectsUnknownDelivery(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Delivery = "carrier-pigeon"
	if _, err := NewApp(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestJobs(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	names := map[string]string{}
	for _, j := range a.jobs() {
		names[j.name] = j.spec
	}
	if names["host-metrics"] != "@every 60s" {
		t.Fatalf("metrics spec = %q", names["host-metrics"])
	}
	if names["retention"] != "@daily" {
		t.Fatalf("retention spec = %q", names["retention"])
	}
	if names["command:save"] != "@hourly" {
		t.Fatalf("scheduled command spec = %q", names["command:save"])
	}
}

func TestScheduledCommandWritesControlFileAndAudit(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	var run func(context.Context) error
	for _, j := range a.jobs() {
		if j.name == "command:save" {
			run = j.run
		}
	}
	if run == nil {
		t.Fatal("scheduled command job not found")
	}
	if err := run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}

	data, err := os.ReadFile(cfg.Server.ControlFile)
	if err != nil {
		t.Fatalf("read control file: %v", err)
	}
	if string(data) != "save\n" {
		t.Fatalf("control file = %q", data)
	}

	events, err := a.Store.QueryAudit(context.Background(), storage.AuditQuery{Subject: "scheduler"})
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	if len(events) != 1 || events[0].Action != "server:send" || events[0].Status != "ok" {
		t.Fatalf("unexpected audit: %#v", events)
	}
}

func TestPruneJob(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	if err := a.prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Serve(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestServeRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Commands = []config.ScheduledCommand{{Spec: "every tuesday", Command: "save"}}
	a := newTestApp(t, cfg)
	if err := a.Serve(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
