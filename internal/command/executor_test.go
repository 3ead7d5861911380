package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	out   []byte
	code  int
	err   error
	block bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, -1, ctx.Err()
	}
	if f.err != nil {
		return f.out, -1, f.err
	}
	return f.out, f.code, nil
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newShellExecutor(r Runner, cfg Config) *Executor {
	return NewWithDeliverer(NewShellDeliverer("/bin/bash", "/opt/pzserver/zomboid.control", r), cfg, testLogger())
}

func TestExecuteExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{name: "success", code: 0},
		{name: "general failure", code: 1, wantErr: true},
		{name: "misuse", code: 2, wantErr: true},
		{name: "not found", code: 127, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newShellExecutor(&fakeRunner{code: tt.code}, Config{})
			err := exec.Execute(context.Background(), "Players")
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			var cmdErr *Error
			if !errors.As(err, &cmdErr) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if cmdErr.Kind != KindExitStatus {
				t.Fatalf("kind = %s, want exit_status", cmdErr.Kind)
			}
			if cmdErr.ExitCode != tt.code {
				t.Fatalf("exit code = %d, want %d", cmdErr.ExitCode, tt.code)
			}
		})
	}
}

func TestExecuteExitOneMessage(t *testing.T) {
	exec := newShellExecutor(&fakeRunner{code: 1}, Config{})
	err := exec.Execute(context.Background(), "Players")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1") {
		t.Fatalf("message %q does not contain exit code", err.Error())
	}
}

func TestExecuteAndExecuteResponseShareCommandLine(t *testing.T) {
	runner := &fakeRunner{out: []byte("ok\n")}
	exec := newShellExecutor(runner, Config{})
	ctx := context.Background()

	if err := exec.Execute(ctx, "save"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, err := exec.ExecuteResponse(ctx, "save")
	if err != nil {
		t.Fatalf("execute response: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("output = %q, want %q", out, "ok\n")
	}

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 runner calls, got %d", len(calls))
	}
	if !reflect.DeepEqual(calls[0], calls[1]) {
		t.Fatalf("command lines differ: %q vs %q", calls[0], calls[1])
	}
	want := []string{"/bin/bash", "-c", `echo "save" > /opt/pzserver/zomboid.control`}
	if !reflect.DeepEqual(calls[0], want) {
		t.Fatalf("command line = %q, want %q", calls[0], want)
	}
}

func TestExecuteSpawnFailure(t *testing.T) {
	spawnErr := errors.New("fork/exec /bin/bash: no such file or directory")
	exec := newShellExecutor(&fakeRunner{err: spawnErr}, Config{})

	err := exec.Execute(context.Background(), "Players")
	if KindOf(err) != KindIO {
		t.Fatalf("kind = %s, want io (err=%v)", KindOf(err), err)
	}
	if !errors.Is(err, spawnErr) {
		t.Fatalf("expected wrapped spawn error, got %v", err)
	}
}

func TestExecuteInterrupted(t *testing.T) {
	exec := newShellExecutor(&fakeRunner{block: true}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := exec.Execute(ctx, "Players")
	if KindOf(err) != KindInterrupted {
		t.Fatalf("kind = %s, want interrupted (err=%v)", KindOf(err), err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation must stay observable, got %v", err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	exec := newShellExecutor(&fakeRunner{block: true}, Config{Timeout: 20 * time.Millisecond})

	_, err := exec.ExecuteResponse(context.Background(), "Players")
	if KindOf(err) != KindTimeout {
		t.Fatalf("kind = %s, want timeout (err=%v)", KindOf(err), err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExecuteRejectsInvalidCommand(t *testing.T) {
	runner := &fakeRunner{}
	exec := newShellExecutor(runner, Config{})
	for _, cmd := range []ServerCommand{"", "   ", "save\nquit", "save\r"} {
		if err := exec.Execute(context.Background(), cmd); KindOf(err) != KindInvalid {
			t.Fatalf("command %q: kind = %s, want invalid", cmd, KindOf(err))
		}
	}
	if n := len(runner.Calls()); n != 0 {
		t.Fatalf("runner must not be called, got %d calls", n)
	}
}

type countingDeliverer struct {
	inFlight int32
	maxSeen  int32
}

func (d *countingDeliverer) Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	n := atomic.AddInt32(&d.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&d.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&d.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&d.inFlight, -1)
	return nil, nil
}

func TestExecuteSerializesWrites(t *testing.T) {
	d := &countingDeliverer{}
	exec := NewWithDeliverer(d, Config{SerializeWrites: true}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = exec.Execute(context.Background(), "save")
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&d.maxSeen); got != 1 {
		t.Fatalf("max concurrent deliveries = %d, want 1", got)
	}
}

func TestExecuteWrapsForeignDelivererError(t *testing.T) {
	boom := errors.New("boom")
	exec := NewWithDeliverer(delivererFunc(func(ctx context.Context, cmd ServerCommand) ([]byte, error) {
		return nil, boom
	}), Config{}, testLogger())

	err := exec.Execute(context.Background(), "save")
	if KindOf(err) != KindIO || !errors.Is(err, boom) {
		t.Fatalf("expected io error wrapping boom, got %v", err)
	}
}

type delivererFunc func(ctx context.Context, cmd ServerCommand) ([]byte, error)

func (f delivererFunc) Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	return f(ctx, cmd)
}

func TestNewUnknownDelivery(t *testing.T) {
	if _, err := New(Config{Delivery: "carrier-pigeon"}, testLogger()); err == nil {
		t.Fatal("expected error for unknown delivery mode")
	}
}

func TestNewRCONRequiresAddress(t *testing.T) {
	if _, err := New(Config{Delivery: DeliveryRCON}, testLogger()); err == nil {
		t.Fatal("expected error for rcon without address")
	}
}
