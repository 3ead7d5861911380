package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeTransport struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Start(ctx context.Context) error {
	*f.log = append(*f.log, "start "+f.name)
	return f.startErr
}

func (f *fakeTransport) Stop(ctx context.Context) error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.stopErr
}

func TestTransportManagerStartStopOrder(t *testing.T) {
	var log []string
	mgr := NewTransportManager()
	for _, name := range []string{"web", "cron"} {
		if err := mgr.Register(&fakeTransport{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if err := mgr.StopAll(context.Background()); err != nil {
		t.Fatalf("stop all: %v", err)
	}
	want := []string{"start web", "start cron", "stop cron", "stop web"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("calls = %v, want %v", log, want)
	}
}

func TestTransportManagerDuplicateRegister(t *testing.T) {
	var log []string
	mgr := NewTransportManager()
	if err := mgr.Register(&fakeTransport{name: "web", log: &log}); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := mgr.Register(&fakeTransport{name: "web", log: &log}); !errors.Is(err, errTransportExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestTransportManagerRollsBackOnStartFailure(t *testing.T) {
	var log []string
	boom := errors.New("address in use")
	mgr := NewTransportManager()
	_ = mgr.Register(&fakeTransport{name: "first", log: &log})
	_ = mgr.Register(&fakeTransport{name: "web", startErr: boom, log: &log})

	err := mgr.StartAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	want := []string{"start first", "start web", "stop first"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("calls = %v, want %v", log, want)
	}
}
