package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeProvider struct {
	name    string
	execErr error
}

func (f *fakeProvider) Name() string                   { return f.name }
func (f *fakeProvider) Commands() []string             { return []string{"send", "ping"} }
func (f *fakeProvider) Init(ctx context.Context) error { return nil }
func (f *fakeProvider) Execute(ctx context.Context, cmd string, args []string) (Response, error) {
	if f.execErr != nil {
		return Fail("failed"), f.execErr
	}
	return OK(cmd), nil
}

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	if err := r.Register(ctx, &fakeProvider{name: "server"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp, err := r.Execute(ctx, "server", "ping", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Status != "ok" || resp.Data != "ping" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestDuplicateProvider(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	prov := &fakeProvider{name: "dup"}
	if err := r.Register(ctx, prov); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(ctx, prov); err == nil {
		t.Fatalf("expected error on duplicate register")
	}
}

func TestUnknownProvider(t *testing.T) {
	r := NewRegistry()
	resp, err := r.Execute(context.Background(), "none", "ping", nil)
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
	if resp.ErrorCode != "module_not_found" {
		t.Fatalf("unexpected error code: %q", resp.ErrorCode)
	}
}

func TestProvidersAndDescribe(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	for _, name := range []string{"server", "host"} {
		if err := r.Register(ctx, &fakeProvider{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if got := r.Providers(); !reflect.DeepEqual(got, []string{"host", "server"}) {
		t.Fatalf("providers = %v", got)
	}
	desc := r.Describe()
	if !reflect.DeepEqual(desc["server"], []string{"ping", "send"}) {
		t.Fatalf("describe = %v", desc)
	}
}
