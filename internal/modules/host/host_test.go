package host

import (
	"context"
	"errors"
	"testing"

	"pzadmin/internal/core"
)

func TestUnknownCommand(t *testing.T) {
	m := &Module{}
	_, err := m.Execute(context.Background(), "unknown", nil)
	if !errors.Is(err, core.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestGameWithoutProcessName(t *testing.T) {
	m := &Module{}
	resp, err := m.Execute(context.Background(), "game", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	game, ok := resp.Data.(GameProcess)
	if !ok || game.Running {
		t.Fatalf("unexpected game status: %#v", resp.Data)
	}
}

func TestMatchProcess(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"ProjectZomboid64", "ProjectZomboid64", true},
		{"projectzomboid64", "ProjectZomboid64", true},
		{"ProjectZomboid6", "ProjectZomboid64", true},
		{"ProjectZomboid", "ProjectZomboid64", false},
		{"java", "ProjectZomboid64", false},
	}
	for _, tt := range tests {
		if got := matchProcess(tt.name, tt.want); got != tt.ok {
			t.Fatalf("matchProcess(%q, %q) = %v, want %v", tt.name, tt.want, got, tt.ok)
		}
	}
}
