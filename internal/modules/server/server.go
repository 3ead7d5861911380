package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pzadmin/internal/command"
	"pzadmin/internal/core"
)

var errBadArguments = errors.New("bad arguments")

// Executor доставляет команды игровому серверу.
type Executor interface {
	Execute(ctx context.Context, cmd command.ServerCommand) error
	ExecuteResponse(ctx context.Context, cmd command.ServerCommand) (string, error)
}

// Module открывает администрирование сервера Project Zomboid через реестр.
type Module struct {
	exec Executor
}

func New(exec Executor) *Module {
	return &Module{exec: exec}
}

func (m *Module) Name() string { return "server" }

func (m *Module) Commands() []string {
	return []string{"send", "query", "players", "save", "message", "quit"}
}

func (m *Module) Init(ctx context.Context) error {
	if m.exec == nil {
		return errors.New("server module requires an executor")
	}
	return nil
}

func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	switch cmd {
	case "send":
		return m.send(ctx, strings.Join(args, " "))
	case "query":
		return m.query(ctx, strings.Join(args, " "))
	case "players":
		return m.query(ctx, "players")
	case "save":
		return m.send(ctx, "save")
	case "quit":
		return m.send(ctx, "quit")
	case "message":
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" || strings.Contains(text, `"`) {
			return core.Fail("bad_command"), fmt.Errorf("message text must be non-empty and unquoted: %w", errBadArguments)
		}
		return m.send(ctx, fmt.Sprintf("servermsg \"%s\"", text))
	default:
		return core.Fail("unknown_command"), fmt.Errorf("%s: %w", cmd, core.ErrUnknownCommand)
	}
}

func (m *Module) send(ctx context.Context, text string) (core.Response, error) {
	if err := m.exec.Execute(ctx, command.ServerCommand(text)); err != nil {
		return failure(err)
	}
	return core.OK(map[string]string{"command": text}), nil
}

func (m *Module) query(ctx context.Context, text string) (core.Response, error) {
	out, err := m.exec.ExecuteResponse(ctx, command.ServerCommand(text))
	if err != nil {
		return failure(err)
	}
	return core.OK(map[string]string{"command": text, "output": out}), nil
}

// ErrorCode сопоставляет причину сбоя доставки с кодом ответа.
func ErrorCode(err error) string {
	switch command.KindOf(err) {
	case command.KindInvalid:
		return "bad_command"
	case command.KindExitStatus:
		return "command_failed"
	case command.KindTimeout:
		return "command_timeout"
	case command.KindInterrupted:
		return "interrupted"
	default:
		return "delivery_failed"
	}
}

func failure(err error) (core.Response, error) {
	return core.Fail(ErrorCode(err)), fmt.Errorf("server command: %w", err)
}
