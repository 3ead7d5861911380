package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultShell: интерпретатор для shell-доставки.
const DefaultShell = "/bin/bash"

const defaultWaitDelay = 2 * time.Second

// Runner запускает процесс и возвращает объединённый stdout/stderr.
// err != nil означает, что код выхода не получен: процесс не запустился
// или ожидание прервано контекстом.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)
}

// ExecRunner реализует Runner через os/exec.
type ExecRunner struct {
	// WaitDelay ограничивает ожидание вывода после kill.
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- аргументы собирает ShellDeliverer.
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), nil
	}
	return out, -1, err
}

// ShellDeliverer пишет команду в control-файл через `<shell> -c 'echo "..." > path'`.
// Текст команды не экранируется: кавычки и метасимволы shell в нём
// дают неопределённое поведение.
type ShellDeliverer struct {
	shell       string
	controlFile string
	runner      Runner
}

func NewShellDeliverer(shell, controlFile string, runner Runner) *ShellDeliverer {
	if shell == "" {
		shell = DefaultShell
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &ShellDeliverer{shell: shell, controlFile: controlFile, runner: runner}
}

// CommandLine возвращает argv, который получит Runner.
func (d *ShellDeliverer) CommandLine(cmd ServerCommand) []string {
	return []string{d.shell, "-c", fmt.Sprintf("echo \"%s\" > %s", cmd, d.controlFile)}
}

func (d *ShellDeliverer) Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	argv := d.CommandLine(cmd)
	out, code, err := d.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, contextError(ctxErr)
		}
		return out, ioError("spawn shell", err)
	}
	if code != 0 {
		return out, exitStatusError(code)
	}
	return out, nil
}
