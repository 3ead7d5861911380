package command

import (
	"context"
	"errors"
	"fmt"
)

// Kind различает причины сбоя доставки.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindExitStatus
	KindIO
	KindInterrupted
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindExitStatus:
		return "exit_status"
	case KindIO:
		return "io"
	case KindInterrupted:
		return "interrupted"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error: единственный тип ошибки исполнителя команд.
type Error struct {
	Kind     Kind
	ExitCode int
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf возвращает Kind из цепочки ошибок или KindUnknown.
func KindOf(err error) Kind {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return KindUnknown
}

func exitStatusError(code int) *Error {
	return &Error{
		Kind:     KindExitStatus,
		ExitCode: code,
		Msg:      fmt.Sprintf("server command exited with status %d", code),
	}
}

func ioError(msg string, err error) *Error {
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

// contextError сохраняет исходную ошибку контекста в цепочке,
// чтобы отмену было видно вызывающему через errors.Is.
func contextError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Msg: "server command timed out", Err: err}
	}
	return &Error{Kind: KindInterrupted, Msg: "server command interrupted", Err: err}
}
