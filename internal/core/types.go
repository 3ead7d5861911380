package core

import "context"

// Response описывает унифицированный результат выполнения команды.
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

// OK возвращает успешный ответ с данными.
func OK(data interface{}) Response {
	return Response{Status: "ok", Data: data}
}

// Fail возвращает ответ с кодом ошибки.
func Fail(code string) Response {
	return Response{Status: "error", ErrorCode: code}
}

// CommandProvider определяет контракт для модулей.
type CommandProvider interface {
	Name() string
	// Commands перечисляет поддерживаемые команды модуля.
	Commands() []string
	Init(ctx context.Context) error
	Execute(ctx context.Context, cmd string, args []string) (Response, error)
}
