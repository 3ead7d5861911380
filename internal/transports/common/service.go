package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pzadmin/internal/core"
	"pzadmin/internal/storage"
)

var (
	errEmptyCommand = errors.New("empty command")
	// ErrRateLimited возвращается, когда субъект превысил лимит запросов.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Service объединяет общий пайплайн command->ratelimit->core->audit.
type Service struct {
	Source      string
	Registry    *core.Registry
	RateLimiter *RateLimiter
	AuditSink   AuditSink
}

// Execute вызывает core-модуль от имени субъекта.
func (s *Service) Execute(ctx context.Context, subjectID, module, command string, args []string) (core.Response, error) {
	if s.RateLimiter != nil {
		if !s.RateLimiter.Allow(fmt.Sprintf("%s:%s", s.Source, subjectID), time.Now()) {
			s.writeAudit(ctx, subjectID, "rate_limited", module, command, args)
			return core.Fail("rate_limited"), ErrRateLimited
		}
	}
	resp, execErr := s.Registry.Execute(ctx, module, command, args)
	status := "ok"
	if execErr != nil || resp.Status == "error" {
		status = "error"
	}
	s.writeAudit(ctx, subjectID, status, module, command, args)
	return resp, execErr
}

// ExecuteText парсит команду транспорта и вызывает core-модуль.
func (s *Service) ExecuteText(ctx context.Context, subjectID, text string) (core.Response, error) {
	module, command, args, err := ParseTextCommand(text)
	if err != nil {
		return core.Fail("bad_command"), err
	}
	return s.Execute(ctx, subjectID, module, command, args)
}

func (s *Service) writeAudit(ctx context.Context, subjectID, status, module, command string, args []string) {
	if s.AuditSink == nil {
		return
	}
	_ = s.AuditSink.Write(context.WithoutCancel(ctx), storage.AuditEvent{
		Subject:   subjectID,
		Action:    fmt.Sprintf("%s:%s", module, command),
		Source:    s.Source,
		Status:    status,
		RequestID: RequestIDFrom(ctx),
		Payload:   buildAuditPayload(module, command, args),
	})
}

type requestIDKey struct{}

// WithRequestID сохраняет идентификатор запроса в контексте.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom возвращает идентификатор запроса или генерирует новый.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return NewRequestID()
}

// ParseTextCommand переводит текст в (module, command, args).
// Формат: /module command arg1 arg2
func ParseTextCommand(text string) (string, string, []string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", "", nil, errEmptyCommand
	}
	t = strings.TrimPrefix(t, "/")
	parts := strings.Fields(t)
	if len(parts) < 2 {
		return "", "", nil, fmt.Errorf("invalid command format: %w", errEmptyCommand)
	}
	module := parts[0]
	command := parts[1]
	args := []string{}
	if len(parts) > 2 {
		args = parts[2:]
	}
	return module, command, args, nil
}
