package common

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"

	"pzadmin/internal/storage"
)

// AuditSink записывает аудиторные события.
type AuditSink interface {
	Write(ctx context.Context, ev storage.AuditEvent) error
}

// NewRequestID возвращает монотонный в пределах процесса ULID.
func NewRequestID() string {
	return ulid.Make().String()
}

func buildAuditPayload(module, command string, args []string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"module":  module,
		"command": command,
		"args":    args,
	})
	return payload
}
