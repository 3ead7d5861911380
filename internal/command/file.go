package command

import (
	"context"
	"os"
)

// FileDeliverer дописывает команду в control-файл напрямую, без shell.
type FileDeliverer struct {
	path string
}

func NewFileDeliverer(path string) *FileDeliverer {
	return &FileDeliverer{path: path}
}

// Deliver возвращает записанную строку как эхо-подтверждение.
func (d *FileDeliverer) Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	line := cmd.String() + "\n"
	f, err := os.OpenFile(d.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644) // #nosec G304 -- путь задаётся оператором в конфиге.
	if err != nil {
		return nil, ioError("open control file", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return nil, ioError("write control file", err)
	}
	if err := f.Close(); err != nil {
		return nil, ioError("close control file", err)
	}
	return []byte(line), nil
}
