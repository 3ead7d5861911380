package command

import (
	"context"
	"time"

	"github.com/gorcon/rcon"
)

const defaultRCONTimeout = 5 * time.Second

// RCONDeliverer отправляет команду по RCON и возвращает ответ сервера.
// Открытое соединение не прерывается контекстом, его ограничивает deadline.
type RCONDeliverer struct {
	addr     string
	password string
	timeout  time.Duration
}

func NewRCONDeliverer(addr, password string, timeout time.Duration) *RCONDeliverer {
	if timeout <= 0 {
		timeout = defaultRCONTimeout
	}
	return &RCONDeliverer{addr: addr, password: password, timeout: timeout}
}

func (d *RCONDeliverer) Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	timeout := d.timeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}

	conn, err := rcon.Dial(d.addr, d.password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, ioError("rcon connect", err)
	}
	defer conn.Close()

	resp, err := conn.Execute(cmd.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, ioError("rcon exec", err)
	}
	return []byte(resp), nil
}
