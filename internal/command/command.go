// Package command доставляет административные команды игровому серверу
// Project Zomboid: через control-файл, через shell или по RCON.
package command

import (
	"errors"
	"strings"
)

var (
	errEmptyCommand     = errors.New("empty server command")
	errMultilineCommand = errors.New("server command contains a line break")
)

// DefaultControlFile: путь control-файла, который опрашивает сервер.
const DefaultControlFile = "/opt/pzserver/zomboid.control"

// ServerCommand: текст одной команды для интерпретатора сервера.
type ServerCommand string

func (c ServerCommand) String() string { return string(c) }

// Validate отклоняет пустые и многострочные команды.
// Перевод строки в control-файле превратился бы во вторую команду.
func (c ServerCommand) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return &Error{Kind: KindInvalid, Msg: "invalid server command", Err: errEmptyCommand}
	}
	if strings.ContainsAny(string(c), "\r\n") {
		return &Error{Kind: KindInvalid, Msg: "invalid server command", Err: errMultilineCommand}
	}
	return nil
}
