package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Режимы доставки.
const (
	DeliveryFile  = "file"
	DeliveryShell = "shell"
	DeliveryRCON  = "rcon"
)

// Deliverer передаёт одну команду серверу и возвращает вывод.
type Deliverer interface {
	Deliver(ctx context.Context, cmd ServerCommand) ([]byte, error)
}

// Config задаёт способ доставки и ограничения исполнителя.
type Config struct {
	Delivery        string
	ControlFile     string
	Shell           string
	Timeout         time.Duration
	SerializeWrites bool
	RCONAddr        string
	RCONPassword    string
}

// Executor исполняет команды синхронно: на каждый вызов одна доставка.
type Executor struct {
	deliverer Deliverer
	timeout   time.Duration
	serialize bool
	logger    *slog.Logger

	mu sync.Mutex
}

// New строит исполнитель с доставщиком по cfg.Delivery.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	if cfg.ControlFile == "" {
		cfg.ControlFile = DefaultControlFile
	}
	var d Deliverer
	switch cfg.Delivery {
	case DeliveryFile, "":
		d = NewFileDeliverer(cfg.ControlFile)
	case DeliveryShell:
		d = NewShellDeliverer(cfg.Shell, cfg.ControlFile, ExecRunner{})
	case DeliveryRCON:
		if cfg.RCONAddr == "" {
			return nil, errors.New("rcon delivery requires an address")
		}
		d = NewRCONDeliverer(cfg.RCONAddr, cfg.RCONPassword, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Delivery)
	}
	return NewWithDeliverer(d, cfg, logger), nil
}

// NewWithDeliverer строит исполнитель поверх готового доставщика.
func NewWithDeliverer(d Deliverer, cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		deliverer: d,
		timeout:   cfg.Timeout,
		serialize: cfg.SerializeWrites,
		logger:    logger,
	}
}

// Execute доставляет команду и ждёт завершения.
func (e *Executor) Execute(ctx context.Context, cmd ServerCommand) error {
	_, err := e.run(ctx, cmd)
	return err
}

// ExecuteResponse доставляет команду так же, как Execute, и возвращает вывод.
func (e *Executor) ExecuteResponse(ctx context.Context, cmd ServerCommand) (string, error) {
	out, err := e.run(ctx, cmd)
	return string(out), err
}

func (e *Executor) run(ctx context.Context, cmd ServerCommand) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if e.serialize {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	start := time.Now()
	out, err := e.deliverer.Deliver(ctx, cmd)
	if err != nil {
		var cmdErr *Error
		if !errors.As(err, &cmdErr) {
			err = ioError("deliver server command", err)
		}
		e.logger.Warn("server command failed",
			"command", cmd.String(),
			"kind", KindOf(err).String(),
			"output", string(out),
			"err", err,
		)
		return out, err
	}
	e.logger.Debug("server command delivered",
		"command", cmd.String(),
		"output", string(out),
		"took", time.Since(start),
	)
	return out, nil
}
