package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errTransportExists = errors.New("transport already registered")

// TransportAdapter определяет жизненный цикл входного транспорта.
type TransportAdapter interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TransportManager запускает транспорты в порядке регистрации
// и останавливает в обратном.
type TransportManager struct {
	mu         sync.Mutex
	transports []TransportAdapter
	names      map[string]struct{}
}

// NewTransportManager создает пустой менеджер транспортов.
func NewTransportManager() *TransportManager {
	return &TransportManager{names: make(map[string]struct{})}
}

// Register добавляет транспорт; имена должны быть уникальны.
func (m *TransportManager) Register(adapter TransportAdapter) error {
	if adapter == nil {
		return fmt.Errorf("transport is nil: %w", errInvalidArguments)
	}
	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("transport name is empty: %w", errInvalidArguments)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.names[name]; exists {
		return fmt.Errorf("%s: %w", name, errTransportExists)
	}
	m.names[name] = struct{}{}
	m.transports = append(m.transports, adapter)
	return nil
}

func (m *TransportManager) snapshot() []TransportAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransportAdapter(nil), m.transports...)
}

// StartAll запускает транспорты; при ошибке уже запущенные останавливаются.
func (m *TransportManager) StartAll(ctx context.Context) error {
	list := m.snapshot()
	for i, tr := range list {
		if err := tr.Start(ctx); err != nil {
			startErr := fmt.Errorf("start transport %s: %w", tr.Name(), err)
			return errors.Join(startErr, stopReverse(ctx, list[:i]))
		}
	}
	return nil
}

// StopAll останавливает все транспорты и собирает ошибки.
func (m *TransportManager) StopAll(ctx context.Context) error {
	return stopReverse(ctx, m.snapshot())
}

func stopReverse(ctx context.Context, list []TransportAdapter) error {
	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		if err := list[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop transport %s: %w", list[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
