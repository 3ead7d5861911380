package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownModule: модуль с таким именем не зарегистрирован.
	ErrUnknownModule = errors.New("unknown module")
	// ErrUnknownCommand: модуль не поддерживает команду.
	ErrUnknownCommand = errors.New("unknown command")

	errProviderExists   = errors.New("provider already registered")
	errInvalidArguments = errors.New("invalid arguments")
)

// Registry хранит зарегистрированные модули и выполняет команды.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]CommandProvider
}

// NewRegistry создает пустой реестр модулей.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]CommandProvider)}
}

// Register добавляет модуль; имя должно быть уникальным.
func (r *Registry) Register(ctx context.Context, provider CommandProvider) error {
	if provider == nil {
		return fmt.Errorf("provider is nil: %w", errInvalidArguments)
	}
	name := provider.Name()
	if name == "" {
		return fmt.Errorf("provider name is empty: %w", errInvalidArguments)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%s: %w", name, errProviderExists)
	}
	if err := provider.Init(ctx); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	r.providers[name] = provider
	return nil
}

// Execute вызывает модуль по имени.
func (r *Registry) Execute(ctx context.Context, module, cmd string, args []string) (Response, error) {
	r.mu.RLock()
	prov, ok := r.providers[module]
	r.mu.RUnlock()
	if !ok {
		return Fail("module_not_found"), fmt.Errorf("%s: %w", module, ErrUnknownModule)
	}
	return prov.Execute(ctx, cmd, args)
}

// Providers возвращает отсортированный список модулей.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe возвращает команды каждого модуля.
func (r *Registry) Describe() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.providers))
	for name, prov := range r.providers {
		cmds := append([]string(nil), prov.Commands()...)
		sort.Strings(cmds)
		out[name] = cmds
	}
	return out
}
