// Package repository manages the storage backends aggregates are
// served from. A service holds one Manager with any number of named
// repositories, one of which is the default for resource types that do
// not name their own.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/everest-org/everest/entity"
)

var ErrUnknownRepository = errors.New("unknown repository")
var ErrDuplicateRepository = errors.New("repository already registered")
var ErrNoDefault = errors.New("no default repository configured")

// DefaultName selects the manager's default repository in lookups.
const DefaultName = "DEFAULT"

// Repository produces aggregates over one storage backend.
type Repository interface {
	Name() string
	// NewAggregate returns an aggregate over entities of the
	// prototype's dynamic type.
	NewAggregate(prototype entity.Entity) (entity.Aggregate, error)
	// Initialize prepares the backend (connects, loads persisted
	// state). Called once before first use.
	Initialize(ctx context.Context) error
	// Close releases the backend, persisting state where applicable.
	Close(ctx context.Context) error
}

// Manager is the named registry of repositories.
type Manager struct {
	byName      map[string]Repository
	defaultName string
}

func NewManager() *Manager {
	return &Manager{byName: map[string]Repository{}}
}

// Add registers a repository, optionally as the default. The first
// repository added becomes the default until another claims it.
func (m *Manager) Add(repo Repository, makeDefault bool) error {
	name := repo.Name()
	if _, found := m.byName[name]; found {
		return fmt.Errorf("%s: %w", name, ErrDuplicateRepository)
	}
	m.byName[name] = repo
	if makeDefault || m.defaultName == "" {
		m.defaultName = name
	}
	return nil
}

// Get returns the named repository. The empty name and DefaultName
// select the default.
func (m *Manager) Get(name string) (Repository, error) {
	if name == "" || name == DefaultName {
		return m.Default()
	}
	repo, found := m.byName[name]
	if !found {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownRepository)
	}
	return repo, nil
}

// Default returns the default repository.
func (m *Manager) Default() (Repository, error) {
	if m.defaultName == "" {
		return nil, ErrNoDefault
	}
	return m.byName[m.defaultName], nil
}

// Initialize initializes all registered repositories.
func (m *Manager) Initialize(ctx context.Context) error {
	for name, repo := range m.byName {
		if err := repo.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", name, err)
		}
	}
	return nil
}

// Close closes all registered repositories, reporting the first error.
func (m *Manager) Close(ctx context.Context) error {
	var firstErr error
	for name, repo := range m.byName {
		if err := repo.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	return firstErr
}
