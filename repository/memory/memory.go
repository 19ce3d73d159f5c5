// Package memory is the built-in repository serving in-memory
// aggregates. State does not survive the process.
package memory

import (
	"context"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/repository"
)

type Repository struct {
	name string
}

var _ repository.Repository = (*Repository)(nil)

// New creates a memory repository. An empty name defaults to "MEMORY".
func New(name string) *Repository {
	if name == "" {
		name = "MEMORY"
	}
	return &Repository{name: name}
}

func (r *Repository) Name() string {
	return r.name
}

func (r *Repository) NewAggregate(prototype entity.Entity) (entity.Aggregate, error) {
	return entity.NewMemoryAggregate(prototype), nil
}

func (r *Repository) Initialize(context.Context) error {
	return nil
}

func (r *Repository) Close(context.Context) error {
	return nil
}
