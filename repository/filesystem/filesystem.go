// Package filesystem is a repository persisting each root collection
// as a document in a directory. Documents are loaded on Initialize and
// written back on Flush and Close.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/repository"
	"github.com/everest-org/everest/representer"
	"github.com/everest-org/everest/resource"
)

type Repository struct {
	name       string
	dir        string
	registry   *resource.Registry
	rep        representer.Representer
	aggregates map[reflect.Type]*entity.MemoryAggregate
}

var _ repository.Repository = (*Repository)(nil)

// New creates a filesystem repository writing documents with the given
// representer into dir. An empty name defaults to "FILE_SYSTEM", an
// empty dir to the working directory.
func New(name, dir string, registry *resource.Registry, rep representer.Representer) *Repository {
	if name == "" {
		name = "FILE_SYSTEM"
	}
	if dir == "" {
		dir = "."
	}
	return &Repository{
		name:       name,
		dir:        dir,
		registry:   registry,
		rep:        rep,
		aggregates: map[reflect.Type]*entity.MemoryAggregate{},
	}
}

func (r *Repository) Name() string {
	return r.name
}

// NewAggregate returns the shared aggregate for the prototype's type.
// Sharing keeps the collection served to callers and the persisted
// state in step.
func (r *Repository) NewAggregate(prototype entity.Entity) (entity.Aggregate, error) {
	etype := reflect.TypeOf(prototype)
	agg, found := r.aggregates[etype]
	if !found {
		agg = entity.NewMemoryAggregate(prototype)
		r.aggregates[etype] = agg
	}
	return agg, nil
}

// Initialize loads the persisted document of every registered root
// collection. Missing files mean an empty collection.
func (r *Repository) Initialize(context.Context) error {
	for _, rt := range r.registry.Types() {
		if rt.RootName == "" {
			continue
		}
		f, err := os.Open(r.collectionFile(rt))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		doc, err := r.rep.ReadCollection(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", rt.RootName, err)
		}
		agg, err := r.NewAggregate(rt.Declaration.Prototype)
		if err != nil {
			return err
		}
		for _, m := range doc.Members {
			if m.LinkOnly() {
				continue
			}
			if err := agg.Add(m.Entity()); err != nil {
				return fmt.Errorf("%s: %w", rt.RootName, err)
			}
		}
	}
	return nil
}

// Flush writes every loaded root collection back to its file.
func (r *Repository) Flush() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	for _, rt := range r.registry.Types() {
		if rt.RootName == "" {
			continue
		}
		agg, found := r.aggregates[rt.EntityType()]
		if !found {
			continue
		}
		col := rt.NewCollection(agg.Clone())
		f, err := os.Create(r.collectionFile(rt))
		if err != nil {
			return err
		}
		err = r.rep.WriteCollection(f, col)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", rt.RootName, err)
		}
	}
	return nil
}

func (r *Repository) Close(context.Context) error {
	return r.Flush()
}

func (r *Repository) collectionFile(rt *resource.Type) string {
	ext := "xml"
	if r.rep.ContentType() == representer.ContentTypeJSON {
		ext = "json"
	}
	return filepath.Join(r.dir, rt.RootName+"."+ext)
}
