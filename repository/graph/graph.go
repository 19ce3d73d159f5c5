// Package graph is a repository serving aggregates from a neo4j
// database. Entities live as nodes, one label per resource type;
// filter and order specifications run server side as Cypher.
package graph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/repository"
	"github.com/everest-org/everest/resource"
)

// Config carries the connection settings of a graph repository.
type Config struct {
	URI      string
	Username string
	Password string
	Realm    string
}

type Repository struct {
	name    string
	driver  neo4j.DriverWithContext
	mappers map[reflect.Type]Mapper
}

var _ repository.Repository = (*Repository)(nil)

// New creates a graph repository. An empty name defaults to "GRAPH".
func New(name string, cfg Config) (*Repository, error) {
	if name == "" {
		name = "GRAPH"
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, cfg.Realm))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URI, err)
	}
	return &Repository{name: name, driver: driver, mappers: map[reflect.Type]Mapper{}}, nil
}

func (r *Repository) Name() string {
	return r.name
}

// Register installs a mapper for the prototype's entity type.
func (r *Repository) Register(prototype entity.Entity, m Mapper) {
	r.mappers[reflect.TypeOf(prototype)] = m
}

// RegisterType installs the declaration derived mapper for a resource
// type.
func (r *Repository) RegisterType(rt *resource.Type) {
	r.Register(rt.Declaration.Prototype, NewTypeMapper(rt))
}

func (r *Repository) NewAggregate(prototype entity.Entity) (entity.Aggregate, error) {
	mapper, found := r.mappers[reflect.TypeOf(prototype)]
	if !found {
		return nil, fmt.Errorf("%T: %w", prototype, ErrNoMapper)
	}
	return &Aggregate{driver: r.driver, mapper: mapper}, nil
}

func (r *Repository) Initialize(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
