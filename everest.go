// Package everest wires resource declarations, repositories and
// representers into one service. A service owns the resource registry
// and one aggregate per registered root collection; documents read and
// written through the service follow the registered declarations.
package everest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/everest-org/everest/config"
	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/repository"
	"github.com/everest-org/everest/repository/filesystem"
	"github.com/everest-org/everest/repository/graph"
	"github.com/everest-org/everest/repository/memory"
	"github.com/everest-org/everest/representer"
	"github.com/everest-org/everest/resource"
)

var ErrUnknownRoot = errors.New("unknown root collection")

type binding struct {
	rtype *resource.Type
	repo  repository.Repository
	agg   entity.Aggregate
}

// Service binds resource types to the repositories their root
// collections live in.
type Service struct {
	registry  *resource.Registry
	repos     *repository.Manager
	repConfig *representer.Config
	roots     map[string]*binding

	pendingRepos []pendingRepo
}

type pendingRepo struct {
	repo        repository.Repository
	makeDefault bool
}

type Option func(*Service)

// WithRepository adds a repository to the service.
func WithRepository(repo repository.Repository) Option {
	return func(s *Service) {
		s.pendingRepos = append(s.pendingRepos, pendingRepo{repo: repo})
	}
}

// WithDefaultRepository adds a repository and makes it the default.
func WithDefaultRepository(repo repository.Repository) Option {
	return func(s *Service) {
		s.pendingRepos = append(s.pendingRepos, pendingRepo{repo: repo, makeDefault: true})
	}
}

// WithRepresenterConfig sets the attribute options applied when
// reading and writing documents.
func WithRepresenterConfig(cfg *representer.Config) Option {
	return func(s *Service) {
		s.repConfig = cfg
	}
}

// New constructs a service with the given options. A service without
// any configured repository gets an in-memory default.
func New(options ...Option) (*Service, error) {
	s := newService(options...)
	if len(s.pendingRepos) == 0 {
		s.pendingRepos = append(s.pendingRepos, pendingRepo{repo: memory.New("")})
	}
	if err := s.addPending(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromConfig constructs a service from a loaded configuration. Graph
// repositories take missing connection settings from env. A
// configuration without repositories falls back to the in-memory
// default.
func FromConfig(cfg *config.Config, env config.GraphEnv) (*Service, error) {
	s := newService(WithRepresenterConfig(cfg.RepresenterConfig()))
	for _, rc := range cfg.Repositories {
		repo, err := s.buildRepository(rc, env)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", rc.Name, err)
		}
		if err := s.repos.Add(repo, rc.MakeDefault); err != nil {
			return nil, err
		}
	}
	if _, err := s.repos.Default(); err != nil {
		if addErr := s.repos.Add(memory.New(""), false); addErr != nil {
			return nil, addErr
		}
	}
	return s, nil
}

func newService(options ...Option) *Service {
	s := &Service{
		registry: resource.NewRegistry(),
		repos:    repository.NewManager(),
		roots:    map[string]*binding{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) addPending() error {
	for _, pending := range s.pendingRepos {
		if err := s.repos.Add(pending.repo, pending.makeDefault); err != nil {
			return err
		}
	}
	s.pendingRepos = nil
	return nil
}

func (s *Service) buildRepository(rc config.Repository, env config.GraphEnv) (repository.Repository, error) {
	switch rc.Kind {
	case config.KindMemory:
		return memory.New(rc.Name), nil
	case config.KindFilesystem:
		contentType := rc.ContentType
		if contentType == "" {
			contentType = representer.ContentTypeXML
		}
		rep, err := s.Representer(contentType)
		if err != nil {
			return nil, err
		}
		return filesystem.New(rc.Name, rc.Directory, s.registry, rep), nil
	case config.KindGraph:
		gcfg := graph.Config{
			URI:      rc.URI,
			Username: env.Username,
			Password: env.Password,
		}
		if gcfg.URI == "" {
			gcfg.URI = env.URI
		}
		return graph.New(rc.Name, gcfg)
	}
	return nil, fmt.Errorf("unknown repository kind %q: %w", rc.Kind, config.ErrInvalidConfig)
}

// Registry returns the service's resource registry.
func (s *Service) Registry() *resource.Registry {
	return s.registry
}

// Repositories returns the service's repository manager.
func (s *Service) Repositories() *repository.Manager {
	return s.repos
}

// Register declares a resource type and binds its root collection to
// the repository the declaration names.
func (s *Service) Register(decl resource.Declaration) (*resource.Type, error) {
	rt, err := s.registry.Register(decl)
	if err != nil {
		return nil, err
	}
	repo, err := s.repos.Get(decl.Repository)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", decl.RootName, err)
	}
	if gr, ok := repo.(*graph.Repository); ok {
		gr.RegisterType(rt)
	}
	prototype, err := rt.NewEntity()
	if err != nil {
		return nil, err
	}
	agg, err := repo.NewAggregate(prototype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", decl.RootName, err)
	}
	s.roots[decl.RootName] = &binding{rtype: rt, repo: repo, agg: agg}
	return rt, nil
}

// Initialize initializes all repositories. Call after registering
// every resource type.
func (s *Service) Initialize(ctx context.Context) error {
	return s.repos.Initialize(ctx)
}

// Close closes all repositories, persisting state where applicable.
func (s *Service) Close(ctx context.Context) error {
	return s.repos.Close(ctx)
}

// Collection returns a fresh collection over the named root. Filter,
// order and slice set on the returned collection do not leak into
// later calls.
func (s *Service) Collection(rootName string) (*resource.Collection, error) {
	b, found := s.roots[rootName]
	if !found {
		return nil, fmt.Errorf("%s: %w", rootName, ErrUnknownRoot)
	}
	return b.rtype.NewCollection(b.agg.Clone()), nil
}

// Representer returns a representer for the given content type, bound
// to the service's registry and attribute options.
func (s *Service) Representer(contentType string) (representer.Representer, error) {
	return representer.New(contentType, s.registry, s.repConfig)
}

// Load reads a collection document and reconciles the named root
// collection with it: new members are added, known members updated and
// absent members removed.
func (s *Service) Load(rootName, contentType string, r io.Reader) error {
	b, found := s.roots[rootName]
	if !found {
		return fmt.Errorf("%s: %w", rootName, ErrUnknownRoot)
	}
	rep, err := s.Representer(contentType)
	if err != nil {
		return err
	}
	doc, err := rep.ReadCollection(r)
	if err != nil {
		return err
	}
	if doc.Type != b.rtype {
		return fmt.Errorf("%s: document holds %s members: %w",
			rootName, doc.Type.RootName, representer.ErrTypeMismatch)
	}
	return b.rtype.NewCollection(b.agg).UpdateFrom(doc.Members)
}

// Dump writes the named root collection as a document. Collections
// without an explicit slice are paged to the type's default limit.
func (s *Service) Dump(rootName, contentType string, w io.Writer) error {
	col, err := s.Collection(rootName)
	if err != nil {
		return err
	}
	if col.Slice() == nil {
		if err := col.SetSlice(&entity.Slice{Stop: col.Type().DefaultLimit}); err != nil {
			return err
		}
	}
	rep, err := s.Representer(contentType)
	if err != nil {
		return err
	}
	return rep.WriteCollection(w, col)
}
