// Package config loads the declarative service configuration:
// repository declarations and per resource representer directives.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/everest-org/everest/representer"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Repository kinds accepted in configuration files.
const (
	KindMemory     = "memory"
	KindFilesystem = "filesystem"
	KindGraph      = "graph"
)

type Repository struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Directory   string `yaml:"directory,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
	URI         string `yaml:"uri,omitempty"`
	MakeDefault bool   `yaml:"make_default,omitempty"`
}

type AttributeOption struct {
	Name          string `yaml:"name"`
	Ignore        bool   `yaml:"ignore,omitempty"`
	IgnoreOnRead  bool   `yaml:"ignore_on_read,omitempty"`
	IgnoreOnWrite bool   `yaml:"ignore_on_write,omitempty"`
	WriteAsLink   bool   `yaml:"write_as_link,omitempty"`
}

type Representer struct {
	// Resource is the document tag of the resource type the directive
	// applies to.
	Resource    string            `yaml:"resource"`
	ContentType string            `yaml:"content_type,omitempty"`
	Attributes  []AttributeOption `yaml:"attributes,omitempty"`
}

type Config struct {
	Repositories []Repository  `yaml:"repositories"`
	Representers []Representer `yaml:"representers"`
}

// Load reads and verifies a configuration document.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %v: %w", err, ErrInvalidConfig)
	}
	if err := cfg.verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and verifies the configuration file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (cfg *Config) verify() error {
	names := map[string]bool{}
	defaults := 0
	for _, repo := range cfg.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("repository without name: %w", ErrInvalidConfig)
		}
		if names[repo.Name] {
			return fmt.Errorf("repository %s: duplicate name: %w", repo.Name, ErrInvalidConfig)
		}
		names[repo.Name] = true
		if repo.MakeDefault {
			defaults++
		}
		switch repo.Kind {
		case KindMemory:
		case KindFilesystem:
		case KindGraph:
			if repo.URI == "" && os.Getenv("NEO4J_URL") == "" {
				return fmt.Errorf("repository %s: graph repository without uri: %w", repo.Name, ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("repository %s: unknown kind %q: %w", repo.Name, repo.Kind, ErrInvalidConfig)
		}
	}
	if defaults > 1 {
		return fmt.Errorf("more than one default repository: %w", ErrInvalidConfig)
	}
	for _, rep := range cfg.Representers {
		if rep.Resource == "" {
			return fmt.Errorf("representer directive without resource: %w", ErrInvalidConfig)
		}
		for _, attr := range rep.Attributes {
			if attr.Name == "" {
				return fmt.Errorf("representer %s: attribute option without name: %w", rep.Resource, ErrInvalidConfig)
			}
		}
	}
	return nil
}

// RepresenterConfig converts the representer directives to the runtime
// configuration consumed by the representers.
func (cfg *Config) RepresenterConfig() *representer.Config {
	out := representer.NewConfig()
	for _, rep := range cfg.Representers {
		for _, attr := range rep.Attributes {
			out.Set(rep.Resource, attr.Name, representer.AttributeOptions{
				Ignore:        attr.Ignore,
				IgnoreOnRead:  attr.IgnoreOnRead,
				IgnoreOnWrite: attr.IgnoreOnWrite,
				WriteAsLink:   attr.WriteAsLink,
			})
		}
	}
	return out
}

// GraphEnv carries the graph repository credentials taken from the
// environment.
type GraphEnv struct {
	URI      string
	Username string
	Password string
}

// LoadEnv loads optional .env files and returns the graph credentials
// from the environment. Missing files are not an error; explicit
// configuration values win over the environment.
func LoadEnv(files ...string) GraphEnv {
	_ = godotenv.Load(files...)
	return GraphEnv{
		URI:      os.Getenv("NEO4J_URL"),
		Username: os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	}
}
