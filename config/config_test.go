package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest/config"
)

func TestLoad(t *testing.T) {
	reader := strings.NewReader(`
repositories:
  - name: CACHE
    kind: memory
    make_default: true
  - name: ARCHIVE
    kind: filesystem
    directory: /var/lib/everest
    content_type: application/json
representers:
  - resource: myentity
    content_type: application/xml
    attributes:
      - name: parent
        write_as_link: true
      - name: number
        ignore_on_write: true
`)

	cfg, err := config.Load(reader)

	require.NoError(t, err)
	require.Len(t, cfg.Repositories, 2)
	assert.Equal(t, "CACHE", cfg.Repositories[0].Name)
	assert.True(t, cfg.Repositories[0].MakeDefault)
	assert.Equal(t, config.KindFilesystem, cfg.Repositories[1].Kind)
	assert.Equal(t, "/var/lib/everest", cfg.Repositories[1].Directory)
	require.Len(t, cfg.Representers, 1)
	assert.Len(t, cfg.Representers[0].Attributes, 2)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not yaml", "repositories: ["},
		{"repository without name", "repositories:\n  - kind: memory\n"},
		{"unknown kind", "repositories:\n  - name: X\n    kind: tape\n"},
		{"duplicate name", "repositories:\n  - name: X\n    kind: memory\n  - name: X\n    kind: memory\n"},
		{"two defaults", "repositories:\n  - name: X\n    kind: memory\n    make_default: true\n  - name: Y\n    kind: memory\n    make_default: true\n"},
		{"graph without uri", "repositories:\n  - name: X\n    kind: graph\n"},
		{"representer without resource", "representers:\n  - content_type: application/xml\n"},
		{"attribute without name", "representers:\n  - resource: myentity\n    attributes:\n      - ignore: true\n"},
	}

	for _, item := range cases {
		t.Run(item.name, func(t *testing.T) {
			t.Setenv("NEO4J_URL", "")

			_, err := config.Load(strings.NewReader(item.doc))

			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestRepresenterConfig(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`
representers:
  - resource: myentity
    attributes:
      - name: parent
        write_as_link: true
      - name: number
        ignore: true
`))
	require.NoError(t, err)

	rc := cfg.RepresenterConfig()

	opts := rc.For("myentity")
	require.NotNil(t, opts)
	assert.True(t, opts["parent"].WriteAsLink)
	assert.True(t, opts["number"].Ignore)
	assert.Nil(t, rc.For("other"))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("NEO4J_URL", "neo4j://localhost:7687")
	t.Setenv("NEO4J_USER", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "secret")

	env := config.LoadEnv()

	assert.Equal(t, "neo4j://localhost:7687", env.URI)
	assert.Equal(t, "neo4j", env.Username)
	assert.Equal(t, "secret", env.Password)
}

func TestGraphKindAcceptsEnvironmentURI(t *testing.T) {
	t.Setenv("NEO4J_URL", "neo4j://localhost:7687")

	_, err := config.Load(strings.NewReader("repositories:\n  - name: X\n    kind: graph\n"))

	assert.NoError(t, err)
}
