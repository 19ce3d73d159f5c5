package everest_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest"
	"github.com/everest-org/everest/config"
	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/repository/memory"
	"github.com/everest-org/everest/representer"
	"github.com/everest-org/everest/testmodel"
)

func newService(t *testing.T, options ...everest.Option) *everest.Service {
	t.Helper()
	svc, err := everest.New(options...)
	require.NoError(t, err)
	require.NoError(t, testmodel.Register(svc))
	require.NoError(t, svc.Initialize(context.Background()))
	return svc
}

func TestServiceDefaultsToMemoryRepository(t *testing.T) {
	svc := newService(t)

	repo, err := svc.Repositories().Default()
	require.NoError(t, err)
	assert.Equal(t, "MEMORY", repo.Name())
}

func TestServiceCollectionLifecycle(t *testing.T) {
	svc := newService(t)

	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	_, err = col.CreateMember(testmodel.NewMyEntity(1))
	require.NoError(t, err)

	// Collections from the service share the root aggregate.
	again, err := svc.Collection("my-entities")
	require.NoError(t, err)
	length, err := again.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	_, err = svc.Collection("nope")
	assert.ErrorIs(t, err, everest.ErrUnknownRoot)
}

func TestServiceCollectionFilterIsolation(t *testing.T) {
	svc := newService(t)

	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	one := testmodel.NewMyEntity(1)
	one.Number = 10
	two := testmodel.NewMyEntity(2)
	two.Number = 20
	_, err = col.CreateMember(one)
	require.NoError(t, err)
	_, err = col.CreateMember(two)
	require.NoError(t, err)

	require.NoError(t, col.SetFilter(querying.GreaterThan("number", 15)))
	length, err := col.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	// A fresh collection does not carry the filter.
	fresh, err := svc.Collection("my-entities")
	require.NoError(t, err)
	length, err = fresh.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestServiceLoadAndDump(t *testing.T) {
	svc := newService(t)

	err := svc.Load("my-entities", representer.ContentTypeXML, strings.NewReader(`
	<myentities xmlns="http://xml.test.org/tests">
	  <myentity>
	    <id>1</id>
	    <text>loaded</text>
	  </myentity>
	</myentities>
	`))
	require.NoError(t, err)

	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	m, err := col.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "loaded", m.Entity().(*testmodel.MyEntity).Text)

	var buf bytes.Buffer
	require.NoError(t, svc.Dump("my-entities", representer.ContentTypeJSON, &buf))
	assert.Contains(t, buf.String(), `"text": "loaded"`)
}

func TestServiceLoadReconciles(t *testing.T) {
	svc := newService(t)
	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	stale := testmodel.NewMyEntity(2)
	_, err = col.CreateMember(stale)
	require.NoError(t, err)

	err = svc.Load("my-entities", representer.ContentTypeXML, strings.NewReader(`
	<myentities xmlns="http://xml.test.org/tests">
	  <myentity>
	    <text>brand new</text>
	  </myentity>
	</myentities>
	`))
	require.NoError(t, err)

	fresh, err := svc.Collection("my-entities")
	require.NoError(t, err)
	members, err := fresh.Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "brand new", members[0].Entity().(*testmodel.MyEntity).Text)
}

func TestServiceLoadWrongDocumentType(t *testing.T) {
	svc := newService(t)

	err := svc.Load("my-entities", representer.ContentTypeXML, strings.NewReader(
		`<myentitychildren xmlns="http://xml.test.org/tests"/>`))

	assert.ErrorIs(t, err, representer.ErrTypeMismatch)
}

func TestServiceWithNamedRepository(t *testing.T) {
	svc, err := everest.New(
		everest.WithRepository(memory.New("FIRST")),
		everest.WithDefaultRepository(memory.New("SECOND")),
	)
	require.NoError(t, err)

	repo, err := svc.Repositories().Default()
	require.NoError(t, err)
	assert.Equal(t, "SECOND", repo.Name())

	decl := testmodel.Declarations()[0]
	decl.Repository = "FIRST"
	_, err = svc.Register(decl)
	require.NoError(t, err)
}

func TestServiceDumpDefaultLimit(t *testing.T) {
	svc, err := everest.New()
	require.NoError(t, err)
	decls := testmodel.Declarations()
	decls[0].DefaultLimit = 2
	for _, decl := range decls {
		_, err := svc.Register(decl)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Initialize(context.Background()))

	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	for id := 1; id <= 3; id++ {
		_, err := col.CreateMember(testmodel.NewMyEntity(id))
		require.NoError(t, err)
	}

	// Dumping without an explicit slice pages to the default limit.
	var buf bytes.Buffer
	require.NoError(t, svc.Dump("my-entities", representer.ContentTypeXML, &buf))
	assert.Equal(t, 2, strings.Count(buf.String(), "<myentity>"))
}

func TestServiceFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(strings.NewReader(`
repositories:
  - name: FILES
    kind: filesystem
    directory: ` + dir + `
    make_default: true
representers:
  - resource: myentity
    attributes:
      - name: number
        ignore: true
`))
	require.NoError(t, err)

	svc, err := everest.FromConfig(cfg, config.GraphEnv{})
	require.NoError(t, err)
	require.NoError(t, testmodel.Register(svc))
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))

	col, err := svc.Collection("my-entities")
	require.NoError(t, err)
	_, err = col.CreateMember(testmodel.NewMyEntity(1))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Dump("my-entities", representer.ContentTypeXML, &buf))
	assert.NotContains(t, buf.String(), "<number>")

	require.NoError(t, svc.Close(ctx))
	assert.FileExists(t, filepath.Join(dir, "my-entities.xml"))
}
