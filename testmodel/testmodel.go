// Package testmodel carries the entity hierarchy used throughout the
// framework's own tests: a four level family of resources mirroring
// the generic resource schema through nesting and fixed relation URIs.
package testmodel

import (
	"strconv"
	"time"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/resource"
)

// Namespace is the document namespace of the test model's elements.
const Namespace = "http://xml.test.org/tests"

// Relation URIs of the test model's member resources.
const (
	RelMyEntity           = "http://test.org/myentity"
	RelMyEntityParent     = "http://test.org/myentity-parent"
	RelMyEntityChild      = "http://test.org/myentity-child"
	RelMyEntityGrandchild = "http://test.org/myentity-grandchild"
)

// DefaultText is the text value entities start out with.
const DefaultText = "TEXT"

type MyEntityParent struct {
	EntityID int
	Text     string
}

type MyEntity struct {
	EntityID int
	Parent   *MyEntityParent
	Children []*MyEntityChild
	Text     string
	Number   int
	DateTime time.Time
}

type MyEntityChild struct {
	EntityID      int
	Text          string
	Grandchildren []*MyEntityGrandchild
}

type MyEntityGrandchild struct {
	EntityID int
	Text     string
}

func (e *MyEntityParent) ID() int      { return e.EntityID }
func (e *MyEntityParent) Slug() string { return slug(e.EntityID) }

func (e *MyEntity) ID() int      { return e.EntityID }
func (e *MyEntity) Slug() string { return slug(e.EntityID) }

func (e *MyEntityChild) ID() int      { return e.EntityID }
func (e *MyEntityChild) Slug() string { return slug(e.EntityID) }

func (e *MyEntityGrandchild) ID() int      { return e.EntityID }
func (e *MyEntityGrandchild) Slug() string { return slug(e.EntityID) }

var _ entity.Entity = (*MyEntity)(nil)
var _ entity.Entity = (*MyEntityParent)(nil)
var _ entity.Entity = (*MyEntityChild)(nil)
var _ entity.Entity = (*MyEntityGrandchild)(nil)

func slug(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func NewMyEntity(id int) *MyEntity {
	return &MyEntity{EntityID: id, Text: DefaultText, Number: 1}
}

// Registrar accepts resource declarations. Both *resource.Registry
// and a service satisfy it.
type Registrar interface {
	Register(resource.Declaration) (*resource.Type, error)
}

// Register declares the test model's resource types on the registrar.
func Register(reg Registrar) error {
	for _, decl := range Declarations() {
		if _, err := reg.Register(decl); err != nil {
			return err
		}
	}
	return nil
}

// Declarations returns the resource declarations of the test model.
func Declarations() []resource.Declaration {
	return []resource.Declaration{
		{
			Prototype:     &MyEntity{},
			Relation:      RelMyEntity,
			Tag:           "myentity",
			CollectionTag: "myentities",
			Namespace:     Namespace,
			RootName:      "my-entities",
			Title:         "My Entities",
			Attributes: []resource.Attribute{
				{Name: "id", EntityAttr: "EntityID", Kind: resource.KIND_TERMINAL},
				{Name: "parent", EntityAttr: "Parent", Kind: resource.KIND_MEMBER, Prototype: &MyEntityParent{}},
				{Name: "children", EntityAttr: "Children", Kind: resource.KIND_COLLECTION, Prototype: &MyEntityChild{}},
				{Name: "text", EntityAttr: "Text", Kind: resource.KIND_TERMINAL},
				{Name: "number", EntityAttr: "Number", Kind: resource.KIND_TERMINAL},
				{Name: "date_time", EntityAttr: "DateTime", Kind: resource.KIND_TERMINAL},
			},
		},
		{
			Prototype:     &MyEntityParent{},
			Relation:      RelMyEntityParent,
			Tag:           "myentityparent",
			CollectionTag: "myentityparents",
			Namespace:     Namespace,
			RootName:      "my-entity-parents",
			Title:         "My Entity Parents",
			Attributes: []resource.Attribute{
				{Name: "id", EntityAttr: "EntityID", Kind: resource.KIND_TERMINAL},
				{Name: "text", EntityAttr: "Text", Kind: resource.KIND_TERMINAL},
			},
		},
		{
			Prototype:     &MyEntityChild{},
			Relation:      RelMyEntityChild,
			Tag:           "myentitychild",
			CollectionTag: "myentitychildren",
			Namespace:     Namespace,
			RootName:      "my-entity-children",
			Title:         "My Entity Children",
			Attributes: []resource.Attribute{
				{Name: "id", EntityAttr: "EntityID", Kind: resource.KIND_TERMINAL},
				{Name: "text", EntityAttr: "Text", Kind: resource.KIND_TERMINAL},
				{Name: "grandchildren", EntityAttr: "Grandchildren", Kind: resource.KIND_COLLECTION, Prototype: &MyEntityGrandchild{}},
			},
		},
		{
			Prototype:     &MyEntityGrandchild{},
			Relation:      RelMyEntityGrandchild,
			Tag:           "myentitygrandchild",
			CollectionTag: "myentitygrandchildren",
			Namespace:     Namespace,
			RootName:      "my-entity-grandchildren",
			Title:         "My Entity Grandchildren",
			Attributes: []resource.Attribute{
				{Name: "id", EntityAttr: "EntityID", Kind: resource.KIND_TERMINAL},
				{Name: "text", EntityAttr: "Text", Kind: resource.KIND_TERMINAL},
			},
		},
	}
}
