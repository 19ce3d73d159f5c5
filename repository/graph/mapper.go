package graph

import (
	"errors"
	"fmt"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/resource"
)

var ErrNoMapper = errors.New("no mapper registered for entity type")
var ErrUnmappedAttribute = errors.New("attribute has no node property")

// Mapper translates between entities and node property maps. Property
// maps must carry "id" and "slug" so aggregates can look entities up.
type Mapper interface {
	Label() string
	ToProperties(entity.Entity) (map[string]any, error)
	FromProperties(map[string]any) (entity.Entity, error)
	// Property maps an entity attribute path to its node property.
	Property(entityAttr string) (string, bool)
}

// TypeMapper derives a node mapping from a resource declaration: the
// node label is the resource tag and every terminal attribute becomes
// a property under its resource name. Nested member and collection
// attributes are not persisted by this mapper.
type TypeMapper struct {
	rtype  *resource.Type
	byAttr map[string]string
}

var _ Mapper = (*TypeMapper)(nil)

func NewTypeMapper(rt *resource.Type) *TypeMapper {
	byAttr := map[string]string{}
	for _, attr := range rt.Attributes {
		if attr.Kind == resource.KIND_TERMINAL {
			byAttr[attr.EntityAttr] = attr.Name
		}
	}
	return &TypeMapper{rtype: rt, byAttr: byAttr}
}

func (m *TypeMapper) Label() string {
	return m.rtype.Tag
}

func (m *TypeMapper) ToProperties(ent entity.Entity) (map[string]any, error) {
	props := map[string]any{"slug": ent.Slug()}
	for _, attr := range m.rtype.Attributes {
		if attr.Kind != resource.KIND_TERMINAL {
			continue
		}
		value, ok := querying.AttributeValue(ent, attr.EntityAttr)
		if !ok {
			continue
		}
		props[attr.Name] = value
	}
	return props, nil
}

func (m *TypeMapper) FromProperties(props map[string]any) (entity.Entity, error) {
	ent, err := m.rtype.NewEntity()
	if err != nil {
		return nil, err
	}
	member, err := m.rtype.NewMember(ent)
	if err != nil {
		return nil, err
	}
	for _, attr := range m.rtype.Attributes {
		if attr.Kind != resource.KIND_TERMINAL {
			continue
		}
		value, found := props[attr.Name]
		if !found || value == nil {
			continue
		}
		if err := member.SetTerminal(attr.Name, value); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.rtype.Tag, attr.Name, err)
		}
	}
	return ent, nil
}

func (m *TypeMapper) Property(entityAttr string) (string, bool) {
	prop, found := m.byAttr[entityAttr]
	return prop, found
}
