package resource

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
)

// Member is a resource wrapping a single entity. Its name defaults to
// the entity's slug and identifies the member within its parent
// collection.
type Member struct {
	rtype    *Type
	ent      entity.Entity
	name     string
	parent   *Collection
	linkOnly bool

	collectionLinks map[string]*Link
}

// NewMember wraps an entity of this resource type.
func (rt *Type) NewMember(ent entity.Entity) (*Member, error) {
	if reflect.TypeOf(ent) != rt.entityType {
		return nil, fmt.Errorf("%s: got %T: %w", rt.Tag, ent, ErrWrongEntity)
	}
	return &Member{rtype: rt, ent: ent}, nil
}

// NewEntity allocates a zero entity of this resource type. Used by
// representers when reading documents.
func (rt *Type) NewEntity() (entity.Entity, error) {
	return newEntity(rt.entityType)
}

// LinkMember creates a member stub standing in for a linked resource.
// Only the name (slug) and, when the slug is numeric, the ID of the
// underlying entity are populated.
func (rt *Type) LinkMember(name string) (*Member, error) {
	ent, err := rt.NewEntity()
	if err != nil {
		return nil, err
	}
	m := &Member{rtype: rt, ent: ent, name: name, linkOnly: true}
	if id, ok := slugID(name); ok {
		if attr, err := rt.Attribute("id"); err == nil && attr.Kind == KIND_TERMINAL {
			_ = setEntityField(ent, attr.EntityAttr, id)
		}
	}
	return m, nil
}

func (m *Member) Type() *Type {
	return m.rtype
}

func (m *Member) Entity() entity.Entity {
	return m.ent
}

// LinkOnly reports whether this member is an unresolved link stub.
func (m *Member) LinkOnly() bool {
	return m.linkOnly
}

func (m *Member) Name() string {
	if m.name != "" {
		return m.name
	}
	return m.ent.Slug()
}

func (m *Member) SetName(name string) {
	m.name = name
}

func (m *Member) Parent() *Collection {
	return m.parent
}

func (m *Member) SetParent(parent *Collection) {
	m.parent = parent
}

func (m *Member) Relation() string {
	return m.rtype.Relation
}

// Path returns the member's location in the resource tree.
func (m *Member) Path() string {
	base := "/" + m.rtype.RootName
	if m.parent != nil {
		base = m.parent.Path()
	}
	return base + "/" + m.Name()
}

// URN returns the globally unique identifier of this member, a v5 UUID
// of the resource path in the URL namespace.
func (m *Member) URN() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(m.Path())).URN()
}

// SetCollectionLink records a link standing in for the named nested
// collection attribute, so writing the member reproduces the link
// instead of an empty inline collection.
func (m *Member) SetCollectionLink(attrName string, link *Link) {
	if m.collectionLinks == nil {
		m.collectionLinks = map[string]*Link{}
	}
	m.collectionLinks[attrName] = link
}

// CollectionLink returns the link recorded for a nested collection
// attribute, or nil.
func (m *Member) CollectionLink(attrName string) *Link {
	return m.collectionLinks[attrName]
}

// SelfLink returns the rel="self" link every member carries.
func (m *Member) SelfLink() Link {
	return Link{Rel: RelSelf, HRef: m.Path()}
}

// Equal reports member equality, which is based on resource type and
// name only.
func (m *Member) Equal(other *Member) bool {
	return other != nil && m.rtype == other.rtype && m.Name() == other.Name()
}

// Delete removes this member from its parent collection.
func (m *Member) Delete() error {
	if m.parent == nil {
		return fmt.Errorf("%s: member has no parent: %w", m.Name(), ErrWrongEntity)
	}
	return m.parent.Remove(m)
}

// Get resolves a resource attribute. Terminal attributes return the
// entity's value, member attributes a nested *Member (nil when unset)
// and collection attributes a nested *Collection backed by the parent
// entity's child list.
func (m *Member) Get(name string) (any, error) {
	attr, err := m.rtype.Attribute(name)
	if err != nil {
		return nil, err
	}
	switch attr.Kind {
	case KIND_TERMINAL:
		value, ok := querying.AttributeValue(m.ent, attr.EntityAttr)
		if !ok {
			return nil, nil
		}
		return value, nil
	case KIND_MEMBER:
		nested, err := nestedEntity(m.ent, attr.EntityAttr)
		if err != nil || nested == nil {
			return nil, err
		}
		nestedType, err := m.rtype.related(attr)
		if err != nil {
			return nil, err
		}
		nestedMember, err := nestedType.NewMember(nested)
		if err != nil {
			return nil, err
		}
		return nestedMember, nil
	case KIND_COLLECTION:
		return m.nestedCollection(attr)
	}
	return nil, fmt.Errorf("%s.%s: %w", m.rtype.Tag, name, ErrUnknownAttribute)
}

// SetTerminal writes a terminal attribute value through to the entity.
func (m *Member) SetTerminal(name string, value any) error {
	attr, err := m.rtype.Attribute(name)
	if err != nil {
		return err
	}
	if attr.Kind != KIND_TERMINAL {
		return fmt.Errorf("%s.%s: not a terminal attribute: %w", m.rtype.Tag, name, ErrUnknownAttribute)
	}
	return setEntityField(m.ent, attr.EntityAttr, value)
}

// SetMember points a member attribute at the given member's entity.
func (m *Member) SetMember(name string, value *Member) error {
	attr, err := m.rtype.Attribute(name)
	if err != nil {
		return err
	}
	if attr.Kind != KIND_MEMBER {
		return fmt.Errorf("%s.%s: not a member attribute: %w", m.rtype.Tag, name, ErrUnknownAttribute)
	}
	if value == nil {
		return setEntityField(m.ent, attr.EntityAttr, nil)
	}
	return setEntityField(m.ent, attr.EntityAttr, value.Entity())
}

// UpdateFrom applies the attribute values of the given member to this
// one. Unset nested members in the update data are skipped; nested
// collections are reconciled member by member.
func (m *Member) UpdateFrom(other *Member) error {
	if other == nil || other.rtype != m.rtype {
		return fmt.Errorf("%s: %w", m.rtype.Tag, ErrWrongEntity)
	}
	for _, attr := range m.rtype.Attributes {
		switch attr.Kind {
		case KIND_TERMINAL:
			value, ok := querying.AttributeValue(other.ent, attr.EntityAttr)
			if !ok {
				continue
			}
			if err := setEntityField(m.ent, attr.EntityAttr, value); err != nil {
				return err
			}
		case KIND_MEMBER:
			otherNested, err := nestedEntity(other.ent, attr.EntityAttr)
			if err != nil {
				return err
			}
			if otherNested == nil {
				continue
			}
			selfNested, err := nestedEntity(m.ent, attr.EntityAttr)
			if err != nil {
				return err
			}
			if selfNested == nil {
				if err := setEntityField(m.ent, attr.EntityAttr, otherNested); err != nil {
					return err
				}
				continue
			}
			nestedType, err := m.rtype.related(attr)
			if err != nil {
				return err
			}
			selfMember, err := nestedType.NewMember(selfNested)
			if err != nil {
				return err
			}
			otherMember, err := nestedType.NewMember(otherNested)
			if err != nil {
				return err
			}
			if err := selfMember.UpdateFrom(otherMember); err != nil {
				return err
			}
		case KIND_COLLECTION:
			selfCol, err := m.nestedCollection(attr)
			if err != nil {
				return err
			}
			otherCol, err := other.nestedCollection(attr)
			if err != nil {
				return err
			}
			otherMembers, err := otherCol.Members()
			if err != nil {
				return err
			}
			if err := selfCol.UpdateFrom(otherMembers); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Member) nestedCollection(attr Attribute) (*Collection, error) {
	nestedType, err := m.rtype.related(attr)
	if err != nil {
		return nil, err
	}
	rel, err := childRelationship(m.ent, attr.EntityAttr)
	if err != nil {
		return nil, err
	}
	agg := entity.NewMemoryAggregate(attr.Prototype)
	agg.SetRelationship(rel)
	col := nestedType.NewCollection(agg)
	col.name = attr.Name
	col.parentMember = m
	return col, nil
}

func slugID(slug string) (int, bool) {
	id := 0
	if slug == "" {
		return 0, false
	}
	for _, ch := range slug {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		id = id*10 + int(ch-'0')
	}
	return id, true
}
