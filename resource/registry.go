package resource

import (
	"fmt"
	"reflect"

	"github.com/everest-org/everest/entity"
)

// Kind classifies a resource attribute.
type Kind int

const (
	KIND_INVALID    Kind = iota
	KIND_TERMINAL   Kind = iota
	KIND_MEMBER     Kind = iota
	KIND_COLLECTION Kind = iota
)

// Attribute describes one attribute of a member resource. Name is the
// attribute's name on the resource, EntityAttr the Go field (path) on
// the underlying entity struct. Member and collection attributes carry
// a prototype of the referenced entity type; its registered resource
// type supplies the document tags and the relation URI.
type Attribute struct {
	Name       string
	EntityAttr string
	Kind       Kind
	Prototype  entity.Entity
}

// Declaration registers a member resource type for an entity type.
type Declaration struct {
	// Prototype is a (typically zero valued) instance of the entity
	// type this resource exposes.
	Prototype entity.Entity
	// Relation is the fixed relation URI used in links to members.
	Relation string
	// Tag and CollectionTag are the document element names of a member
	// and of a collection of members.
	Tag           string
	CollectionTag string
	// Namespace is the document namespace of the elements.
	Namespace string
	// RootName names the root collection; empty for types only reached
	// through other resources.
	RootName    string
	Title       string
	Description string
	Attributes  []Attribute
	// Repository optionally names the repository backing the root
	// collection. Empty selects the default repository.
	Repository string
	// Paging defaults for collections; zero values select 100/1000.
	DefaultLimit int
	MaxLimit     int
}

// Type is a compiled resource declaration.
type Type struct {
	Declaration

	entityType reflect.Type
	registry   *Registry
}

// Registry holds the compiled resource types of a service, keyed by
// entity type, root collection name and document tag.
type Registry struct {
	byEntity        map[reflect.Type]*Type
	byRoot          map[string]*Type
	byTag           map[string]*Type
	byCollectionTag map[string]*Type
}

func NewRegistry() *Registry {
	return &Registry{
		byEntity:        map[reflect.Type]*Type{},
		byRoot:          map[string]*Type{},
		byTag:           map[string]*Type{},
		byCollectionTag: map[string]*Type{},
	}
}

// Register compiles and stores a declaration. Declarations must be
// internally consistent; references to other resource types (member and
// collection attribute prototypes) are resolved lazily so registration
// order does not matter.
func (r *Registry) Register(decl Declaration) (*Type, error) {
	if decl.Prototype == nil {
		return nil, fmt.Errorf("missing prototype: %w", ErrInvalidDeclaration)
	}
	if decl.Relation == "" {
		return nil, fmt.Errorf("%s: missing relation: %w", decl.Tag, ErrInvalidDeclaration)
	}
	if decl.Tag == "" {
		return nil, fmt.Errorf("relation %s: missing tag: %w", decl.Relation, ErrInvalidDeclaration)
	}
	if decl.DefaultLimit == 0 {
		decl.DefaultLimit = 100
	}
	if decl.MaxLimit == 0 {
		decl.MaxLimit = 1000
	}
	for _, attr := range decl.Attributes {
		switch attr.Kind {
		case KIND_TERMINAL:
			if attr.Prototype != nil {
				return nil, fmt.Errorf("%s.%s: terminal attribute with prototype: %w", decl.Tag, attr.Name, ErrInvalidDeclaration)
			}
		case KIND_MEMBER, KIND_COLLECTION:
			if attr.Prototype == nil {
				return nil, fmt.Errorf("%s.%s: nested attribute without prototype: %w", decl.Tag, attr.Name, ErrInvalidDeclaration)
			}
		default:
			return nil, fmt.Errorf("%s.%s: unknown attribute kind: %w", decl.Tag, attr.Name, ErrInvalidDeclaration)
		}
		if attr.EntityAttr == "" {
			return nil, fmt.Errorf("%s.%s: missing entity attribute: %w", decl.Tag, attr.Name, ErrInvalidDeclaration)
		}
	}

	etype := reflect.TypeOf(decl.Prototype)
	if _, found := r.byEntity[etype]; found {
		return nil, fmt.Errorf("%s: entity type already registered: %w", etype, ErrInvalidDeclaration)
	}
	if _, found := r.byTag[decl.Tag]; found {
		return nil, fmt.Errorf("%s: tag already registered: %w", decl.Tag, ErrInvalidDeclaration)
	}
	if decl.RootName != "" {
		if _, found := r.byRoot[decl.RootName]; found {
			return nil, fmt.Errorf("%s: root name already registered: %w", decl.RootName, ErrInvalidDeclaration)
		}
	}

	rt := &Type{Declaration: decl, entityType: etype, registry: r}
	r.byEntity[etype] = rt
	r.byTag[decl.Tag] = rt
	if decl.CollectionTag != "" {
		r.byCollectionTag[decl.CollectionTag] = rt
	}
	if decl.RootName != "" {
		r.byRoot[decl.RootName] = rt
	}
	return rt, nil
}

// TypeFor returns the resource type registered for the entity's type.
func (r *Registry) TypeFor(ent entity.Entity) (*Type, error) {
	rt, found := r.byEntity[reflect.TypeOf(ent)]
	if !found {
		return nil, fmt.Errorf("%T: %w", ent, ErrNotRegistered)
	}
	return rt, nil
}

// TypeByRoot returns the resource type owning the named root collection.
func (r *Registry) TypeByRoot(name string) (*Type, error) {
	rt, found := r.byRoot[name]
	if !found {
		return nil, fmt.Errorf("root %q: %w", name, ErrNotRegistered)
	}
	return rt, nil
}

// TypeByTag returns the resource type with the given document tag.
func (r *Registry) TypeByTag(tag string) (*Type, error) {
	rt, found := r.byTag[tag]
	if !found {
		return nil, fmt.Errorf("tag %q: %w", tag, ErrNotRegistered)
	}
	return rt, nil
}

// TypeByCollectionTag returns the resource type whose collections use
// the given document tag.
func (r *Registry) TypeByCollectionTag(tag string) (*Type, error) {
	rt, found := r.byCollectionTag[tag]
	if !found {
		return nil, fmt.Errorf("collection tag %q: %w", tag, ErrNotRegistered)
	}
	return rt, nil
}

// Types returns all registered resource types.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, len(r.byEntity))
	for _, rt := range r.byEntity {
		out = append(out, rt)
	}
	return out
}

// CollectionRelation returns the relation URI of this type's collection
// resources.
func (rt *Type) CollectionRelation() string {
	return CollectionRelation(rt.Relation)
}

// EntityType returns the Go type of the entities behind this resource.
func (rt *Type) EntityType() reflect.Type {
	return rt.entityType
}

// Registry returns the registry this type belongs to.
func (rt *Type) Registry() *Registry {
	return rt.registry
}

// Attribute looks up an attribute by resource name.
func (rt *Type) Attribute(name string) (Attribute, error) {
	for _, attr := range rt.Attributes {
		if attr.Name == name {
			return attr, nil
		}
	}
	return Attribute{}, fmt.Errorf("%s.%s: %w", rt.Tag, name, ErrUnknownAttribute)
}

// related resolves the resource type a nested attribute points at.
func (rt *Type) related(attr Attribute) (*Type, error) {
	nested, err := rt.registry.TypeFor(attr.Prototype)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", rt.Tag, attr.Name, err)
	}
	return nested, nil
}
