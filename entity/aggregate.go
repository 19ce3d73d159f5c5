package entity

import "github.com/everest-org/everest/querying"

// Slice selects a half-open window [Start, Stop) of an aggregate's
// filtered and ordered entities.
type Slice struct {
	Start int
	Stop  int
}

// Aggregate is the root access point to a set of entities of one type.
// Filter, order and slice state is sticky: once set it applies to all
// subsequent reads until changed. Implementations are not safe for
// concurrent use; callers clone per unit of work.
type Aggregate interface {
	// Count returns the number of entities visible through the current
	// filter specification.
	Count() (int, error)
	// GetByID returns the entity with the given ID, honoring the
	// current filter. Returns ErrNotFound when no entity matches and
	// ErrDuplicate when more than one does.
	GetByID(id int) (Entity, error)
	// GetBySlug is GetByID keyed by slug.
	GetBySlug(slug string) (Entity, error)
	// Iterator returns the filtered, ordered and sliced entities.
	Iterator() ([]Entity, error)
	Add(Entity) error
	Remove(Entity) error

	Filter() querying.FilterSpecification
	SetFilter(querying.FilterSpecification) error
	Order() querying.OrderSpecification
	SetOrder(querying.OrderSpecification) error
	Slice() *Slice
	SetSlice(*Slice) error

	// SetRelationship scopes the aggregate to the children of a parent
	// entity.
	SetRelationship(*Relationship)
	// Clone returns an aggregate over the same entities with its own
	// filter, order and slice state.
	Clone() Aggregate
}
