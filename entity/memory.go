package entity

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/everest-org/everest/querying"
)

// MemoryAggregate is the in-memory aggregate implementation. Filtering
// and ordering evaluate compiled specifications against every entity,
// so large aggregates are better served by a repository backed
// implementation.
type MemoryAggregate struct {
	store        *memoryStore
	relationship *Relationship
	filterSpec   querying.FilterSpecification
	orderSpec    querying.OrderSpecification
	sliceKey     *Slice

	filterPred querying.Predicate
	orderLess  querying.Less
}

// memoryStore holds the entity list an aggregate and all its clones
// operate on. Filter, order and slice state stays private to each
// clone; adds and removes go through the shared store.
type memoryStore struct {
	entityType reflect.Type
	entities   []Entity
}

var _ Aggregate = (*MemoryAggregate)(nil)

// NewMemoryAggregate creates an empty aggregate accepting entities of
// the prototype's dynamic type.
func NewMemoryAggregate(prototype Entity) *MemoryAggregate {
	return &MemoryAggregate{store: &memoryStore{entityType: reflect.TypeOf(prototype)}}
}

func (agg *MemoryAggregate) Count() (int, error) {
	ents, err := agg.filtered()
	if err != nil {
		return 0, err
	}
	return len(ents), nil
}

func (agg *MemoryAggregate) GetByID(id int) (Entity, error) {
	ent, err := agg.getBy(func(e Entity) bool { return e.ID() == id })
	if err != nil {
		return nil, fmt.Errorf("id %d: %w", id, err)
	}
	return ent, nil
}

func (agg *MemoryAggregate) GetBySlug(slug string) (Entity, error) {
	ent, err := agg.getBy(func(e Entity) bool { return e.Slug() == slug })
	if err != nil {
		return nil, fmt.Errorf("slug %q: %w", slug, err)
	}
	return ent, nil
}

func (agg *MemoryAggregate) Iterator() ([]Entity, error) {
	ents, err := agg.filtered()
	if err != nil {
		return nil, err
	}
	if agg.orderLess != nil {
		less := agg.orderLess
		sort.SliceStable(ents, func(i, j int) bool { return less(ents[i], ents[j]) })
	}
	if agg.sliceKey != nil {
		start, stop := agg.sliceKey.Start, agg.sliceKey.Stop
		if start < 0 {
			start = 0
		}
		if stop > len(ents) {
			stop = len(ents)
		}
		if start >= stop {
			return nil, nil
		}
		ents = ents[start:stop]
	}
	return ents, nil
}

func (agg *MemoryAggregate) Add(ent Entity) error {
	if reflect.TypeOf(ent) != agg.store.entityType {
		return fmt.Errorf("expected %s got %T: %w", agg.store.entityType, ent, ErrInvalidEntity)
	}
	if ent.ID() != 0 {
		if ent.Slug() == "" {
			return fmt.Errorf("id %d has no slug: %w", ent.ID(), ErrInvalidEntity)
		}
		for _, existing := range agg.all() {
			if existing.ID() == ent.ID() || existing.Slug() == ent.Slug() {
				return fmt.Errorf("id %d slug %q: %w", ent.ID(), ent.Slug(), ErrDuplicate)
			}
		}
	}
	if agg.relationship != nil {
		agg.relationship.Append(ent)
		return nil
	}
	agg.store.entities = append(agg.store.entities, ent)
	return nil
}

func (agg *MemoryAggregate) Remove(ent Entity) error {
	if agg.relationship != nil {
		agg.relationship.Remove(ent)
		return nil
	}
	for i, existing := range agg.store.entities {
		if existing == ent {
			agg.store.entities = append(agg.store.entities[:i], agg.store.entities[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("id %d: %w", ent.ID(), ErrNotFound)
}

func (agg *MemoryAggregate) Filter() querying.FilterSpecification {
	return agg.filterSpec
}

func (agg *MemoryAggregate) SetFilter(spec querying.FilterSpecification) error {
	if spec == nil {
		agg.filterSpec = nil
		agg.filterPred = nil
		return nil
	}
	pred, err := querying.CompileFilter(spec)
	if err != nil {
		return err
	}
	agg.filterSpec = spec
	agg.filterPred = pred
	return nil
}

func (agg *MemoryAggregate) Order() querying.OrderSpecification {
	return agg.orderSpec
}

func (agg *MemoryAggregate) SetOrder(spec querying.OrderSpecification) error {
	if spec == nil {
		agg.orderSpec = nil
		agg.orderLess = nil
		return nil
	}
	less, err := querying.CompileOrder(spec)
	if err != nil {
		return err
	}
	agg.orderSpec = spec
	agg.orderLess = less
	return nil
}

func (agg *MemoryAggregate) Slice() *Slice {
	return agg.sliceKey
}

func (agg *MemoryAggregate) SetSlice(key *Slice) error {
	agg.sliceKey = key
	return nil
}

func (agg *MemoryAggregate) SetRelationship(rel *Relationship) {
	agg.relationship = rel
}

// Clone returns an aggregate over the same store with its own filter,
// order and slice state.
func (agg *MemoryAggregate) Clone() Aggregate {
	clone := *agg
	return &clone
}

func (agg *MemoryAggregate) all() []Entity {
	if agg.relationship != nil {
		return agg.relationship.Children()
	}
	return agg.store.entities
}

func (agg *MemoryAggregate) getBy(match func(Entity) bool) (Entity, error) {
	ents, err := agg.filtered()
	if err != nil {
		return nil, err
	}
	var found Entity
	for _, ent := range ents {
		if !match(ent) {
			continue
		}
		if found != nil {
			return nil, ErrDuplicate
		}
		found = ent
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (agg *MemoryAggregate) filtered() ([]Entity, error) {
	all := agg.all()
	out := make([]Entity, 0, len(all))
	for _, ent := range all {
		if agg.filterPred != nil && !agg.filterPred(ent) {
			continue
		}
		out = append(out, ent)
	}
	return out, nil
}
