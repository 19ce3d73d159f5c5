package resource

import (
	"fmt"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
)

// Collection is a resource wrapping an aggregate of entities. Filter
// and order specifications set on a collection use resource attribute
// names; they are translated to entity attribute paths before being
// handed to the aggregate.
type Collection struct {
	rtype        *Type
	agg          entity.Aggregate
	name         string
	parentMember *Member
	filterSpec   querying.FilterSpecification
	orderSpec    querying.OrderSpecification
}

// NewCollection wraps an aggregate in a collection resource. The
// collection is named after the type's root collection name.
func (rt *Type) NewCollection(agg entity.Aggregate) *Collection {
	return &Collection{rtype: rt, agg: agg, name: rt.RootName}
}

func (c *Collection) Type() *Type {
	return c.rtype
}

func (c *Collection) Aggregate() entity.Aggregate {
	return c.agg
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Relation() string {
	return c.rtype.CollectionRelation()
}

func (c *Collection) Title() string {
	if c.rtype.Title != "" {
		return c.rtype.Title
	}
	return c.name
}

// Path returns the collection's location in the resource tree.
func (c *Collection) Path() string {
	if c.parentMember != nil {
		return c.parentMember.Path() + "/" + c.name
	}
	return "/" + c.name
}

// Len returns the number of members visible through the current filter.
func (c *Collection) Len() (int, error) {
	return c.agg.Count()
}

// Get returns the member with the given name (slug), or ErrNotFound.
func (c *Collection) Get(name string) (*Member, error) {
	ent, err := c.agg.GetBySlug(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path(), err)
	}
	return c.memberFor(ent)
}

// Members returns the filtered, ordered and sliced members.
func (c *Collection) Members() ([]*Member, error) {
	ents, err := c.agg.Iterator()
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, len(ents))
	for _, ent := range ents {
		m, err := c.memberFor(ent)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// Add adds the member's entity to the aggregate and adopts the member.
func (c *Collection) Add(m *Member) error {
	if m.rtype != c.rtype {
		return fmt.Errorf("%s: cannot add %s member: %w", c.Path(), m.rtype.Tag, ErrWrongEntity)
	}
	if err := c.agg.Add(m.Entity()); err != nil {
		return fmt.Errorf("%s: %w", c.Path(), err)
	}
	m.SetParent(c)
	return nil
}

// Remove removes the member's entity from the aggregate.
func (c *Collection) Remove(m *Member) error {
	if err := c.agg.Remove(m.Entity()); err != nil {
		return fmt.Errorf("%s: %w", c.Path(), err)
	}
	m.SetParent(nil)
	return nil
}

// CreateMember wraps the entity in a member and adds it.
func (c *Collection) CreateMember(ent entity.Entity) (*Member, error) {
	m, err := c.rtype.NewMember(ent)
	if err != nil {
		return nil, err
	}
	if err := c.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Collection) Filter() querying.FilterSpecification {
	return c.filterSpec
}

// SetFilter translates the resource level filter specification to
// entity attribute paths and applies it to the aggregate.
func (c *Collection) SetFilter(spec querying.FilterSpecification) error {
	if spec == nil {
		c.filterSpec = nil
		return c.agg.SetFilter(nil)
	}
	translated, err := c.rtype.TranslateFilter(spec)
	if err != nil {
		return err
	}
	if err := c.agg.SetFilter(translated); err != nil {
		return err
	}
	c.filterSpec = spec
	return nil
}

func (c *Collection) Order() querying.OrderSpecification {
	return c.orderSpec
}

// SetOrder translates the resource level order specification to entity
// attribute paths and applies it to the aggregate.
func (c *Collection) SetOrder(spec querying.OrderSpecification) error {
	if spec == nil {
		c.orderSpec = nil
		return c.agg.SetOrder(nil)
	}
	translated, err := c.rtype.TranslateOrder(spec)
	if err != nil {
		return err
	}
	if err := c.agg.SetOrder(translated); err != nil {
		return err
	}
	c.orderSpec = spec
	return nil
}

func (c *Collection) Slice() *entity.Slice {
	return c.agg.Slice()
}

// SetSlice bounds the window to the collection's maximum page size.
func (c *Collection) SetSlice(key *entity.Slice) error {
	if key != nil && key.Stop-key.Start > c.rtype.MaxLimit {
		key = &entity.Slice{Start: key.Start, Stop: key.Start + c.rtype.MaxLimit}
	}
	return c.agg.SetSlice(key)
}

// Clone returns a collection over a clone of the aggregate, carrying
// the same filter and order specifications.
func (c *Collection) Clone() *Collection {
	clone := *c
	clone.agg = c.agg.Clone()
	return &clone
}

// UpdateFrom reconciles this collection with update data. Members of
// the update data with a known ID update their counterpart, members
// without an ID are added, and members of this collection missing from
// the update data are removed. Update members carrying an unknown ID
// are rejected. Link stubs in the update data only assert membership.
func (c *Collection) UpdateFrom(update []*Member) error {
	selfMembers, err := c.Members()
	if err != nil {
		return err
	}
	byID := map[int]*Member{}
	for _, m := range selfMembers {
		byID[m.Entity().ID()] = m
	}

	keep := map[int]bool{}
	var added []*Member
	for _, um := range update {
		if um.rtype != c.rtype {
			return fmt.Errorf("%s: update with %s member: %w", c.Path(), um.rtype.Tag, ErrWrongEntity)
		}
		id := um.Entity().ID()
		if um.LinkOnly() {
			keep[id] = true
			continue
		}
		if id == 0 {
			added = append(added, um)
			continue
		}
		existing, found := byID[id]
		if !found {
			return fmt.Errorf("%s: update data with unknown id %d: %w", c.Path(), id, ErrUpdateConflict)
		}
		if err := existing.UpdateFrom(um); err != nil {
			return err
		}
		keep[id] = true
	}
	for id, m := range byID {
		if !keep[id] {
			if err := c.Remove(m); err != nil {
				return err
			}
		}
	}
	for _, m := range added {
		if err := c.Add(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) memberFor(ent entity.Entity) (*Member, error) {
	m, err := c.rtype.NewMember(ent)
	if err != nil {
		return nil, err
	}
	m.SetParent(c)
	return m, nil
}
