package entity

// Entity is implemented by all domain objects managed by an aggregate.
// The ID is unique within the entity's aggregate; the slug is a URL
// safe name, also unique within the aggregate.
type Entity interface {
	ID() int
	Slug() string
}

// Relationship scopes an aggregate to the children of a parent entity.
// When an aggregate carries a relationship, all reads and writes go
// through the parent's child list instead of the aggregate's own
// backing store.
type Relationship struct {
	Parent   Entity
	Children func() []Entity
	Append   func(Entity)
	Remove   func(Entity)
}
