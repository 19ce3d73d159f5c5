package graph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
)

// Aggregate runs every operation in its own session on the background
// context; callers needing cancellation wrap the repository with their
// own timeout at the driver level.
type Aggregate struct {
	driver neo4j.DriverWithContext
	mapper Mapper

	filterSpec  querying.FilterSpecification
	orderSpec   querying.OrderSpecification
	sliceKey    *entity.Slice
	whereClause string
	whereParams map[string]any
	orderClause string
}

var _ entity.Aggregate = (*Aggregate)(nil)

func (agg *Aggregate) Count() (int, error) {
	query, params := agg.baseQuery("", nil)
	query += " RETURN count(n) AS total"
	records, err := agg.read(query, params)
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		return 0, fmt.Errorf("count returned %d records", len(records))
	}
	total, ok := records[0].Values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("count returned %T", records[0].Values[0])
	}
	return int(total), nil
}

func (agg *Aggregate) GetByID(id int) (entity.Entity, error) {
	ent, err := agg.getBy("id", id)
	if err != nil {
		return nil, fmt.Errorf("id %d: %w", id, err)
	}
	return ent, nil
}

func (agg *Aggregate) GetBySlug(slug string) (entity.Entity, error) {
	ent, err := agg.getBy("slug", slug)
	if err != nil {
		return nil, fmt.Errorf("slug %q: %w", slug, err)
	}
	return ent, nil
}

func (agg *Aggregate) Iterator() ([]entity.Entity, error) {
	query, params := agg.baseQuery("", nil)
	query += " RETURN n"
	if agg.orderClause != "" {
		query += " ORDER BY " + agg.orderClause
	}
	if agg.sliceKey != nil {
		query += sliceClause(agg.sliceKey)
	}
	records, err := agg.read(query, params)
	if err != nil {
		return nil, err
	}
	ents := make([]entity.Entity, 0, len(records))
	for _, record := range records {
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("expected node, got %T", record.Values[0])
		}
		ent, err := agg.mapper.FromProperties(node.Props)
		if err != nil {
			return nil, err
		}
		ents = append(ents, ent)
	}
	return ents, nil
}

func (agg *Aggregate) Add(ent entity.Entity) error {
	props, err := agg.mapper.ToProperties(ent)
	if err != nil {
		return err
	}
	query := "CREATE (n:`" + agg.mapper.Label() + "`) SET n = $props"
	_, err = agg.write(query, map[string]any{"props": props})
	return err
}

func (agg *Aggregate) Remove(ent entity.Entity) error {
	query := "MATCH (n:`" + agg.mapper.Label() + "` {id: $id}) DETACH DELETE n RETURN count(n) AS removed"
	records, err := agg.write(query, map[string]any{"id": ent.ID()})
	if err != nil {
		return err
	}
	if len(records) == 1 {
		if removed, ok := records[0].Values[0].(int64); ok && removed == 0 {
			return fmt.Errorf("id %d: %w", ent.ID(), entity.ErrNotFound)
		}
	}
	return nil
}

func (agg *Aggregate) Filter() querying.FilterSpecification {
	return agg.filterSpec
}

func (agg *Aggregate) SetFilter(spec querying.FilterSpecification) error {
	if spec == nil {
		agg.filterSpec = nil
		agg.whereClause = ""
		agg.whereParams = nil
		return nil
	}
	clause, params, err := CompileFilter(spec, agg.mapper.Property)
	if err != nil {
		return err
	}
	agg.filterSpec = spec
	agg.whereClause = clause
	agg.whereParams = params
	return nil
}

func (agg *Aggregate) Order() querying.OrderSpecification {
	return agg.orderSpec
}

func (agg *Aggregate) SetOrder(spec querying.OrderSpecification) error {
	if spec == nil {
		agg.orderSpec = nil
		agg.orderClause = ""
		return nil
	}
	clause, err := CompileOrder(spec, agg.mapper.Property)
	if err != nil {
		return err
	}
	agg.orderSpec = spec
	agg.orderClause = clause
	return nil
}

func (agg *Aggregate) Slice() *entity.Slice {
	return agg.sliceKey
}

func (agg *Aggregate) SetSlice(key *entity.Slice) error {
	agg.sliceKey = key
	return nil
}

// SetRelationship is not supported; nested collections are served from
// memory aggregates over the parent entity's child list.
func (agg *Aggregate) SetRelationship(*entity.Relationship) {
}

func (agg *Aggregate) Clone() entity.Aggregate {
	clone := *agg
	return &clone
}

func (agg *Aggregate) getBy(prop string, key any) (entity.Entity, error) {
	query, params := agg.baseQuery("n.`"+prop+"` = $lookup_key", map[string]any{"lookup_key": key})
	query += " RETURN n"
	records, err := agg.read(query, params)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, entity.ErrNotFound
	case 1:
	default:
		return nil, entity.ErrDuplicate
	}
	node, ok := records[0].Values[0].(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("expected node, got %T", records[0].Values[0])
	}
	return agg.mapper.FromProperties(node.Props)
}

// sliceClause renders the paging window. Inverted bounds clamp to an
// empty page; a negative LIMIT would be rejected by the server.
func sliceClause(key *entity.Slice) string {
	start, stop := key.Start, key.Stop
	if start < 0 {
		start = 0
	}
	if stop < start {
		stop = start
	}
	return " SKIP " + strconv.Itoa(start) + " LIMIT " + strconv.Itoa(stop-start)
}

// baseQuery builds the MATCH/WHERE prefix shared by all reads,
// combining an extra condition with the sticky filter clause.
func (agg *Aggregate) baseQuery(extra string, extraParams map[string]any) (string, map[string]any) {
	query := "MATCH (n:`" + agg.mapper.Label() + "`)"
	params := map[string]any{}
	for name, value := range agg.whereParams {
		params[name] = value
	}
	for name, value := range extraParams {
		params[name] = value
	}
	switch {
	case extra != "" && agg.whereClause != "":
		query += " WHERE " + extra + " AND (" + agg.whereClause + ")"
	case extra != "":
		query += " WHERE " + extra
	case agg.whereClause != "":
		query += " WHERE " + agg.whereClause
	}
	return query, params
}

func (agg *Aggregate) read(query string, params map[string]any) ([]*neo4j.Record, error) {
	ctx := context.Background()
	session := agg.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	out, err := session.ExecuteRead(ctx, collectRecords(ctx, query, params))
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

func (agg *Aggregate) write(query string, params map[string]any) ([]*neo4j.Record, error) {
	ctx := context.Background()
	session := agg.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	out, err := session.ExecuteWrite(ctx, collectRecords(ctx, query, params))
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

func collectRecords(ctx context.Context, query string, params map[string]any) neo4j.ManagedTransactionWork {
	return func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}
}
