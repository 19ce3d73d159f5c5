package graph

import (
	"fmt"
	"reflect"

	"github.com/everest-org/everest/querying"
)

// The Cypher visitors compile entity level specifications into WHERE
// and ORDER BY fragments over the node variable "n".

// CompileFilter renders a filter specification as a Cypher boolean
// expression with its parameter map.
func CompileFilter(spec querying.FilterSpecification, property func(string) (string, bool)) (string, map[string]any, error) {
	v := &cypherFilterVisitor{property: property, params: map[string]any{}}
	if err := spec.Accept(v); err != nil {
		return "", nil, err
	}
	if len(v.exprs) != 1 {
		return "", nil, fmt.Errorf("unbalanced expression stack: %w", querying.ErrBadSpecification)
	}
	return v.exprs[0], v.params, nil
}

// CompileOrder renders an order specification as a Cypher ORDER BY
// item list.
func CompileOrder(spec querying.OrderSpecification, property func(string) (string, bool)) (string, error) {
	v := &cypherOrderVisitor{property: property}
	if err := spec.Accept(v); err != nil {
		return "", err
	}
	if len(v.items) != 1 {
		return "", fmt.Errorf("unbalanced expression stack: %w", querying.ErrBadSpecification)
	}
	return v.items[0], nil
}

type cypherFilterVisitor struct {
	property func(string) (string, bool)
	exprs    []string
	params   map[string]any
	n        int
}

var _ querying.FilterVisitor = (*cypherFilterVisitor)(nil)

func (v *cypherFilterVisitor) push(expr string) {
	v.exprs = append(v.exprs, expr)
}

func (v *cypherFilterVisitor) pop() string {
	last := v.exprs[len(v.exprs)-1]
	v.exprs = v.exprs[:len(v.exprs)-1]
	return last
}

func (v *cypherFilterVisitor) param(value any) string {
	name := fmt.Sprintf("p%d", v.n)
	v.n++
	v.params[name] = value
	return "$" + name
}

func (v *cypherFilterVisitor) VisitValue(spec *querying.ValueFilter) error {
	prop, found := v.property(spec.Attribute)
	if !found {
		return fmt.Errorf("%s: %w", spec.Attribute, ErrUnmappedAttribute)
	}
	field := "n.`" + prop + "`"
	switch spec.Operator {
	case querying.OpEqualTo:
		v.push(field + " = " + v.param(spec.Value))
	case querying.OpStartsWith:
		v.push(field + " STARTS WITH " + v.param(spec.Value))
	case querying.OpEndsWith:
		v.push(field + " ENDS WITH " + v.param(spec.Value))
	case querying.OpContains:
		v.push(field + " CONTAINS " + v.param(spec.Value))
	case querying.OpContained:
		v.push(field + " IN " + v.param(toList(spec.Value)))
	case querying.OpGreaterThan:
		v.push(field + " > " + v.param(spec.Value))
	case querying.OpGreaterThanOrEqualTo:
		v.push(field + " >= " + v.param(spec.Value))
	case querying.OpLessThan:
		v.push(field + " < " + v.param(spec.Value))
	case querying.OpLessThanOrEqualTo:
		v.push(field + " <= " + v.param(spec.Value))
	case querying.OpInRange:
		rng, ok := spec.Value.(querying.Range)
		if !ok {
			return fmt.Errorf("%s: in-range needs a Range value: %w", spec.Attribute, querying.ErrBadSpecification)
		}
		v.push("(" + v.param(rng.From) + " <= " + field + " AND " + field + " <= " + v.param(rng.To) + ")")
	default:
		return fmt.Errorf("%s: unknown operator %q: %w", spec.Attribute, spec.Operator, querying.ErrBadSpecification)
	}
	return nil
}

func (v *cypherFilterVisitor) VisitConjunction(*querying.Conjunction) error {
	right := v.pop()
	left := v.pop()
	v.push("(" + left + " AND " + right + ")")
	return nil
}

func (v *cypherFilterVisitor) VisitDisjunction(*querying.Disjunction) error {
	right := v.pop()
	left := v.pop()
	v.push("(" + left + " OR " + right + ")")
	return nil
}

func (v *cypherFilterVisitor) VisitNegation(*querying.Negation) error {
	wrapped := v.pop()
	v.push("(NOT " + wrapped + ")")
	return nil
}

type cypherOrderVisitor struct {
	property func(string) (string, bool)
	items    []string
}

var _ querying.OrderVisitor = (*cypherOrderVisitor)(nil)

func (v *cypherOrderVisitor) VisitAscending(spec *querying.Ascending) error {
	prop, found := v.property(spec.Attribute)
	if !found {
		return fmt.Errorf("%s: %w", spec.Attribute, ErrUnmappedAttribute)
	}
	v.items = append(v.items, "n.`"+prop+"`")
	return nil
}

func (v *cypherOrderVisitor) VisitDescending(spec *querying.Descending) error {
	prop, found := v.property(spec.Attribute)
	if !found {
		return fmt.Errorf("%s: %w", spec.Attribute, ErrUnmappedAttribute)
	}
	v.items = append(v.items, "n.`"+prop+"` DESC")
	return nil
}

func (v *cypherOrderVisitor) VisitOrderConjunction(*querying.OrderConjunction) error {
	right := v.items[len(v.items)-1]
	left := v.items[len(v.items)-2]
	v.items = v.items[:len(v.items)-2]
	v.items = append(v.items, left+", "+right)
	return nil
}

func toList(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	items := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items = append(items, rv.Index(i).Interface())
	}
	return items
}
