package resource

import (
	"fmt"
	"strings"

	"github.com/everest-org/everest/querying"
)

// Specifications set on collections name resource attributes; the
// aggregate layer works on entity attribute paths. The translating
// visitors below rebuild a specification tree with converted names,
// following nested member and collection attributes across resource
// types ("parent.text" becomes "Parent.Text").

// TranslateFilter converts a resource level filter specification into
// an entity level one.
func (rt *Type) TranslateFilter(spec querying.FilterSpecification) (querying.FilterSpecification, error) {
	v := &translateVisitor{rtype: rt}
	if err := spec.Accept(v); err != nil {
		return nil, err
	}
	if len(v.filters) != 1 {
		return nil, fmt.Errorf("%s: unbalanced specification: %w", rt.Tag, querying.ErrBadSpecification)
	}
	return v.filters[0], nil
}

// TranslateOrder converts a resource level order specification into an
// entity level one.
func (rt *Type) TranslateOrder(spec querying.OrderSpecification) (querying.OrderSpecification, error) {
	v := &translateVisitor{rtype: rt}
	if err := spec.Accept(v); err != nil {
		return nil, err
	}
	if len(v.orders) != 1 {
		return nil, fmt.Errorf("%s: unbalanced specification: %w", rt.Tag, querying.ErrBadSpecification)
	}
	return v.orders[0], nil
}

type translateVisitor struct {
	rtype   *Type
	filters []querying.FilterSpecification
	orders  []querying.OrderSpecification
}

var _ querying.FilterVisitor = (*translateVisitor)(nil)
var _ querying.OrderVisitor = (*translateVisitor)(nil)

func (v *translateVisitor) VisitValue(spec *querying.ValueFilter) error {
	attr, err := v.translate(spec.Attribute)
	if err != nil {
		return err
	}
	v.filters = append(v.filters, &querying.ValueFilter{
		Attribute: attr,
		Operator:  spec.Operator,
		Value:     spec.Value,
	})
	return nil
}

func (v *translateVisitor) VisitConjunction(*querying.Conjunction) error {
	right := v.popFilter()
	left := v.popFilter()
	v.filters = append(v.filters, &querying.Conjunction{Left: left, Right: right})
	return nil
}

func (v *translateVisitor) VisitDisjunction(*querying.Disjunction) error {
	right := v.popFilter()
	left := v.popFilter()
	v.filters = append(v.filters, &querying.Disjunction{Left: left, Right: right})
	return nil
}

func (v *translateVisitor) VisitNegation(*querying.Negation) error {
	wrapped := v.popFilter()
	v.filters = append(v.filters, &querying.Negation{Wrapped: wrapped})
	return nil
}

func (v *translateVisitor) VisitAscending(spec *querying.Ascending) error {
	attr, err := v.translate(spec.Attribute)
	if err != nil {
		return err
	}
	v.orders = append(v.orders, querying.Asc(attr))
	return nil
}

func (v *translateVisitor) VisitDescending(spec *querying.Descending) error {
	attr, err := v.translate(spec.Attribute)
	if err != nil {
		return err
	}
	v.orders = append(v.orders, querying.Desc(attr))
	return nil
}

func (v *translateVisitor) VisitOrderConjunction(*querying.OrderConjunction) error {
	right := v.popOrder()
	left := v.popOrder()
	v.orders = append(v.orders, &querying.OrderConjunction{Left: left, Right: right})
	return nil
}

func (v *translateVisitor) popFilter() querying.FilterSpecification {
	last := v.filters[len(v.filters)-1]
	v.filters = v.filters[:len(v.filters)-1]
	return last
}

func (v *translateVisitor) popOrder() querying.OrderSpecification {
	last := v.orders[len(v.orders)-1]
	v.orders = v.orders[:len(v.orders)-1]
	return last
}

func (v *translateVisitor) translate(resourcePath string) (string, error) {
	rtype := v.rtype
	var tokens []string
	for _, token := range strings.Split(resourcePath, ".") {
		attr, err := rtype.Attribute(token)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, attr.EntityAttr)
		if attr.Kind != KIND_TERMINAL {
			rtype, err = rtype.related(attr)
			if err != nil {
				return "", err
			}
		}
	}
	return strings.Join(tokens, "."), nil
}
