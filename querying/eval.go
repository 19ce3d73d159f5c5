package querying

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var ErrIncomparable = errors.New("values are not comparable")
var ErrBadSpecification = errors.New("malformed specification")

// Predicate is a compiled filter expression.
type Predicate func(obj any) bool

// Less is a compiled order expression reporting whether a sorts before b.
type Less func(a, b any) bool

// Evaluate compiles the specification and applies it to obj.
func Evaluate(spec FilterSpecification, obj any) (bool, error) {
	pred, err := CompileFilter(spec)
	if err != nil {
		return false, err
	}
	return pred(obj), nil
}

// CompileFilter builds a predicate over entities for the given filter
// specification. Attribute paths are resolved with reflection; an
// attribute that cannot be resolved on an object never matches.
func CompileFilter(spec FilterSpecification) (Predicate, error) {
	v := &evalFilterVisitor{}
	if err := spec.Accept(v); err != nil {
		return nil, err
	}
	if len(v.stack) != 1 {
		return nil, fmt.Errorf("unbalanced expression stack: %w", ErrBadSpecification)
	}
	return v.stack[0], nil
}

// CompileOrder builds a comparator for the given order specification.
func CompileOrder(spec OrderSpecification) (Less, error) {
	v := &evalOrderVisitor{}
	if err := spec.Accept(v); err != nil {
		return nil, err
	}
	if len(v.stack) != 1 {
		return nil, fmt.Errorf("unbalanced expression stack: %w", ErrBadSpecification)
	}
	return v.stack[0], nil
}

type evalFilterVisitor struct {
	stack []Predicate
}

func (v *evalFilterVisitor) push(p Predicate) {
	v.stack = append(v.stack, p)
}

func (v *evalFilterVisitor) pop() Predicate {
	last := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return last
}

func (v *evalFilterVisitor) VisitValue(spec *ValueFilter) error {
	pred, err := valuePredicate(spec)
	if err != nil {
		return err
	}
	v.push(pred)
	return nil
}

func (v *evalFilterVisitor) VisitConjunction(*Conjunction) error {
	right := v.pop()
	left := v.pop()
	v.push(func(obj any) bool { return left(obj) && right(obj) })
	return nil
}

func (v *evalFilterVisitor) VisitDisjunction(*Disjunction) error {
	right := v.pop()
	left := v.pop()
	v.push(func(obj any) bool { return left(obj) || right(obj) })
	return nil
}

func (v *evalFilterVisitor) VisitNegation(*Negation) error {
	wrapped := v.pop()
	v.push(func(obj any) bool { return !wrapped(obj) })
	return nil
}

func valuePredicate(spec *ValueFilter) (Predicate, error) {
	attr := spec.Attribute
	switch spec.Operator {
	case OpEqualTo:
		return attrPredicate(attr, func(value any) bool {
			cmp, err := compareValues(value, spec.Value)
			return err == nil && cmp == 0
		}), nil
	case OpStartsWith:
		needle, ok := spec.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s: starts-with needs a string value: %w", attr, ErrBadSpecification)
		}
		return attrPredicate(attr, func(value any) bool {
			s, ok := value.(string)
			return ok && strings.HasPrefix(s, needle)
		}), nil
	case OpEndsWith:
		needle, ok := spec.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%s: ends-with needs a string value: %w", attr, ErrBadSpecification)
		}
		return attrPredicate(attr, func(value any) bool {
			s, ok := value.(string)
			return ok && strings.HasSuffix(s, needle)
		}), nil
	case OpContains:
		return attrPredicate(attr, func(value any) bool {
			return containsValue(value, spec.Value)
		}), nil
	case OpContained:
		candidates, err := asSlice(spec.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		return attrPredicate(attr, func(value any) bool {
			for _, candidate := range candidates {
				if cmp, err := compareValues(value, candidate); err == nil && cmp == 0 {
					return true
				}
			}
			return false
		}), nil
	case OpGreaterThan:
		return comparisonPredicate(attr, spec.Value, func(cmp int) bool { return cmp > 0 }), nil
	case OpGreaterThanOrEqualTo:
		return comparisonPredicate(attr, spec.Value, func(cmp int) bool { return cmp >= 0 }), nil
	case OpLessThan:
		return comparisonPredicate(attr, spec.Value, func(cmp int) bool { return cmp < 0 }), nil
	case OpLessThanOrEqualTo:
		return comparisonPredicate(attr, spec.Value, func(cmp int) bool { return cmp <= 0 }), nil
	case OpInRange:
		rng, ok := spec.Value.(Range)
		if !ok {
			return nil, fmt.Errorf("%s: in-range needs a Range value: %w", attr, ErrBadSpecification)
		}
		return attrPredicate(attr, func(value any) bool {
			low, err := compareValues(value, rng.From)
			if err != nil || low < 0 {
				return false
			}
			high, err := compareValues(value, rng.To)
			return err == nil && high <= 0
		}), nil
	}
	return nil, fmt.Errorf("%s: unknown operator %q: %w", attr, spec.Operator, ErrBadSpecification)
}

func attrPredicate(attr string, test func(value any) bool) Predicate {
	return func(obj any) bool {
		value, ok := AttributeValue(obj, attr)
		if !ok {
			return false
		}
		return test(value)
	}
}

func comparisonPredicate(attr string, against any, accept func(cmp int) bool) Predicate {
	return attrPredicate(attr, func(value any) bool {
		cmp, err := compareValues(value, against)
		return err == nil && accept(cmp)
	})
}

type evalOrderVisitor struct {
	stack []Less
}

func (v *evalOrderVisitor) push(l Less) {
	v.stack = append(v.stack, l)
}

func (v *evalOrderVisitor) pop() Less {
	last := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return last
}

func (v *evalOrderVisitor) VisitAscending(spec *Ascending) error {
	v.push(orderLess(spec.Attribute, false))
	return nil
}

func (v *evalOrderVisitor) VisitDescending(spec *Descending) error {
	v.push(orderLess(spec.Attribute, true))
	return nil
}

func (v *evalOrderVisitor) VisitOrderConjunction(*OrderConjunction) error {
	secondary := v.pop()
	primary := v.pop()
	v.push(func(a, b any) bool {
		if primary(a, b) {
			return true
		}
		if primary(b, a) {
			return false
		}
		return secondary(a, b)
	})
	return nil
}

func orderLess(attr string, descending bool) Less {
	return func(a, b any) bool {
		av, aok := AttributeValue(a, attr)
		bv, bok := AttributeValue(b, attr)
		if !aok || !bok {
			// Objects without the attribute sort last.
			return aok && !bok
		}
		cmp, err := compareValues(av, bv)
		if err != nil {
			return false
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	}
}

// AttributeValue resolves a dotted attribute path against an object
// using reflection. Pointers and interfaces are unwrapped at each step;
// a nil pointer or a missing field reports ok == false.
func AttributeValue(obj any, path string) (any, bool) {
	value := reflect.ValueOf(obj)
	for _, token := range strings.Split(path, ".") {
		value = unwrapValue(value)
		if !value.IsValid() || value.Kind() != reflect.Struct {
			return nil, false
		}
		value = value.FieldByName(token)
		if !value.IsValid() {
			return nil, false
		}
	}
	value = unwrapValue(value)
	if !value.IsValid() {
		return nil, false
	}
	return value.Interface(), true
}

func unwrapValue(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// compareValues orders two scalar values. Integer kinds are widened to
// int64, floats to float64; strings, booleans and time.Time values are
// ordered natively. Mixed or unsupported kinds are incomparable.
func compareValues(a, b any) (int, error) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("time against %T: %w", b, ErrIncomparable)
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		}
		return 0, nil
	}

	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	switch {
	case isInt(av) && isInt(bv):
		return compareOrdered(av.Int(), bv.Int()), nil
	case isFloat(av) && isFloat(bv):
		return compareOrdered(av.Float(), bv.Float()), nil
	case isInt(av) && isFloat(bv):
		return compareOrdered(float64(av.Int()), bv.Float()), nil
	case isFloat(av) && isInt(bv):
		return compareOrdered(av.Float(), float64(bv.Int())), nil
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return compareOrdered(av.String(), bv.String()), nil
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		if av.Bool() == bv.Bool() {
			return 0, nil
		}
		if !av.Bool() {
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("%T against %T: %w", a, b, ErrIncomparable)
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isFloat(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func containsValue(haystack any, needle any) bool {
	if s, ok := haystack.(string); ok {
		n, ok := needle.(string)
		return ok && strings.Contains(s, n)
	}
	v := unwrapValue(reflect.ValueOf(haystack))
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		item := unwrapValue(v.Index(i))
		if !item.IsValid() {
			continue
		}
		if cmp, err := compareValues(item.Interface(), needle); err == nil && cmp == 0 {
			return true
		}
	}
	return false
}

func asSlice(value any) ([]any, error) {
	if items, ok := value.([]any); ok {
		return items, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("contained needs a slice value: %w", ErrBadSpecification)
	}
	items := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		items = append(items, v.Index(i).Interface())
	}
	return items, nil
}
