package querying

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrBadCriteria = errors.New("malformed query criteria")

// ParseFilter parses the textual filter criteria format:
//
//	attribute:operator:value[,value...][~attribute:operator:value...]
//
// Criteria joined with "~" form a conjunction; comma separated values of
// one criterion form a disjunction. Values parse as integers, booleans,
// RFC 3339 timestamps or double quoted strings, falling back to the raw
// text. An in-range value uses the form "from-to".
func ParseFilter(criteria string) (FilterSpecification, error) {
	var spec FilterSpecification
	for _, part := range strings.Split(criteria, "~") {
		one, err := parseCriterion(part)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			spec = one
		} else {
			spec = &Conjunction{Left: spec, Right: one}
		}
	}
	return spec, nil
}

// ParseOrder parses the textual order criteria format:
//
//	attribute:asc|desc[~attribute:asc|desc...]
func ParseOrder(criteria string) (OrderSpecification, error) {
	var spec OrderSpecification
	for _, part := range strings.Split(criteria, "~") {
		name, direction, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found || name == "" {
			return nil, fmt.Errorf("%q: expected attribute:direction: %w", part, ErrBadCriteria)
		}
		var one OrderSpecification
		switch direction {
		case "asc":
			one = Asc(name)
		case "desc":
			one = Desc(name)
		default:
			return nil, fmt.Errorf("%q: unknown direction %q: %w", part, direction, ErrBadCriteria)
		}
		if spec == nil {
			spec = one
		} else {
			spec = &OrderConjunction{Left: spec, Right: one}
		}
	}
	return spec, nil
}

func parseCriterion(text string) (FilterSpecification, error) {
	fields := strings.SplitN(strings.TrimSpace(text), ":", 3)
	if len(fields) != 3 || fields[0] == "" {
		return nil, fmt.Errorf("%q: expected attribute:operator:value: %w", text, ErrBadCriteria)
	}
	attr, op, rawValues := fields[0], Operator(fields[1]), fields[2]

	switch op {
	case OpEqualTo, OpStartsWith, OpEndsWith, OpContains, OpContained,
		OpGreaterThan, OpGreaterThanOrEqualTo, OpLessThan, OpLessThanOrEqualTo, OpInRange:
	default:
		return nil, fmt.Errorf("%q: unknown operator %q: %w", text, op, ErrBadCriteria)
	}

	var spec FilterSpecification
	for _, raw := range splitValues(rawValues) {
		one, err := parseValueSpec(attr, op, raw)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", text, err)
		}
		if spec == nil {
			spec = one
		} else {
			spec = &Disjunction{Left: spec, Right: one}
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("%q: missing value: %w", text, ErrBadCriteria)
	}
	return spec, nil
}

func parseValueSpec(attr string, op Operator, raw string) (FilterSpecification, error) {
	if op == OpInRange {
		from, to, found := strings.Cut(raw, "-")
		if !found {
			return nil, fmt.Errorf("in-range needs from-to: %w", ErrBadCriteria)
		}
		return InRange(attr, parseValue(from), parseValue(to)), nil
	}
	value := parseValue(raw)
	switch op {
	case OpStartsWith, OpEndsWith:
		s, ok := value.(string)
		if !ok {
			s = raw
		}
		return &ValueFilter{Attribute: attr, Operator: op, Value: s}, nil
	case OpContained:
		return &ValueFilter{Attribute: attr, Operator: op, Value: []any{value}}, nil
	}
	return &ValueFilter{Attribute: attr, Operator: op, Value: value}, nil
}

func splitValues(raw string) []string {
	var values []string
	var quoted bool
	var current strings.Builder
	for _, ch := range raw {
		switch {
		case ch == '"':
			quoted = !quoted
			current.WriteRune(ch)
		case ch == ',' && !quoted:
			values = append(values, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		values = append(values, current.String())
	}
	return values
}

func parseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return raw
}
