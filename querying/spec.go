package querying

// Operator identifies a value filter operation. The literal names double
// as the operators of the textual criteria format understood by Parse.
type Operator string

const (
	OpEqualTo              Operator = "equal-to"
	OpStartsWith           Operator = "starts-with"
	OpEndsWith             Operator = "ends-with"
	OpContains             Operator = "contains"
	OpContained            Operator = "contained"
	OpGreaterThan          Operator = "greater-than"
	OpGreaterThanOrEqualTo Operator = "greater-than-or-equal-to"
	OpLessThan             Operator = "less-than"
	OpLessThanOrEqualTo    Operator = "less-than-or-equal-to"
	OpInRange              Operator = "in-range"
)

// FilterSpecification is the interface of all filter specification nodes.
// Accept performs a post-order traversal, visiting dependent
// specifications before dispatching the node itself, so that visitors
// can operate on an expression stack.
type FilterSpecification interface {
	Accept(v FilterVisitor) error
}

// FilterVisitor builds an expression from a filter specification tree.
type FilterVisitor interface {
	VisitValue(*ValueFilter) error
	VisitConjunction(*Conjunction) error
	VisitDisjunction(*Disjunction) error
	VisitNegation(*Negation) error
}

// ValueFilter is a leaf specification testing one attribute against a
// value. Attribute is a dotted path; for OpInRange the value is a Range,
// for OpContained a slice of candidate values.
type ValueFilter struct {
	Attribute string
	Operator  Operator
	Value     any
}

// Range is the value of an in-range filter. Both bounds are inclusive.
type Range struct {
	From any
	To   any
}

type Conjunction struct {
	Left  FilterSpecification
	Right FilterSpecification
}

type Disjunction struct {
	Left  FilterSpecification
	Right FilterSpecification
}

type Negation struct {
	Wrapped FilterSpecification
}

func (s *ValueFilter) Accept(v FilterVisitor) error {
	return v.VisitValue(s)
}

func (s *Conjunction) Accept(v FilterVisitor) error {
	if err := s.Left.Accept(v); err != nil {
		return err
	}
	if err := s.Right.Accept(v); err != nil {
		return err
	}
	return v.VisitConjunction(s)
}

func (s *Disjunction) Accept(v FilterVisitor) error {
	if err := s.Left.Accept(v); err != nil {
		return err
	}
	if err := s.Right.Accept(v); err != nil {
		return err
	}
	return v.VisitDisjunction(s)
}

func (s *Negation) Accept(v FilterVisitor) error {
	if err := s.Wrapped.Accept(v); err != nil {
		return err
	}
	return v.VisitNegation(s)
}

// Factory functions for the individual filter specifications.

func EqualTo(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpEqualTo, Value: value}
}

func StartsWith(attribute string, value string) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpStartsWith, Value: value}
}

func EndsWith(attribute string, value string) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpEndsWith, Value: value}
}

func Contains(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpContains, Value: value}
}

func Contained(attribute string, values []any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpContained, Value: values}
}

func GreaterThan(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpGreaterThan, Value: value}
}

func GreaterThanOrEqualTo(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpGreaterThanOrEqualTo, Value: value}
}

func LessThan(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpLessThan, Value: value}
}

func LessThanOrEqualTo(attribute string, value any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpLessThanOrEqualTo, Value: value}
}

func InRange(attribute string, from, to any) *ValueFilter {
	return &ValueFilter{Attribute: attribute, Operator: OpInRange, Value: Range{From: from, To: to}}
}

// And folds the given specifications into left-nested conjunctions.
func And(first FilterSpecification, rest ...FilterSpecification) FilterSpecification {
	spec := first
	for _, item := range rest {
		spec = &Conjunction{Left: spec, Right: item}
	}
	return spec
}

// Or folds the given specifications into left-nested disjunctions.
func Or(first FilterSpecification, rest ...FilterSpecification) FilterSpecification {
	spec := first
	for _, item := range rest {
		spec = &Disjunction{Left: spec, Right: item}
	}
	return spec
}

func Not(wrapped FilterSpecification) *Negation {
	return &Negation{Wrapped: wrapped}
}
