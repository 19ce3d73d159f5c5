package querying

// OrderSpecification is the interface of all order specification nodes.
// Accept traverses in post-order like FilterSpecification.Accept.
type OrderSpecification interface {
	Accept(v OrderVisitor) error
}

// OrderVisitor builds an expression from an order specification tree.
type OrderVisitor interface {
	VisitAscending(*Ascending) error
	VisitDescending(*Descending) error
	VisitOrderConjunction(*OrderConjunction) error
}

type Ascending struct {
	Attribute string
}

type Descending struct {
	Attribute string
}

// OrderConjunction orders by Left first and breaks ties with Right.
type OrderConjunction struct {
	Left  OrderSpecification
	Right OrderSpecification
}

func (s *Ascending) Accept(v OrderVisitor) error {
	return v.VisitAscending(s)
}

func (s *Descending) Accept(v OrderVisitor) error {
	return v.VisitDescending(s)
}

func (s *OrderConjunction) Accept(v OrderVisitor) error {
	if err := s.Left.Accept(v); err != nil {
		return err
	}
	if err := s.Right.Accept(v); err != nil {
		return err
	}
	return v.VisitOrderConjunction(s)
}

func Asc(attribute string) *Ascending {
	return &Ascending{Attribute: attribute}
}

func Desc(attribute string) *Descending {
	return &Descending{Attribute: attribute}
}

// OrderBy folds the given specifications into left-nested conjunctions.
func OrderBy(first OrderSpecification, rest ...OrderSpecification) OrderSpecification {
	spec := first
	for _, item := range rest {
		spec = &OrderConjunction{Left: spec, Right: item}
	}
	return spec
}
