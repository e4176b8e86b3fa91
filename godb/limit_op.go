package godb

// Limit bounds its child's output to the first n tuples.
type Limit struct {
	*baseOperator
	n     int
	child Operator
}

// NewLimitOp builds a limit of child to its first n tuples.
func NewLimitOp(n int, child Operator) *Limit {
	l := &Limit{n: n, child: child}
	l.baseOperator = newBaseOperator(child.GetTupleDesc(), []Operator{child}, l.start)
	return l
}

func (l *Limit) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := l.child.Open(tid); err != nil {
		return nil, err
	}
	seen := 0
	return func() (*Tuple, error) {
		if seen >= l.n {
			return nil, nil
		}
		has, err := l.child.HasNext()
		if err != nil || !has {
			return nil, err
		}
		t, err := l.child.Next()
		if err != nil {
			return nil, err
		}
		seen++
		return t, nil
	}, nil
}
