package godb

// Filter is a single-predicate selection: it passes through tuples from
// its child whose field at index matches value under op, via
// [Field.EvalPred].
type Filter struct {
	*baseOperator
	field int
	op    BoolOp
	value Field
	child Operator
}

// NewFilter constructs a filter over child that keeps tuples whose
// field'th field satisfies `field op value`.
func NewFilter(field int, op BoolOp, value Field, child Operator) *Filter {
	f := &Filter{field: field, op: op, value: value, child: child}
	f.baseOperator = newBaseOperator(child.GetTupleDesc(), []Operator{child}, f.start)
	return f
}

func (f *Filter) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := f.child.Open(tid); err != nil {
		return nil, err
	}
	return func() (*Tuple, error) {
		for {
			has, err := f.child.HasNext()
			if err != nil || !has {
				return nil, err
			}
			t, err := f.child.Next()
			if err != nil {
				return nil, err
			}
			if t.Fields[f.field].EvalPred(f.value, f.op) {
				return t, nil
			}
		}
	}, nil
}
