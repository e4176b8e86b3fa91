package godb

import "sort"

// OrderBy sorts its child's output over one or more fields, ascending
// or descending per field. It is blocking: each Open (and so each
// Rewind) drains the child fully and sorts before producing any output.
type OrderBy struct {
	*baseOperator
	fields    []int
	ascending []bool
	child     Operator
}

// NewOrderBy builds an order-by of child over fields (by index), with
// ascending[i] controlling the sort direction of fields[i]. fields and
// ascending must be the same length.
func NewOrderBy(fields []int, child Operator, ascending []bool) (*OrderBy, error) {
	if len(fields) != len(ascending) {
		return nil, newErr(IllegalArgumentError, "order by: %d fields but %d ascending flags", len(fields), len(ascending))
	}
	o := &OrderBy{fields: fields, ascending: ascending, child: child}
	o.baseOperator = newBaseOperator(child.GetTupleDesc(), []Operator{child}, o.start)
	return o, nil
}

func (o *OrderBy) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := o.child.Open(tid); err != nil {
		return nil, err
	}
	tuples, err := drainAll(o.child)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tuples, func(i, j int) bool { return o.less(tuples[i], tuples[j]) })

	pos := 0
	return func() (*Tuple, error) {
		if pos >= len(tuples) {
			return nil, nil
		}
		t := tuples[pos]
		pos++
		return t, nil
	}, nil
}

func (o *OrderBy) less(a, b *Tuple) bool {
	for i, fi := range o.fields {
		va, vb := a.Fields[fi], b.Fields[fi]
		if va.EvalPred(vb, OpEq) {
			continue
		}
		if o.ascending[i] {
			return va.EvalPred(vb, OpLt)
		}
		return va.EvalPred(vb, OpGt)
	}
	return false
}
