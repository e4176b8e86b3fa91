package godb

import "sort"

// EqualityJoin is a sort-merge equi-join over two child operators: it
// materializes both sides, sorts each by its join field, and merges,
// pairing every left tuple with every right tuple that shares its join
// key (adapted from the lab lineage's original nested-loop join, which
// the sort-merge form here replaces to avoid quadratic blowup on the
// larger inputs the buffer pool is meant to exercise).
type EqualityJoin struct {
	*baseOperator
	left, right           Operator
	leftField, rightField int
}

// NewJoin builds an equi-join of left.leftField against
// right.rightField. The two fields must be the same type.
func NewJoin(left Operator, leftField int, right Operator, rightField int) (*EqualityJoin, error) {
	lt := left.GetTupleDesc().Fields[leftField].Ftype
	rt := right.GetTupleDesc().Fields[rightField].Ftype
	if lt != rt {
		return nil, newErr(TypeMismatchError, "join fields have different types: %v vs %v", lt, rt)
	}
	j := &EqualityJoin{left: left, right: right, leftField: leftField, rightField: rightField}
	desc := left.GetTupleDesc().Merge(right.GetTupleDesc())
	j.baseOperator = newBaseOperator(desc, []Operator{left, right}, j.start)
	return j, nil
}

func (j *EqualityJoin) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := j.left.Open(tid); err != nil {
		return nil, err
	}
	if err := j.right.Open(tid); err != nil {
		return nil, err
	}
	leftTuples, err := drainAll(j.left)
	if err != nil {
		return nil, err
	}
	rightTuples, err := drainAll(j.right)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(leftTuples, func(a, b int) bool {
		return leftTuples[a].Fields[j.leftField].EvalPred(leftTuples[b].Fields[j.leftField], OpLt)
	})
	sort.SliceStable(rightTuples, func(a, b int) bool {
		return rightTuples[a].Fields[j.rightField].EvalPred(rightTuples[b].Fields[j.rightField], OpLt)
	})

	joined := mergeJoin(leftTuples, rightTuples, j.leftField, j.rightField)
	outDesc := *j.GetTupleDesc()
	pos := 0
	return func() (*Tuple, error) {
		if pos >= len(joined) {
			return nil, nil
		}
		t := joined[pos]
		t.Desc = outDesc
		pos++
		return t, nil
	}, nil
}

// mergeJoin pairs every tuple in a run of equal left-field values with
// every tuple in the matching run of equal right-field values.
func mergeJoin(left, right []*Tuple, leftField, rightField int) []*Tuple {
	var out []*Tuple
	li, ri := 0, 0
	for li < len(left) && ri < len(right) {
		lv, rv := left[li].Fields[leftField], right[ri].Fields[rightField]
		switch {
		case lv.EvalPred(rv, OpLt):
			li++
		case rv.EvalPred(lv, OpLt):
			ri++
		default:
			lEnd := equalRun(left, li, leftField)
			rEnd := equalRun(right, ri, rightField)
			for i := li; i < lEnd; i++ {
				for k := ri; k < rEnd; k++ {
					out = append(out, joinTuples(left[i], right[k]))
				}
			}
			li, ri = lEnd, rEnd
		}
	}
	return out
}

// equalRun returns the exclusive end of the run of tuples starting at
// start whose field's value equals tuples[start]'s.
func equalRun(tuples []*Tuple, start, field int) int {
	end := start + 1
	for end < len(tuples) && tuples[end].Fields[field].EvalPred(tuples[start].Fields[field], OpEq) {
		end++
	}
	return end
}

func joinTuples(left, right *Tuple) *Tuple {
	fields := make([]Field, 0, len(left.Fields)+len(right.Fields))
	fields = append(fields, left.Fields...)
	fields = append(fields, right.Fields...)
	return &Tuple{Fields: fields}
}
