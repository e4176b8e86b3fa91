package godb

// NoGrouping is the sentinel group-by field index meaning "fold every
// tuple into a single group," per §4.5.
const NoGrouping = -1

// AggOp names a supported aggregate operator.
type AggOp int

const (
	MinOp AggOp = iota
	MaxOp
	SumOp
	AvgOp
	CountOp
)

func (op AggOp) String() string {
	switch op {
	case MinOp:
		return "min"
	case MaxOp:
		return "max"
	case SumOp:
		return "sum"
	case AvgOp:
		return "avg"
	case CountOp:
		return "count"
	}
	return "unknown"
}

// Aggregator folds a stream of tuples, merged one at a time via
// MergeTupleInto, into per-group running state, and hands back that
// state as a query operator once merging is done. IntegerAggregator and
// StringAggregator are the two variants; both share [AggIterator] for
// the output side (§4.5 — "two variants share one iterator class").
type Aggregator interface {
	MergeTupleInto(t *Tuple) error
	Iterator(tid TransactionID) (Operator, error)
}

// aggTupleDesc builds the output schema: aggregateVal alone with no
// grouping, or groupVal, aggregateVal with grouping.
func aggTupleDesc(groupType DBType, grouping bool) *TupleDesc {
	if !grouping {
		return &TupleDesc{Fields: []FieldType{{Fname: "aggregateVal", Ftype: IntType}}}
	}
	return &TupleDesc{Fields: []FieldType{
		{Fname: "groupVal", Ftype: groupType},
		{Fname: "aggregateVal", Ftype: IntType},
	}}
}

// intAggState is the running fold for one group of IntegerAggregator.
type intAggState struct {
	initialized bool
	min, max    int32
	sum         int32
	count       int32
}

func (s *intAggState) fold(v int32) {
	if !s.initialized {
		s.min, s.max = v, v
		s.initialized = true
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

// finalize computes op's result from the fold so far. AVG truncates
// toward zero, matching Go's integer division directly.
func (s *intAggState) finalize(op AggOp) int32 {
	switch op {
	case MinOp:
		return s.min
	case MaxOp:
		return s.max
	case SumOp:
		return s.sum
	case AvgOp:
		if s.count == 0 {
			return 0
		}
		return s.sum / s.count
	case CountOp:
		return s.count
	}
	return 0
}

// IntegerAggregator computes MIN, MAX, SUM, AVG, or COUNT over an
// integer field, optionally grouped by another field.
type IntegerAggregator struct {
	groupField int
	groupType  DBType
	aggField   int
	op         AggOp

	grouping bool
	single   *intAggState
	groups   map[Field]*intAggState
	order    []Field
}

// NewIntegerAggregator builds an aggregator over aggField using op,
// grouped by groupField (or ungrouped if groupField is [NoGrouping]).
// groupType is ignored when groupField is NoGrouping.
func NewIntegerAggregator(groupField int, groupType DBType, aggField int, op AggOp) *IntegerAggregator {
	a := &IntegerAggregator{groupField: groupField, groupType: groupType, aggField: aggField, op: op}
	if groupField == NoGrouping {
		a.single = &intAggState{}
	} else {
		a.grouping = true
		a.groups = make(map[Field]*intAggState)
	}
	return a
}

func (a *IntegerAggregator) MergeTupleInto(t *Tuple) error {
	v, ok := t.Fields[a.aggField].(IntField)
	if !ok {
		return newErr(TypeMismatchError, "aggregate field %d is not an int field", a.aggField)
	}
	state := a.single
	if a.grouping {
		key := t.Fields[a.groupField]
		state = a.groups[key]
		if state == nil {
			state = &intAggState{}
			a.groups[key] = state
			a.order = append(a.order, key)
		}
	}
	state.fold(v.Value)
	return nil
}

func (a *IntegerAggregator) Iterator(tid TransactionID) (Operator, error) {
	desc := aggTupleDesc(a.groupType, a.grouping)
	var results []aggResult
	if a.grouping {
		for _, key := range a.order {
			results = append(results, aggResult{key: key, val: a.groups[key].finalize(a.op)})
		}
	} else {
		results = []aggResult{{val: a.single.finalize(a.op)}}
	}
	return newAggIterator(desc, a.grouping, results), nil
}

// StringAggregator supports only COUNT, per §4.5; any other op fails at
// construction.
type StringAggregator struct {
	groupField int
	groupType  DBType
	aggField   int

	grouping bool
	single   int32
	groups   map[Field]int32
	order    []Field
}

// NewStringAggregator builds a COUNT aggregator over aggField, grouped
// by groupField (or ungrouped if [NoGrouping]). It fails if op is
// anything other than [CountOp].
func NewStringAggregator(groupField int, groupType DBType, aggField int, op AggOp) (*StringAggregator, error) {
	if op != CountOp {
		return nil, newErr(IllegalArgumentError, "BadAggregatorOp: string aggregator supports only count, got %v", op)
	}
	a := &StringAggregator{groupField: groupField, groupType: groupType, aggField: aggField}
	if groupField == NoGrouping {
		return a, nil
	}
	a.grouping = true
	a.groups = make(map[Field]int32)
	return a, nil
}

func (a *StringAggregator) MergeTupleInto(t *Tuple) error {
	if _, ok := t.Fields[a.aggField].(StringField); !ok {
		return newErr(TypeMismatchError, "aggregate field %d is not a string field", a.aggField)
	}
	if !a.grouping {
		a.single++
		return nil
	}
	key := t.Fields[a.groupField]
	if _, seen := a.groups[key]; !seen {
		a.order = append(a.order, key)
	}
	a.groups[key]++
	return nil
}

func (a *StringAggregator) Iterator(tid TransactionID) (Operator, error) {
	desc := aggTupleDesc(a.groupType, a.grouping)
	var results []aggResult
	if a.grouping {
		for _, key := range a.order {
			results = append(results, aggResult{key: key, val: a.groups[key]})
		}
	} else {
		results = []aggResult{{val: a.single}}
	}
	return newAggIterator(desc, a.grouping, results), nil
}

// aggResult is one output row: a finalized aggregate value, paired with
// its group key when grouping is in effect.
type aggResult struct {
	key Field
	val int32
}

// AggIterator is the single operator both aggregator variants hand
// back from Iterator: the fold is already complete by the time it is
// constructed, so it simply walks the (unspecified-order) slice of
// already-finalized results.
type AggIterator struct {
	*baseOperator
	grouping bool
	results  []aggResult
	pos      int
}

func newAggIterator(desc *TupleDesc, grouping bool, results []aggResult) *AggIterator {
	it := &AggIterator{grouping: grouping, results: results}
	it.baseOperator = newBaseOperator(desc, nil, it.start)
	return it
}

func (it *AggIterator) start(tid TransactionID) (func() (*Tuple, error), error) {
	it.pos = 0
	return it.fetch, nil
}

func (it *AggIterator) fetch() (*Tuple, error) {
	if it.pos >= len(it.results) {
		return nil, nil
	}
	r := it.results[it.pos]
	it.pos++
	desc := it.GetTupleDesc()
	var fields []Field
	if it.grouping {
		fields = []Field{r.key, IntField{Value: r.val}}
	} else {
		fields = []Field{IntField{Value: r.val}}
	}
	return &Tuple{Desc: *desc, Fields: fields}, nil
}
