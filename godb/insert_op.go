package godb

// InsertOp inserts every tuple its child produces into a table via the
// buffer pool, then emits a single one-column "count" tuple.
type InsertOp struct {
	*baseOperator
	bp      *BufferPool
	tableID int64
	child   Operator
}

var insertDesc = &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}

// NewInsertOp builds an insert of child's tuples into tableID, issued
// against bp.
func NewInsertOp(bp *BufferPool, tableID int64, child Operator) *InsertOp {
	i := &InsertOp{bp: bp, tableID: tableID, child: child}
	i.baseOperator = newBaseOperator(insertDesc, []Operator{child}, i.start)
	return i
}

func (i *InsertOp) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := i.child.Open(tid); err != nil {
		return nil, err
	}
	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		var count int32
		for {
			has, err := i.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !has {
				break
			}
			t, err := i.child.Next()
			if err != nil {
				return nil, err
			}
			if err := i.bp.InsertTuple(tid, i.tableID, t); err != nil {
				return nil, err
			}
			count++
		}
		done = true
		return &Tuple{Desc: *insertDesc, Fields: []Field{IntField{Value: count}}}, nil
	}, nil
}
