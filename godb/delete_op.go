package godb

// DeleteOp deletes every tuple its child produces from a table via the
// buffer pool, then emits a single one-column "count" tuple.
type DeleteOp struct {
	*baseOperator
	bp      *BufferPool
	tableID int64
	child   Operator
}

var deleteDesc = &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}}

// NewDeleteOp builds a delete of child's tuples from tableID, issued
// against bp. Deleted tuples must carry a RecordID (i.e. come from a
// scan of tableID, directly or through intervening operators).
func NewDeleteOp(bp *BufferPool, tableID int64, child Operator) *DeleteOp {
	d := &DeleteOp{bp: bp, tableID: tableID, child: child}
	d.baseOperator = newBaseOperator(deleteDesc, []Operator{child}, d.start)
	return d
}

func (d *DeleteOp) start(tid TransactionID) (func() (*Tuple, error), error) {
	if err := d.child.Open(tid); err != nil {
		return nil, err
	}
	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		var count int32
		for {
			has, err := d.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !has {
				break
			}
			t, err := d.child.Next()
			if err != nil {
				return nil, err
			}
			if err := d.bp.DeleteTuple(tid, d.tableID, t); err != nil {
				return nil, err
			}
			count++
		}
		done = true
		return &Tuple{Desc: *deleteDesc, Fields: []Field{IntField{Value: count}}}, nil
	}, nil
}
