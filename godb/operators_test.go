package godb

import "testing"

func intTuples(desc *TupleDesc, rows [][]int32) []*Tuple {
	out := make([]*Tuple, len(rows))
	for i, r := range rows {
		fields := make([]Field, len(r))
		for j, v := range r {
			fields[j] = IntField{Value: v}
		}
		out[i] = &Tuple{Desc: *desc, Fields: fields}
	}
	return out
}

// sliceScan is a test-only Operator over a fixed, in-memory slice of
// tuples, standing in for a HeapFile scan so operator tests don't need
// a real backing file.
type sliceScan struct {
	*baseOperator
	rows []*Tuple
}

func newSliceScan(desc *TupleDesc, rows []*Tuple) *sliceScan {
	s := &sliceScan{rows: rows}
	s.baseOperator = newBaseOperator(desc, nil, s.start)
	return s
}

func (s *sliceScan) start(tid TransactionID) (func() (*Tuple, error), error) {
	pos := 0
	return func() (*Tuple, error) {
		if pos >= len(s.rows) {
			return nil, nil
		}
		t := s.rows[pos]
		pos++
		return t, nil
	}, nil
}

func TestFilterPassesMatchingTuples(t *testing.T) {
	desc := testTupleDesc()
	rows := intTuples(desc, [][]int32{{1, 10}, {2, 20}, {3, 30}})
	scan := newSliceScan(desc, rows)

	f := NewFilter(0, OpGe, IntField{Value: 2}, scan)
	tid := NewTID()
	if err := f.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := drainAll(f)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(out))
	}
}

func TestFilterRewind(t *testing.T) {
	desc := testTupleDesc()
	rows := intTuples(desc, [][]int32{{1, 10}, {2, 20}})
	scan := newSliceScan(desc, rows)
	f := NewFilter(0, OpGe, IntField{Value: 0}, scan)

	tid := NewTID()
	if err := f.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	first, err := drainAll(f)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if err := f.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	second, err := drainAll(f)
	if err != nil {
		t.Fatalf("drainAll after rewind: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("rewind should reproduce the same number of tuples: %d vs %d", len(first), len(second))
	}
}

func TestProjectDistinct(t *testing.T) {
	desc := testTupleDesc()
	rows := intTuples(desc, [][]int32{{1, 10}, {1, 20}, {2, 10}})
	scan := newSliceScan(desc, rows)

	proj, err := NewProjectOp([]int{0}, []string{"a"}, true, scan)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	tid := NewTID()
	if err := proj.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := drainAll(proj)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct values, got %d", len(out))
	}
}

func TestLimit(t *testing.T) {
	desc := testTupleDesc()
	rows := intTuples(desc, [][]int32{{1, 1}, {2, 2}, {3, 3}, {4, 4}})
	scan := newSliceScan(desc, rows)

	lim := NewLimitOp(2, scan)
	tid := NewTID()
	if err := lim.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := drainAll(lim)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(out))
	}
}

func TestOrderByAscending(t *testing.T) {
	desc := testTupleDesc()
	rows := intTuples(desc, [][]int32{{3, 0}, {1, 0}, {2, 0}})
	scan := newSliceScan(desc, rows)

	ob, err := NewOrderBy([]int{0}, scan, []bool{true})
	if err != nil {
		t.Fatalf("NewOrderBy: %v", err)
	}
	tid := NewTID()
	if err := ob.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := drainAll(ob)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	want := []int32{1, 2, 3}
	for i, tup := range out {
		if got := tup.Fields[0].(IntField).Value; got != want[i] {
			t.Errorf("position %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestEqualityJoin(t *testing.T) {
	leftDesc := &TupleDesc{Fields: []FieldType{{Fname: "k", Ftype: IntType}, {Fname: "lv", Ftype: IntType}}}
	rightDesc := &TupleDesc{Fields: []FieldType{{Fname: "k", Ftype: IntType}, {Fname: "rv", Ftype: IntType}}}

	left := newSliceScan(leftDesc, intTuples(leftDesc, [][]int32{{1, 100}, {2, 200}, {1, 150}}))
	right := newSliceScan(rightDesc, intTuples(rightDesc, [][]int32{{1, 9}, {3, 8}}))

	join, err := NewJoin(left, 0, right, 0)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	tid := NewTID()
	if err := join.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out, err := drainAll(join)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 matches on k=1, got %d", len(out))
	}
	for _, tup := range out {
		if len(tup.Fields) != 4 {
			t.Fatalf("joined tuple should have 4 fields, got %d", len(tup.Fields))
		}
	}
}

func TestInsertAndDeleteOps(t *testing.T) {
	desc := testTupleDesc()
	hf, bp, _ := newTestHeapFile(t, desc)

	rows := intTuples(desc, [][]int32{{1, 1}, {2, 2}, {3, 3}})
	src := newSliceScan(desc, rows)
	ins := NewInsertOp(bp, hf.ID(), src)

	tid := NewTID()
	if err := ins.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	result, err := drainAll(ins)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	if len(result) != 1 || result[0].Fields[0].(IntField).Value != 3 {
		t.Fatalf("expected a single count=3 tuple, got %v", result)
	}
	bp.TransactionComplete(tid, true)

	del := NewTID()
	iter, err := hf.Iterator(del)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	dop := NewDeleteOp(bp, hf.ID(), iter)
	if err := dop.Open(del); err != nil {
		t.Fatalf("Open delete: %v", err)
	}
	deleted, err := drainAll(dop)
	if err != nil {
		t.Fatalf("drainAll delete: %v", err)
	}
	if len(deleted) != 1 || deleted[0].Fields[0].(IntField).Value != 3 {
		t.Fatalf("expected a single count=3 delete tuple, got %v", deleted)
	}
	bp.TransactionComplete(del, true)

	verify := NewTID()
	vIter, err := hf.Iterator(verify)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	remaining := drainIterator(t, vIter, verify)
	if len(remaining) != 0 {
		t.Fatalf("expected an empty table after deleting every row, got %d", len(remaining))
	}
	bp.TransactionComplete(verify, true)
}
