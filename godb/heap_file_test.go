package godb

import (
	"os"
	"testing"
)

func newTestHeapFile(t *testing.T, desc *TupleDesc) (*HeapFile, *BufferPool, *SimpleCatalog) {
	t.Helper()
	return newTestHeapFileWithCapacity(t, desc, 16)
}

func newTestHeapFileWithCapacity(t *testing.T, desc *TupleDesc, capacity int) (*HeapFile, *BufferPool, *SimpleCatalog) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "heapdb-*.dat")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Close()

	catalog := NewSimpleCatalog()
	bp := NewBufferPool(capacity, catalog, NopLog{})
	hf, err := NewHeapFile(f.Name(), desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	catalog.AddTable(hf)
	return hf, bp, catalog
}

func drainIterator(t *testing.T, op Operator, tid TransactionID) []*Tuple {
	t.Helper()
	if err := op.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	tuples, err := drainAll(op)
	if err != nil {
		t.Fatalf("drainAll: %v", err)
	}
	return tuples
}

func TestHeapFileEmptyScan(t *testing.T) {
	desc := testTupleDesc()
	hf, _, _ := newTestHeapFile(t, desc)

	tid := NewTID()
	iter, err := hf.Iterator(tid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, tid)
	if len(tuples) != 0 {
		t.Fatalf("expected zero tuples from an empty heap file, got %d", len(tuples))
	}
}

func TestHeapFileInsertAndScan(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}, {Fname: "b", Ftype: IntType}}}
	hf, bp, _ := newTestHeapFile(t, desc)

	t1 := NewTID()
	rows := [][2]int32{{1, 10}, {2, 20}, {3, 30}}
	for _, r := range rows {
		tup := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: r[0]}, IntField{Value: r[1]}}}
		if err := bp.InsertTuple(t1, hf.ID(), tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	if err := bp.TransactionComplete(t1, true); err != nil {
		t.Fatalf("TransactionComplete(commit): %v", err)
	}

	t2 := NewTID()
	iter, err := hf.Iterator(t2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, t2)
	if len(tuples) != len(rows) {
		t.Fatalf("scan yielded %d tuples, want %d", len(tuples), len(rows))
	}
	for i, tup := range tuples {
		want := rows[i]
		got := tup.Fields[0].(IntField).Value
		if got != want[0] {
			t.Errorf("tuple %d field 0 = %d, want %d", i, got, want[0])
		}
	}
	bp.TransactionComplete(t2, true)
}

func TestHeapFileIterationCompleteness(t *testing.T) {
	desc := testTupleDesc()
	hf, bp, _ := newTestHeapFile(t, desc)

	tid := NewTID()
	const n = 50
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: int32(i)}, IntField{Value: int32(i)}}}
		if err := bp.InsertTuple(tid, hf.ID(), tup); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	bp.TransactionComplete(tid, true)

	scan := NewTID()
	iter, err := hf.Iterator(scan)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, scan)
	if len(tuples) != n {
		t.Fatalf("iterator yielded %d tuples, want %d", len(tuples), n)
	}
	bp.TransactionComplete(scan, true)
}
