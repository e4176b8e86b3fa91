package godb

import (
	"bytes"
	"testing"
)

func TestBufferPoolAbortRollback(t *testing.T) {
	desc := testTupleDesc()
	hf, bp, _ := newTestHeapFile(t, desc)

	base := NewTID()
	seed := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: 1}, IntField{Value: 1}}}
	if err := bp.InsertTuple(base, hf.ID(), seed); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	if err := bp.TransactionComplete(base, true); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	t1 := NewTID()
	doomed := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: 99}, IntField{Value: 99}}}
	if err := bp.InsertTuple(t1, hf.ID(), doomed); err != nil {
		t.Fatalf("t1 insert: %v", err)
	}
	if err := bp.TransactionComplete(t1, false); err != nil {
		t.Fatalf("t1 abort: %v", err)
	}

	pid := PageID{TableID: hf.ID(), PageNumber: 0}
	if lm := bp.locks; lm.holdsLock(t1, pid) {
		t.Fatalf("aborted transaction should hold no locks")
	}

	t2 := NewTID()
	iter, err := hf.Iterator(t2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, t2)
	if len(tuples) != 1 {
		t.Fatalf("expected only the committed tuple to survive abort, got %d tuples", len(tuples))
	}
	if got := tuples[0].Fields[0].(IntField).Value; got != 1 {
		t.Fatalf("surviving tuple field 0 = %d, want 1 (t1's write must not be visible)", got)
	}
	bp.TransactionComplete(t2, true)
}

func TestBufferPoolCommitVisibility(t *testing.T) {
	desc := testTupleDesc()
	hf, bp, _ := newTestHeapFile(t, desc)

	t1 := NewTID()
	tup := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: 7}, IntField{Value: 8}}}
	if err := bp.InsertTuple(t1, hf.ID(), tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := bp.TransactionComplete(t1, true); err != nil {
		t.Fatalf("commit: %v", err)
	}

	t2 := NewTID()
	page, err := bp.GetPage(t2, PageID{TableID: hf.ID(), PageNumber: 0}, ReadOnly)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	// Under STEAL/NO-FORCE the page stays dirty after commit (so a later
	// eviction still logs and flushes it); commit only has to make the
	// written value visible and advance the before-image.
	hp, ok := page.(*HeapPage)
	if !ok {
		t.Fatalf("expected *HeapPage, got %T", page)
	}
	if !bytes.Equal(hp.GetBeforeImage(), hp.GetPageData()) {
		t.Fatalf("before-image should equal current page bytes after commit")
	}
	iter, err := hf.Iterator(t2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, t2)
	if len(tuples) != 1 {
		t.Fatalf("expected the committed tuple to be visible, got %d tuples", len(tuples))
	}
	if got := tuples[0].Fields[0].(IntField).Value; got != 7 {
		t.Fatalf("committed tuple field 0 = %d, want 7", got)
	}
	bp.TransactionComplete(t2, true)
}

func TestBufferPoolEvictionUnderCapacity(t *testing.T) {
	desc := testTupleDesc()
	f, bp, _ := newTestHeapFileWithCapacity(t, desc, 2)

	// Enough tuples to fill three pages, so a two-page pool has to evict.
	n := 2*numSlots(desc) + 10
	tid := NewTID()
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *desc, Fields: []Field{IntField{Value: int32(i)}, IntField{Value: int32(i)}}}
		if err := bp.InsertTuple(tid, f.ID(), tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := bp.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit: %v", err)
	}

	verify := NewTID()
	iter, err := f.Iterator(verify)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tuples := drainIterator(t, iter, verify)
	if len(tuples) != n {
		t.Fatalf("expected all %d tuples to survive eviction, got %d", n, len(tuples))
	}
	bp.TransactionComplete(verify, true)
}
