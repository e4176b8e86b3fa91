package godb

import (
	"bytes"
	"fmt"
)

// HeapPage implements [Page] for pages of a [HeapFile]. Pages are
// fixed-size (§6: exactly [PageSize] bytes) and hold a bitmap header
// followed by N fixed-width tuple slots, where
//
//	N = floor((PageSize*8) / (tupleSize*8 + 1))
//
// Slot i is occupied iff bit i of the header is set. Occupied slots
// hold a valid tuple of the page's schema; unoccupied slot bytes are
// all zero once serialized.
type HeapPage struct {
	pid    PageID
	desc   *TupleDesc
	file   *HeapFile
	header []byte
	tuples []*Tuple

	dirty     bool
	dirtier   TransactionID
	beforeImg []byte
}

// numSlots returns the number of tuple slots a page of the given schema
// holds, per the §6 formula.
func numSlots(desc *TupleDesc) int {
	tupleBits := desc.Size()*8 + 1
	return (PageSize() * 8) / tupleBits
}

func headerBytes(n int) int {
	return (n + 7) / 8
}

// newHeapPage constructs an empty page for pid of f.
func newHeapPage(pid PageID, desc *TupleDesc, f *HeapFile) *HeapPage {
	n := numSlots(desc)
	return &HeapPage{
		pid:    pid,
		desc:   desc,
		file:   f,
		header: make([]byte, headerBytes(n)),
		tuples: make([]*Tuple, n),
	}
}

// newHeapPageFromBuffer parses a page out of exactly [PageSize] bytes of
// wire data, per §6.
func newHeapPageFromBuffer(pid PageID, desc *TupleDesc, f *HeapFile, data []byte) (*HeapPage, error) {
	if len(data) != PageSize() {
		return nil, newErr(MalformedDataError, "page data is %d bytes, want %d", len(data), PageSize())
	}
	n := numSlots(desc)
	hb := headerBytes(n)
	p := &HeapPage{
		pid:    pid,
		desc:   desc,
		file:   f,
		header: make([]byte, hb),
		tuples: make([]*Tuple, n),
	}
	copy(p.header, data[:hb])

	buf := bytes.NewBuffer(data[hb:])
	for i := 0; i < n; i++ {
		if !p.isSlotUsed(i) {
			buf.Next(desc.Size())
			continue
		}
		t, err := readTupleFrom(buf, desc)
		if err != nil {
			return nil, err
		}
		rid := RecordID{PID: pid, Slot: i}
		t.Rid = &rid
		p.tuples[i] = t
	}
	p.SetBeforeImage()
	return p, nil
}

func (p *HeapPage) ID() PageID { return p.pid }

// getNumEmptySlots returns the count of free slots on the page.
func (p *HeapPage) getNumEmptySlots() int {
	free := 0
	for i := range p.tuples {
		if !p.isSlotUsed(i) {
			free++
		}
	}
	return free
}

func (p *HeapPage) isSlotUsed(i int) bool {
	return p.header[i/8]&(1<<(uint(i)%8)) != 0
}

func (p *HeapPage) markSlotUsed(i int, used bool) {
	mask := byte(1 << (uint(i) % 8))
	if used {
		p.header[i/8] |= mask
	} else {
		p.header[i/8] &^= mask
	}
}

// insertTuple writes t into the first free slot, stamping t's RecordID,
// or fails if the page is full or t's schema does not match the page's.
func (p *HeapPage) insertTuple(t *Tuple) error {
	if !t.Desc.Equals(p.desc) {
		return newErr(TypeMismatchError, "tuple schema does not match page schema")
	}
	for i := range p.tuples {
		if p.isSlotUsed(i) {
			continue
		}
		rid := RecordID{PID: p.pid, Slot: i}
		stored := &Tuple{Desc: *p.desc, Fields: t.Fields, Rid: &rid}
		p.tuples[i] = stored
		p.markSlotUsed(i, true)
		t.Rid = &rid
		p.dirty = true
		return nil
	}
	return newErr(PageFullError, "page %v has no free slots", p.pid)
}

// deleteTuple clears the slot named by t.Rid.
func (p *HeapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil || t.Rid.PID != p.pid {
		return newErr(TupleNotFoundError, "tuple's record id does not name a slot on page %v", p.pid)
	}
	slot := t.Rid.Slot
	if slot < 0 || slot >= len(p.tuples) || !p.isSlotUsed(slot) {
		return newErr(TupleNotFoundError, "slot %d is not occupied on page %v", slot, p.pid)
	}
	p.tuples[slot] = nil
	p.markSlotUsed(slot, false)
	p.dirty = true
	return nil
}

// iterator returns a lazy, non-restartable closure over the page's used
// slots in ascending slot order. Call iterator again for a fresh scan.
func (p *HeapPage) iterator() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for i < len(p.tuples) {
			t := p.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

func (p *HeapPage) IsDirty() (TransactionID, bool) {
	return p.dirtier, p.dirty
}

func (p *HeapPage) MarkDirty(tid TransactionID, dirty bool) {
	p.dirty = dirty
	if dirty {
		p.dirtier = tid
	}
}

// GetBeforeImage returns the bytes of this page as they existed at the
// last commit or initial load.
func (p *HeapPage) GetBeforeImage() []byte {
	return p.beforeImg
}

// SetBeforeImage snapshots the page's current serialized bytes as its
// new before-image.
func (p *HeapPage) SetBeforeImage() {
	p.beforeImg = p.GetPageData()
}

// GetPageData serializes the page to exactly [PageSize] bytes: the
// bitmap header, followed by N fixed-width tuple slots (unoccupied
// slots are all-zero).
func (p *HeapPage) GetPageData() []byte {
	buf := new(bytes.Buffer)
	buf.Write(p.header)
	slotSize := p.desc.Size()
	for i, t := range p.tuples {
		if t == nil {
			buf.Write(make([]byte, slotSize))
			continue
		}
		before := buf.Len()
		if err := t.writeTo(buf); err != nil {
			// Tuples are validated on insert; a write failure here
			// indicates a corrupt in-memory slot.
			panic(fmt.Sprintf("heap page %v: slot %d: %v", p.pid, i, err))
		}
		if written := buf.Len() - before; written != slotSize {
			panic(fmt.Sprintf("heap page %v: slot %d serialized to %d bytes, want %d", p.pid, i, written, slotSize))
		}
	}
	data := buf.Bytes()
	if len(data) < PageSize() {
		padded := make([]byte, PageSize())
		copy(padded, data)
		return padded
	}
	return data[:PageSize()]
}
