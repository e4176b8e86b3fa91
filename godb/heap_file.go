package godb

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
)

// HeapFile is an unordered, append-only sequence of [HeapPage]s backed
// by a single file on disk. Its table id is derived once, at
// construction, from the absolute path of the backing file, so it is
// stable for the life of the process (§6).
type HeapFile struct {
	backingFile string
	tableID     int64
	desc        *TupleDesc
	bp          *BufferPool

	mu sync.Mutex // guards file length changes (NumPages/append)
}

// NewHeapFile opens (creating if necessary) fromFile as the backing
// store for a table of the given schema, registered with bp.
func NewHeapFile(fromFile string, desc *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f, err := os.OpenFile(fromFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, newErr(IllegalArgumentError, "open %s: %v", fromFile, err)
	}
	f.Close()

	abs, err := filepath.Abs(fromFile)
	if err != nil {
		return nil, err
	}
	h := fnv.New64a()
	h.Write([]byte(abs))

	return &HeapFile{
		backingFile: fromFile,
		tableID:     int64(h.Sum64()),
		desc:        desc,
		bp:          bp,
	}, nil
}

// ID returns the HeapFile's stable table id.
func (f *HeapFile) ID() int64 { return f.tableID }

// Descriptor returns the table's schema.
func (f *HeapFile) Descriptor() *TupleDesc { return f.desc }

// BackingFile returns the path supplied to [NewHeapFile].
func (f *HeapFile) BackingFile() string { return f.backingFile }

// NumPages returns ceil(file_length / PageSize).
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	size := info.Size()
	pages := int(size / int64(PageSize()))
	if size%int64(PageSize()) != 0 {
		pages++
	}
	return pages
}

// ReadPage seeks to pageNo's offset and parses a [HeapPage] out of
// exactly [PageSize] bytes. It fails with a [GoDBError] carrying
// [IllegalArgumentError] if pageNo is out of range.
func (f *HeapFile) ReadPage(pageNo int) (Page, error) {
	if pageNo < 0 || pageNo >= f.NumPages() {
		return nil, newErr(IllegalArgumentError, "page number %d out of range (file has %d pages)", pageNo, f.NumPages())
	}
	file, err := os.OpenFile(f.backingFile, os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data := make([]byte, PageSize())
	if _, err := file.ReadAt(data, int64(pageNo)*int64(PageSize())); err != nil {
		return nil, err
	}
	return newHeapPageFromBuffer(PageID{TableID: f.tableID, PageNumber: pageNo}, f.desc, f, data)
}

// WritePage seeks to the page's offset (growing the file if necessary)
// and writes its serialized bytes.
func (f *HeapFile) WritePage(p Page) error {
	hp, ok := p.(*HeapPage)
	if !ok {
		return newErr(IllegalArgumentError, "WritePage: not a HeapPage")
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteAt(hp.GetPageData(), int64(hp.pid.PageNumber)*int64(PageSize())); err != nil {
		return err
	}
	return nil
}

// InsertTuple finds the first page with a free slot (scanning under
// ReadWrite via the buffer pool) and inserts t there; failing that, it
// creates and appends a new page. Returns the modified pages; the
// caller (the buffer pool) is responsible for marking them dirty and
// caching them.
func (f *HeapFile) InsertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if !t.Desc.Equals(f.desc) {
		return nil, newErr(TypeMismatchError, "tuple schema does not match %s's schema", f.backingFile)
	}

	// Intentionally unlocked: each iteration goes through the buffer
	// pool's own lock manager, and holding f.mu across a blocking getPage
	// call would let f.mu form a wait cycle the deadlock detector can't
	// see. The cost is that two concurrent inserts that both miss a free
	// slot here can each append a fresh page below, leaving the other's
	// page underfull. Harmless: a later insert will still find and fill
	// it, just an extra page.
	n := f.NumPages()
	for i := 0; i < n; i++ {
		page, err := f.bp.getPage(f, PageID{TableID: f.tableID, PageNumber: i}, tid, ReadWrite)
		if err != nil {
			return nil, err
		}
		hp := page.(*HeapPage)
		if hp.getNumEmptySlots() == 0 {
			continue
		}
		if err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		return []Page{hp}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	pageNo := f.NumPages()
	hp := newHeapPage(PageID{TableID: f.tableID, PageNumber: pageNo}, f.desc, f)
	if err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	if err := f.WritePage(hp); err != nil {
		return nil, err
	}
	f.bp.publish(f, hp)
	return []Page{hp}, nil
}

// DeleteTuple fetches the page named by t.Rid (ReadWrite, via the
// buffer pool) and clears its slot.
func (f *HeapFile) DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, newErr(TupleNotFoundError, "tuple has no record id")
	}
	page, err := f.bp.getPage(f, t.Rid.PID, tid, ReadWrite)
	if err != nil {
		return nil, err
	}
	hp := page.(*HeapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	return []Page{hp}, nil
}

// flushPage writes p's bytes back to the backing file and clears its
// dirty flag. The buffer pool does not call it: its own flush path logs
// the page and then calls WritePage directly.
func (f *HeapFile) flushPage(p Page) error {
	if err := f.WritePage(p); err != nil {
		return err
	}
	p.MarkDirty(TransactionID{}, false)
	return nil
}

// Iterator returns a pull-based [Operator] over every used tuple in
// every page, in (pageNumber, slot) order, fetching pages ReadOnly
// through the buffer pool on demand.
func (f *HeapFile) Iterator(tid TransactionID) (Operator, error) {
	return newHeapFileIterator(f, tid), nil
}

type heapFileIterator struct {
	file    *HeapFile
	tid     TransactionID
	pageNo  int
	cur     func() (*Tuple, error)
	opened  bool
	next    *Tuple
	hasNext bool
}

func newHeapFileIterator(f *HeapFile, tid TransactionID) *heapFileIterator {
	return &heapFileIterator{file: f, tid: tid}
}

func (it *heapFileIterator) GetTupleDesc() *TupleDesc { return it.file.desc }
func (it *heapFileIterator) GetChildren() []Operator  { return nil }
func (it *heapFileIterator) SetChildren([]Operator)   {}

func (it *heapFileIterator) Open(tid TransactionID) error {
	it.tid = tid
	it.pageNo = 0
	it.cur = nil
	it.opened = true
	return it.advance()
}

func (it *heapFileIterator) Close() error {
	it.opened = false
	it.cur = nil
	return nil
}

func (it *heapFileIterator) Rewind() error {
	return it.Open(it.tid)
}

func (it *heapFileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, newErr(IllegalOperationError, "HasNext called before Open")
	}
	return it.hasNext, nil
}

func (it *heapFileIterator) Next() (*Tuple, error) {
	if !it.opened {
		return nil, newErr(IllegalOperationError, "Next called before Open")
	}
	if !it.hasNext {
		return nil, newErr(NoSuchElementError, "iterator exhausted")
	}
	t := it.next
	if err := it.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

// advance pulls the next tuple (skipping to subsequent pages as
// necessary) and buffers it as it.next.
func (it *heapFileIterator) advance() error {
	for {
		if it.cur == nil {
			if it.pageNo >= it.file.NumPages() {
				it.hasNext = false
				return nil
			}
			page, err := it.file.bp.getPage(it.file, PageID{TableID: it.file.tableID, PageNumber: it.pageNo}, it.tid, ReadOnly)
			if err != nil {
				return err
			}
			it.cur = page.(*HeapPage).iterator()
		}
		t, err := it.cur()
		if err != nil {
			return err
		}
		if t == nil {
			it.cur = nil
			it.pageNo++
			continue
		}
		it.next = t
		it.hasNext = true
		return nil
	}
}
