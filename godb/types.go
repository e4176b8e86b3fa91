// Package godb implements a small paged heap-file storage engine: a
// bounded page cache, page-level two-phase locking with deadlock
// detection, and a Volcano-style iterator pipeline over that cache.
//
// The package follows the lab lineage it grew out of (a page cache
// guarded by a lock manager, heap files as ordered page sequences, and
// pull-based operators), but is not a query engine: parsing, planning,
// and the on-disk log format are external collaborators, represented
// here only by the interfaces ([Catalog], [Log]) that the core calls.
package godb

import (
	"fmt"

	"github.com/google/uuid"
)

// DBType identifies the type of a tuple field.
type DBType int

const (
	IntType DBType = iota
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// Field byte widths, per the wire format: a 4-byte big-endian int, and a
// 4-byte big-endian length prefix followed by 128 bytes of string data.
const (
	intFieldSize    = 4
	StringLength    = 128
	stringFieldSize = 4 + StringLength
)

func (t DBType) byteSize() int {
	switch t {
	case IntType:
		return intFieldSize
	case StringType:
		return stringFieldSize
	}
	return 0
}

// DefaultPageSize is the production page size. Tests that need a
// different size call [SetPageSizeForTest] rather than hard-coding a
// package variable mutation inline; production code must never call it.
const DefaultPageSize = 4096

var pageSize = DefaultPageSize

// PageSize returns the page size in effect for this process.
func PageSize() int {
	return pageSize
}

// SetPageSizeForTest overrides the page size for the duration of a test.
// It exists because GoDB's page layout is derived from a single global
// constant; production code must leave it at [DefaultPageSize] and only
// test code should call this, always paired with a deferred restore.
func SetPageSizeForTest(size int) (restore func()) {
	prev := pageSize
	pageSize = size
	return func() { pageSize = prev }
}

// FieldType describes one column of a schema: its name and its DBType.
// The name is informational only — [TupleDesc.Equals] ignores it.
type FieldType struct {
	Fname string
	Ftype DBType
}

// TupleDesc is the schema of a tuple: an ordered, non-empty list of
// FieldTypes.
type TupleDesc struct {
	Fields []FieldType
}

// NumFields returns the arity of the schema.
func (td *TupleDesc) NumFields() int {
	return len(td.Fields)
}

// Size returns the fixed on-disk width, in bytes, of a tuple of this
// schema.
func (td *TupleDesc) Size() int {
	size := 0
	for _, f := range td.Fields {
		size += f.Ftype.byteSize()
	}
	return size
}

// Equals reports whether d2 has the same length and the same field type
// at every index. Field names are not compared.
func (td *TupleDesc) Equals(d2 *TupleDesc) bool {
	if d2 == nil || len(td.Fields) != len(d2.Fields) {
		return false
	}
	for i := range td.Fields {
		if td.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// Merge returns a new TupleDesc whose fields are those of td followed by
// those of desc2.
func (td *TupleDesc) Merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.Fields)+len(desc2.Fields))
	fields = append(fields, td.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

func (td *TupleDesc) String() string {
	names := make([]string, len(td.Fields))
	for i, f := range td.Fields {
		names[i] = fmt.Sprintf("%s(%s)", f.Fname, f.Ftype)
	}
	return fmt.Sprintf("%v", names)
}

// BoolOp is a predicate operator usable with [Field.EvalPred].
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
)

// TransactionID names a transaction. It is minted externally (see
// [NewTID]) and lives from creation until exactly one call to
// [BufferPool.TransactionComplete].
type TransactionID uuid.UUID

// NewTID mints a fresh, process-unique transaction id.
func NewTID() TransactionID {
	return TransactionID(uuid.New())
}

func (t TransactionID) String() string {
	return uuid.UUID(t).String()
}

// RWPerm is the permission under which a page is requested from the
// buffer pool.
type RWPerm int

const (
	ReadOnly RWPerm = iota
	ReadWrite
)

// PageID names a page: the table it belongs to and its offset within
// that table's backing file. PageID is hashable and is used directly as
// a map key by the lock manager and buffer pool.
type PageID struct {
	TableID    int64
	PageNumber int
}

// RecordID names a tuple's physical location: the page it lives on and
// its slot index within that page.
type RecordID struct {
	PID  PageID
	Slot int
}

// Page is the interface the buffer pool and lock manager operate on.
// [HeapPage] is the only implementation the core provides.
type Page interface {
	ID() PageID
	IsDirty() (TransactionID, bool)
	MarkDirty(tid TransactionID, dirty bool)
	GetBeforeImage() []byte
	SetBeforeImage()
	GetPageData() []byte
}

// DBFile is the collaborator interface a heap file (or any other table
// storage format) presents to the buffer pool.
type DBFile interface {
	ID() int64
	Descriptor() *TupleDesc
	ReadPage(pageNo int) (Page, error)
	WritePage(p Page) error
	InsertTuple(tid TransactionID, t *Tuple) ([]Page, error)
	DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error)
	Iterator(tid TransactionID) (Operator, error)
}

// Catalog resolves a table id to the DBFile backing it. It is an
// external collaborator: schema/catalog discovery is out of scope for
// this engine, which only ever needs to look a table id back up to
// read or write its pages.
type Catalog interface {
	GetDatabaseFile(tableID int64) (DBFile, error)
}

// Log is the write-ahead-log collaborator. Its wire format and
// durability mechanics are out of scope here; the core only needs these
// two calls, issued at commit time and at eviction time under STEAL.
type Log interface {
	LogWrite(tid TransactionID, before, after []byte) error
	Force() error
}
