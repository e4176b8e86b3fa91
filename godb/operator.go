package godb

// Operator is the pull-based iterator contract every query operator
// implements: Open must precede any HasNext/Next call, Next fails with
// NoSuchElementError once exhausted, and Close ends the scan. Rewind is
// equivalent to Close followed by Open (not Open followed by Close —
// see baseOperator.Rewind).
type Operator interface {
	Open(tid TransactionID) error
	Close() error
	Rewind() error
	HasNext() (bool, error)
	Next() (*Tuple, error)
	GetTupleDesc() *TupleDesc
	GetChildren() []Operator
	SetChildren(children []Operator)
}

// startFunc produces a fresh, unbuffered pull function for an operator,
// given the transaction to scan under. Concrete operators supply one at
// construction; baseOperator calls it from both Open and Rewind so
// operator-specific setup (e.g. reopening children) happens exactly
// once per open, not duplicated between the two.
type startFunc func(tid TransactionID) (func() (*Tuple, error), error)

// baseOperator implements the look-ahead-one-tuple pattern shared by
// every concrete operator in this package: it holds one tuple fetched
// ahead of time so HasNext never has side effects. Concrete operators
// embed a *baseOperator and pass their own output schema to
// newBaseOperator (their schemas differ), which GetTupleDesc then
// returns; everything else is inherited through composition,
// not a type hierarchy (see §9's operator-inheritance design note).
type baseOperator struct {
	desc     *TupleDesc
	children []Operator
	start    startFunc

	tid      TransactionID
	opened   bool
	fetch    func() (*Tuple, error)
	buffered *Tuple
	hasNext  bool
}

func newBaseOperator(desc *TupleDesc, children []Operator, start startFunc) *baseOperator {
	return &baseOperator{desc: desc, children: children, start: start}
}

func (b *baseOperator) Open(tid TransactionID) error {
	fetch, err := b.start(tid)
	if err != nil {
		return err
	}
	b.tid = tid
	b.fetch = fetch
	b.opened = true
	return b.advance()
}

func (b *baseOperator) Close() error {
	b.opened = false
	b.fetch = nil
	b.buffered = nil
	b.hasNext = false
	return nil
}

// Rewind reopens the operator under the same transaction it was last
// opened with. This is deliberately close-then-open: an earlier version
// of this lineage called open() then close(), which plainly leaves the
// operator closed (see spec's REDESIGN FLAGS).
func (b *baseOperator) Rewind() error {
	tid := b.tid
	if err := b.Close(); err != nil {
		return err
	}
	return b.Open(tid)
}

func (b *baseOperator) HasNext() (bool, error) {
	if !b.opened {
		return false, newErr(IllegalOperationError, "HasNext called before Open or after Close")
	}
	return b.hasNext, nil
}

func (b *baseOperator) Next() (*Tuple, error) {
	if !b.opened {
		return nil, newErr(IllegalOperationError, "Next called before Open or after Close")
	}
	if !b.hasNext {
		return nil, newErr(NoSuchElementError, "iterator exhausted")
	}
	t := b.buffered
	if err := b.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *baseOperator) advance() error {
	t, err := b.fetch()
	if err != nil {
		return err
	}
	b.buffered = t
	b.hasNext = t != nil
	return nil
}

func (b *baseOperator) GetTupleDesc() *TupleDesc { return b.desc }
func (b *baseOperator) GetChildren() []Operator  { return b.children }
func (b *baseOperator) SetChildren(c []Operator) { b.children = c }

// drainAll pulls every remaining tuple out of op (which must already be
// open), for operators like EqualityJoin and OrderBy that must
// materialize a full side before producing output.
func drainAll(op Operator) ([]*Tuple, error) {
	var out []*Tuple
	for {
		has, err := op.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			return out, nil
		}
		t, err := op.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
