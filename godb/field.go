package godb

import (
	"strconv"
	"strings"
)

// Field is a tagged tuple value: either an [IntField] or a
// [StringField]. EvalPred compares the receiver against another field
// of the same underlying type using the supplied predicate.
type Field interface {
	Type() DBType
	EvalPred(other Field, op BoolOp) bool
	String() string
}

// IntField is a 4-byte signed integer field value.
type IntField struct {
	Value int32
}

func (f IntField) Type() DBType { return IntType }

func (f IntField) String() string {
	return strconv.Itoa(int(f.Value))
}

// EvalPred compares f against other, which must also be an IntField;
// any other type compares unequal/false for every op.
func (f IntField) EvalPred(other Field, op BoolOp) bool {
	o, ok := other.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	case OpLike:
		return f.Value == o.Value
	}
	return false
}

// StringField is a fixed-width string field value, at most
// [StringLength] bytes once encoded.
type StringField struct {
	Value string
}

func (f StringField) Type() DBType { return StringType }

func (f StringField) String() string { return f.Value }

// EvalPred compares f against other, which must also be a StringField.
// OpLike is a substring match: f.Value contains other.Value.
func (f StringField) EvalPred(other Field, op BoolOp) bool {
	o, ok := other.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	case OpLike:
		return strings.Contains(f.Value, o.Value)
	}
	return false
}
