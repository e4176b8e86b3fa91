package godb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Tuple is a schema reference plus a dense sequence of fields of that
// schema's arity. Rid is set when the tuple was read off a page (or
// just inserted onto one) and is nil otherwise.
type Tuple struct {
	Desc   TupleDesc
	Fields []Field
	Rid    *RecordID
}

// Equals reports whether t1 and t2 have equal schemas (per
// [TupleDesc.Equals]) and pairwise-equal fields. The RecordID is not
// part of tuple identity.
func (t1 *Tuple) Equals(t2 *Tuple) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if !t1.Desc.Equals(&t2.Desc) || len(t1.Fields) != len(t2.Fields) {
		return false
	}
	for i := range t1.Fields {
		if !t1.Fields[i].EvalPred(t2.Fields[i], OpEq) {
			return false
		}
	}
	return true
}

// writeTo serializes the tuple's fields, in order, using the wire
// format from §6: 4-byte big-endian ints, and 4-byte big-endian
// length-prefixed, zero-padded 128-byte strings.
func (t *Tuple) writeTo(buf *bytes.Buffer) error {
	for i, f := range t.Fields {
		switch v := f.(type) {
		case IntField:
			if err := binary.Write(buf, binary.BigEndian, v.Value); err != nil {
				return err
			}
		case StringField:
			if err := writeStringField(buf, v); err != nil {
				return err
			}
		default:
			return newErr(TypeMismatchError, "field %d: unsupported field type %T", i, f)
		}
	}
	return nil
}

func writeStringField(buf *bytes.Buffer, f StringField) error {
	s := f.Value
	if len(s) > StringLength {
		s = s[:StringLength]
	}
	if err := binary.Write(buf, binary.BigEndian, int32(len(s))); err != nil {
		return err
	}
	padded := make([]byte, StringLength)
	copy(padded, s)
	_, err := buf.Write(padded)
	return err
}

// readTupleFrom deserializes one tuple of the given schema from buf.
func readTupleFrom(buf *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	fields := make([]Field, len(desc.Fields))
	for i, ft := range desc.Fields {
		switch ft.Ftype {
		case IntType:
			var v int32
			if err := binary.Read(buf, binary.BigEndian, &v); err != nil {
				return nil, err
			}
			fields[i] = IntField{Value: v}
		case StringType:
			var length int32
			if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
				return nil, err
			}
			raw := make([]byte, StringLength)
			if _, err := buf.Read(raw); err != nil {
				return nil, err
			}
			if int(length) > StringLength || length < 0 {
				return nil, newErr(MalformedDataError, "string field length %d out of range", length)
			}
			fields[i] = StringField{Value: string(raw[:length])}
		default:
			return nil, newErr(TypeMismatchError, "unknown field type %v", ft.Ftype)
		}
	}
	return &Tuple{Desc: *desc, Fields: fields}, nil
}

// PrettyPrintString renders the tuple as a single comma- (or
// space-, when aligned) separated line, mirroring the debug formatting
// the lab lineage's REPL used to print query results.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	if aligned {
		return strings.Join(parts, " | ")
	}
	return strings.Join(parts, ",")
}

func (t *Tuple) String() string {
	return fmt.Sprintf("%s", t.PrettyPrintString(false))
}
