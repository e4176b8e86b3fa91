package godb

import (
	"bytes"
	"encoding/binary"
	"os"
)

// FileLog is a minimal [Log] collaborator: it appends each write to an
// in-memory buffer and flushes the buffer to its backing file (with a
// Sync) on Force. The on-disk record format — and any replay of it —
// is deliberately not specified here; the core never reads a record
// back, it only ever calls LogWrite then, eventually, Force.
type FileLog struct {
	file *os.File
	buf  bytes.Buffer
}

// NewFileLog opens (creating if necessary) fileName as the backing log
// file.
func NewFileLog(fileName string) (*FileLog, error) {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLog{file: f}, nil
}

// LogWrite appends a record recording tid's before/after images of one
// page to the in-memory buffer; it is not durable until Force.
func (l *FileLog) LogWrite(tid TransactionID, before, after []byte) error {
	idBytes := tid.String()
	if err := binary.Write(&l.buf, binary.BigEndian, int32(len(idBytes))); err != nil {
		return err
	}
	l.buf.WriteString(idBytes)
	if err := binary.Write(&l.buf, binary.BigEndian, int32(len(before))); err != nil {
		return err
	}
	l.buf.Write(before)
	if err := binary.Write(&l.buf, binary.BigEndian, int32(len(after))); err != nil {
		return err
	}
	l.buf.Write(after)
	return nil
}

// Force flushes every buffered record to the backing file and syncs it.
func (l *FileLog) Force() error {
	if l.buf.Len() == 0 {
		return nil
	}
	if _, err := l.file.Write(l.buf.Bytes()); err != nil {
		return err
	}
	l.buf.Reset()
	return l.file.Sync()
}

// NopLog discards every write. It is useful for tests that exercise the
// buffer pool's cache/lock behavior without caring about durability.
type NopLog struct{}

func (NopLog) LogWrite(tid TransactionID, before, after []byte) error { return nil }
func (NopLog) Force() error { return nil }
