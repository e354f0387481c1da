package store

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/obi-vvan-kenobi/notebook/atomicfile"
)

// Compact rewrites the log so that it has a single create entry per
// record, dropping superseded edits. Ids and values don't change.
//
// The new log is written to a temporary file and renamed over the old
// one so a crash leaves either the old or the new log.
func (s *FileStore) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.nEntries == len(s.records) && s.writeErr == nil {
		// nothing to drop
		return nil
	}

	var size int64
	ts := time.Now().UTC().UnixMilli()
	err := atomicfile.WriteWith(s.path, func(w io.Writer) error {
		var buf bytes.Buffer
		e := logEntry{Op: opCreate, TimestampMs: ts}
		for i, rec := range s.records {
			e.ID = formatID(i)
			e.Record = rec
			d := marshalEntry(&e, &buf)
			if _, err := w.Write(d); err != nil {
				return err
			}
			size += int64(len(d))
		}
		return nil
	})
	if err != nil {
		return &IOError{Op: "compact", Path: s.path, Err: err}
	}

	// the old handle points to the replaced file
	_ = s.file.Close()
	s.file = nil
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		// can't write anymore
		s.closed = true
		s.records = nil
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	s.file = f
	// the new log has no partial entries
	s.writeErr = nil
	s.size = size
	s.nEntries = len(s.records)
	return nil
}
