package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/obi-vvan-kenobi/notebook/contact"
)

// Ext is the extension of notebook files
const Ext = ".notebook"

// FileStore is a Storage backed by an append-only log file
// ${Dir}/${Name}.notebook
type FileStore struct {
	Dir  string
	Name string

	// if true, will call file.Sync() after every write
	SyncWrite bool

	// if true, search patterns are literal text and not regular expressions
	Literal bool

	path string
	file logFile
	// set when a failed write couldn't be undone, all later writes fail
	writeErr error
	// size of the log file, the offset of the next entry
	size int64

	mu      sync.Mutex
	records []contact.Record
	// number of entries in the log file, >= len(records)
	nEntries int
	closed   bool
	buf      bytes.Buffer
}

var _ Storage = &FileStore{}

// logFile is implemented by *os.File
type logFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Stats describes the log file of a FileStore
type Stats struct {
	Records int
	Entries int
	Size    int64
}

// Open opens (and creates if needed) notebook name in dir
func Open(dir string, name string) (*FileStore, error) {
	s := &FileStore{
		Dir:       dir,
		Name:      name,
		SyncWrite: true,
	}
	if err := OpenStore(s); err != nil {
		return nil, err
	}
	return s, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("store: notebook name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("store: invalid notebook name '%s'", name)
	}
	return nil
}

// OpenStore opens a store configured by the caller and reads the log
// into memory
func OpenStore(s *FileStore) error {
	if err := validateName(s.Name); err != nil {
		return err
	}
	s.path = filepath.Join(s.Dir, s.Name+Ext)
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: s.Dir, Err: err}
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return &IOError{Op: "open", Path: s.path, Err: err}
	}
	var rp replay
	if err = readLog(f, rp.apply); err != nil {
		_ = f.Close()
		return &IOError{Op: "read", Path: s.path, Err: err}
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return &IOError{Op: "seek", Path: s.path, Err: err}
	}
	s.file = f
	s.writeErr = nil
	s.size = size
	s.records = rp.records
	s.nEntries = rp.entries
	s.closed = false
	return nil
}

// Path returns path of the log file
func (s *FileStore) Path() string {
	return s.path
}

// appendEntry writes e at the end of the log. On failure the file is
// truncated back so that a partial entry is never left behind. If that
// fails too, the store refuses further writes.
// must be called with s.mu locked
func (s *FileStore) appendEntry(e *logEntry) error {
	panicIf(s.file == nil, "store not opened, use Open() or OpenStore()")
	if s.writeErr != nil {
		return s.writeErr
	}
	if e.TimestampMs == 0 {
		e.TimestampMs = time.Now().UTC().UnixMilli()
	}
	d := marshalEntry(e, &s.buf)
	n, err := s.file.Write(d)
	if err == nil && s.SyncWrite {
		err = s.file.Sync()
	}
	if err == nil {
		s.size += int64(len(d))
		s.nEntries++
		return nil
	}
	if n > 0 {
		if errTrunc := s.file.Truncate(s.size); errTrunc != nil {
			err = errors.Join(err, errTrunc)
			s.writeErr = &IOError{Op: "write", Path: s.path, Err: fmt.Errorf("log has a partial entry: %w", err)}
			return s.writeErr
		}
	}
	return &IOError{Op: "write", Path: s.path, Err: err}
}

// Create appends r as a new record and returns its id
func (s *FileStore) Create(r contact.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	e := &logEntry{
		Op:     opCreate,
		ID:     formatID(len(s.records)),
		Record: r,
	}
	if err := s.appendEntry(e); err != nil {
		return "", err
	}
	s.records = append(s.records, r)
	return e.ID, nil
}

// Edit replaces the record with a given id
func (s *FileStore) Edit(id string, r contact.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	idx, ok := parseID(id, len(s.records))
	if !ok {
		return fmt.Errorf("edit '%s': %w", id, ErrNotFound)
	}
	e := &logEntry{
		Op:     opEdit,
		ID:     id,
		Record: r,
	}
	if err := s.appendEntry(e); err != nil {
		return err
	}
	s.records[idx] = r
	return nil
}

func (s *FileStore) Get(id string) (contact.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return contact.Record{}, ErrClosed
	}
	idx, ok := parseID(id, len(s.records))
	if !ok {
		return contact.Record{}, fmt.Errorf("get '%s': %w", id, ErrNotFound)
	}
	return s.records[idx], nil
}

// All iterates records from id "1" up. Records created during iteration
// are included. Yields nothing on a closed store.
func (s *FileStore) All() iter.Seq2[string, contact.Record] {
	return func(yield func(string, contact.Record) bool) {
		for i := 0; ; i++ {
			s.mu.Lock()
			if s.closed || i >= len(s.records) {
				s.mu.Unlock()
				return
			}
			rec := s.records[i]
			s.mu.Unlock()
			if !yield(formatID(i), rec) {
				return
			}
		}
	}
}

func (s *FileStore) Search(pattern contact.Record) ([]Entry, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return search(s.All(), pattern, s.Literal), nil
}

func (s *FileStore) Display() (map[string]contact.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	return display(s.records)
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Stats returns number of live records, number of entries in the log
// and size of the log file
func (s *FileStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Records: len(s.records),
		Entries: s.nEntries,
		Size:    s.size,
	}
}

// Close closes the log file. Can be called multiple times.
func (s *FileStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.records = nil
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	err := f.Sync()
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}
