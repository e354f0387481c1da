// Package store persists notebook records.
//
// Records are addressed by ids "1", "2", ... assigned in creation order.
// There is no delete so ids are always dense: 1..Len().
//
// # Backends
//
// [FileStore] keeps the notebook in a single append-only log file and is
// durable: when Create or Edit returns, the change is on disk.
// [MemStore] keeps records in memory only.
//
//	s, err := store.Open("./data", "Notebook")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	id, err := s.Create(contact.Record{Surname: "Smith", Name: "John"})
//	// id: "1"
//
//	for id, rec := range s.All() {
//	    fmt.Printf("%s: %s\n", id, rec)
//	}
//
// # Thread Safety
//
// Stores can be used from multiple goroutines but a notebook file must be
// opened by only one process at a time. Nothing guards against that.
package store

import (
	"errors"
	"iter"
	"strconv"

	"github.com/obi-vvan-kenobi/notebook/contact"
)

var (
	// ErrNotFound is returned when an id doesn't exist in the store
	ErrNotFound = errors.New("store: record not found")

	// ErrIO matches (with errors.Is) all errors caused by the backing file
	ErrIO = errors.New("store: i/o failure")

	// ErrCorrupt is returned (wrapped in *IOError) when the notebook file can't be parsed
	ErrCorrupt = errors.New("store: corrupt notebook file")

	// ErrClosed is returned by calls on a closed store
	ErrClosed = errors.New("store: closed")
)

// IOError records a failed operation on the backing file
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "store: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIO) true for every *IOError
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// Entry is a record together with its id
type Entry struct {
	ID     string
	Record contact.Record
}

// Storage is implemented by all notebook backends
type Storage interface {
	// Create stores r under a new id and returns the id
	Create(r contact.Record) (string, error)
	// Edit replaces the record stored under id. Returns ErrNotFound
	// if id doesn't exist, in which case the store is not modified.
	Edit(id string, r contact.Record) error
	// Get returns the record stored under id or ErrNotFound
	Get(id string) (contact.Record, error)
	// All iterates over all records in ascending id order.
	// Every call starts from the first record.
	All() iter.Seq2[string, contact.Record]
	// Search returns records matching pattern in ascending id order.
	// No matches is an empty result, not an error.
	Search(pattern contact.Record) ([]Entry, error)
	// Display returns a copy of all records keyed by id.
	// Returns false if there are no records.
	Display() (map[string]contact.Record, bool)
	// Len returns number of records
	Len() int
	Close() error
}

// parseID returns index into a dense slice of records for an id.
// Only canonical decimal ids ("7", not "07" or "+7") are valid.
func parseID(id string, n int) (int, bool) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	if strconv.Itoa(i) != id {
		return 0, false
	}
	return i - 1, true
}

func formatID(idx int) string {
	return strconv.Itoa(idx + 1)
}

func search(seq iter.Seq2[string, contact.Record], pattern contact.Record, literal bool) []Entry {
	m := contact.NewMatcher(pattern, literal)
	res := []Entry{}
	for id, rec := range seq {
		if m.Match(rec) {
			res = append(res, Entry{ID: id, Record: rec})
		}
	}
	return res
}

func display(records []contact.Record) (map[string]contact.Record, bool) {
	if len(records) == 0 {
		return nil, false
	}
	res := make(map[string]contact.Record, len(records))
	for i, rec := range records {
		res[formatID(i)] = rec
	}
	return res, true
}

func panicIf(cond bool, msg string) {
	if cond {
		panic(msg)
	}
}
