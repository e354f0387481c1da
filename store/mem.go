package store

import (
	"fmt"
	"iter"
	"sync"

	"github.com/obi-vvan-kenobi/notebook/contact"
)

// MemStore is a Storage that keeps records only in memory
type MemStore struct {
	// if true, search patterns are literal text and not regular expressions
	Literal bool

	mu      sync.Mutex
	records []contact.Record
	closed  bool
}

var _ Storage = &MemStore{}

// NewMemStore returns a store with records created in order
func NewMemStore(records ...contact.Record) *MemStore {
	return &MemStore{
		records: append([]contact.Record(nil), records...),
	}
}

func (s *MemStore) Create(r contact.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.records = append(s.records, r)
	return formatID(len(s.records) - 1), nil
}

func (s *MemStore) Edit(id string, r contact.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	idx, ok := parseID(id, len(s.records))
	if !ok {
		return fmt.Errorf("edit '%s': %w", id, ErrNotFound)
	}
	s.records[idx] = r
	return nil
}

func (s *MemStore) Get(id string) (contact.Record, error) {
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

func (s *MemStore) All() iter.Seq2[string, contact.Record] {
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

func (s *MemStore) Search(pattern contact.Record) ([]Entry, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return search(s.All(), pattern, s.Literal), nil
}

func (s *MemStore) Display() (map[string]contact.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	return display(s.records)
}

func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
