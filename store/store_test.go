package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/obi-vvan-kenobi/notebook/contact"
)

var (
	smith  = contact.Record{Surname: "Smith", Name: "John", Organization: "Acme Corp.", MobilePhone: "555-0199"}
	jones  = contact.Record{Surname: "Jones", Name: "Ann", Organization: "Initech"}
	smythe = contact.Record{Surname: "Smythe", Name: "Jane", OfficePhone: "555-0100"}
	ivanov = contact.Record{Surname: "Иванов", Name: "Пётр", Organization: "ООО Ромашка\nфилиал №2"}
)

func openTestStore(t *testing.T) *FileStore {
	s, err := Open(t.TempDir(), "Notebook")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func collect(s Storage) []Entry {
	var res []Entry
	for id, rec := range s.All() {
		res = append(res, Entry{ID: id, Record: rec})
	}
	return res
}

// testStorage checks behavior shared by all backends
func testStorage(t *testing.T, s Storage) {
	assert.Equal(t, 0, s.Len())
	_, ok := s.Display()
	assert.False(t, ok)
	assert.Equal(t, 0, len(collect(s)))
	res, err := s.Search(contact.Record{})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(res))

	for i, r := range []contact.Record{smith, jones, smythe, ivanov} {
		id, err := s.Create(r)
		assert.NoError(t, err)
		assert.Equal(t, formatID(i), id)
	}
	assert.Equal(t, 4, s.Len())

	rec, err := s.Get("2")
	assert.NoError(t, err)
	assert.Equal(t, jones, rec)

	for _, id := range []string{"0", "5", "02", "x", ""} {
		_, err = s.Get(id)
		assert.True(t, errors.Is(err, ErrNotFound), "id '%s'", id)
	}

	edited := jones
	edited.MobilePhone = "555-0142"
	err = s.Edit("2", edited)
	assert.NoError(t, err)
	rec, _ = s.Get("2")
	assert.Equal(t, edited, rec)

	// edit never inserts
	err = s.Edit("5", smith)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 4, s.Len())
	_, err = s.Get("5")
	assert.True(t, errors.Is(err, ErrNotFound))

	// iteration is ordered, complete and restartable
	exp := []Entry{{"1", smith}, {"2", edited}, {"3", smythe}, {"4", ivanov}}
	assert.Equal(t, exp, collect(s))
	assert.Equal(t, exp, collect(s))

	// early break
	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	m, ok := s.Display()
	assert.True(t, ok)
	assert.Equal(t, 4, len(m))
	assert.Equal(t, smythe, m["3"])
	// Display returns a copy
	m["3"] = smith
	rec, _ = s.Get("3")
	assert.Equal(t, smythe, rec)

	res, err = s.Search(contact.Record{Surname: "sm"})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{"1", smith}, {"3", smythe}}, res)

	res, err = s.Search(contact.Record{Surname: "sm", Name: "jane"})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{"3", smythe}}, res)

	res, err = s.Search(contact.Record{Organization: "ромашка"})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{"4", ivanov}}, res)

	res, err = s.Search(contact.Record{Name: "nobody"})
	assert.NoError(t, err)
	assert.True(t, res != nil)
	assert.Equal(t, 0, len(res))

	res, err = s.Search(contact.Record{})
	assert.NoError(t, err)
	assert.Equal(t, 4, len(res))

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	_, err = s.Create(smith)
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, s.Edit("1", smith))
	_, err = s.Get("1")
	assert.Equal(t, ErrClosed, err)
	_, err = s.Search(contact.Record{})
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, 0, len(collect(s)))
}

func TestMemStore(t *testing.T) {
	testStorage(t, NewMemStore())
}

func TestFileStore(t *testing.T) {
	testStorage(t, openTestStore(t))
}

func TestMemStoreLiteral(t *testing.T) {
	s := NewMemStore(smith, contact.Record{Organization: "Acme Corps"})
	res, _ := s.Search(contact.Record{Organization: "corp."})
	assert.Equal(t, 2, len(res))
	s.Literal = true
	res, _ = s.Search(contact.Record{Organization: "corp."})
	assert.Equal(t, []Entry{{"1", smith}}, res)
}

func TestFileStoreReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Notebook.notebook"), s.Path())
	_, _ = s.Create(smith)
	_, _ = s.Create(jones)
	_, _ = s.Create(ivanov)
	edited := smith.Merge(contact.Record{Name: "Johnny"})
	assert.NoError(t, s.Edit("1", edited))
	assert.NoError(t, s.Close())

	s, err = Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 3, s.Len())
	exp := []Entry{{"1", edited}, {"2", jones}, {"3", ivanov}}
	assert.Equal(t, exp, collect(s))
	st := s.Stats()
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, 4, st.Entries)

	// ids continue after reopen
	id, err := s.Create(smythe)
	assert.NoError(t, err)
	assert.Equal(t, "4", id)
}

func TestFileStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := Open(dir, "work")
	assert.NoError(t, err)
	defer s.Close()
	_, err = os.Stat(filepath.Join(dir, "work.notebook"))
	assert.NoError(t, err)
}

func TestFileStoreInvalidName(t *testing.T) {
	for _, name := range []string{"", "a/b", "..", `a\b`} {
		_, err := Open(t.TempDir(), name)
		assert.Error(t, err, "name '%s'", name)
	}
}

func TestFileStoreTruncated(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	_, _ = s.Create(smith)
	_, _ = s.Create(jones)
	path := s.Path()
	assert.NoError(t, s.Close())

	st, err := os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, os.Truncate(path, st.Size()-3))

	_, err = Open(dir, "Notebook")
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.True(t, errors.Is(err, ErrIO))
	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, path, ioErr.Path)
}

func TestFileStoreCompact(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s.Close()
	_, _ = s.Create(smith)
	_, _ = s.Create(jones)
	_, _ = s.Create(ivanov)
	r := smith
	for _, phone := range []string{"1", "2", "3"} {
		r.MobilePhone = phone
		assert.NoError(t, s.Edit("1", r))
	}
	before := s.Stats()
	assert.Equal(t, 6, before.Entries)
	exp := collect(s)

	assert.NoError(t, s.Compact())
	after := s.Stats()
	assert.Equal(t, 3, after.Entries)
	assert.Equal(t, 3, after.Records)
	assert.True(t, after.Size < before.Size)
	assert.Equal(t, exp, collect(s))

	st, err := os.Stat(s.Path())
	assert.NoError(t, err)
	assert.Equal(t, after.Size, st.Size())
	assert.Equal(t, os.FileMode(0644), st.Mode().Perm())

	// the store is still writable
	id, err := s.Create(smythe)
	assert.NoError(t, err)
	assert.Equal(t, "4", id)
	exp = append(exp, Entry{"4", smythe})
	assert.NoError(t, s.Close())

	s2, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, exp, collect(s2))
	assert.Equal(t, 4, s2.Stats().Entries)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
}

func TestFileStoreLiteral(t *testing.T) {
	s := openTestStore(t)
	_, _ = s.Create(smith)
	_, _ = s.Create(contact.Record{Organization: "Acme Corps"})

	res, err := s.Search(contact.Record{Organization: "corp."})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(res))

	s.Literal = true
	res, err = s.Search(contact.Record{Organization: "corp."})
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{"1", smith}}, res)
}

var errWriteFailed = errors.New("no space left on device")

// shortWriteFile writes at most limit bytes and fails
type shortWriteFile struct {
	*os.File
	limit       int
	errTruncate error
}

func (f *shortWriteFile) Write(d []byte) (int, error) {
	n, _ := f.File.Write(d[:min(f.limit, len(d))])
	return n, errWriteFailed
}

func (f *shortWriteFile) Truncate(size int64) error {
	if f.errTruncate != nil {
		return f.errTruncate
	}
	return f.File.Truncate(size)
}

func assertSizeOnDisk(t *testing.T, s *FileStore) {
	st, err := os.Stat(s.Path())
	assert.NoError(t, err)
	assert.Equal(t, st.Size(), s.Stats().Size)
}

func TestFileStoreWriteFails(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s.Close()
	_, _ = s.Create(smith)
	_, _ = s.Create(jones)

	f := s.file
	ro, err := os.Open(s.Path())
	assert.NoError(t, err)
	s.file = ro
	_, err = s.Create(smythe)
	assert.True(t, errors.Is(err, ErrIO))
	err = s.Edit("1", smythe)
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, 2, s.Len())
	rec, err := s.Get("1")
	assert.NoError(t, err)
	assert.Equal(t, smith, rec)
	assert.Equal(t, 2, s.Stats().Entries)
	assertSizeOnDisk(t, s)
	_ = ro.Close()

	// still writable once the file is
	s.file = f
	id, err := s.Create(smythe)
	assert.NoError(t, err)
	assert.Equal(t, "3", id)
	assert.NoError(t, s.Close())

	s2, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, []Entry{{"1", smith}, {"2", jones}, {"3", smythe}}, collect(s2))
}

func TestFileStorePartialWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s.Close()
	_, _ = s.Create(smith)

	f := s.file.(*os.File)
	s.file = &shortWriteFile{File: f, limit: 10}
	_, err = s.Create(jones)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, errWriteFailed))
	assert.Equal(t, 1, s.Len())
	// partial entry was removed
	assertSizeOnDisk(t, s)

	s.file = f
	_, err = s.Create(jones)
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	s2, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, 2, s2.Len())
}

func TestFileStoreTruncateFails(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s.Close()
	_, _ = s.Create(smith)

	f := s.file.(*os.File)
	errTruncate := errors.New("truncate failed")
	s.file = &shortWriteFile{File: f, limit: 10, errTruncate: errTruncate}
	_, err = s.Create(jones)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, errWriteFailed))
	assert.True(t, errors.Is(err, errTruncate))
	assert.Equal(t, 1, s.Len())

	// the log has a partial entry so writes are refused
	s.file = f
	_, err = s.Create(jones)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, errTruncate))
	rec, err := s.Get("1")
	assert.NoError(t, err)
	assert.Equal(t, smith, rec)

	// compaction rewrites the log from memory
	assert.NoError(t, s.Compact())
	assertSizeOnDisk(t, s)
	id, err := s.Create(jones)
	assert.NoError(t, err)
	assert.Equal(t, "2", id)
	assert.NoError(t, s.Close())

	s2, err := Open(dir, "Notebook")
	assert.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, []Entry{{"1", smith}, {"2", jones}}, collect(s2))
}
