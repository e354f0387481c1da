package pager

import (
	"errors"
	"iter"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/obi-vvan-kenobi/notebook/contact"
	"github.com/obi-vvan-kenobi/notebook/store"
)

func mkStore(n int) *store.MemStore {
	s := store.NewMemStore()
	for i := 0; i < n; i++ {
		_, _ = s.Create(contact.Record{Name: string(rune('a' + i))})
	}
	return s
}

type testRenderer struct {
	pages   [][]string
	nums    []int
	empty   int
	prompts int
	// answers to Continue, true when exhausted
	answers []bool
	errAt   int
}

func (r *testRenderer) RenderPage(page []store.Entry, n int) error {
	var ids []string
	for _, e := range page {
		ids = append(ids, e.ID)
	}
	r.pages = append(r.pages, ids)
	r.nums = append(r.nums, n)
	return nil
}

func (r *testRenderer) RenderEmpty() error {
	r.empty++
	return nil
}

var errPrompt = errors.New("prompt failed")

func (r *testRenderer) Continue() (bool, error) {
	r.prompts++
	if r.errAt == r.prompts {
		return false, errPrompt
	}
	if len(r.answers) == 0 {
		return true, nil
	}
	ok := r.answers[0]
	r.answers = r.answers[1:]
	return ok, nil
}

func TestRunAllPages(t *testing.T) {
	s := mkStore(5)
	r := &testRenderer{}
	err := Run(s.All(), 2, r)
	assert.NoError(t, err)
	exp := [][]string{{"1", "2"}, {"3", "4"}, {"5"}}
	assert.Equal(t, exp, r.pages)
	assert.Equal(t, []int{1, 2, 3}, r.nums)
	// no prompt after the last page
	assert.Equal(t, 2, r.prompts)
	assert.Equal(t, 0, r.empty)
}

func TestRunExactPages(t *testing.T) {
	r := &testRenderer{}
	err := Run(mkStore(4).All(), 2, r)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, r.pages)
	assert.Equal(t, 1, r.prompts)

	r = &testRenderer{}
	err = Run(mkStore(3).All(), 5, r)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2", "3"}}, r.pages)
	assert.Equal(t, 0, r.prompts)
}

func TestRunDecline(t *testing.T) {
	r := &testRenderer{answers: []bool{false}}
	err := Run(mkStore(5).All(), 2, r)
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, r.pages)
	assert.Equal(t, 1, r.prompts)

	r = &testRenderer{answers: []bool{true, false}}
	err = Run(mkStore(5).All(), 2, r)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(r.pages))
}

func TestRunEmpty(t *testing.T) {
	r := &testRenderer{}
	err := Run(mkStore(0).All(), 2, r)
	assert.NoError(t, err)
	assert.Equal(t, 1, r.empty)
	assert.Equal(t, 0, len(r.pages))
	assert.Equal(t, 0, r.prompts)
}

func TestRunError(t *testing.T) {
	r := &testRenderer{errAt: 1}
	err := Run(mkStore(5).All(), 2, r)
	assert.Equal(t, errPrompt, err)
	assert.Equal(t, 1, len(r.pages))
}

func TestRunSizeLessThanOne(t *testing.T) {
	for _, size := range []int{0, -3} {
		r := &testRenderer{}
		err := Run(mkStore(3).All(), size, r)
		assert.NoError(t, err)
		assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, r.pages)
	}
}

func TestPager(t *testing.T) {
	p := New(mkStore(3).All(), 2)
	defer p.Stop()
	assert.True(t, p.More())
	page := p.Next()
	assert.Equal(t, 2, len(page))
	assert.Equal(t, "a", page[0].Record.Name)
	assert.True(t, p.More())
	page = p.Next()
	assert.Equal(t, 1, len(page))
	assert.Equal(t, "3", page[0].ID)
	assert.False(t, p.More())
	assert.Nil(t, p.Next())
	assert.Equal(t, 2, p.Pages())
}

func TestPagerStopEarly(t *testing.T) {
	stopped := false
	seq := iter.Seq2[string, contact.Record](func(yield func(string, contact.Record) bool) {
		defer func() { stopped = true }()
		for {
			if !yield("x", contact.Record{}) {
				return
			}
		}
	})
	p := New(seq, 3)
	assert.Equal(t, 3, len(p.Next()))
	p.Stop()
	p.Stop()
	assert.True(t, stopped)
	assert.False(t, p.More())
}
