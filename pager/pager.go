// Package pager splits a sequence of records into pages shown one at a
// time, asking the caller before showing the next page.
package pager

import (
	"iter"

	"github.com/obi-vvan-kenobi/notebook/contact"
	"github.com/obi-vvan-kenobi/notebook/store"
)

// DefaultSize is the number of records per page
const DefaultSize = 5

// Pager pulls pages from a sequence. It looks one record ahead so that
// More() is exact: after the last full page More() returns false.
type Pager struct {
	size int
	next func() (string, contact.Record, bool)
	stop func()

	// lookahead
	ahead    store.Entry
	hasAhead bool
	// number of pages returned by Next
	pages int
}

// New returns a pager over seq. Size < 1 is treated as 1.
// Call Stop when done.
func New(seq iter.Seq2[string, contact.Record], size int) *Pager {
	if size < 1 {
		size = 1
	}
	next, stop := iter.Pull2(seq)
	p := &Pager{
		size: size,
		next: next,
		stop: stop,
	}
	p.pull()
	return p
}

func (p *Pager) pull() {
	id, rec, ok := p.next()
	p.hasAhead = ok
	if ok {
		p.ahead = store.Entry{ID: id, Record: rec}
	} else {
		p.ahead = store.Entry{}
	}
}

// More returns true if Next would return a non-empty page
func (p *Pager) More() bool {
	return p.hasAhead
}

// Next returns up to size entries, nil if there are no more
func (p *Pager) Next() []store.Entry {
	if !p.hasAhead {
		return nil
	}
	page := make([]store.Entry, 0, p.size)
	for p.hasAhead && len(page) < p.size {
		page = append(page, p.ahead)
		p.pull()
	}
	p.pages++
	return page
}

// Pages returns number of pages returned so far
func (p *Pager) Pages() int {
	return p.pages
}

// Stop releases the underlying sequence. Can be called multiple times.
func (p *Pager) Stop() {
	p.hasAhead = false
	p.stop()
}

// Renderer shows pages and asks whether to continue
type Renderer interface {
	// RenderPage shows a page. n is the page number, starting with 1.
	RenderPage(page []store.Entry, n int) error
	// RenderEmpty is called once, instead of RenderPage, when there
	// is nothing to show
	RenderEmpty() error
	// Continue is called after a page when more records remain.
	// Returning false stops paging.
	Continue() (bool, error)
}

// Run shows seq page by page until it's exhausted, the renderer declines
// to continue or returns an error
func Run(seq iter.Seq2[string, contact.Record], size int, r Renderer) error {
	p := New(seq, size)
	defer p.Stop()

	if !p.More() {
		return r.RenderEmpty()
	}
	for {
		page := p.Next()
		if err := r.RenderPage(page, p.Pages()); err != nil {
			return err
		}
		if !p.More() {
			return nil
		}
		ok, err := r.Continue()
		if err != nil || !ok {
			return err
		}
	}
}
