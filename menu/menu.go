// Package menu is the interactive notebook session: a loop that shows
// numbered options, runs the chosen command and waits for Enter before
// showing the options again.
package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/obi-vvan-kenobi/notebook/contact"
	"github.com/obi-vvan-kenobi/notebook/log"
	"github.com/obi-vvan-kenobi/notebook/pager"
	"github.com/obi-vvan-kenobi/notebook/store"
)

// ansi sequence: move cursor to top left and clear the screen
const clearScreen = "\033[H\033[2J"

type Session struct {
	Store    store.Storage
	PageSize int
	In       io.Reader
	Out      io.Writer
	// shown in the title
	Name string
	// don't clear the screen between commands
	NoClear bool

	in     *bufio.Reader
	styles styles
}

type option struct {
	key  string
	name string
	run  func(s *Session) error
}

var options = []option{
	{"1", "Add a record", (*Session).add},
	{"2", "List all records", (*Session).list},
	{"3", "Edit a record", (*Session).edit},
	{"4", "Search records", (*Session).search},
	{"q", "Quit", nil},
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.Out, format, args...)
}

func (s *Session) println(str string) {
	_, _ = io.WriteString(s.Out, str+"\n")
}

func (s *Session) clear() {
	if !s.NoClear {
		_, _ = io.WriteString(s.Out, clearScreen)
	}
}

// readLine prints prompt and reads a line of input without the trailing
// newline. Returns io.EOF when input is exhausted.
func (s *Session) readLine(prompt string) (string, error) {
	if prompt != "" {
		s.println(s.styles.prompt.Render(prompt))
	}
	line, err := s.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Session) printOptions() {
	for _, o := range options {
		s.printf("(%s) %s\n", s.styles.key.Render(o.key), o.name)
	}
	s.println("")
}

func findOption(key string) *option {
	for i := range options {
		if options[i].key == key {
			return &options[i]
		}
	}
	return nil
}

func (s *Session) chooseOption() (*option, error) {
	for {
		choice, err := s.readLine("Choose an option:")
		if err != nil {
			return nil, err
		}
		if o := findOption(strings.TrimSpace(choice)); o != nil {
			return o, nil
		}
		s.println(s.styles.err.Render("There's no such option"))
	}
}

// Run runs the session until the user quits or input ends.
// Returns an error only if the store fails.
func (s *Session) Run() error {
	s.in = bufio.NewReader(s.In)
	s.styles = newStyles(s.Out)
	if s.Name == "" {
		s.Name = "Notebook"
	}
	s.println(s.styles.title.Render("Welcome to the notebook!"))
	for {
		s.clear()
		s.println(s.styles.title.Render(s.Name) + s.styles.dim.Render(fmt.Sprintf(" (%d records)", s.Store.Len())))
		s.println("")
		s.printOptions()
		o, err := s.chooseOption()
		if err != nil {
			return ignoreEOF(err)
		}
		if o.run == nil {
			return nil
		}
		s.clear()
		if err = o.run(s); err != nil {
			return ignoreEOF(err)
		}
		if _, err = s.readLine("Press Enter to return to the main menu"); err != nil {
			return ignoreEOF(err)
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// promptRecord asks for every field of a record
func (s *Session) promptRecord() (contact.Record, error) {
	var r contact.Record
	for _, f := range contact.Fields {
		v, err := s.readLine(f.Label + ":")
		if err != nil {
			return r, err
		}
		f.Set(&r, strings.TrimSpace(v))
	}
	return r, nil
}

func (s *Session) formatEntry(id string, r contact.Record) string {
	return s.styles.id.Render(id+":") + " " + r.String()
}

func (s *Session) add() error {
	r, err := s.promptRecord()
	if err != nil {
		return err
	}
	id, err := s.Store.Create(r)
	if err != nil {
		return err
	}
	log.Event("record.create", "id", id)
	s.println(s.styles.info.Render(fmt.Sprintf("Record %s created", id)))
	return nil
}

// renderer shows pages of the list command
type renderer struct {
	s *Session
}

func (r renderer) RenderPage(page []store.Entry, n int) error {
	for _, e := range page {
		r.s.println(r.s.formatEntry(e.ID, e.Record))
	}
	return nil
}

func (r renderer) RenderEmpty() error {
	r.s.println(r.s.styles.info.Render("There are no records"))
	return nil
}

func (r renderer) Continue() (bool, error) {
	answer, err := r.s.readLine(`Enter "n" to show the next page, anything else to stop`)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "n"), nil
}

func (s *Session) list() error {
	return pager.Run(s.Store.All(), s.PageSize, renderer{s})
}

func (s *Session) edit() error {
	id, err := s.readLine("Number of the record to edit:")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	old, err := s.Store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		s.println(s.styles.err.Render(fmt.Sprintf("Record %s not found", id)))
		return nil
	}
	if err != nil {
		return err
	}
	s.println(s.formatEntry(id, old))
	s.println("")
	s.println(s.styles.dim.Render("Type new values, press Enter to keep the old value"))
	changes, err := s.promptRecord()
	if err != nil {
		return err
	}
	if err = s.Store.Edit(id, old.Merge(changes)); err != nil {
		return err
	}
	log.Event("record.edit", "id", id)
	s.println(s.styles.info.Render(fmt.Sprintf("Record %s updated", id)))
	return nil
}

func (s *Session) search() error {
	s.println(s.styles.dim.Render("Fill fields to search by, press Enter to skip a field"))
	pattern, err := s.promptRecord()
	if err != nil {
		return err
	}
	res, err := s.Store.Search(pattern)
	if err != nil {
		return err
	}
	log.Event("record.search", "found", len(res))
	if len(res) == 0 {
		s.println(s.styles.info.Render("Nothing found"))
		return nil
	}
	s.println("")
	for _, e := range res {
		s.println(s.formatEntry(e.ID, e.Record))
	}
	return nil
}
