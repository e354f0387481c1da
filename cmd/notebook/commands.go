package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/obi-vvan-kenobi/notebook/backup"
	"github.com/obi-vvan-kenobi/notebook/contact"
	"github.com/obi-vvan-kenobi/notebook/export"
	"github.com/obi-vvan-kenobi/notebook/log"
	"github.com/obi-vvan-kenobi/notebook/menu"
	"github.com/obi-vvan-kenobi/notebook/store"
)

func (a *app) notebookPath() string {
	return filepath.Join(a.cfg.Notebook.Dir, a.cfg.Notebook.Name+store.Ext)
}

func (a *app) openStore() (*store.FileStore, error) {
	s := &store.FileStore{
		Dir:       a.cfg.Notebook.Dir,
		Name:      a.cfg.Notebook.Name,
		SyncWrite: a.cfg.SyncWrite,
		Literal:   a.cfg.Search.Literal,
	}
	timeStart := time.Now()
	if err := store.OpenStore(s); err != nil {
		return nil, err
	}
	log.EventWithDuration("notebook.open", time.Since(timeStart), "name", s.Name, "records", s.Len())
	log.Verbosef("opened '%s' with %d records\n", s.Path(), s.Len())
	return s, nil
}

// withStore opens the notebook, calls fn and closes the notebook
func (a *app) withStore(fn func(s *store.FileStore) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	err = fn(s)
	if err2 := s.Close(); err == nil {
		err = err2
	}
	return err
}

// fieldFlags registers a flag for every record field,
// e.g. -surname and -office-phone
func fieldFlags(fs *flag.FlagSet) *contact.Record {
	var r contact.Record
	for _, f := range contact.Fields {
		name := strings.ReplaceAll(f.Key, "_", "-")
		fs.Func(name, f.Label, func(v string) error {
			f.Set(&r, v)
			return nil
		})
	}
	return &r
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("notebook "+name, flag.ContinueOnError)
}

// parseArgs parses flags and checks number of positional arguments.
// Flags can come before and after positional arguments,
// e.g. "edit 1 -surname Jones" and "edit -surname Jones 1"
func parseArgs(fs *flag.FlagSet, args []string, nArgs int, argsDesc string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		// flag.Parse stops at the first non-flag
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) != nArgs {
		if nArgs == 0 {
			return nil, usagef("%s doesn't take arguments", fs.Name())
		}
		return nil, usagef("usage: %s %s", fs.Name(), argsDesc)
	}
	return pos, nil
}

func (a *app) printEntry(id string, r contact.Record) {
	fmt.Fprintf(a.stdout, "%s: %s\n", id, r)
}

func (a *app) session() error {
	return a.withStore(func(s *store.FileStore) error {
		sess := &menu.Session{
			Store:    s,
			PageSize: a.cfg.PageSize,
			In:       a.stdin,
			Out:      a.stdout,
			Name:     a.cfg.Notebook.Name,
		}
		return sess.Run()
	})
}

func (a *app) add(args []string) error {
	fs := newFlagSet("add")
	r := fieldFlags(fs)
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	return a.withStore(func(s *store.FileStore) error {
		id, err := s.Create(*r)
		if err != nil {
			return err
		}
		log.Event("record.create", "id", id)
		fmt.Fprintln(a.stdout, id)
		return nil
	})
}

func (a *app) list(args []string) error {
	if _, err := parseArgs(newFlagSet("list"), args, 0, ""); err != nil {
		return err
	}
	return a.withStore(func(s *store.FileStore) error {
		if s.Len() == 0 {
			fmt.Fprintln(a.stdout, "There are no records")
			return nil
		}
		for id, r := range s.All() {
			a.printEntry(id, r)
		}
		return nil
	})
}

func (a *app) show(args []string) error {
	rest, err := parseArgs(newFlagSet("show"), args, 1, "<id>")
	if err != nil {
		return err
	}
	return a.withStore(func(s *store.FileStore) error {
		r, err := s.Get(rest[0])
		if err != nil {
			return err
		}
		for _, f := range contact.Fields {
			fmt.Fprintf(a.stdout, "%-13s %s\n", f.Label+":", f.Get(&r))
		}
		return nil
	})
}

func (a *app) edit(args []string) error {
	fs := newFlagSet("edit")
	changes := fieldFlags(fs)
	rest, err := parseArgs(fs, args, 1, "<id> [field flags]")
	if err != nil {
		return err
	}
	id := rest[0]
	return a.withStore(func(s *store.FileStore) error {
		old, err := s.Get(id)
		if err != nil {
			return err
		}
		r := old.Merge(*changes)
		if err = s.Edit(id, r); err != nil {
			return err
		}
		log.Event("record.edit", "id", id)
		a.printEntry(id, r)
		return nil
	})
}

func (a *app) search(args []string) error {
	fs := newFlagSet("search")
	pattern := fieldFlags(fs)
	literal := fs.Bool("literal", a.cfg.Search.Literal, "match fields as literal text, not regular expressions")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	return a.withStore(func(s *store.FileStore) error {
		s.Literal = *literal
		res, err := s.Search(*pattern)
		if err != nil {
			return err
		}
		log.Event("record.search", "found", len(res))
		if len(res) == 0 {
			fmt.Fprintln(a.stdout, "Nothing found")
			return nil
		}
		for _, e := range res {
			a.printEntry(e.ID, e.Record)
		}
		return nil
	})
}

func (a *app) export(args []string) error {
	fs := newFlagSet("export")
	flgFormat := fs.String("format", "", "csv, json, yaml, toon or xlsx (default: from file extension)")
	rest, err := parseArgs(fs, args, 1, "[-format f] <file>")
	if err != nil {
		return err
	}
	path := rest[0]
	var format export.Format
	if *flgFormat != "" {
		format, err = export.ParseFormat(*flgFormat)
	} else {
		format, err = export.FormatFromPath(path)
	}
	if err != nil {
		return usagef("%s", err)
	}
	return a.withStore(func(s *store.FileStore) error {
		n, err := export.Write(path, format, s.All())
		if err != nil {
			return err
		}
		log.Event("notebook.export", "path", path, "format", string(format), "records", n)
		fmt.Fprintf(a.stdout, "exported %d records to %s\n", n, path)
		return nil
	})
}

func (a *app) backup(args []string) error {
	rest, err := parseArgs(newFlagSet("backup"), args, 1, "<file.zst|file.br>")
	if err != nil {
		return err
	}
	dst := rest[0]
	// opening checks that the notebook is valid before backing it up
	return a.withStore(func(s *store.FileStore) error {
		size, err := backup.Create(dst, s.Path())
		if err != nil {
			return err
		}
		st := s.Stats()
		log.Event("notebook.backup", "path", dst, "size", size)
		fmt.Fprintf(a.stdout, "backed up %d records (%s) to %s (%s)\n", st.Records, formatSize(st.Size), dst, formatSize(size))
		return nil
	})
}

func (a *app) restore(args []string) error {
	rest, err := parseArgs(newFlagSet("restore"), args, 1, "<file.zst|file.br>")
	if err != nil {
		return err
	}
	src := rest[0]
	dst := a.notebookPath()
	n, err := backup.Restore(dst, src)
	if err != nil {
		return err
	}
	log.Event("notebook.restore", "path", src, "records", n)
	fmt.Fprintf(a.stdout, "restored %d records from %s to %s\n", n, src, dst)
	return nil
}

func (a *app) compact(args []string) error {
	if _, err := parseArgs(newFlagSet("compact"), args, 0, ""); err != nil {
		return err
	}
	return a.withStore(func(s *store.FileStore) error {
		before := s.Stats()
		timeStart := time.Now()
		if err := s.Compact(); err != nil {
			return err
		}
		after := s.Stats()
		log.EventWithDuration("notebook.compact", time.Since(timeStart), "entries", before.Entries, "size", after.Size)
		fmt.Fprintf(a.stdout, "%d records, %d entries => %d entries, %s => %s\n",
			after.Records, before.Entries, after.Entries, formatSize(before.Size), formatSize(after.Size))
		return nil
	})
}

func formatSize(n int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.2f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.2f kB", float64(n)/kb)
	}
	return fmt.Sprintf("%d B", n)
}
