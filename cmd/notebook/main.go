package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/obi-vvan-kenobi/notebook/config"
	"github.com/obi-vvan-kenobi/notebook/log"
)

var version = "dev"

const usage = `usage: notebook [flags] [command] [args]

Without a command runs the interactive session.

commands:
  add [field flags]              add a record, prints its id
  list                           print all records
  show <id>                      print a record
  edit <id> [field flags]        change given fields of a record
  search [-literal] [field flags] print records matching the fields
  export [-format f] <file>      export records to csv, json, yaml, toon or xlsx
  backup <file>                  save a compressed (.zst or .br) copy of the notebook
  restore <file>                 replace the notebook with a backup
  compact                        rewrite the notebook file without old edits
  version                        print version

field flags: -surname, -name, -patronymic, -organization, -office-phone, -mobile-phone

flags:
`

type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "notebook: %s\n", err)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "notebook: %s\n", err)
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string {
	return string(e)
}

func usagef(format string, args ...any) error {
	return usageError(fmt.Sprintf(format, args...))
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("notebook", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	var (
		flgConfig  string
		flgName    string
		flgDir     string
		flgVerbose bool
	)
	fs.StringVar(&flgConfig, "config", "", "path of the config file (default: notebook.yaml)")
	fs.StringVar(&flgName, "name", "", "name of the notebook")
	fs.StringVar(&flgDir, "dir", "", "directory with notebook files")
	fs.BoolVar(&flgVerbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load(flgConfig)
	if err != nil {
		return err
	}
	if flgName != "" {
		cfg.Notebook.Name = flgName
	}
	if flgDir != "" {
		cfg.Notebook.Dir = flgDir
	}
	if flgVerbose {
		cfg.Log.Verbose = true
	}
	log.Init(&log.Config{
		Dir:     cfg.LogDir(),
		Verbose: cfg.Log.Verbose,
	})
	defer log.Close()

	a := &app{
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
	}
	err = a.runCommand(fs.Args())
	log.IfErrf(err)
	return err
}

func (a *app) runCommand(args []string) error {
	if len(args) == 0 {
		return a.session()
	}
	cmd, cmdArgs := args[0], args[1:]
	log.Verbosef("command: %s %s\n", cmd, strings.Join(cmdArgs, " "))
	switch cmd {
	case "add":
		return a.add(cmdArgs)
	case "list", "ls":
		return a.list(cmdArgs)
	case "show":
		return a.show(cmdArgs)
	case "edit":
		return a.edit(cmdArgs)
	case "search":
		return a.search(cmdArgs)
	case "export":
		return a.export(cmdArgs)
	case "backup":
		return a.backup(cmdArgs)
	case "restore":
		return a.restore(cmdArgs)
	case "compact":
		return a.compact(cmdArgs)
	case "version":
		fmt.Fprintf(a.stdout, "notebook %s\n", version)
		return nil
	}
	return usagef("unknown command '%s'", cmd)
}
