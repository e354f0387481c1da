// Package log writes the application log and structured events to daily
// files: ${Dir}/log/YYYY-MM-DD.txt and ${Dir}/events/YYYY-MM-DD.txt.
//
// All functions can be called before Init() (or after Close()) in which
// case nothing is written to files.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	eventsLog *WriteDaily

	// if true, Logf() also writes to Stderr and Verbosef() logs messages
	Verbose bool

	// where Logf() echoes messages in verbose mode
	Stderr io.Writer = os.Stderr
)

// WriteDaily appends to a file named after the current date (UTC),
// switching to a new file when the date changes
type WriteDaily struct {
	Dir string

	mu          sync.Mutex
	currentDate int // YYYYMMDD
	file        *os.File
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Path returns path of the file for a given day
func (w *WriteDaily) Path(t time.Time) string {
	return filepath.Join(w.Dir, t.UTC().Format("2006-01-02")+".txt")
}

// must be called with w.mu locked
func (w *WriteDaily) open(now time.Time) error {
	today := dayFromTime(now)
	if w.file != nil && w.currentDate == today {
		return nil
	}
	if err := w.close(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.currentDate = today
	return nil
}

// Write appends d to today's file, creating it if needed.
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.open(time.Now().UTC()); err != nil {
		return err
	}
	_, err := w.file.Write(d)
	return err
}

func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close syncs and closes the current file.
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
	}
	return w.close()
}

type Config struct {
	// logs go to ${Dir}/log, events to ${Dir}/events
	Dir     string
	Verbose bool
}

// Init starts logging to files in config.Dir. Files are only created
// when something is logged.
func Init(config *Config) {
	Close()
	log = NewWriteDaily(filepath.Join(config.Dir, "log"))
	eventsLog = NewWriteDaily(filepath.Join(config.Dir, "events"))
	Verbose = config.Verbose
}

func closeWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	_ = (*wd).Close()
	*wd = nil
}

// Close closes log files
func Close() {
	closeWriteDaily(&log)
	closeWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Verbose && Stderr != nil {
		_, _ = io.WriteString(Stderr, s)
	}
	_ = log.WriteString(s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	return strings.Join(GetCallstackFrames(skip+1), "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(2)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%v", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

func panicIf(cond bool, msg string) {
	if cond {
		panic(msg)
	}
}

// keyToStr converts an event key to string
// panics if k is of complex type
func keyToStr(k any) string {
	kind := reflect.TypeOf(k).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("keyToStr: key is of kind %v", kind))
	case reflect.String:
		return k.(string)
	}
	return fmt.Sprint(k)
}

// marshalEvent formats an event the same way the notebook file frames
// its entries:
//
// --- ${len} ${unix_ms} ${name}\n
// ${data}
//
// data is followed by '\n' if it doesn't end with one
func marshalEvent(name string, t time.Time, d []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(d) + len(name) + 48)
	buf.WriteString("--- ")
	buf.WriteString(strconv.Itoa(len(d)))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteByte('\n')
	if len(d) > 0 {
		buf.Write(d)
		if d[len(d)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// Event logs event in toon format. vals are key, value pairs.
//
//	log.Event("record.create", "id", id)
func Event(name string, vals ...any) {
	n := len(vals)
	panicIf(n%2 != 0, "Event: odd number of vals")
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			m[keyToStr(vals[i])] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			Errorf("Event: toon.Marshal() failed with '%s'", err)
			return
		}
	}
	_ = eventsLog.Write(marshalEvent(name, time.Now().UTC(), d))
}

// EventWithDuration logs event with additional "durms" value
func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durms", dur.Milliseconds())
	Event(name, vals...)
}

// ErrorEvent logs event with additional "error" value
func ErrorEvent(name string, err error, vals ...any) {
	vals = append(vals, "error", err.Error())
	Event(name, vals...)
}
