package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/obi-vvan-kenobi/notebook/contact"
)

/*
A notebook file is a log of entries. Each entry is a header line followed
by a body of size bytes:

--- ${size} ${unix_ms} ${op} ${id}\n
${body}

op is "create" or "edit". The body is a record, one field per line in
contact.Fields order:

surname: Smith\n

A value that is empty, long (> 120 bytes) or has bytes outside printable
ASCII is written with its length:

surname:+12\n
Иванов\n

The value is followed by a newline so that the next field always starts
on a new line. The body always ends with a newline.
*/

const (
	opCreate = "create"
	opEdit   = "edit"
)

var hdrPrefix = []byte("--- ")

type logEntry struct {
	Op          string
	ID          string
	TimestampMs int64
	Record      contact.Record
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < 32 || b > 126 {
			return false
		}
	}
	return true
}

// return true if value needs to be serialized in long,
// size-prefixed format
func needsLongFormat(s string) bool {
	return len(s) == 0 || len(s) > 120 || !printableASCII(s)
}

func marshalRecord(r *contact.Record, buf *bytes.Buffer) {
	for _, f := range contact.Fields {
		v := f.Get(r)
		buf.WriteString(f.Key)
		if needsLongFormat(v) {
			buf.WriteString(":+")
			buf.WriteString(strconv.Itoa(len(v)))
			buf.WriteByte('\n')
			buf.WriteString(v)
		} else {
			buf.WriteString(": ")
			buf.WriteString(v)
		}
		buf.WriteByte('\n')
	}
}

// marshalEntry serializes e into buf and returns buf.Bytes()
func marshalEntry(e *logEntry, buf *bytes.Buffer) []byte {
	var body bytes.Buffer
	marshalRecord(&e.Record, &body)

	buf.Reset()
	buf.Grow(body.Len() + 64)
	buf.Write(hdrPrefix)
	buf.WriteString(strconv.Itoa(body.Len()))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(e.TimestampMs, 10))
	buf.WriteByte(' ')
	buf.WriteString(e.Op)
	buf.WriteByte(' ')
	buf.WriteString(e.ID)
	buf.WriteByte('\n')
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// parseHeader parses "--- ${size} ${unix_ms} ${op} ${id}" (without '\n')
func parseHeader(line string, e *logEntry) (int, error) {
	rest, ok := strings.CutPrefix(line, string(hdrPrefix))
	if !ok {
		return 0, corruptf("invalid header '%s'", line)
	}
	parts := strings.Split(rest, " ")
	if len(parts) != 4 {
		return 0, corruptf("invalid header '%s'", line)
	}
	size, err := strconv.Atoi(parts[0])
	if err != nil || size < 0 {
		return 0, corruptf("invalid size '%s' in header '%s'", parts[0], line)
	}
	e.TimestampMs, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || e.TimestampMs < 0 {
		return 0, corruptf("invalid timestamp '%s' in header '%s'", parts[1], line)
	}
	e.Op = parts[2]
	if e.Op != opCreate && e.Op != opEdit {
		return 0, corruptf("unknown op '%s' in header '%s'", e.Op, line)
	}
	e.ID = parts[3]
	return size, nil
}

// unmarshalRecord parses a body written by marshalRecord.
// Missing fields are left empty, unknown fields are an error.
func unmarshalRecord(d []byte, r *contact.Record) error {
	*r = contact.Record{}
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return corruptf("missing '\\n' at the end of '%s'", d)
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		if idx == -1 || idx == len(line)-1 {
			return corruptf("line in unrecognized format: '%s'", line)
		}
		key := string(line[:idx])
		kind := line[idx+1]
		val := line[idx+2:]
		switch kind {
		case ' ':
			// val is already set
		case '+':
			n, err := strconv.Atoi(string(val))
			if err != nil || n < 0 {
				return corruptf("invalid length in '%s'", line)
			}
			// value is followed by '\n'
			if n+1 > len(d) || d[n] != '\n' {
				return corruptf("value of '%s' is truncated", key)
			}
			val = d[:n]
			d = d[n+1:]
		default:
			return corruptf("line in unrecognized format: '%s'", line)
		}
		if !r.Set(key, string(val)) {
			return corruptf("unknown field '%s'", key)
		}
	}
	return nil
}

// readLog calls fn for each entry in r. Stops at the first error, which
// wraps ErrCorrupt if data is malformed.
func readLog(r io.Reader, fn func(e *logEntry) error) error {
	br := bufio.NewReader(r)
	var e logEntry
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			if line == "" {
				return nil
			}
			return corruptf("truncated header '%s'", line)
		}
		if err != nil {
			return err
		}
		size, err := parseHeader(strings.TrimSuffix(line, "\n"), &e)
		if err != nil {
			return err
		}
		body := make([]byte, size)
		_, err = io.ReadFull(br, body)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return corruptf("truncated entry %s %s", e.Op, e.ID)
		}
		if err != nil {
			return err
		}
		if err = unmarshalRecord(body, &e.Record); err != nil {
			return err
		}
		if err = fn(&e); err != nil {
			return err
		}
	}
}

// replay rebuilds the id -> record mapping from a log and checks
// that ids are dense
type replay struct {
	records []contact.Record
	entries int
}

func (rp *replay) apply(e *logEntry) error {
	n := len(rp.records)
	switch e.Op {
	case opCreate:
		if e.ID != formatID(n) {
			return corruptf("create of id %s, expected %s", e.ID, formatID(n))
		}
		rp.records = append(rp.records, e.Record)
	case opEdit:
		idx, ok := parseID(e.ID, n)
		if !ok {
			return corruptf("edit of unknown id %s", e.ID)
		}
		rp.records[idx] = e.Record
	default:
		panicIf(true, "unknown op "+e.Op)
	}
	rp.entries++
	return nil
}

// Verify checks that r contains a valid notebook log.
// Returns number of records.
func Verify(r io.Reader) (int, error) {
	var rp replay
	if err := readLog(r, rp.apply); err != nil {
		return 0, err
	}
	return len(rp.records), nil
}
