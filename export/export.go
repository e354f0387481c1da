// Package export writes all notebook records to a file in one of the
// supported formats: csv, json, yaml, toon or xlsx.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"github.com/obi-vvan-kenobi/notebook/atomicfile"
	"github.com/obi-vvan-kenobi/notebook/contact"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
	TOON Format = "toon"
	XLSX Format = "xlsx"
)

// Formats lists supported formats
var Formats = []Format{CSV, JSON, YAML, TOON, XLSX}

// SheetName is the name of the worksheet in xlsx exports
const SheetName = "Notebook"

// ParseFormat returns a format by name, case insensitive.
// "yml" is accepted as yaml.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(s, "."))
	if s == "yml" {
		return YAML, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("export: unknown format '%s'", s)
}

// FormatFromPath returns format based on file extension
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("export: can't determine format of '%s' (no extension)", path)
	}
	return ParseFormat(ext)
}

// row is a record with its id, in the order of columns
type row struct {
	ID           string `json:"id" yaml:"id"`
	Surname      string `json:"surname" yaml:"surname"`
	Name         string `json:"name" yaml:"name"`
	Patronymic   string `json:"patronymic" yaml:"patronymic"`
	Organization string `json:"organization" yaml:"organization"`
	OfficePhone  string `json:"office_phone" yaml:"office_phone"`
	MobilePhone  string `json:"mobile_phone" yaml:"mobile_phone"`
}

func collectRows(seq iter.Seq2[string, contact.Record]) []row {
	rows := []row{}
	for id, r := range seq {
		rows = append(rows, row{
			ID:           id,
			Surname:      r.Surname,
			Name:         r.Name,
			Patronymic:   r.Patronymic,
			Organization: r.Organization,
			OfficePhone:  r.OfficePhone,
			MobilePhone:  r.MobilePhone,
		})
	}
	return rows
}

// header returns column titles: id followed by field labels
func header() []string {
	res := []string{"id"}
	for _, f := range contact.Fields {
		res = append(res, f.Label)
	}
	return res
}

func writeCSV(w io.Writer, seq iter.Seq2[string, contact.Record]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return 0, err
	}
	n := 0
	for id, r := range seq {
		rec := append([]string{id}, r.Values()...)
		if err := cw.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}

func writeJSON(w io.Writer, seq iter.Seq2[string, contact.Record]) (int, error) {
	rows := collectRows(seq)
	d, err := json.Marshal(rows)
	if err != nil {
		return 0, err
	}
	_, err = w.Write(pretty.Pretty(d))
	return len(rows), err
}

func writeYAML(w io.Writer, seq iter.Seq2[string, contact.Record]) (int, error) {
	rows := collectRows(seq)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(rows)
	if err2 := enc.Close(); err == nil {
		err = err2
	}
	return len(rows), err
}

func writeTOON(w io.Writer, seq iter.Seq2[string, contact.Record]) (int, error) {
	var records []map[string]any
	for id, r := range seq {
		m := map[string]any{"id": id}
		for _, f := range contact.Fields {
			m[f.Key] = f.Get(&r)
		}
		records = append(records, m)
	}
	d, err := toon.Marshal(map[string]any{"records": records})
	if err != nil {
		return 0, err
	}
	if len(d) > 0 && d[len(d)-1] != '\n' {
		d = append(d, '\n')
	}
	_, err = w.Write(d)
	return len(records), err
}

func writeXLSX(w io.Writer, seq iter.Seq2[string, contact.Record]) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, err
	}
	hdr := []any{}
	for _, s := range header() {
		hdr = append(hdr, s)
	}
	if err := f.SetSheetRow(SheetName, "A1", &hdr); err != nil {
		return 0, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}
	if err = f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return 0, err
	}

	n := 0
	for id, r := range seq {
		vals := []any{id}
		for _, v := range r.Values() {
			vals = append(vals, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return n, err
		}
		if err = f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return n, err
		}
		n++
	}
	return n, f.Write(w)
}

// Encode writes records from seq to w in a given format.
// Returns number of records written.
func Encode(w io.Writer, format Format, seq iter.Seq2[string, contact.Record]) (int, error) {
	switch format {
	case CSV:
		return writeCSV(w, seq)
	case JSON:
		return writeJSON(w, seq)
	case YAML:
		return writeYAML(w, seq)
	case TOON:
		return writeTOON(w, seq)
	case XLSX:
		return writeXLSX(w, seq)
	}
	return 0, fmt.Errorf("export: unknown format '%s'", format)
}

// Write exports records from seq to path. The file is replaced
// atomically, a failed export leaves the previous file intact.
func Write(path string, format Format, seq iter.Seq2[string, contact.Record]) (int, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return 0, err
	}
	var n int
	err := atomicfile.WriteWith(path, func(w io.Writer) error {
		var err error
		n, err = Encode(w, format, seq)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("export: writing '%s': %w", path, err)
	}
	return n, nil
}
