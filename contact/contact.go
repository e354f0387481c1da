// Package contact defines the notebook record: six free-form text fields
// and the matching / formatting logic shared by the store and the UI.
package contact

import (
	"strings"
)

// Record is a single notebook entry. All fields are optional free text.
type Record struct {
	Surname      string
	Name         string
	Patronymic   string
	Organization string
	OfficePhone  string
	MobilePhone  string
}

// Field describes one Record field. Fields is the only place that knows
// the field order; matching, formatting, serialization and prompts all
// iterate it.
type Field struct {
	// Key is used in the on-disk format, config and command-line flags.
	// can't contain spaces, ':' or newlines
	Key   string
	Label string
	Get   func(*Record) string
	Set   func(*Record, string)
}

var Fields = [...]Field{
	{
		Key:   "surname",
		Label: "Surname",
		Get:   func(r *Record) string { return r.Surname },
		Set:   func(r *Record, v string) { r.Surname = v },
	},
	{
		Key:   "name",
		Label: "Name",
		Get:   func(r *Record) string { return r.Name },
		Set:   func(r *Record, v string) { r.Name = v },
	},
	{
		Key:   "patronymic",
		Label: "Patronymic",
		Get:   func(r *Record) string { return r.Patronymic },
		Set:   func(r *Record, v string) { r.Patronymic = v },
	},
	{
		Key:   "organization",
		Label: "Organization",
		Get:   func(r *Record) string { return r.Organization },
		Set:   func(r *Record, v string) { r.Organization = v },
	},
	{
		Key:   "office_phone",
		Label: "Office phone",
		Get:   func(r *Record) string { return r.OfficePhone },
		Set:   func(r *Record, v string) { r.OfficePhone = v },
	},
	{
		Key:   "mobile_phone",
		Label: "Mobile phone",
		Get:   func(r *Record) string { return r.MobilePhone },
		Set:   func(r *Record, v string) { r.MobilePhone = v },
	},
}

// FieldByKey returns the field with a given key
func FieldByKey(key string) (*Field, bool) {
	for i := range Fields {
		if Fields[i].Key == key {
			return &Fields[i], true
		}
	}
	return nil, false
}

// Get returns value of a field by key. Unknown keys return "", false
func (r Record) Get(key string) (string, bool) {
	f, ok := FieldByKey(key)
	if !ok {
		return "", false
	}
	return f.Get(&r), true
}

// Set sets value of a field by key. Returns false for unknown keys
func (r *Record) Set(key, value string) bool {
	f, ok := FieldByKey(key)
	if !ok {
		return false
	}
	f.Set(r, value)
	return true
}

// Values returns field values in Fields order
func (r Record) Values() []string {
	res := make([]string, len(Fields))
	for i, f := range Fields {
		res[i] = f.Get(&r)
	}
	return res
}

// IsEmpty returns true if all fields are empty. An empty record used
// as a search pattern matches everything.
func (r Record) IsEmpty() bool {
	for _, f := range Fields {
		if f.Get(&r) != "" {
			return false
		}
	}
	return true
}

// Merge returns a copy of r where every non-empty field of edit
// replaces the value in r
func (r Record) Merge(edit Record) Record {
	res := r
	for _, f := range Fields {
		if v := f.Get(&edit); v != "" {
			f.Set(&res, v)
		}
	}
	return res
}

// String formats the record on a single line
func (r Record) String() string {
	return strings.Join(r.Values(), ", ")
}
