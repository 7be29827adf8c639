// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package result

import (
	"bytes"
	"encoding/json"
)

// Field is one named cell of a row.
type Field struct {
	Name  string
	Value Value
}

// Row is an ordered list of fields. Column order is the order the backend returned.
type Row []Field

// NewRow zips column names with driver values. Missing values become NULL.
func NewRow(columns []string, values []any) Row {
	row := make(Row, len(columns))
	for i, name := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		row[i] = Field{Name: name, Value: ValueOf(v)}
	}
	return row
}

// Get returns the first field with the given name.
func (r Row) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set overwrites the first field with the given name. It reports false when the
// row has no such column.
func (r Row) Set(name string, v Value) bool {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = v
			return true
		}
	}
	return false
}

// Put overwrites the named field or appends it when absent.
func (r *Row) Put(name string, v Value) {
	if r.Set(name, v) {
		return
	}
	*r = append(*r, Field{Name: name, Value: v})
}

// Columns returns the field names in order.
func (r Row) Columns() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// MarshalJSON writes the row as a JSON object, keeping column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
