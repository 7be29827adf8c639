// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package result defines the records the query engine hands back to callers:
// typed cell values with an explicit null, ordered rows, per-query results and the
// batch envelope with its summary counters.
package result

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Value is a single cell. The zero Value is SQL NULL.
type Value struct {
	v     any
	valid bool
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// ValueOf wraps a driver value. A nil input yields NULL.
func ValueOf(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{v: v, valid: true}
}

// IsNull reports whether the cell is SQL NULL.
func (v Value) IsNull() bool { return !v.valid }

// Any returns the underlying driver value, nil for NULL.
func (v Value) Any() any {
	if !v.valid {
		return nil
	}
	return v.v
}

// Text returns the value rendered as a string. The boolean is false for NULL.
func (v Value) Text() (string, bool) {
	if !v.valid {
		return "", false
	}
	switch x := v.v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// Float returns the value as float64 when it is numeric.
func (v Value) Float() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	switch x := v.v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	}
	return 0, false
}

// MarshalJSON renders driver values in a JSON-friendly form. UUIDs that the
// driver hands back as raw bytes are printed in canonical form.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	switch x := v.v.(type) {
	case [16]byte:
		return json.Marshal(uuid.UUID(x).String())
	case []byte:
		if len(x) == 16 {
			return json.Marshal(uuid.UUID(x).String())
		}
		return json.Marshal(fmt.Sprintf("\\x%x", x))
	case float64:
		// NaN and Inf are legal in PostgreSQL but not in JSON.
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return json.Marshal(strconv.FormatFloat(x, 'g', -1, 64))
		}
	}
	return json.Marshal(v.v)
}
