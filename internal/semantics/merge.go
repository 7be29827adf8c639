// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package semantics

import (
	"strings"

	"panelq/cli/internal/result"
)

const (
	segmentA   = "A"
	segmentCDE = "C/D/E"
)

// MergeSegments folds A1 into A and C, D, E into C/D/E in column. The comparison
// ignores case and surrounding whitespace; values outside the rules, nulls and
// rows without the column are left exactly as they were. Rows are changed in
// place and returned.
func MergeSegments(rows []result.Row, column string) []result.Row {
	if column == "" {
		return rows
	}
	for _, row := range rows {
		v, ok := row.Get(column)
		if !ok || v.IsNull() {
			continue
		}
		text, _ := v.Text()
		switch strings.ToUpper(strings.TrimSpace(text)) {
		case "A1":
			row.Set(column, result.ValueOf(segmentA))
		case "C", "D", "E":
			row.Set(column, result.ValueOf(segmentCDE))
		}
	}
	return rows
}
