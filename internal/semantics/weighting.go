// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package semantics

import (
	"slices"
	"strings"

	"panelq/cli/internal/result"
)

// WeightedSuffix is appended to a column name to form its weighted counterpart.
const WeightedSuffix = "_weighted"

// ApplyWeighting adds <col>_weighted = value * weight for each numeric column.
// When numeric is nil the numeric columns are taken from the first row. Rows whose
// weight is null or not a number are left alone. The weight column is never
// weighted itself.
func ApplyWeighting(rows []result.Row, weightColumn string, numeric []string) ([]result.Row, result.Weighting) {
	if len(rows) == 0 || weightColumn == "" {
		return rows, result.Weighting{Reason: "No weight column found"}
	}
	if _, ok := rows[0].Get(weightColumn); !ok {
		return rows, result.Weighting{Reason: "No weight column found"}
	}
	if numeric == nil {
		numeric = numericColumns(rows[0])
	}
	numeric = slices.DeleteFunc(slices.Clone(numeric), func(c string) bool {
		return c == weightColumn || strings.HasSuffix(c, WeightedSuffix)
	})
	if len(numeric) == 0 {
		return rows, result.Weighting{Reason: "No numeric columns to weight"}
	}

	var total float64
	for i := range rows {
		wv, _ := rows[i].Get(weightColumn)
		weight, ok := wv.Float()
		if !ok {
			continue
		}
		total += weight
		for _, col := range numeric {
			v, _ := rows[i].Get(col)
			if f, ok := v.Float(); ok {
				rows[i].Put(col+WeightedSuffix, result.ValueOf(f*weight))
			}
		}
	}

	return rows, result.Weighting{
		Weighted:        true,
		WeightColumn:    weightColumn,
		WeightedColumns: numeric,
		TotalWeight:     total,
		RowCount:        len(rows),
	}
}

func numericColumns(row result.Row) []string {
	var cols []string
	for _, f := range row {
		if _, ok := f.Value.Float(); ok {
			cols = append(cols, f.Name)
		}
	}
	return cols
}
