// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package policy

import (
	"strconv"
	"strings"
)

var aggregateMarkers = []string{"GROUP BY", "COUNT(", "SUM(", "AVG(", "MIN(", "MAX(", "STDDEV(", "VARIANCE("}

// Limits are the row caps injected into queries that carry no LIMIT of their own.
type Limits struct {
	Raw        int
	Aggregated int
}

// DefaultLimits returns the stock caps.
func DefaultLimits() Limits { return Limits{Raw: 5, Aggregated: 1000} }

// IsAggregated reports whether sql groups or aggregates rows.
func IsAggregated(sql string) bool {
	upper := strings.ToUpper(sql)
	for _, m := range aggregateMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// HasLimit reports whether LIMIT occurs anywhere in sql, in any case.
func HasLimit(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "LIMIT")
}

// ShouldApplyRowLimit reports whether a raw result exceeds the raw cap.
func ShouldApplyRowLimit(isAggregated bool, rowCount, rawCap int) bool {
	return !isAggregated && rowCount > rawCap
}

// ApplyRowCap appends a LIMIT when sql has none. The caller's LIMIT is never
// rewritten, whatever its value. It returns the text to execute and whether a
// LIMIT was injected.
func ApplyRowCap(sql string, isAggregated bool, limits Limits) (string, bool) {
	if HasLimit(sql) {
		return sql, false
	}
	n := limits.Raw
	if isAggregated {
		n = limits.Aggregated
	}
	// A trailing -- comment still absorbs the appended cap.
	trimmed := strings.TrimRight(sql, " \t\r\n;")
	return trimmed + " LIMIT " + strconv.Itoa(n), true
}

// RowLimitApplied reports whether the returned rows were cut by a row cap. An
// injected raw cap that came back full counts as applied, as does a raw result
// above the cap.
func RowLimitApplied(isAggregated, injected bool, rowCount, rawCap int) bool {
	if isAggregated {
		return false
	}
	return (injected && rowCount >= rawCap) || ShouldApplyRowLimit(isAggregated, rowCount, rawCap)
}
