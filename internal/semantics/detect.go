// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package semantics

import "strings"

// DetectWeightColumn returns the first column matching a weight pattern.
func DetectWeightColumn(columns []string) (string, bool) {
	return detect(columns, weightPatterns)
}

// DetectSegmentColumn returns the first column matching a segment pattern.
func DetectSegmentColumn(columns []string) (string, bool) {
	return detect(columns, segmentPatterns)
}

// detect walks patterns in priority order and, for each, columns in result order.
// Matching is lowercase substring containment; the column keeps its own casing.
func detect(columns, patterns []string) (string, bool) {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}
	for _, p := range patterns {
		for i, c := range lower {
			if strings.Contains(c, p) {
				return columns[i], true
			}
		}
	}
	return "", false
}
