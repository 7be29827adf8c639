// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package semantics recognizes panel-survey conventions in query results: which
// column carries statistical weights, which carries the socioeconomic segment, and
// how segment codes are merged for reporting.
package semantics

var (
	weightPatterns  = []string{"weight", "wt", "sample_weight", "user_weight", "respondent_weight", "panel_weight", "projection_weight"}
	segmentPatterns = []string{"nccs", "sec", "socio_economic_class", "socioeconomic_class", "economic_class"}
)

// WeightPatterns returns the weight-name patterns in priority order.
func WeightPatterns() []string { return append([]string(nil), weightPatterns...) }

// SegmentPatterns returns the segment-name patterns in priority order.
func SegmentPatterns() []string { return append([]string(nil), segmentPatterns...) }
