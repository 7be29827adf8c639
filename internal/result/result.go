// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package result

import (
	"fmt"
	"time"
)

// Request is one item of a batch: a SQL text aimed at one dataset.
type Request struct {
	DatasetID int64  `json:"dataset_id" yaml:"dataset_id"`
	SQL       string `json:"query" yaml:"query"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
}

// LabelAt returns the request label, or "Query <index+1>" when none was given.
func (r Request) LabelAt(index int) string {
	if r.Label != "" {
		return r.Label
	}
	return fmt.Sprintf("Query %d", index+1)
}

// Weighting summarizes weighted columns computed for a result.
type Weighting struct {
	Weighted        bool     `json:"weighted"`
	WeightColumn    string   `json:"weight_column,omitempty"`
	WeightedColumns []string `json:"weighted_columns,omitempty"`
	TotalWeight     float64  `json:"total_weight,omitempty"`
	RowCount        int      `json:"row_count,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

// QueryResult is the record produced for each request of a batch, success or not.
type QueryResult struct {
	Index           int        `json:"query_index"`
	Label           string     `json:"label"`
	DatasetID       int64      `json:"dataset_id"`
	DatasetName     string     `json:"dataset_name,omitempty"`
	Query           string     `json:"query,omitempty"`
	Success         bool       `json:"success"`
	Columns         []string   `json:"columns"`
	Rows            []Row      `json:"rows"`
	RowCount        int        `json:"row_count"`
	ExecutionMillis int64      `json:"execution_time_ms"`
	WeightColumn    string     `json:"weight_column,omitempty"`
	SegmentColumn   string     `json:"segment_column,omitempty"`
	IsAggregated    bool       `json:"is_aggregated"`
	LimitInjected   bool       `json:"limit_injected"`
	RowLimitApplied bool       `json:"row_limit_applied"`
	Weighting       *Weighting `json:"weighting,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorKind       string     `json:"error_kind,omitempty"`
}

// BatchResult is the order-preserving envelope for one batch.
type BatchResult struct {
	ID                   string        `json:"batch_id"`
	Results              []QueryResult `json:"results"`
	TotalQueries         int           `json:"total_queries"`
	Successful           int           `json:"successful"`
	Failed               int           `json:"failed"`
	TotalExecutionMillis int64         `json:"total_execution_time_ms"`
}

// NewBatchResult computes the summary counters. elapsed is batch wall-clock time.
func NewBatchResult(id string, results []QueryResult, elapsed time.Duration) *BatchResult {
	b := &BatchResult{
		ID:                   id,
		Results:              results,
		TotalQueries:         len(results),
		TotalExecutionMillis: elapsed.Milliseconds(),
	}
	for _, r := range results {
		if r.Success {
			b.Successful++
		} else {
			b.Failed++
		}
	}
	return b
}
