// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"panelq/cli/internal/errors"
	"panelq/cli/internal/logging"
	"panelq/cli/internal/result"
)

// Terminal writes a batch as pterm sections and tables, followed by a summary.
func Terminal(w io.Writer, b *result.BatchResult) error {
	for _, r := range b.Results {
		if err := writeTerminalResult(w, r); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d queries, %d successful, %d failed in %dms",
		b.TotalQueries, b.Successful, b.Failed, b.TotalExecutionMillis)
	style := pterm.Success
	if b.Failed > 0 {
		style = pterm.Warning
	}
	_, err := fmt.Fprintln(w, style.Sprint(summary))
	return err
}

func writeTerminalResult(w io.Writer, r result.QueryResult) error {
	title := fmt.Sprintf("%d. %s", r.Index+1, r.Label)
	if r.DatasetName != "" {
		title += pterm.Gray(fmt.Sprintf("  (%s)", r.DatasetName))
	}
	if _, err := fmt.Fprintln(w, pterm.DefaultSection.Sprint(title)); err != nil {
		return err
	}

	if !r.Success {
		_, err := fmt.Fprintln(w, logging.FormatFailure(errors.Kind(r.ErrorKind), r.Error))
		return err
	}

	if r.RowCount > 0 {
		out, err := pterm.DefaultTable.WithHasHeader().WithData(TableData(r)).Srender()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return err
		}
	}

	meta := fmt.Sprintf("%d rows in %dms", r.RowCount, r.ExecutionMillis)
	if r.RowLimitApplied {
		meta += ", raw data limited"
	}
	if r.WeightColumn != "" {
		meta += ", weight: " + r.WeightColumn
	}
	if r.SegmentColumn != "" {
		meta += ", segment: " + r.SegmentColumn
	}
	if _, err := fmt.Fprintln(w, pterm.Gray(meta)); err != nil {
		return err
	}
	for _, warn := range r.Warnings {
		if _, err := fmt.Fprintln(w, pterm.Warning.Sprint(warn)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// TableData returns the header row followed by one row of display strings per
// result row.
func TableData(r result.QueryResult) [][]string {
	data := make([][]string, 0, len(r.Rows)+1)
	data = append(data, append([]string(nil), r.Columns...))
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			v, _ := row.Get(c)
			cells[i] = FormatValue(v)
		}
		data = append(data, cells)
	}
	return data
}
