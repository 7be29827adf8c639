// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render turns batch results into text: a compact Markdown document meant
// for pasting into notebooks and LLM prompts, and pterm tables for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"panelq/cli/internal/result"
)

const (
	maxCell  = 100
	maxQuery = 100
)

var printer = message.NewPrinter(language.English)

// Markdown renders a whole batch.
func Markdown(b *result.BatchResult) string {
	var sb strings.Builder
	sb.WriteString("# Multi-Query Results\n\n")
	fmt.Fprintf(&sb, "**Total Queries**: %d\n", b.TotalQueries)
	fmt.Fprintf(&sb, "**Successful**: %d\n", b.Successful)
	if b.Failed > 0 {
		fmt.Fprintf(&sb, "**Failed**: %d\n", b.Failed)
	}
	fmt.Fprintf(&sb, "**Total Execution Time**: %dms\n\n", b.TotalExecutionMillis)
	sb.WriteString("---\n\n")

	for i, r := range b.Results {
		fmt.Fprintf(&sb, "## %d. %s\n\n", i+1, r.Label)
		writeResult(&sb, r)
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

// MarkdownResult renders one query result without the batch envelope.
func MarkdownResult(r result.QueryResult) string {
	var sb strings.Builder
	writeResult(&sb, r)
	return sb.String()
}

func writeResult(sb *strings.Builder, r result.QueryResult) {
	if !r.Success {
		fmt.Fprintf(sb, "**Error** (%s): %s\n\n", r.ErrorKind, r.Error)
		if r.Query != "" {
			fmt.Fprintf(sb, "**Query**: `%s`\n\n", truncate(r.Query, maxQuery))
		}
		return
	}

	fmt.Fprintf(sb, "**Rows**: %d", r.RowCount)
	if r.ExecutionMillis > 0 {
		fmt.Fprintf(sb, " | **Time**: %dms", r.ExecutionMillis)
	}
	if r.DatasetName != "" {
		fmt.Fprintf(sb, " | **Dataset**: %s", r.DatasetName)
	}
	sb.WriteString("\n\n")

	if r.RowLimitApplied {
		sb.WriteString("**Note**: Raw data is limited. Use aggregation (GROUP BY) for more rows.\n\n")
	}
	if r.RowCount > 0 {
		writeTable(sb, r.Columns, r.Rows)
	} else {
		sb.WriteString("_No results._\n\n")
	}

	if r.WeightColumn != "" {
		fmt.Fprintf(sb, "_Weight column detected: `%s`_\n", r.WeightColumn)
	}
	if r.SegmentColumn != "" {
		fmt.Fprintf(sb, "_Segment column: `%s`_\n", r.SegmentColumn)
	}
	if r.Weighting != nil && r.Weighting.Weighted {
		sb.WriteString(weightingSummary(*r.Weighting))
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(sb, "> %s\n", w)
	}
	sb.WriteString("\n")
}

func weightingSummary(w result.Weighting) string {
	cols := make([]string, len(w.WeightedColumns))
	for i, c := range w.WeightedColumns {
		cols[i] = "`" + c + "`"
	}
	var sb strings.Builder
	sb.WriteString("\n### Weighting Applied\n\n")
	fmt.Fprintf(&sb, "- **Weight Column**: `%s`\n", w.WeightColumn)
	sb.WriteString(printer.Sprintf("- **Total Weight**: %.2f\n", w.TotalWeight))
	fmt.Fprintf(&sb, "- **Weighted Columns**: %s\n", strings.Join(cols, ", "))
	sb.WriteString(printer.Sprintf("- **Population Represented**: ~%d individuals\n\n", int64(w.TotalWeight)))
	return sb.String()
}

func writeTable(sb *strings.Builder, columns []string, rows []result.Row) {
	if len(columns) == 0 || len(rows) == 0 {
		sb.WriteString("_No data to display._\n\n")
		return
	}
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(columns)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			v, _ := row.Get(c)
			cells[i] = strings.ReplaceAll(FormatValue(v), "|", `\|`)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	sb.WriteString("\n")
}

// FormatValue renders one cell for display. Floats get two decimals, long text
// is truncated.
func FormatValue(v result.Value) string {
	if v.IsNull() {
		return "_null_"
	}
	switch x := v.Any().(type) {
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case bool:
		if x {
			return "✓"
		}
		return "✗"
	case float32, float64:
		f, _ := v.Float()
		return fmt.Sprintf("%.2f", f)
	case pgtype.Numeric:
		if f, ok := v.Float(); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case []any, map[string]any:
		return truncate(fmt.Sprint(x), 50)
	case []byte, [16]byte:
		// UUIDs and bytea print the way they appear in JSON output.
		var s string
		if raw, err := v.MarshalJSON(); err == nil && json.Unmarshal(raw, &s) == nil {
			return truncate(s, maxCell)
		}
	}
	s, _ := v.Text()
	return truncate(s, maxCell)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
