// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"time"

	"panelq/cli/internal/config"
	"panelq/cli/internal/dsn"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/semantics"
)

const columnsQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'YES'
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// Table is a base table in the public schema.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema summarizes a dataset database. WeightColumn and SegmentColumn are
// table.column references to the first detected columns, in table order.
type Schema struct {
	Tables        []Table `json:"tables"`
	WeightColumn  string  `json:"weight_column,omitempty"`
	SegmentColumn string  `json:"segment_column,omitempty"`
}

// Inspect lists the public base tables and their columns.
func Inspect(ctx context.Context, q Querier, timeout time.Duration) (*Schema, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := q.Query(ctx, columnsQuery)
	if err != nil {
		return nil, classify(err, timeout)
	}
	defer rows.Close()

	s := &Schema{}
	for rows.Next() {
		var table string
		var col Column
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.Nullable); err != nil {
			return nil, classify(err, timeout)
		}
		if n := len(s.Tables); n == 0 || s.Tables[n-1].Name != table {
			s.Tables = append(s.Tables, Table{Name: table})
		}
		last := &s.Tables[len(s.Tables)-1]
		last.Columns = append(last.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, timeout)
	}

	for _, t := range s.Tables {
		names := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			names[i] = c.Name
		}
		if w, ok := semantics.DetectWeightColumn(names); ok && s.WeightColumn == "" {
			s.WeightColumn = t.Name + "." + w
		}
		if seg, ok := semantics.DetectSegmentColumn(names); ok && s.SegmentColumn == "" {
			s.SegmentColumn = t.Name + "." + seg
		}
	}
	return s, nil
}

// InspectEndpoint opens a direct connection to endpoint and inspects it.
func InspectEndpoint(ctx context.Context, endpoint string, cfg config.PoolConfig, dial Dialer) (*Schema, error) {
	if dial == nil {
		dial = DialPgx
	}
	conn, err := dial(ctx, dsn.Canonical(endpoint), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ConnectionFailure, "open connection", err)
	}
	defer conn.Close(context.Background())

	s, err := Inspect(ctx, conn, cfg.CommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}
	return s, nil
}
