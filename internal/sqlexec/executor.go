// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs read-only SQL against dataset databases over pgx. It owns the
// per-dataset connection pool registry, the two execution strategies (pooled with
// a direct fallback, or direct only) and the mapping of driver failures onto the
// engine's error kinds.
//
// Every session is opened read-only with a server-side statement timeout, and each
// query additionally runs under a client-side deadline of the same length.
package sqlexec

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"panelq/cli/internal/result"
)

// Result represents the rows of one query in column order.
type Result struct {
	Columns []string
	Rows    []result.Row
}

// Querier is the query surface shared by *pgxpool.Pool and *pgx.Conn.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// sessionParams are applied to every connection as startup runtime parameters.
func sessionParams(commandTimeout time.Duration) map[string]string {
	return map[string]string{
		"application_name":              "panelq",
		"default_transaction_read_only": "on",
		"statement_timeout":             strconv.FormatInt(commandTimeout.Milliseconds(), 10),
	}
}

// collect runs sql on q and reads every row. commandTimeout bounds the whole call
// when positive.
func collect(ctx context.Context, q Querier, sql string, commandTimeout time.Duration) (*Result, error) {
	if commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, commandTimeout)
		defer cancel()
	}

	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	res := &Result{Columns: cols, Rows: []result.Row{}}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, result.NewRow(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
