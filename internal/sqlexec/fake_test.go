// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows serves fixed rows through the pgx.Rows interface.
type fakeRows struct {
	cols []string
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeDB answers every query with the same rows or error and records the SQL.
type fakeDB struct {
	cols     []string
	data     [][]any
	err      error
	queries  atomic.Int32
	closed   atomic.Bool
	lastSQL  atomic.Value
	deadline atomic.Bool
}

func (f *fakeDB) Query(ctx context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries.Add(1)
	f.lastSQL.Store(sql)
	if _, ok := ctx.Deadline(); ok {
		f.deadline.Store(true)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{cols: f.cols, data: f.data}, nil
}

func (f *fakeDB) Close() { f.closed.Store(true) }

// fakeConn adapts fakeDB to Conn.
type fakeConn struct{ *fakeDB }

func (c fakeConn) Close(context.Context) error {
	c.fakeDB.Close()
	return nil
}
