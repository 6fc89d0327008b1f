package postgres

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errFakeStatement = errors.New("statement failed")

type execCall struct {
	sql  string
	args []any
}

// fakeDB is an in-memory DB that understands the consent and migration
// statements. InTx restores the previous state when fn fails.
type fakeDB struct {
	rows      map[[2]any]bool
	applied   map[int]time.Time
	execs     []execCall
	rollbacks int

	// failing fails every call; failOn fails statements containing it.
	failing error
	failOn  string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    make(map[[2]any]bool),
		applied: make(map[int]time.Time),
	}
}

func (f *fakeDB) InTx(_ context.Context, fn func(Querier) error) error {
	rows, applied, n := maps.Clone(f.rows), maps.Clone(f.applied), len(f.execs)
	if err := fn(f); err != nil {
		f.rows, f.applied, f.execs = rows, applied, f.execs[:n]
		f.rollbacks++
		return err
	}
	return nil
}

func (f *fakeDB) statementError(sql string) error {
	if f.failing != nil {
		return f.failing
	}
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return errFakeStatement
	}
	return nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := f.statementError(sql); err != nil {
		return pgconn.CommandTag{}, err
	}

	switch {
	case strings.Contains(sql, "CREATE TABLE IF NOT EXISTS schema_migrations"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.Contains(sql, "INSERT INTO schema_migrations"):
		f.applied[args[0].(int)] = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "DELETE FROM schema_migrations"):
		delete(f.applied, args[0].(int))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}

	f.execs = append(f.execs, execCall{sql: sql, args: args})
	switch {
	case strings.Contains(sql, "INSERT INTO privacy_consents "):
		f.rows[[2]any{args[0], args[1]}] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "UPDATE privacy_consents"):
		key := [2]any{args[0], args[1]}
		if !f.rows[key] {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.rows[key] = false
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if err := f.statementError(sql); err != nil {
		return nil, err
	}
	versions := slices.Sorted(maps.Keys(f.applied))
	rows := &fakeRows{}
	for _, v := range versions {
		rows.values = append(rows.values, []any{v, f.applied[v]})
	}
	return rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if err := f.statementError(sql); err != nil {
		return fakeRow{err: err}
	}
	granted, ok := f.rows[[2]any{args[0], args[1]}]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{granted: granted}
}

type fakeRow struct {
	granted bool
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.granted
	return nil
}

// fakeRows yields (version, applied_at) rows.
type fakeRows struct {
	values [][]any
	pos    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.pos-1]
	*dest[0].(*int) = row[0].(int)
	*dest[1].(*time.Time) = row[1].(time.Time)
	return nil
}
