package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assign copies vals into scan destinations; nil leaves the destination zero.
func assign(dest []any, vals ...any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan arity: got %d dest, %d vals", len(dest), len(vals))
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		dv := reflect.ValueOf(dest[i]).Elem()
		vv := reflect.ValueOf(v)
		if dv.Kind() == reflect.Ptr && vv.Kind() != reflect.Ptr {
			p := reflect.New(dv.Type().Elem())
			p.Elem().Set(vv)
			dv.Set(p)
			continue
		}
		dv.Set(vv)
	}
	return nil
}

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

func rowOf(vals ...any) rowStub {
	return rowStub{scan: func(dest ...any) error { return assign(dest, vals...) }}
}

func rowErr(err error) rowStub {
	return rowStub{scan: func(_ ...any) error { return err }}
}

// rowsStub implements the parts of pgx.Rows the repos use.
type rowsStub struct {
	pgx.Rows
	data [][]any
	i    int
	err  error
}

func (r *rowsStub) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *rowsStub) Scan(dest ...any) error { return assign(dest, r.data[r.i-1]...) }
func (r *rowsStub) Err() error             { return r.err }
func (r *rowsStub) Close()                 {}

type call struct {
	sql  string
	args []any
}

// txStub records statements and commit/rollback.
type txStub struct {
	pgx.Tx
	execs      []call
	execErrAt  int
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *txStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, call{sql: sql, args: args})
	if t.execErrAt > 0 && len(t.execs) == t.execErrAt {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *txStub) Commit(_ context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *txStub) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// poolStub implements postgres.PgxPool for tests.
type poolStub struct {
	execTag  pgconn.CommandTag
	execErr  error
	rows     []pgx.Row
	queries  []*rowsStub
	queryErr error
	tx       *txStub
	beginErr error

	execs     []call
	rowCalls  []call
	queryCall []call
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, call{sql: sql, args: args})
	return p.execTag, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.rowCalls = append(p.rowCalls, call{sql: sql, args: args})
	if len(p.rows) == 0 {
		return rowErr(errors.New("no row configured"))
	}
	r := p.rows[0]
	p.rows = p.rows[1:]
	return r
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.queryCall = append(p.queryCall, call{sql: sql, args: args})
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if len(p.queries) == 0 {
		return &rowsStub{}, nil
	}
	r := p.queries[0]
	p.queries = p.queries[1:]
	return r, nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		p.tx = &txStub{}
	}
	return p.tx, nil
}
