// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
)

func TestOffset(t *testing.T) {
	tests := []struct {
		name     string
		page     int64
		size     uint64
		expected uint64
	}{
		{name: "first page", page: 1, size: 10, expected: 0},
		{name: "third page", page: 3, size: 10, expected: 20},
		{name: "zero page defaults to first", page: 0, size: 10, expected: 0},
		{name: "negative page defaults to first", page: -4, size: 25, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Offset(tt.page, tt.size); got != tt.expected {
				t.Errorf("Offset(%d, %d) = %d, want %d", tt.page, tt.size, got, tt.expected)
			}
		})
	}
}

func TestPageSize(t *testing.T) {
	if got := PageSize(0); got != defaultPageSize {
		t.Errorf("expected default page size %d, got %d", defaultPageSize, got)
	}
	if got := PageSize(-1); got != defaultPageSize {
		t.Errorf("expected default page size %d, got %d", defaultPageSize, got)
	}
	if got := PageSize(15); got != 15 {
		t.Errorf("expected page size 15, got %d", got)
	}
}

func TestSearchPath(t *testing.T) {
	tests := []struct {
		schema   string
		expected string
	}{
		{schema: "org_1700000000000_0a1b2c3d", expected: `"org_1700000000000_0a1b2c3d", public`},
		{schema: `evil"; DROP SCHEMA public; --`, expected: `"evil""; DROP SCHEMA public; --", public`},
	}

	for _, tt := range tests {
		if got := SearchPath(tt.schema); got != tt.expected {
			t.Errorf("SearchPath(%q) = %q, want %q", tt.schema, got, tt.expected)
		}
	}
}

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit() error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	if f.committed {
		return sql.ErrTxDone
	}
	f.rolledBack = true
	return nil
}

func (f *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) Exec(string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) Query(string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func TestTxFromContext(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected no transaction, got %v", tx)
	}

	outer := new(fakeTx)
	inner := new(fakeTx)

	ctx := ContextWithTx(context.Background(), outer)
	if tx := TxFromContext(ctx); tx != outer {
		t.Errorf("expected outer transaction")
	}

	ctx = ContextWithTx(ctx, inner)
	if tx := TxFromContext(ctx); tx != inner {
		t.Errorf("expected innermost transaction to shadow the outer one")
	}
}

func TestLazyTxFinish(t *testing.T) {
	tx := new(fakeTx)
	lt := &lazyTx{ctx: context.Background(), tx: tx}

	if err := lt.commit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lt.finish(nil)

	if !tx.committed || tx.rolledBack {
		t.Errorf("expected committed transaction without rollback, got %+v", tx)
	}

	tx = new(fakeTx)
	lt = &lazyTx{ctx: context.Background(), tx: tx}
	lt.finish(nil)

	if !tx.rolledBack {
		t.Errorf("expected uncommitted transaction to be rolled back")
	}
}

func TestLazyTxNotStarted(t *testing.T) {
	lt := &lazyTx{ctx: context.Background()}

	if err := lt.commit(); err != nil {
		t.Errorf("commit of an unstarted transaction should be a no-op, got %v", err)
	}
	lt.finish(nil)
}

var errBeginRefused = errors.New("begin refused")

// refusingDriver records every statement it receives outside a transaction
// and refuses to start transactions.
type refusingDriver struct {
	mu       sync.Mutex
	executed []string
}

func (d *refusingDriver) Open(string) (driver.Conn, error) {
	return &refusingConn{driver: d}, nil
}

func (d *refusingDriver) statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.executed...)
}

type refusingConn struct {
	driver *refusingDriver
}

func (c *refusingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *refusingConn) Close() error {
	return nil
}

func (c *refusingConn) Begin() (driver.Tx, error) {
	return nil, errBeginRefused
}

func (c *refusingConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, errBeginRefused
}

func (c *refusingConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()

	c.driver.executed = append(c.driver.executed, query)
	return driver.RowsAffected(1), nil
}

func newRefusingClient(t *testing.T) (*DBClient, *refusingDriver) {
	t.Helper()

	drv := new(refusingDriver)
	conn := sql.OpenDB(connector{drv})
	t.Cleanup(func() { _ = conn.Close() })

	logger := logging.NewNoopLogger()

	return &DBClient{
		db:       conn,
		dbRunner: conn,
		tracer:   tracing.NewNoopTracer(),
		monitor:  monitoring.NewNoopMonitor("test", logger),
		logger:   logger,
	}, drv
}

type connector struct {
	driver *refusingDriver
}

func (c connector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open("")
}

func (c connector) Driver() driver.Driver {
	return c.driver
}

func TestWithTxFailedBeginNeverReachesThePool(t *testing.T) {
	d, drv := newRefusingClient(t)

	err := d.WithTx(context.Background(), func(txCtx context.Context) error {
		// the caller ignores errors on purpose, nothing may leak to the pool regardless
		_ = d.Exec(txCtx, `DROP SCHEMA "org_1_ab" CASCADE`)
		_, _ = d.Statement(txCtx).Delete("public.organizations").Where(sq.Eq{"id": "x"}).ExecContext(txCtx)
		return nil
	})

	if !errors.Is(err, errBeginRefused) {
		t.Errorf("expected begin error from WithTx, got %v", err)
	}

	if executed := drv.statements(); len(executed) != 0 {
		t.Errorf("statements executed outside any transaction: %q", executed)
	}
}

func TestStatementFailsWithBeginError(t *testing.T) {
	d, drv := newRefusingClient(t)

	err := d.WithTx(context.Background(), func(txCtx context.Context) error {
		if err := d.Exec(txCtx, "CREATE SCHEMA org_1_ab"); !errors.Is(err, errBeginRefused) {
			t.Errorf("expected Exec to fail with the begin error, got %v", err)
		}

		var one int
		if err := d.Statement(txCtx).Select("1").QueryRowContext(txCtx).Scan(&one); !errors.Is(err, errBeginRefused) {
			t.Errorf("expected QueryRow to fail with the begin error, got %v", err)
		}

		_, err := d.Statement(txCtx).Insert("public.organizations").Columns("id").Values("x").ExecContext(txCtx)
		if !errors.Is(err, errBeginRefused) {
			t.Errorf("expected Insert to fail with the begin error, got %v", err)
		}

		return err
	})

	if !errors.Is(err, errBeginRefused) {
		t.Errorf("expected begin error from WithTx, got %v", err)
	}

	if executed := drv.statements(); len(executed) != 0 {
		t.Errorf("statements executed outside any transaction: %q", executed)
	}
}

func TestWithTxJoinsTransactionInContext(t *testing.T) {
	d, drv := newRefusingClient(t)

	outer := new(fakeTx)
	ctx := ContextWithTx(context.Background(), outer)

	err := d.WithTx(ctx, func(txCtx context.Context) error {
		if tx := TxFromContext(txCtx); tx != outer {
			t.Errorf("expected the outer transaction to be reused")
		}
		return d.Exec(txCtx, "DROP SCHEMA org_1_ab CASCADE")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outer.committed || outer.rolledBack {
		t.Errorf("joined transaction must be left to its owner, got %+v", outer)
	}

	if executed := drv.statements(); len(executed) != 0 {
		t.Errorf("statements executed outside the joined transaction: %q", executed)
	}

	err = d.WithTx(ctx, func(context.Context) error {
		return errors.New("handler failed")
	})
	if err == nil {
		t.Errorf("expected the error of fn to surface")
	}

	if outer.committed || outer.rolledBack {
		t.Errorf("joined transaction must be left to its owner, got %+v", outer)
	}
}
