// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
)

const (
	defaultPage      uint64 = 1
	defaultPageSize  uint64 = 100
	defaultTxTimeout        = time.Second * 60

	// the third argument makes the setting local to the current transaction
	setSearchPathQuery = "SELECT set_config('search_path', $1, true)"
)

type TxContextKey struct{}

var txContextKey TxContextKey

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	TracingEnabled  bool
}

// Offset calculates the offset for pagination based on the provided page parameter and page size.
func Offset(pageParam int64, pageSize uint64) uint64 {
	if pageParam <= 0 {
		return (defaultPage - 1) * pageSize
	}
	return uint64(pageParam-1) * pageSize
}

// PageSize calculates the page size for pagination based on the provided size parameter.
func PageSize(sizeParam int64) uint64 {
	if sizeParam <= 0 {
		return defaultPageSize
	}
	return uint64(sizeParam)
}

// SearchPath returns the search_path value resolving unqualified names in
// schema first and falling back to public.
func SearchPath(schema string) string {
	return pgx.Identifier{schema}.Sanitize() + ", public"
}

// lazyTx holds the transaction attached to a context, either started eagerly
// or on first use.
type lazyTx struct {
	db        *sql.DB
	ctx       context.Context
	tx        TxInterface
	err       error
	committed bool
	cancel    context.CancelFunc
}

// get returns the transaction, creating it lazily on first call.
// A failed begin is sticky, every later call returns the same error.
func (lt *lazyTx) get() (TxInterface, error) {
	if lt.tx != nil {
		return lt.tx, nil
	}

	if lt.err != nil {
		return nil, lt.err
	}

	// bound to the request context, an aborted request rolls the transaction back
	ctx, cancel := context.WithTimeout(lt.ctx, defaultTxTimeout)
	tx, err := lt.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: false})
	if err != nil {
		cancel()
		lt.err = fmt.Errorf("failed to begin transaction: %w", err)
		return nil, lt.err
	}

	lt.tx = tx
	lt.cancel = cancel
	return tx, nil
}

// isStarted returns true if the transaction has been created.
func (lt *lazyTx) isStarted() bool {
	return lt.tx != nil
}

func (lt *lazyTx) finish(logger logging.LoggerInterface) {
	if lt.isStarted() && !lt.committed {
		if err := lt.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Errorf("failed to rollback transaction: %v", err)
		}
	}
	if lt.cancel != nil {
		lt.cancel()
	}
}

func (lt *lazyTx) commit() error {
	if lt.err != nil {
		return lt.err
	}

	if !lt.isStarted() {
		return nil
	}

	if err := lt.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	lt.committed = true

	return nil
}

type DBClient struct {
	// pool is the native PGX pool we hold to allow closing
	pool *pgxpool.Pool
	// db original instance to handle transactions
	db *sql.DB
	// dbRunner is the runner instance of choice
	dbRunner sq.BaseRunner

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Statement provides a StatementBuilderType configured to use the DBClient's database connection.
// If a transaction exists in the context, it will be used (created lazily on first use).
// Statements never fall back to the pool while a transaction is attached, a
// failed begin makes every statement fail with the begin error.
func (d *DBClient) Statement(ctx context.Context) sq.StatementBuilderType {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	if lt := lazyTxFromContext(ctx); lt != nil {
		tx, err := d.txFromHolder(lt)
		if err != nil {
			return builder.RunWith(&failedRunner{err: err})
		}
		return builder.RunWith(tx)
	}

	return builder.RunWith(d.dbRunner)
}

// Exec runs a raw statement, used for DDL that squirrel cannot build.
func (d *DBClient) Exec(ctx context.Context, query string, args ...any) error {
	if lt := lazyTxFromContext(ctx); lt != nil {
		tx, err := d.txFromHolder(lt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, args...)
		return err
	}

	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// BeginTx starts a new transaction and returns a context with the transaction attached.
func (d *DBClient) BeginTx(ctx context.Context) (context.Context, TxInterface, error) {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: false})
	if err != nil {
		return ctx, nil, err
	}

	return ContextWithTx(ctx, tx), tx, nil
}

// ContextWithTx returns a new context with the transaction attached.
func ContextWithTx(ctx context.Context, tx TxInterface) context.Context {
	return contextWithLazyTx(ctx, &lazyTx{ctx: ctx, tx: tx})
}

// TxFromContext extracts a started transaction from the context, returning nil if none exists.
func TxFromContext(ctx context.Context) TxInterface {
	if lt := lazyTxFromContext(ctx); lt != nil {
		return lt.tx
	}
	return nil
}

func (d *DBClient) txFromHolder(lt *lazyTx) (TxInterface, error) {
	tx, err := lt.get()
	if err != nil {
		d.logger.Errorf("failed to create lazy transaction: %v", err)
		return nil, err
	}

	return tx, nil
}

// lazyTxFromContext extracts a lazy transaction holder from the context.
func lazyTxFromContext(ctx context.Context) *lazyTx {
	if lt, ok := ctx.Value(txContextKey).(*lazyTx); ok {
		return lt
	}
	return nil
}

// contextWithLazyTx returns a new context with a lazy transaction holder attached.
func contextWithLazyTx(ctx context.Context, lt *lazyTx) context.Context {
	return context.WithValue(ctx, txContextKey, lt)
}

// WithTx executes a function within a transaction context.
// The transaction is created lazily on first database access.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
// If no database operations occurred, no transaction is created or committed.
// When ctx already carries a transaction fn joins it, the owner of that
// transaction decides on commit or rollback.
func (d *DBClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if lt := lazyTxFromContext(ctx); lt != nil {
		if err := fn(ctx); err != nil {
			return err
		}
		return lt.err
	}

	lt := &lazyTx{
		db:  d.db,
		ctx: ctx,
	}
	txCtx := contextWithLazyTx(ctx, lt)

	defer lt.finish(d.logger)

	if err := fn(txCtx); err != nil {
		return err
	}

	return lt.commit()
}

// WithSearchPath executes fn inside a new transaction whose search_path
// resolves unqualified names in schema first.
// The setting is transaction local, it is discarded on commit or rollback
// and never reaches the next user of the pooled connection.
func (d *DBClient) WithSearchPath(ctx context.Context, schema string, fn func(context.Context) error) error {
	ctx, span := d.tracer.Start(ctx, "db.DBClient.WithSearchPath")
	defer span.End()

	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: false})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	lt := &lazyTx{ctx: ctx, tx: tx}
	defer lt.finish(d.logger)

	if _, err := tx.ExecContext(ctx, setSearchPathQuery, SearchPath(schema)); err != nil {
		return fmt.Errorf("failed to bind search_path: %w", err)
	}

	if err := fn(contextWithLazyTx(ctx, lt)); err != nil {
		return err
	}

	return lt.commit()
}

// failedRunner stands in for a transaction that could not be started
type failedRunner struct {
	err error
}

func (f *failedRunner) Exec(string, ...any) (sql.Result, error) {
	return nil, f.err
}

func (f *failedRunner) Query(string, ...any) (*sql.Rows, error) {
	return nil, f.err
}

func (f *failedRunner) QueryRow(string, ...any) sq.RowScanner {
	return &failedRow{err: f.err}
}

func (f *failedRunner) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, f.err
}

func (f *failedRunner) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, f.err
}

func (f *failedRunner) QueryRowContext(context.Context, string, ...any) sq.RowScanner {
	return &failedRow{err: f.err}
}

type failedRow struct {
	err error
}

func (r *failedRow) Scan(...any) error {
	return r.err
}

func (d *DBClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DBClient) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}

	if d.pool != nil {
		d.pool.Close()
	}
}

// NewDBClient creates a new DBClient instance with the provided DSN and configuration options.
func NewDBClient(cfg Config, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*DBClient, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("DSN validation failed: %v", err)
	}

	if cfg.TracingEnabled {
		// otelpgx.NewTracer will use default global TracerProvider, just like our tracer struct
		config.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	config.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		config.MaxConnLifetime = cfg.MaxConnLifetime
		config.MaxConnLifetimeJitter = cfg.MaxConnLifetime / 10 // Add 10% jitter to avoid thundering herd
	}
	if cfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %v", err)
	}

	if cfg.TracingEnabled {
		// when tracing is enabled, also collect metrics
		if err := otelpgx.RecordStats(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to start metrics collection for database: %v", err)
		}
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := db.Ping(); err != nil {
		monitor.SetDependencyAvailability(map[string]string{"component": "database"}, 0)
		_ = db.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to connect to the database: %v", err)
	}
	monitor.SetDependencyAvailability(map[string]string{"component": "database"}, 1)

	d := new(DBClient)
	d.pool = pool
	d.db = db
	d.dbRunner = db

	d.tracer = tracer
	d.monitor = monitor
	d.logger = logger

	return d, nil
}
