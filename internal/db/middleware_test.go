// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/schema-tenancy/internal/logging"
)

type recordingDB struct {
	calls  int
	result error
}

func (r *recordingDB) Statement(context.Context) sq.StatementBuilderType {
	return sq.StatementBuilder
}

func (r *recordingDB) Exec(context.Context, string, ...any) error {
	return nil
}

func (r *recordingDB) BeginTx(ctx context.Context) (context.Context, TxInterface, error) {
	return ctx, nil, nil
}

func (r *recordingDB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	r.result = fn(ctx)
	return r.result
}

func (r *recordingDB) WithSearchPath(ctx context.Context, _ string, fn func(context.Context) error) error {
	return r.WithTx(ctx, fn)
}

func (r *recordingDB) Ping(context.Context) error {
	return nil
}

func (r *recordingDB) Close() {}

func TestTransactionMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		status      int
		expectTx    bool
		expectError bool
	}{
		{name: "get skips the transaction", method: http.MethodGet, status: http.StatusOK},
		{name: "post success commits", method: http.MethodPost, status: http.StatusCreated, expectTx: true},
		{name: "post failure rolls back", method: http.MethodPost, status: http.StatusBadRequest, expectTx: true, expectError: true},
		{name: "delete server error rolls back", method: http.MethodDelete, status: http.StatusInternalServerError, expectTx: true, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(recordingDB)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(tt.method, "/", nil)
			w := httptest.NewRecorder()

			TransactionMiddleware(db, logging.NewNoopLogger())(next).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}

			if tt.expectTx != (db.calls == 1) {
				t.Errorf("expected transaction %v, got %d calls", tt.expectTx, db.calls)
			}

			if tt.expectError != (db.result != nil) {
				t.Errorf("expected error %v, got %v", tt.expectError, db.result)
			}
		})
	}
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	rw := NewResponseWriter(httptest.NewRecorder())

	if rw.StatusCode() != http.StatusOK {
		t.Errorf("expected default status 200, got %d", rw.StatusCode())
	}

	rw.WriteHeader(http.StatusNotFound)
	if rw.StatusCode() != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rw.StatusCode())
	}
}
