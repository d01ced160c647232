// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"fmt"
	"net/http"

	"github.com/canonical/schema-tenancy/internal/logging"
)

// TransactionMiddleware creates a middleware that wraps each request in a database transaction.
// The transaction is committed if the handler completes successfully (status < 400).
// The transaction is rolled back if the handler returns an error or status >= 400.
func TransactionMiddleware(db DBClientInterface, logger logging.LoggerInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				// No need for a transaction on read-only requests
				next.ServeHTTP(w, r)
				return
			}

			if err := db.WithTx(ctx, ServeTx(next, w, r)); err != nil {
				logger.Debugf("request transaction rolled back: %v", err)
			}
		})
	}
}

// ServeTx adapts next into a transaction body, the request fails, and the
// transaction rolls back, when the handler answers with a status >= 400
func ServeTx(next http.Handler, w http.ResponseWriter, r *http.Request) func(context.Context) error {
	return func(txCtx context.Context) error {
		rw := NewResponseWriter(w)

		next.ServeHTTP(rw, r.WithContext(txCtx))

		if rw.StatusCode() >= 400 {
			return fmt.Errorf("request failed with status %d", rw.StatusCode())
		}

		return nil
	}
}

type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) StatusCode() int {
	return rw.statusCode
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}
