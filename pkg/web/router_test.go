// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/password"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/pkg/authentication"
)

type fakeDB struct{}

func (fakeDB) Statement(context.Context) sq.StatementBuilderType { return sq.StatementBuilder }
func (fakeDB) Exec(context.Context, string, ...any) error        { return nil }
func (fakeDB) BeginTx(ctx context.Context) (context.Context, db.TxInterface, error) {
	return ctx, nil, nil
}
func (fakeDB) WithTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
func (fakeDB) WithSearchPath(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}
func (fakeDB) Ping(context.Context) error { return nil }
func (fakeDB) Close()                     {}

func newTestRouter(t *testing.T) http.Handler {
	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("test", logger)

	tokens, err := authentication.NewJWTManager("secret", time.Hour, tracer, monitor, logger)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}

	return NewRouter(
		Config{CORSAllowedOrigins: []string{"http://localhost:3000"}},
		nil,
		fakeDB{},
		tokens,
		authentication.NewCookieManager(time.Hour, true),
		password.NewBcryptHasher(4),
		tracer,
		monitor,
		logger,
	)
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "status", method: http.MethodGet, path: "/api/v0/status", expectedStatus: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/api/v0/ready", expectedStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/api/v0/metrics", expectedStatus: http.StatusOK},
		{name: "session requires a token", method: http.MethodGet, path: "/api/users/session", expectedStatus: http.StatusUnauthorized},
		{name: "organizations require a token", method: http.MethodPost, path: "/api/organizations", expectedStatus: http.StatusUnauthorized},
		{name: "messages require a token", method: http.MethodGet, path: "/api/messages", expectedStatus: http.StatusUnauthorized},
		{name: "logout", method: http.MethodPost, path: "/api/users/logout", expectedStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/unknown", expectedStatus: http.StatusNotFound},
	}

	router := newTestRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{origin: "http://localhost:3000", allowed: true},
		{origin: "http://evil.example.com", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/users/login", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("expected origin %s to be allowed, got %q", tt.origin, got)
			}
			if !tt.allowed && got != "" {
				t.Errorf("expected origin %s to be rejected, got %q", tt.origin, got)
			}
			if tt.allowed && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Errorf("expected credentials to be allowed")
			}
		})
	}
}
