// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

func newTestManager(t *testing.T, secret string) *JWTManager {
	t.Helper()

	logger := logging.NewNoopLogger()
	m, err := NewJWTManager(secret, time.Hour, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return m
}

func TestJWTManager_IssueVerify(t *testing.T) {
	m := newTestManager(t, "s3cr3t")
	user := &types.User{ID: "0190c9a4-8d2e-7000-8000-000000000001", Email: "jane@example.com"}

	token, err := m.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := m.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claims.Subject != user.ID {
		t.Errorf("expected subject %s, got %s", user.ID, claims.Subject)
	}

	if claims.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, claims.Email)
	}

	if claims.Issuer != Issuer {
		t.Errorf("expected issuer %s, got %s", Issuer, claims.Issuer)
	}

	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("expected one hour lifetime, got %v", got)
	}
}

func TestJWTManager_VerifyRejects(t *testing.T) {
	m := newTestManager(t, "s3cr3t")
	user := &types.User{ID: "0190c9a4-8d2e-7000-8000-000000000001", Email: "jane@example.com"}

	otherKey, err := newTestManager(t, "another-secret").Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := newTestManager(t, "s3cr3t")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cr3t"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cr3t"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: user.ID,
		Issuer:  Issuer,
	}).SignedString([]byte("s3cr3t"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong key", token: otherKey},
		{name: "expired", token: expiredToken},
		{name: "alg none", token: noneToken},
		{name: "foreign issuer", token: foreignIssuer},
		{name: "missing subject", token: noSubject},
		{name: "missing expiry", token: noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(context.Background(), tt.token)
			if !errors.Is(err, types.ErrUnauthenticated) {
				t.Errorf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestNewJWTManager(t *testing.T) {
	logger := logging.NewNoopLogger()
	monitor := monitoring.NewNoopMonitor("test", logger)

	if _, err := NewJWTManager("", time.Hour, tracing.NewNoopTracer(), monitor, logger); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}

	m, err := NewJWTManager("secret", 0, tracing.NewNoopTracer(), monitor, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Lifetime() != DefaultLifetime {
		t.Errorf("expected default lifetime %v, got %v", DefaultLifetime, m.Lifetime())
	}
}
