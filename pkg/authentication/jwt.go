// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

const (
	Issuer          = "schema-tenancy"
	DefaultLifetime = 24 * time.Hour
)

var ErrEmptySecret = errors.New("token secret must not be empty")

type Claims struct {
	Email string `json:"email"`

	jwt.RegisteredClaims
}

var _ TokenManagerInterface = (*JWTManager)(nil)

// JWTManager issues and verifies HS256 session tokens
type JWTManager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (j *JWTManager) Issue(ctx context.Context, user *types.User) (string, error) {
	_, span := j.tracer.Start(ctx, "authentication.JWTManager.Issue")
	defer span.End()

	now := j.now()

	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

func (j *JWTManager) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	_, span := j.tracer.Start(ctx, "authentication.JWTManager.Verify")
	defer span.End()

	claims := new(Claims)

	_, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		func(*jwt.Token) (any, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", types.ErrUnauthenticated)
	}

	return claims, nil
}

// Lifetime is the validity of issued tokens, also used as the cookie max age
func (j *JWTManager) Lifetime() time.Duration {
	return j.lifetime
}

func NewJWTManager(
	secret string,
	lifetime time.Duration,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &JWTManager{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}, nil
}
