// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"errors"
	"net/http"

	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

type Middleware struct {
	tokens  TokenManagerInterface
	cookies *CookieManager
	users   UserStorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authenticate rejects requests without a valid session token, the token
// subject is re-fetched so deleted users lose access immediately
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authenticate")
			defer span.End()

			token, found := m.cookies.Token(r)
			if !found {
				httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, m.logger)
				return
			}

			claims, err := m.tokens.Verify(ctx, token)
			if err != nil {
				m.logger.Debugf("token verification failed: %v", err)
				m.logger.Security().AuthnTokenInvalid(err.Error())
				httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, m.logger)
				return
			}

			user, err := m.users.GetUserByID(ctx, claims.Subject)
			if errors.Is(err, storage.ErrNotFound) {
				m.logger.Security().AuthnTokenInvalid("unknown subject")
				httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, m.logger)
				return
			}

			if err != nil {
				httpTypes.WriteErrorResponse(w, err, m.logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func NewMiddleware(
	tokens TokenManagerInterface,
	cookies *CookieManager,
	users UserStorageInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Middleware {
	return &Middleware{
		tokens:  tokens,
		cookies: cookies,
		users:   users,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
