// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/canonical/schema-tenancy/internal/db"
	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
	"github.com/canonical/schema-tenancy/pkg/authentication"
)

// Middleware routes authenticated requests to the schema of the caller's
// organization
type Middleware struct {
	registry RegistryInterface
	db       DBClientInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Resolve runs the rest of the chain inside a transaction bound to the
// caller's tenant schema. The transaction commits when the handler answers
// with a status below 400 and rolls back otherwise.
// Callers without an organization continue unbound.
func (m *Middleware) Resolve() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "tenancy.Middleware.Resolve")
			defer span.End()

			user, ok := authentication.UserFromContext(r.Context())
			if !ok {
				httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, m.logger)
				return
			}

			org, err := m.registry.GetOrganizationByOwner(ctx, user.ID)
			if errors.Is(err, storage.ErrNotFound) {
				next.ServeHTTP(w, r)
				return
			}

			if err == nil {
				err = storage.ValidateSchemaName(org.SchemaName)
			}

			if err != nil {
				httpTypes.WriteErrorResponse(w, fmt.Errorf("tenant lookup failed: %w", err), m.logger)
				return
			}

			served := false
			rw := db.NewResponseWriter(w)

			err = m.db.WithSearchPath(
				WithOrganization(ctx, org),
				org.SchemaName,
				func(txCtx context.Context) error {
					served = true
					next.ServeHTTP(rw, r.WithContext(txCtx))

					if rw.StatusCode() >= 400 {
						return fmt.Errorf("request failed with status %d", rw.StatusCode())
					}

					return nil
				},
			)

			switch {
			case err == nil:
			case !served:
				httpTypes.WriteErrorResponse(w, fmt.Errorf("tenant binding failed: %w", err), m.logger)
			case rw.StatusCode() < 400:
				// the response is already out, only the commit failed
				m.logger.Errorf("failed to commit tenant %s transaction: %v", org.SchemaName, err)
			default:
				m.logger.Debugf("tenant %s transaction rolled back: %v", org.SchemaName, err)
			}
		})
	}
}

// RequireOrganization rejects requests that Resolve left unbound
func (m *Middleware) RequireOrganization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := OrganizationFromContext(r.Context()); !ok {
				httpTypes.WriteErrorResponse(w, types.ErrNoOrganization, m.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func NewMiddleware(
	registry RegistryInterface,
	db DBClientInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Middleware {
	return &Middleware{
		registry: registry,
		db:       db,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
