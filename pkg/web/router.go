// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/password"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/pkg/authentication"
	"github.com/canonical/schema-tenancy/pkg/messages"
	"github.com/canonical/schema-tenancy/pkg/metrics"
	"github.com/canonical/schema-tenancy/pkg/organizations"
	"github.com/canonical/schema-tenancy/pkg/status"
	"github.com/canonical/schema-tenancy/pkg/tenancy"
	"github.com/canonical/schema-tenancy/pkg/users"
)

type Config struct {
	CORSAllowedOrigins   []string
	ProvisionMaxAttempts int
}

func NewRouter(
	cfg Config,
	s storage.StorageInterface,
	dbClient db.DBClientInterface,
	tokens *authentication.JWTManager,
	cookies *authentication.CookieManager,
	hasher password.HasherInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(cfg.CORSAllowedOrigins),
	)

	router.Use(middlewares...)

	validate := validator.New(validator.WithRequiredStructEnabled())

	authn := authentication.NewMiddleware(tokens, cookies, s, tracer, monitor, logger)
	resolver := tenancy.NewMiddleware(s, dbClient, tracer, monitor, logger)

	// every authenticated request runs bound to the caller's tenant schema
	authenticated := []func(http.Handler) http.Handler{authn.Authenticate(), resolver.Resolve()}
	bound := []func(http.Handler) http.Handler{authn.Authenticate(), resolver.Resolve(), resolver.RequireOrganization()}

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(dbClient, tracer, monitor, logger).RegisterEndpoints(router)

	router.Group(func(r chi.Router) {
		r.Use(db.TransactionMiddleware(dbClient, logger))

		users.NewAPI(
			users.NewService(s, hasher, tokens, validate, tracer, monitor, logger),
			cookies,
			tracer,
			monitor,
			logger,
		).RegisterEndpoints(r, authenticated...)
	})

	organizations.NewAPI(
		organizations.NewService(s, dbClient, validate, cfg.ProvisionMaxAttempts, tracer, monitor, logger),
		tracer,
		monitor,
		logger,
	).RegisterEndpoints(router, authenticated...)

	messages.NewAPI(
		messages.NewService(s, validate, tracer, monitor, logger),
		tracer,
		monitor,
		logger,
	).RegisterEndpoints(router, bound...)

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}
