// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package organizations

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
	"github.com/canonical/schema-tenancy/pkg/authentication"
	"github.com/canonical/schema-tenancy/pkg/tenancy"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints mounts the organization routes behind the authenticated
// middlewares
func (a *API) RegisterEndpoints(mux chi.Router, authenticated ...func(http.Handler) http.Handler) {
	mux.Route("/api/organizations", func(r chi.Router) {
		r.Use(authenticated...)

		r.Post("/", a.create)
		r.Get("/", a.get)
		r.Get("/{id}", a.getByID)
		r.Put("/{id}", a.update)
		r.Delete("/{id}", a.delete)
	})
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "organizations.API.create")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	req := new(CreateRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpTypes.WriteErrorResponse(w, fmt.Errorf("%w: malformed request body", types.ErrInvalidInput), a.logger)
		return
	}

	org, err := a.service.Create(ctx, user.ID, req)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusCreated, org, a.logger)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "organizations.API.get")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	// already resolved for requests bound to a tenant
	if org, ok := tenancy.OrganizationFromContext(ctx); ok {
		httpTypes.WriteJSON(w, http.StatusOK, org, a.logger)
		return
	}

	org, err := a.service.GetByOwner(ctx, user.ID)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusOK, org, a.logger)
}

func (a *API) getByID(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "organizations.API.getByID")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	org, err := a.service.GetByID(ctx, user.ID, chi.URLParam(r, "id"))
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusOK, org, a.logger)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "organizations.API.update")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	req := new(UpdateRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpTypes.WriteErrorResponse(w, fmt.Errorf("%w: malformed request body", types.ErrInvalidInput), a.logger)
		return
	}

	org, err := a.service.Update(ctx, user.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusOK, org, a.logger)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "organizations.API.delete")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	if err := a.service.Delete(ctx, user.ID, chi.URLParam(r, "id")); err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func NewAPI(
	service ServiceInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
