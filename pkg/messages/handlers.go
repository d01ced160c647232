// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package messages

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

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

// RegisterEndpoints mounts the message routes, bound must resolve the
// caller's tenant and reject callers without one
func (a *API) RegisterEndpoints(mux chi.Router, bound ...func(http.Handler) http.Handler) {
	mux.With(bound...).Get("/api/messages", a.list)
	mux.With(bound...).Post("/api/messages", a.create)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "messages.API.list")
	defer span.End()

	if _, ok := tenancy.OrganizationFromContext(ctx); !ok {
		httpTypes.WriteErrorResponse(w, types.ErrNoOrganization, a.logger)
		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	size, err := queryInt(r, "size")
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	messages, err := a.service.List(ctx, page, size)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusOK, &ListResponse{Messages: messages, Page: page, Size: size}, a.logger)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "messages.API.create")
	defer span.End()

	user, ok := authentication.UserFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	org, ok := tenancy.OrganizationFromContext(ctx)
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrNoOrganization, a.logger)
		return
	}

	req := new(CreateRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpTypes.WriteErrorResponse(w, fmt.Errorf("%w: malformed request body", types.ErrInvalidInput), a.logger)
		return
	}

	message, err := a.service.Create(ctx, org, user, req)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(w, http.StatusCreated, message, a.logger)
}

func queryInt(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", types.ErrInvalidInput, name)
	}

	return n, nil
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
