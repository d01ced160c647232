// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

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
	cookies *authentication.CookieManager

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints mounts the user routes, authenticated wraps the routes
// that need a session
func (a *API) RegisterEndpoints(mux chi.Router, authenticated ...func(http.Handler) http.Handler) {
	mux.Post("/api/users/register", a.register)
	mux.Post("/api/users/login", a.login)
	mux.Post("/api/users/logout", a.logout)
	mux.With(authenticated...).Get("/api/users/session", a.session)
	mux.With(authenticated...).Get("/api/users/profile", a.profile)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "users.API.register")
	defer span.End()

	req := new(RegisterRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpTypes.WriteErrorResponse(w, fmt.Errorf("%w: malformed request body", types.ErrInvalidInput), a.logger)
		return
	}

	user, token, err := a.service.Register(ctx, req)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	httpTypes.WriteJSON(
		w,
		http.StatusCreated,
		&RegisterResponse{ID: user.ID, Name: user.Name, Email: user.Email, Token: token},
		a.logger,
	)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "users.API.login")
	defer span.End()

	req := new(LoginRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpTypes.WriteErrorResponse(w, fmt.Errorf("%w: malformed request body", types.ErrInvalidInput), a.logger)
		return
	}

	user, org, token, err := a.service.Login(ctx, req)
	if err != nil {
		httpTypes.WriteErrorResponse(w, err, a.logger)
		return
	}

	a.cookies.SetToken(w, token)

	httpTypes.WriteJSON(
		w,
		http.StatusOK,
		&LoginResponse{ID: user.ID, Email: user.Email, Organization: org},
		a.logger,
	)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.cookies.Clear(w)

	httpTypes.WriteJSON(w, http.StatusOK, &MessageResponse{Message: "Logged out successfully"}, a.logger)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) {
	user, ok := authentication.UserFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	org, _ := tenancy.OrganizationFromContext(r.Context())

	httpTypes.WriteJSON(
		w,
		http.StatusOK,
		&SessionResponse{IsLoggedIn: true, ID: user.ID, Email: user.Email, Organization: org},
		a.logger,
	)
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	user, ok := authentication.UserFromContext(r.Context())
	if !ok {
		httpTypes.WriteErrorResponse(w, types.ErrUnauthenticated, a.logger)
		return
	}

	org, _ := tenancy.OrganizationFromContext(r.Context())

	httpTypes.WriteJSON(
		w,
		http.StatusOK,
		&ProfileResponse{User: LoginResponse{ID: user.ID, Email: user.Email, Organization: org}},
		a.logger,
	)
}

func NewAPI(
	service ServiceInterface,
	cookies *authentication.CookieManager,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service: service,
		cookies: cookies,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
