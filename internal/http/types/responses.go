// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/types"
)

type Reason string

const (
	ReasonInvalidInput           Reason = "InvalidInput"
	ReasonDuplicateEmail         Reason = "DuplicateEmail"
	ReasonAlreadyHasOrganization Reason = "AlreadyHasOrganization"
	ReasonUnauthenticated        Reason = "Unauthenticated"
	ReasonForbidden              Reason = "Forbidden"
	ReasonNotFound               Reason = "NotFound"
	ReasonInternal               Reason = "Internal"
)

// ErrorResponse is the json body of every failed request.
// Detail only carries an opaque reference to the logged internal error.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewErrorResponse classifies err, anything not part of the known
// taxonomy is reported as Internal without leaking the cause.
func NewErrorResponse(err error) *ErrorResponse {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return &ErrorResponse{Status: http.StatusBadRequest, Reason: ReasonInvalidInput, Message: err.Error()}
	case errors.Is(err, storage.ErrDuplicateEmail):
		return &ErrorResponse{Status: http.StatusBadRequest, Reason: ReasonDuplicateEmail, Message: "Email already registered"}
	case errors.Is(err, storage.ErrAlreadyHasOrganization):
		return &ErrorResponse{Status: http.StatusBadRequest, Reason: ReasonAlreadyHasOrganization, Message: "User already has an organization"}
	case errors.Is(err, types.ErrUnauthenticated):
		return &ErrorResponse{Status: http.StatusUnauthorized, Reason: ReasonUnauthenticated, Message: "Not authenticated"}
	case errors.Is(err, types.ErrForbidden):
		return &ErrorResponse{Status: http.StatusForbidden, Reason: ReasonForbidden, Message: "Access denied"}
	case errors.Is(err, types.ErrNoOrganization):
		return &ErrorResponse{Status: http.StatusNotFound, Reason: ReasonNotFound, Message: "No organization found"}
	case errors.Is(err, storage.ErrNotFound):
		return &ErrorResponse{Status: http.StatusNotFound, Reason: ReasonNotFound, Message: "Resource not found"}
	}

	return &ErrorResponse{
		Status:  http.StatusInternalServerError,
		Reason:  ReasonInternal,
		Message: "Internal server error",
		Detail:  uuid.NewString(),
	}
}

// WriteErrorResponse writes the classified error, internal errors are logged
// with the detail reference sent to the client.
func WriteErrorResponse(w http.ResponseWriter, err error, logger logging.LoggerInterface) {
	resp := NewErrorResponse(err)

	if resp.Reason == ReasonInternal {
		logger.Errorf("internal error %s: %v", resp.Detail, err)
	}

	WriteJSON(w, resp.Status, resp, logger)
}

func WriteJSON(w http.ResponseWriter, status int, body any, logger logging.LoggerInterface) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}
