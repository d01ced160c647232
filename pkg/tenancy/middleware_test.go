// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
	"github.com/canonical/schema-tenancy/pkg/authentication"
)

//go:generate mockgen -build_flags=--mod=mod -package tenancy -destination ./mock_interfaces.go -source=./interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package tenancy -destination ./mock_logger.go -source=../../internal/logging/interfaces.go

const (
	ownerID = "0190c9a4-8d2e-7000-8000-000000000001"
	schema  = "org_1718000000000_0a1b2c3d"
)

func TestMiddleware_Resolve(t *testing.T) {
	org := &types.Organization{ID: "0190c9a4-8d2e-7000-8000-0000000000aa", Name: "Acme", SchemaName: schema, CreatedBy: ownerID}

	runFn := func(ctx context.Context, _ string, fn func(context.Context) error) error {
		return fn(ctx)
	}

	tests := []struct {
		name           string
		user           *types.User
		handlerStatus  int
		setupMocks     func(*MockRegistryInterface, *MockDBClientInterface, *MockLoggerInterface)
		expectedStatus int
		expectHandler  bool
		expectBound    bool
	}{
		{
			name:           "no user in context",
			expectedStatus: http.StatusUnauthorized,
			setupMocks:     func(*MockRegistryInterface, *MockDBClientInterface, *MockLoggerInterface) {},
		},
		{
			name:          "user without organization proceeds unbound",
			user:          &types.User{ID: ownerID},
			handlerStatus: http.StatusOK,
			setupMocks: func(registry *MockRegistryInterface, _ *MockDBClientInterface, _ *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(nil, storage.ErrNotFound)
			},
			expectedStatus: http.StatusOK,
			expectHandler:  true,
		},
		{
			name: "registry failure is internal and stops the chain",
			user: &types.User{ID: ownerID},
			setupMocks: func(registry *MockRegistryInterface, _ *MockDBClientInterface, logger *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(nil, errors.New("connection refused"))
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "corrupted schema name is never bound",
			user: &types.User{ID: ownerID},
			setupMocks: func(registry *MockRegistryInterface, _ *MockDBClientInterface, logger *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(&types.Organization{SchemaName: "public"}, nil)
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "binding failure is internal and stops the chain",
			user: &types.User{ID: ownerID},
			setupMocks: func(registry *MockRegistryInterface, db *MockDBClientInterface, logger *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(org, nil)
				db.EXPECT().WithSearchPath(gomock.Any(), schema, gomock.Any()).Return(errors.New("failed to begin transaction"))
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:          "bound request commits",
			user:          &types.User{ID: ownerID},
			handlerStatus: http.StatusCreated,
			setupMocks: func(registry *MockRegistryInterface, db *MockDBClientInterface, _ *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(org, nil)
				db.EXPECT().WithSearchPath(gomock.Any(), schema, gomock.Any()).DoAndReturn(runFn)
			},
			expectedStatus: http.StatusCreated,
			expectHandler:  true,
			expectBound:    true,
		},
		{
			name:          "failed bound request rolls back",
			user:          &types.User{ID: ownerID},
			handlerStatus: http.StatusBadRequest,
			setupMocks: func(registry *MockRegistryInterface, db *MockDBClientInterface, logger *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(org, nil)
				db.EXPECT().WithSearchPath(gomock.Any(), schema, gomock.Any()).DoAndReturn(
					func(ctx context.Context, s string, fn func(context.Context) error) error {
						if err := fn(ctx); err == nil {
							t.Errorf("expected the transaction body to fail on status 400")
						}
						return errors.New("rolled back")
					},
				)
				logger.EXPECT().Debugf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusBadRequest,
			expectHandler:  true,
			expectBound:    true,
		},
		{
			name:          "commit failure after a successful response is logged",
			user:          &types.User{ID: ownerID},
			handlerStatus: http.StatusOK,
			setupMocks: func(registry *MockRegistryInterface, db *MockDBClientInterface, logger *MockLoggerInterface) {
				registry.EXPECT().GetOrganizationByOwner(gomock.Any(), ownerID).Return(org, nil)
				db.EXPECT().WithSearchPath(gomock.Any(), schema, gomock.Any()).DoAndReturn(
					func(ctx context.Context, s string, fn func(context.Context) error) error {
						_ = fn(ctx)
						return errors.New("commit failed")
					},
				)
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusOK,
			expectHandler:  true,
			expectBound:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRegistry := NewMockRegistryInterface(ctrl)
			mockDB := NewMockDBClientInterface(ctrl)
			mockLogger := NewMockLoggerInterface(ctrl)

			tt.setupMocks(mockRegistry, mockDB, mockLogger)

			m := NewMiddleware(mockRegistry, mockDB, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", mockLogger), mockLogger)

			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true

				org, bound := OrganizationFromContext(r.Context())
				if bound != tt.expectBound {
					t.Errorf("expected bound %v, got %v", tt.expectBound, bound)
				}

				if s, _ := SchemaFromContext(r.Context()); bound && (s != schema || org.SchemaName != schema) {
					t.Errorf("expected schema %s, got %s", schema, s)
				}

				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
			if tt.user != nil {
				req = req.WithContext(authentication.WithUser(req.Context(), tt.user))
			}
			rr := httptest.NewRecorder()

			m.Resolve()(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			if called != tt.expectHandler {
				t.Errorf("expected handler called %v, got %v", tt.expectHandler, called)
			}
		})
	}
}

func TestMiddleware_RequireOrganization(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := NewMockLoggerInterface(ctrl)
	m := NewMiddleware(NewMockRegistryInterface(ctrl), NewMockDBClientInterface(ctrl), tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", mockLogger), mockLogger)

	handler := m.RequireOrganization()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 without organization, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithOrganization(req.Context(), &types.Organization{SchemaName: schema}))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 with organization, got %d", rr.Code)
	}
}
