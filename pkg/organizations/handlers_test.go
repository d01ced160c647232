// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package organizations

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
	"github.com/canonical/schema-tenancy/pkg/authentication"
	"github.com/canonical/schema-tenancy/pkg/tenancy"
)

func withUser(user *types.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authentication.WithUser(r.Context(), user)))
		})
	}
}

func withOrganization(org *types.Organization) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(tenancy.WithOrganization(r.Context(), org)))
		})
	}
}

func TestAPI_Endpoints(t *testing.T) {
	owner := &types.User{ID: ownerID, Email: "jane@example.com"}
	org := &types.Organization{ID: orgID, Name: "Acme", SchemaName: "org_1718000000000_0a1b2c3d", CreatedBy: ownerID}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		middlewares    []func(http.Handler) http.Handler
		setupMocks     func(*MockServiceInterface, *MockLoggerInterface)
		expectedStatus int
		expectedReason httpTypes.Reason
		expectedOrg    bool
	}{
		{
			name:        "create",
			method:      http.MethodPost,
			path:        "/api/organizations",
			body:        `{"name":"Acme"}`,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Create(gomock.Any(), ownerID, &CreateRequest{Name: "Acme"}).Return(org, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedOrg:    true,
		},
		{
			name:           "create unauthenticated",
			method:         http.MethodPost,
			path:           "/api/organizations",
			body:           `{"name":"Acme"}`,
			setupMocks:     func(*MockServiceInterface, *MockLoggerInterface) {},
			expectedStatus: http.StatusUnauthorized,
			expectedReason: httpTypes.ReasonUnauthenticated,
		},
		{
			name:        "create twice",
			method:      http.MethodPost,
			path:        "/api/organizations",
			body:        `{"name":"Acme"}`,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Create(gomock.Any(), ownerID, gomock.Any()).Return(nil, storage.ErrAlreadyHasOrganization)
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonAlreadyHasOrganization,
		},
		{
			name:        "create provisioning failure",
			method:      http.MethodPost,
			path:        "/api/organizations",
			body:        `{"name":"Acme"}`,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, logger *MockLoggerInterface) {
				svc.EXPECT().Create(gomock.Any(), ownerID, gomock.Any()).Return(nil, errors.New("ddl failed"))
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusInternalServerError,
			expectedReason: httpTypes.ReasonInternal,
		},
		{
			name:           "create malformed body",
			method:         http.MethodPost,
			path:           "/api/organizations",
			body:           `{"name":`,
			middlewares:    []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks:     func(*MockServiceInterface, *MockLoggerInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonInvalidInput,
		},
		{
			name:           "get bound organization",
			method:         http.MethodGet,
			path:           "/api/organizations",
			middlewares:    []func(http.Handler) http.Handler{withUser(owner), withOrganization(org)},
			setupMocks:     func(*MockServiceInterface, *MockLoggerInterface) {},
			expectedStatus: http.StatusOK,
			expectedOrg:    true,
		},
		{
			name:        "get without organization",
			method:      http.MethodGet,
			path:        "/api/organizations",
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().GetByOwner(gomock.Any(), ownerID).Return(nil, types.ErrNoOrganization)
			},
			expectedStatus: http.StatusNotFound,
			expectedReason: httpTypes.ReasonNotFound,
		},
		{
			name:        "get by id",
			method:      http.MethodGet,
			path:        "/api/organizations/" + orgID,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().GetByID(gomock.Any(), ownerID, orgID).Return(org, nil)
			},
			expectedStatus: http.StatusOK,
			expectedOrg:    true,
		},
		{
			name:        "get by id of another owner",
			method:      http.MethodGet,
			path:        "/api/organizations/" + orgID,
			middlewares: []func(http.Handler) http.Handler{withUser(&types.User{ID: otherID})},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().GetByID(gomock.Any(), otherID, orgID).Return(nil, storage.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedReason: httpTypes.ReasonNotFound,
		},
		{
			name:        "update",
			method:      http.MethodPut,
			path:        "/api/organizations/" + orgID,
			body:        `{"name":"Acme"}`,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Update(gomock.Any(), ownerID, orgID, &UpdateRequest{Name: "Acme"}).Return(org, nil)
			},
			expectedStatus: http.StatusOK,
			expectedOrg:    true,
		},
		{
			name:        "update by another user",
			method:      http.MethodPut,
			path:        "/api/organizations/" + orgID,
			body:        `{"name":"Mine"}`,
			middlewares: []func(http.Handler) http.Handler{withUser(&types.User{ID: otherID})},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Update(gomock.Any(), otherID, orgID, gomock.Any()).Return(nil, types.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
			expectedReason: httpTypes.ReasonForbidden,
		},
		{
			name:        "delete",
			method:      http.MethodDelete,
			path:        "/api/organizations/" + orgID,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Delete(gomock.Any(), ownerID, orgID).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:        "delete unknown",
			method:      http.MethodDelete,
			path:        "/api/organizations/" + orgID,
			middlewares: []func(http.Handler) http.Handler{withUser(owner)},
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Delete(gomock.Any(), ownerID, orgID).Return(storage.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedReason: httpTypes.ReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := NewMockServiceInterface(ctrl)
			mockLogger := NewMockLoggerInterface(ctrl)
			tt.setupMocks(mockService, mockLogger)

			api := NewAPI(mockService, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", mockLogger), mockLogger)

			mux := chi.NewMux()
			api.RegisterEndpoints(mux, tt.middlewares...)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedReason != "" {
				var body httpTypes.ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if body.Reason != tt.expectedReason {
					t.Errorf("expected reason %s, got %s", tt.expectedReason, body.Reason)
				}
			}

			if tt.expectedOrg {
				var body types.Organization
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if body.ID != orgID || body.SchemaName != org.SchemaName || body.CreatedBy != ownerID {
					t.Errorf("unexpected organization %+v", body)
				}
			}
		})
	}
}
