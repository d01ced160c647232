// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package messages

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
	"github.com/canonical/schema-tenancy/pkg/authentication"
	"github.com/canonical/schema-tenancy/pkg/tenancy"
)

func TestAPI_Endpoints(t *testing.T) {
	user := &types.User{ID: userID}
	org := &types.Organization{ID: orgID, SchemaName: "org_1718000000000_0a1b2c3d"}

	bound := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authentication.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(tenancy.WithOrganization(ctx, org)))
		})
	}
	unbound := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authentication.WithUser(r.Context(), user)))
		})
	}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		middleware     func(http.Handler) http.Handler
		setupMocks     func(*MockServiceInterface)
		expectedStatus int
		expectedReason httpTypes.Reason
	}{
		{
			name:       "list",
			method:     http.MethodGet,
			path:       "/api/messages?page=2&size=5",
			middleware: bound,
			setupMocks: func(svc *MockServiceInterface) {
				svc.EXPECT().List(gomock.Any(), int64(2), int64(5)).Return([]*types.Message{{ID: "m1"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "list with invalid page",
			method:         http.MethodGet,
			path:           "/api/messages?page=two",
			middleware:     bound,
			setupMocks:     func(*MockServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonInvalidInput,
		},
		{
			name:           "list without organization",
			method:         http.MethodGet,
			path:           "/api/messages",
			middleware:     unbound,
			setupMocks:     func(*MockServiceInterface) {},
			expectedStatus: http.StatusNotFound,
			expectedReason: httpTypes.ReasonNotFound,
		},
		{
			name:       "create",
			method:     http.MethodPost,
			path:       "/api/messages",
			body:       `{"content":"hello","metadata":{"k":"v"}}`,
			middleware: bound,
			setupMocks: func(svc *MockServiceInterface) {
				svc.EXPECT().Create(gomock.Any(), org, user, gomock.Any()).Return(&types.Message{ID: "m1", Content: "hello"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "create without organization",
			method:         http.MethodPost,
			path:           "/api/messages",
			body:           `{"content":"hello"}`,
			middleware:     unbound,
			setupMocks:     func(*MockServiceInterface) {},
			expectedStatus: http.StatusNotFound,
			expectedReason: httpTypes.ReasonNotFound,
		},
		{
			name:       "create invalid",
			method:     http.MethodPost,
			path:       "/api/messages",
			body:       `{"content":""}`,
			middleware: bound,
			setupMocks: func(svc *MockServiceInterface) {
				svc.EXPECT().Create(gomock.Any(), org, user, gomock.Any()).Return(nil, types.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := NewMockServiceInterface(ctrl)
			mockLogger := NewMockLoggerInterface(ctrl)
			tt.setupMocks(mockService)

			api := NewAPI(mockService, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", mockLogger), mockLogger)

			mux := chi.NewMux()
			api.RegisterEndpoints(mux, tt.middleware)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedReason == "" {
				return
			}

			var body httpTypes.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Reason != tt.expectedReason {
				t.Errorf("expected reason %s, got %s", tt.expectedReason, body.Reason)
			}
		})
	}
}
