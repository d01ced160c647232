// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	httpTypes "github.com/canonical/schema-tenancy/internal/http/types"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/types"
)

//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_logger.go -source=../../internal/logging/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_monitor.go -source=../../internal/monitoring/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_tracer.go -source=../../internal/tracing/interfaces.go
//go:generate mockgen -build_flags=--mod=mod -package authentication -destination ./mock_interfaces.go -source=./interfaces.go

func TestMiddleware_Authenticate(t *testing.T) {
	user := &types.User{ID: "0190c9a4-8d2e-7000-8000-000000000001", Email: "jane@example.com", Name: "Jane"}

	tests := []struct {
		name               string
		authHeader         string
		cookie             string
		setupMocks         func(*MockTokenManagerInterface, *MockUserStorageInterface, *MockLoggerInterface, *MockSecurityLoggerInterface)
		expectedStatusCode int
		expectedReason     httpTypes.Reason
	}{
		{
			name: "Missing token - rejects request",
			setupMocks: func(*MockTokenManagerInterface, *MockUserStorageInterface, *MockLoggerInterface, *MockSecurityLoggerInterface) {
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedReason:     httpTypes.ReasonUnauthenticated,
		},
		{
			name:       "Invalid header format - rejects request",
			authHeader: "InvalidToken",
			setupMocks: func(*MockTokenManagerInterface, *MockUserStorageInterface, *MockLoggerInterface, *MockSecurityLoggerInterface) {
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedReason:     httpTypes.ReasonUnauthenticated,
		},
		{
			name:       "Token verification fails - rejects request",
			authHeader: "Bearer invalid-token",
			setupMocks: func(tokens *MockTokenManagerInterface, _ *MockUserStorageInterface, logger *MockLoggerInterface, security *MockSecurityLoggerInterface) {
				tokens.EXPECT().Verify(gomock.Any(), "invalid-token").Return(nil, fmt.Errorf("%w: expired", types.ErrUnauthenticated))
				logger.EXPECT().Security().Return(security)
				security.EXPECT().AuthnTokenInvalid(gomock.Any())
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedReason:     httpTypes.ReasonUnauthenticated,
		},
		{
			name:   "Deleted user - rejects request",
			cookie: "cookie-token",
			setupMocks: func(tokens *MockTokenManagerInterface, users *MockUserStorageInterface, logger *MockLoggerInterface, security *MockSecurityLoggerInterface) {
				tokens.EXPECT().Verify(gomock.Any(), "cookie-token").Return(&Claims{Email: user.Email}, nil)
				users.EXPECT().GetUserByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
				logger.EXPECT().Security().Return(security)
				security.EXPECT().AuthnTokenInvalid("unknown subject")
			},
			expectedStatusCode: http.StatusUnauthorized,
			expectedReason:     httpTypes.ReasonUnauthenticated,
		},
		{
			name:       "Storage failure - internal error",
			authHeader: "Bearer valid-token",
			setupMocks: func(tokens *MockTokenManagerInterface, users *MockUserStorageInterface, logger *MockLoggerInterface, _ *MockSecurityLoggerInterface) {
				claims := &Claims{Email: user.Email}
				claims.Subject = user.ID
				tokens.EXPECT().Verify(gomock.Any(), "valid-token").Return(claims, nil)
				users.EXPECT().GetUserByID(gomock.Any(), user.ID).Return(nil, errors.New("connection refused"))
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedReason:     httpTypes.ReasonInternal,
		},
		{
			name:       "Valid bearer token",
			authHeader: "Bearer valid-token",
			setupMocks: func(tokens *MockTokenManagerInterface, users *MockUserStorageInterface, _ *MockLoggerInterface, _ *MockSecurityLoggerInterface) {
				claims := &Claims{Email: user.Email}
				claims.Subject = user.ID
				tokens.EXPECT().Verify(gomock.Any(), "valid-token").Return(claims, nil)
				users.EXPECT().GetUserByID(gomock.Any(), user.ID).Return(user, nil)
			},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:   "Valid cookie",
			cookie: "cookie-token",
			setupMocks: func(tokens *MockTokenManagerInterface, users *MockUserStorageInterface, _ *MockLoggerInterface, _ *MockSecurityLoggerInterface) {
				claims := &Claims{Email: user.Email}
				claims.Subject = user.ID
				tokens.EXPECT().Verify(gomock.Any(), "cookie-token").Return(claims, nil)
				users.EXPECT().GetUserByID(gomock.Any(), user.ID).Return(user, nil)
			},
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockTracer := NewMockTracingInterface(ctrl)
			mockMonitor := NewMockMonitorInterface(ctrl)
			mockLogger := NewMockLoggerInterface(ctrl)
			mockSecurity := NewMockSecurityLoggerInterface(ctrl)
			mockTokens := NewMockTokenManagerInterface(ctrl)
			mockUsers := NewMockUserStorageInterface(ctrl)

			ctx := context.Background()
			mockTracer.EXPECT().Start(gomock.Any(), "authentication.Middleware.Authenticate").Return(ctx, trace.SpanFromContext(ctx))
			mockLogger.EXPECT().Debugf(gomock.Any(), gomock.Any()).AnyTimes()

			tt.setupMocks(mockTokens, mockUsers, mockLogger, mockSecurity)

			middleware := NewMiddleware(mockTokens, NewCookieManager(time.Hour, true), mockUsers, mockTracer, mockMonitor, mockLogger)

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, ok := UserFromContext(r.Context())
				if !ok || u.ID != user.ID {
					t.Errorf("expected user %s in context, got %v", user.ID, u)
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()

			middleware.Authenticate()(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatusCode {
				t.Errorf("expected status %d, got %d", tt.expectedStatusCode, rr.Code)
			}

			if tt.expectedReason == "" {
				return
			}

			var body httpTypes.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}

			if body.Reason != tt.expectedReason {
				t.Errorf("expected reason %s, got %s", tt.expectedReason, body.Reason)
			}
		})
	}
}
