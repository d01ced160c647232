// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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

func newTestAPI(ctrl *gomock.Controller) (*API, *MockServiceInterface, *MockLoggerInterface) {
	mockService := NewMockServiceInterface(ctrl)
	mockLogger := NewMockLoggerInterface(ctrl)

	api := NewAPI(
		mockService,
		authentication.NewCookieManager(24*time.Hour, true),
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test", mockLogger),
		mockLogger,
	)

	return api, mockService, mockLogger
}

func TestAPI_Register(t *testing.T) {
	user := &types.User{ID: userID, Name: "Jane", Email: "jane@example.com"}

	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockServiceInterface, *MockLoggerInterface)
		expectedStatus int
		expectedReason httpTypes.Reason
	}{
		{
			name: "success",
			body: `{"name":"Jane","email":"jane@example.com","password":"hunter22"}`,
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Register(gomock.Any(), &RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "hunter22"}).Return(user, "token", nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			body:           "not-json",
			setupMocks:     func(*MockServiceInterface, *MockLoggerInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonInvalidInput,
		},
		{
			name: "duplicate email",
			body: `{"name":"Jane","email":"jane@example.com","password":"hunter22"}`,
			setupMocks: func(svc *MockServiceInterface, _ *MockLoggerInterface) {
				svc.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, "", storage.ErrDuplicateEmail)
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: httpTypes.ReasonDuplicateEmail,
		},
		{
			name: "internal error",
			body: `{"name":"Jane","email":"jane@example.com","password":"hunter22"}`,
			setupMocks: func(svc *MockServiceInterface, logger *MockLoggerInterface) {
				svc.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, "", errors.New("db down"))
				logger.EXPECT().Errorf(gomock.Any(), gomock.Any())
			},
			expectedStatus: http.StatusInternalServerError,
			expectedReason: httpTypes.ReasonInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			api, mockService, mockLogger := newTestAPI(ctrl)
			tt.setupMocks(mockService, mockLogger)

			mux := chi.NewMux()
			api.RegisterEndpoints(mux)

			req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedStatus {
				body, _ := io.ReadAll(res.Body)
				t.Fatalf("expected status %d, got %d. Body: %s", tt.expectedStatus, res.StatusCode, string(body))
			}

			if tt.expectedReason != "" {
				var body httpTypes.ErrorResponse
				if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if body.Reason != tt.expectedReason {
					t.Errorf("expected reason %s, got %s", tt.expectedReason, body.Reason)
				}
				return
			}

			var body RegisterResponse
			if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.ID != userID || body.Token != "token" {
				t.Errorf("unexpected response %+v", body)
			}
		})
	}
}

func TestAPI_Login(t *testing.T) {
	user := &types.User{ID: userID, Email: "jane@example.com", PasswordHash: "$2a$10$secret"}

	t.Run("success sets the session cookie", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		api, mockService, _ := newTestAPI(ctrl)
		mockService.EXPECT().Login(gomock.Any(), &LoginRequest{Email: "jane@example.com", Password: "hunter22"}).Return(user, nil, "token", nil)

		mux := chi.NewMux()
		api.RegisterEndpoints(mux)

		body, _ := json.Marshal(&LoginRequest{Email: "jane@example.com", Password: "hunter22"})
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(body)))

		res := w.Result()
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", res.StatusCode)
		}

		cookies := res.Cookies()
		if len(cookies) != 1 || cookies[0].Name != authentication.CookieName || cookies[0].Value != "token" {
			t.Errorf("expected auth cookie, got %v", cookies)
		}

		raw, _ := io.ReadAll(res.Body)
		if bytes.Contains(raw, []byte("secret")) {
			t.Errorf("password hash leaked in response: %s", raw)
		}

		var resp map[string]any
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if v, ok := resp["organization"]; !ok || v != nil {
			t.Errorf("expected explicit null organization, got %v", resp)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		api, mockService, _ := newTestAPI(ctrl)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, nil, "", types.ErrUnauthenticated)

		mux := chi.NewMux()
		api.RegisterEndpoints(mux)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"jane@example.com","password":"x"}`)))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", w.Code)
		}

		if len(w.Result().Cookies()) != 0 {
			t.Errorf("expected no cookie on failure")
		}
	})
}

func TestAPI_Logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api, _, _ := newTestAPI(ctrl)

	mux := chi.NewMux()
	api.RegisterEndpoints(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users/logout", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected the auth cookie to be cleared, got %v", cookies)
	}
}

func TestAPI_Session(t *testing.T) {
	user := &types.User{ID: userID, Email: "jane@example.com"}
	org := &types.Organization{ID: "0190c9a4-8d2e-7000-8000-0000000000aa", Name: "Acme", SchemaName: "org_1718000000000_0a1b2c3d", CreatedBy: userID}

	tests := []struct {
		name           string
		path           string
		authenticated  func(http.Handler) http.Handler
		expectedStatus int
		expectedOrg    bool
	}{
		{
			name: "unauthenticated",
			path: "/api/users/session",
			authenticated: func(next http.Handler) http.Handler {
				return next
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "session without organization",
			path: "/api/users/session",
			authenticated: func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(authentication.WithUser(r.Context(), user)))
				})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "profile with organization",
			path: "/api/users/profile",
			authenticated: func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					ctx := authentication.WithUser(r.Context(), user)
					next.ServeHTTP(w, r.WithContext(tenancy.WithOrganization(ctx, org)))
				})
			},
			expectedStatus: http.StatusOK,
			expectedOrg:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			api, _, _ := newTestAPI(ctrl)

			mux := chi.NewMux()
			api.RegisterEndpoints(mux, tt.authenticated)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedStatus != http.StatusOK {
				return
			}

			if got := strings.Contains(w.Body.String(), org.SchemaName); got != tt.expectedOrg {
				t.Errorf("expected organization in body %v, got body %s", tt.expectedOrg, w.Body.String())
			}
		})
	}
}
