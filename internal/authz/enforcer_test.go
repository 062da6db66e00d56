// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/config"
)

func TestRolePermissions(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		// client: read-only
		{"client", "/api/v1/projects/42/albums", http.MethodGet, true},
		{"client", "/api/v1/albums/7/events", http.MethodGet, true},
		{"client", "/api/v1/ws", http.MethodGet, true},
		{"client", "/api/v1/albums/7/status", http.MethodPost, false},
		{"client", "/api/v1/projects/42/albums", http.MethodPost, false},

		// executor: client rights plus status changes
		{"executor", "/api/v1/projects/42/albums", http.MethodGet, true},
		{"executor", "/api/v1/albums/7/status", http.MethodPost, true},
		{"executor", "/api/v1/projects/42/albums", http.MethodPost, false},

		// admin: everything
		{"admin", "/api/v1/albums/7/status", http.MethodPost, true},
		{"admin", "/api/v1/projects/42/albums", http.MethodPost, true},
		{"admin", "/api/v1/projects/42/albums", http.MethodGet, true},

		// unknown role: nothing
		{"guest", "/api/v1/projects/42/albums", http.MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.method+" "+tt.path, func(t *testing.T) {
			got, err := e.Allowed(tt.role, tt.path, tt.method)
			if err != nil {
				t.Fatalf("Allowed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allowed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMiddleware_DeniesWithoutIdentity(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	handler := e.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/42/albums", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestMiddleware_EnforcesRole(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	m, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "test-secret-at-least-32-characters-long",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	handler := m.Middleware(e.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	clientToken, _, err := m.GenerateToken("viewer", "client")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	executorToken, _, err := m.GenerateToken("worker", "executor")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	do := func(token, method, path string) int {
		req := httptest.NewRequest(method, path, nil).WithContext(context.Background())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(clientToken, http.MethodPost, "/api/v1/albums/7/status"); code != http.StatusForbidden {
		t.Errorf("client status change = %d, want 403", code)
	}
	if code := do(executorToken, http.MethodPost, "/api/v1/albums/7/status"); code != http.StatusOK {
		t.Errorf("executor status change = %d, want 200", code)
	}
	if code := do(clientToken, http.MethodGet, "/api/v1/albums/7/events"); code != http.StatusOK {
		t.Errorf("client events read = %d, want 200", code)
	}
}
