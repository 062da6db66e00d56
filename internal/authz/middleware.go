// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

// Middleware enforces the role from the request's JWT claims against
// the path and method. Must run after the auth middleware.
func (e *Enforcer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			forbidden(w, "no identity in request")
			return
		}

		allowed, err := e.Allowed(claims.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Error().Err(err).Str("role", claims.Role).Str("path", r.URL.Path).Msg("authorization check failed")
			forbidden(w, "authorization check failed")
			return
		}
		if !allowed {
			logging.Warn().
				Str("username", claims.Username).
				Str("role", claims.Role).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("request denied by policy")
			forbidden(w, "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: "FORBIDDEN", Message: message},
	})
}
