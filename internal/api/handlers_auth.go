// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package api

import (
	"net/http"
	"time"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

// Login validates credentials against the configured admin account
// and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	sec := &h.cfg.Security
	if req.Username != sec.AdminUsername {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("login attempt for unknown user")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
		return
	}
	if err := auth.CheckPassword(sec.AdminPassword, req.Password); err != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("login attempt with wrong password")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
		return
	}

	token, expires, err := h.jwt.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "failed to issue token", err)
		return
	}

	logging.Info().Str("username", req.Username).Msg("login succeeded")
	respondSuccess(w, http.StatusOK, &models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Role:      "admin",
	}, start)
}
