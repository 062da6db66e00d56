// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only
// for error responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError describes a failed request with a machine-readable code.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// AlbumsResponse is the bulk-load payload for a project table view.
type AlbumsResponse struct {
	Albums []Album `json:"albums"`
	Total  int     `json:"total"`
}

// EventsResponse is the event-history payload for one album,
// most-recent-first.
type EventsResponse struct {
	AlbumID string        `json:"album_id"`
	Events  []StatusEvent `json:"events"`
	Total   int           `json:"total"`
}

// LoginRequest is the credentials payload for token issuance.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// StatusChangeRequest is the mutation payload for an album's status.
type StatusChangeRequest struct {
	StatusCode StatusCode `json:"statusCode" validate:"required"`
	Comment    string     `json:"comment,omitempty" validate:"max=2048"`
}

// CreateAlbumRequest is the payload for album creation.
type CreateAlbumRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=256"`
	CompanyID    string     `json:"company_id" validate:"required"`
	Department   string     `json:"department,omitempty" validate:"max=128"`
	Executor     string     `json:"executor,omitempty" validate:"max=128"`
	Customer     string     `json:"customer,omitempty" validate:"max=128"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Comment      string     `json:"comment,omitempty" validate:"max=2048"`
	ExternalLink string     `json:"external_link,omitempty" validate:"omitempty,url"`
	InternalLink string     `json:"internal_link,omitempty" validate:"max=512"`
}
