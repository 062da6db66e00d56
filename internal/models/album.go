// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package models

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Album is a unit of construction documentation tracked through the
// status lifecycle within a project. The server-side store owns the
// source of truth; table views hold an in-memory projection of it.
//
// StatusCode, StatusLabel and LastEvent are the only fields a
// push-driven update may touch. Everything else belongs to CRUD forms.
type Album struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`

	StatusCode  StatusCode `json:"status_code"`
	StatusLabel string     `json:"status"`
	LastEvent   *LastEvent `json:"last_event,omitempty"`

	Department   string     `json:"department,omitempty"`
	Executor     string     `json:"executor,omitempty"`
	Customer     string     `json:"customer,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	ExternalLink string     `json:"external_link,omitempty"`
	InternalLink string     `json:"internal_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastEvent is the most recent status transition known for an album.
type LastEvent struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

// StatusEvent is a single entry in an album's status-change history.
// History is served most-recent-first by the album-events endpoint.
type StatusEvent struct {
	EventID     string     `json:"event_id"`
	AlbumID     string     `json:"album_id"`
	ProjectID   string     `json:"project_id"`
	CompanyID   string     `json:"company_id,omitempty"`
	StatusCode  StatusCode `json:"status_code"`
	StatusLabel string     `json:"status"`
	Actor       string     `json:"actor,omitempty"`
	Comment     string     `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FlexID is an identifier that may arrive on the wire as either a JSON
// number or its string form, depending on origin (bulk load vs push
// payload). It always normalizes to the canonical string form so map
// keys and comparisons behave consistently.
type FlexID string

// UnmarshalJSON accepts both "7" and 7.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the canonical string form.
func (f FlexID) String() string { return string(f) }

// NormalizeID converts an identifier of any wire-level type to its
// canonical string form. Use at every boundary before comparing ids or
// using them as map keys.
func NormalizeID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case FlexID:
		return string(id)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
