// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Message types exchanged over the push channel.
const (
	MessageTypeSubscribe          = "subscribe"
	MessageTypeAlbumStatusUpdated = "album_status_updated"
	MessageTypePing               = "ping"
	MessageTypePong               = "pong"
)

// Envelope is the tagged union wrapping every channel message. Only the
// Type discriminator is decoded up front; the payload stays raw until
// the type is known. Unknown types fail open (ignored), not closed.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// DecodeEnvelope extracts the type discriminator and keeps the raw
// bytes for a second, type-specific decode.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	return &Envelope{Type: probe.Type, Raw: data}, nil
}

// SubscribeMessage announces interest in one (company, project) scope.
// Sent once per connection, immediately after open. No acknowledgment
// is expected; the client proceeds optimistically.
type SubscribeMessage struct {
	Type      string `json:"type"`
	ProjectID FlexID `json:"projectId"`
	CompanyID FlexID `json:"companyId"`
}

// NewSubscribeMessage builds the announcement for a scope.
func NewSubscribeMessage(companyID, projectID string) SubscribeMessage {
	return SubscribeMessage{
		Type:      MessageTypeSubscribe,
		ProjectID: FlexID(projectID),
		CompanyID: FlexID(companyID),
	}
}

// StatusUpdatePayload carries the new status code inside a push message.
// The push gives only the newest status, not a full event record.
type StatusUpdatePayload struct {
	StatusCode StatusCode `json:"statusCode"`
}

// StatusUpdateMessage is the album_status_updated push envelope.
// Ids may arrive as numbers or strings; FlexID normalizes both.
type StatusUpdateMessage struct {
	Type      string              `json:"type"`
	AlbumID   FlexID              `json:"albumId"`
	ProjectID FlexID              `json:"projectId"`
	Data      StatusUpdatePayload `json:"data"`
	Timestamp string              `json:"timestamp,omitempty"`
}

// NewStatusUpdateMessage builds the push envelope for a status event.
func NewStatusUpdateMessage(ev *StatusEvent) StatusUpdateMessage {
	return StatusUpdateMessage{
		Type:      MessageTypeAlbumStatusUpdated,
		AlbumID:   FlexID(ev.AlbumID),
		ProjectID: FlexID(ev.ProjectID),
		Data:      StatusUpdatePayload{StatusCode: ev.StatusCode},
		Timestamp: ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EventTime parses the optional ISO-8601 timestamp. A missing or
// malformed timestamp falls back to now, per the lastEvent contract.
func (m *StatusUpdateMessage) EventTime(now func() time.Time) time.Time {
	if m.Timestamp == "" {
		return now()
	}
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return now()
	}
	return ts
}
