// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestFlexID_NumberAndString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string id", `{"albumId":"7"}`, "7"},
		{"numeric id", `{"albumId":7}`, "7"},
		{"large numeric id", `{"albumId":9007199254}`, "9007199254"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg struct {
				AlbumID FlexID `json:"albumId"`
			}
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.AlbumID.String() != tt.want {
				t.Errorf("got %q, want %q", msg.AlbumID, tt.want)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"42", "42"},
		{42, "42"},
		{int64(42), "42"},
		{float64(42), "42"},
		{FlexID("42"), "42"},
		{json.Number("42"), "42"},
		{struct{}{}, ""},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"album_status_updated","albumId":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != MessageTypeAlbumStatusUpdated {
		t.Errorf("type = %q", env.Type)
	}

	if _, err := DecodeEnvelope([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestStatusUpdateMessage_RoundTrip(t *testing.T) {
	raw := `{"type":"album_status_updated","albumId":7,"projectId":"42","data":{"statusCode":"accepted"},"timestamp":"2025-01-01T00:00:00Z"}`

	var msg StatusUpdateMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.AlbumID.String() != "7" {
		t.Errorf("albumId = %q", msg.AlbumID)
	}
	if msg.ProjectID.String() != "42" {
		t.Errorf("projectId = %q", msg.ProjectID)
	}
	if msg.Data.StatusCode != StatusAccepted {
		t.Errorf("statusCode = %q", msg.Data.StatusCode)
	}

	ts := msg.EventTime(time.Now)
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("EventTime = %v, want %v", ts, want)
	}
}

func TestStatusUpdateMessage_EventTimeFallback(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	for _, stamp := range []string{"", "not-a-timestamp"} {
		msg := StatusUpdateMessage{Timestamp: stamp}
		if got := msg.EventTime(now); !got.Equal(fixed) {
			t.Errorf("timestamp %q: EventTime = %v, want fallback %v", stamp, got, fixed)
		}
	}
}

func TestNewStatusUpdateMessage(t *testing.T) {
	ev := &StatusEvent{
		AlbumID:    "7",
		ProjectID:  "42",
		StatusCode: StatusAccepted,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	msg := NewStatusUpdateMessage(ev)
	if msg.Type != MessageTypeAlbumStatusUpdated {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Timestamp != "2025-01-01T00:00:00Z" {
		t.Errorf("timestamp = %q", msg.Timestamp)
	}
}
