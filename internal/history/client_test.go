// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/albumflow/albumflow/internal/models"
)

func historyHandler(t *testing.T, wantToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wantToken != "" && r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{
			"status": "success",
			"data": {
				"album_id": "7",
				"events": [
					{"event_id":"ev-2","album_id":"7","project_id":"42","status_code":"accepted","status":"Accepted","created_at":"2025-01-02T00:00:00Z"},
					{"event_id":"ev-1","album_id":"7","project_id":"42","status_code":"sent","status":"Sent","created_at":"2025-01-01T00:00:00Z"}
				],
				"total": 2
			},
			"metadata": {"timestamp":"2025-01-02T00:00:01Z","query_time_ms":3}
		}`))
		if err != nil {
			t.Errorf("write response: %v", err)
		}
	}
}

func TestFetchEvents(t *testing.T) {
	srv := httptest.NewServer(historyHandler(t, "secret-token"))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token")
	events, err := client.FetchEvents(context.Background(), "7")
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].StatusCode != models.StatusAccepted {
		t.Errorf("newest event = %q, want accepted first", events[0].StatusCode)
	}
	if events[1].EventID != "ev-1" {
		t.Errorf("oldest event = %q", events[1].EventID)
	}
}

func TestFetchEvents_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(historyHandler(t, "secret-token"))
	defer srv.Close()

	client := NewClient(srv.URL, "wrong-token")
	if _, err := client.FetchEvents(context.Background(), "7"); err == nil {
		t.Error("expected error for rejected token")
	}
}

func TestFetchEvents_BreakerOpensOnRepeatedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	for i := 0; i < 10; i++ {
		_, err := client.FetchEvents(context.Background(), "7")
		if err == nil {
			t.Fatal("expected failure")
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			break
		}
	}

	if client.BreakerState() != gobreaker.StateOpen {
		t.Errorf("breaker state = %v, want open", client.BreakerState())
	}

	// Calls while open fail fast without touching the server.
	if _, err := client.FetchEvents(context.Background(), "7"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestFetchEvents_RateLimited(t *testing.T) {
	srv := httptest.NewServer(historyHandler(t, ""))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	// Exhaust the burst allowance.
	var limited bool
	for i := 0; i < 30; i++ {
		_, err := client.FetchEvents(context.Background(), "7")
		if errors.Is(err, ErrRateLimited) {
			limited = true
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !limited {
		t.Error("rate limiter never rejected a burst")
	}

	// Allowance recovers.
	time.Sleep(250 * time.Millisecond)
	if _, err := client.FetchEvents(context.Background(), "7"); err != nil {
		t.Errorf("fetch after cooldown: %v", err)
	}
}

func TestFetchEvents_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","data":null,"metadata":{"timestamp":"2025-01-01T00:00:00Z","query_time_ms":1},"error":{"code":"NOT_FOUND","message":"album not found"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.FetchEvents(context.Background(), "missing")
	if err == nil || err.Error() != "history request failed: album not found" {
		t.Errorf("err = %v", err)
	}
}
