// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewMemory()
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestAlbum(t *testing.T, db *DB, projectID, name string) *models.Album {
	t.Helper()
	album, err := db.CreateAlbum(context.Background(), projectID, &models.CreateAlbumRequest{
		Name:      name,
		CompanyID: "1",
		Executor:  "ACME Design",
	}, "tester")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	return album
}

func TestCreateAlbum_InitialState(t *testing.T) {
	db := newTestDB(t)
	album := createTestAlbum(t, db, "42", "Album A")

	if album.StatusCode != models.StatusWaiting {
		t.Errorf("status = %q, want waiting", album.StatusCode)
	}
	if album.StatusLabel != "Waiting" {
		t.Errorf("label = %q, want Waiting", album.StatusLabel)
	}
	if album.LastEvent == nil || album.LastEvent.Status != "Waiting" {
		t.Errorf("last event = %+v", album.LastEvent)
	}

	events, err := db.ListAlbumEvents(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("ListAlbumEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 initial event, got %d", len(events))
	}
}

func TestListAlbums_ProjectScope(t *testing.T) {
	db := newTestDB(t)
	createTestAlbum(t, db, "42", "Album A")
	createTestAlbum(t, db, "42", "Album B")
	createTestAlbum(t, db, "99", "Other Project")

	albums, err := db.ListAlbums(context.Background(), "42")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 2 {
		t.Fatalf("expected 2 albums in project 42, got %d", len(albums))
	}
	for _, a := range albums {
		if a.ProjectID != "42" {
			t.Errorf("album %s has project %q", a.ID, a.ProjectID)
		}
	}
}

func TestListAlbums_LastEvents(t *testing.T) {
	db := newTestDB(t)
	a := createTestAlbum(t, db, "42", "Album A")
	b := createTestAlbum(t, db, "42", "Album B")
	c := createTestAlbum(t, db, "42", "Album C")

	// Distinct timestamps so the newest event is unambiguous.
	time.Sleep(2 * time.Millisecond)
	if _, err := db.UpdateAlbumStatus(context.Background(), a.ID, models.StatusSent, "", ""); err != nil {
		t.Fatalf("UpdateAlbumStatus: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := db.UpdateAlbumStatus(context.Background(), a.ID, models.StatusAccepted, "", ""); err != nil {
		t.Fatalf("UpdateAlbumStatus: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := db.UpdateAlbumStatus(context.Background(), b.ID, models.StatusUpload, "", ""); err != nil {
		t.Fatalf("UpdateAlbumStatus: %v", err)
	}

	albums, err := db.ListAlbums(context.Background(), "42")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}

	want := map[string]string{
		a.ID: "Accepted",
		b.ID: "Upload",
		c.ID: "Waiting",
	}
	for _, album := range albums {
		if album.LastEvent == nil {
			t.Errorf("album %s has no last event", album.ID)
			continue
		}
		if album.LastEvent.Status != want[album.ID] {
			t.Errorf("album %s last event = %q, want %q", album.ID, album.LastEvent.Status, want[album.ID])
		}
	}
}

func TestUpdateAlbumStatus(t *testing.T) {
	db := newTestDB(t)
	album := createTestAlbum(t, db, "42", "Album A")

	ev, err := db.UpdateAlbumStatus(context.Background(), album.ID, models.StatusAccepted, "reviewer", "looks good")
	if err != nil {
		t.Fatalf("UpdateAlbumStatus: %v", err)
	}
	if ev.StatusLabel != "Accepted" {
		t.Errorf("event label = %q", ev.StatusLabel)
	}
	if ev.ProjectID != "42" {
		t.Errorf("event project = %q", ev.ProjectID)
	}

	got, err := db.GetAlbum(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if got.StatusCode != models.StatusAccepted {
		t.Errorf("status = %q, want accepted", got.StatusCode)
	}
	if got.LastEvent == nil || got.LastEvent.Status != "Accepted" {
		t.Errorf("last event = %+v", got.LastEvent)
	}

	events, err := db.ListAlbumEvents(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("ListAlbumEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Most recent first.
	if events[0].StatusCode != models.StatusAccepted {
		t.Errorf("newest event = %q, want accepted", events[0].StatusCode)
	}
}

func TestUpdateAlbumStatus_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	album := createTestAlbum(t, db, "42", "Album A")

	_, err := db.UpdateAlbumStatus(context.Background(), album.ID, "archived", "", "")
	if !errors.Is(err, ErrUnknownStatusCode) {
		t.Errorf("expected ErrUnknownStatusCode, got %v", err)
	}

	// State unchanged.
	got, err := db.GetAlbum(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if got.StatusCode != models.StatusWaiting {
		t.Errorf("status = %q, want waiting", got.StatusCode)
	}
}

func TestUpdateAlbumStatus_MissingAlbum(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpdateAlbumStatus(context.Background(), "no-such-id", models.StatusSent, "", "")
	if !errors.Is(err, ErrAlbumNotFound) {
		t.Errorf("expected ErrAlbumNotFound, got %v", err)
	}
}

func TestGetAlbum_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetAlbum(context.Background(), "missing"); !errors.Is(err, ErrAlbumNotFound) {
		t.Errorf("expected ErrAlbumNotFound, got %v", err)
	}
}
