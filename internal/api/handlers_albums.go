// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albumflow/albumflow/internal/auth"
	"github.com/albumflow/albumflow/internal/database"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

// ListAlbums serves the bulk load for a project's table view.
func (h *Handler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	projectID := chi.URLParam(r, "projectID")

	albums, err := h.db.ListAlbums(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load albums", err)
		return
	}

	respondSuccess(w, http.StatusOK, &models.AlbumsResponse{
		Albums: albums,
		Total:  len(albums),
	}, start)
}

// CreateAlbum creates an album in Waiting status.
func (h *Handler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	projectID := chi.URLParam(r, "projectID")

	var req models.CreateAlbumRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	album, err := h.db.CreateAlbum(r.Context(), projectID, &req, actorFrom(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create album", err)
		return
	}

	logging.Info().Str("album_id", album.ID).Str("project_id", album.ProjectID).Msg("album created")
	respondSuccess(w, http.StatusCreated, album, start)
}

// AlbumEvents serves an album's status-change history, newest first.
func (h *Handler) AlbumEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	albumID := chi.URLParam(r, "albumID")

	if _, err := h.db.GetAlbum(r.Context(), albumID); err != nil {
		if errors.Is(err, database.ErrAlbumNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "album not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load album", err)
		return
	}

	events, err := h.db.ListAlbumEvents(r.Context(), albumID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load album events", err)
		return
	}

	respondSuccess(w, http.StatusOK, &models.EventsResponse{
		AlbumID: models.NormalizeID(albumID),
		Events:  events,
		Total:   len(events),
	}, start)
}

// ChangeStatus transitions an album's status and pushes the resulting
// event through the WAL and the bus to every subscribed client.
//
// Durability order: database commit, then WAL write, then publish,
// then WAL confirm. A publish failure leaves the entry in the WAL for
// the forwarder and the response is still a success: the transition
// is committed and the push will happen.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	albumID := chi.URLParam(r, "albumID")

	var req models.StatusChangeRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	event, err := h.db.UpdateAlbumStatus(r.Context(), albumID, req.StatusCode, actorFrom(r), req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlbumNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "album not found", nil)
		case errors.Is(err, database.ErrUnknownStatusCode):
			respondError(w, http.StatusBadRequest, "UNKNOWN_STATUS", "unknown status code", nil)
		default:
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to update status", err)
		}
		return
	}

	h.publishEvent(r, event)
	respondSuccess(w, http.StatusOK, event, start)
}

// publishEvent runs the WAL-then-publish pipeline for one event.
func (h *Handler) publishEvent(r *http.Request, event *models.StatusEvent) {
	ctx := r.Context()

	var entryID string
	if h.wal != nil {
		id, err := h.wal.Write(ctx, event)
		if err != nil {
			// The event is committed in the database; broadcast
			// best-effort even though durable retry is unavailable.
			logging.Error().Err(err).Str("event_id", event.EventID).Msg("failed to persist event to wal")
		} else {
			entryID = id
		}
	}

	if err := h.bus.Publish(ctx, event); err != nil {
		logging.Warn().Err(err).Str("event_id", event.EventID).Msg("event publish failed, wal forwarder will retry")
		return
	}

	if entryID != "" {
		if err := h.wal.Confirm(ctx, entryID); err != nil {
			logging.Error().Err(err).Str("entry_id", entryID).Msg("failed to confirm wal entry")
		}
	}
}

// actorFrom names the authenticated user for event attribution.
func actorFrom(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Username
	}
	return ""
}
