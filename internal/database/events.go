// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/albumflow/albumflow/internal/metrics"
	"github.com/albumflow/albumflow/internal/models"
)

// ListAlbumEvents returns an album's status-change history,
// most-recent-first, matching the hover popup's display order.
func (db *DB) ListAlbumEvents(ctx context.Context, albumID string) ([]models.StatusEvent, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT event_id, album_id, project_id, company_id, status_code, actor, comment, created_at
		 FROM album_events WHERE album_id = ? ORDER BY created_at DESC, event_id DESC`,
		models.NormalizeID(albumID),
	)
	metrics.ObserveDBQuery("select", "album_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query album events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]models.StatusEvent, 0, 16)
	for rows.Next() {
		var ev models.StatusEvent
		var code string
		if err := rows.Scan(&ev.EventID, &ev.AlbumID, &ev.ProjectID, &ev.CompanyID,
			&code, &ev.Actor, &ev.Comment, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan album event: %w", err)
		}
		ev.StatusCode = models.StatusCode(code)
		ev.StatusLabel = models.StatusLabel(ev.StatusCode)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate album events: %w", err)
	}
	return events, nil
}

// insertEvent appends a status event inside an open transaction and
// returns the stored event.
func insertEvent(ctx context.Context, tx *sql.Tx, album *models.Album, code models.StatusCode, actor, comment string, at time.Time) (*models.StatusEvent, error) {
	ev := &models.StatusEvent{
		EventID:     uuid.New().String(),
		AlbumID:     album.ID,
		ProjectID:   album.ProjectID,
		CompanyID:   album.CompanyID,
		StatusCode:  code,
		StatusLabel: models.StatusLabel(code),
		Actor:       actor,
		Comment:     comment,
		CreatedAt:   at,
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO album_events (event_id, album_id, project_id, company_id, status_code, actor, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.AlbumID, ev.ProjectID, ev.CompanyID, string(ev.StatusCode),
		ev.Actor, ev.Comment, ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert album event: %w", err)
	}
	return ev, nil
}
