// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/albumflow/albumflow/internal/metrics"
	"github.com/albumflow/albumflow/internal/models"
)

// ErrAlbumNotFound indicates the requested album does not exist.
var ErrAlbumNotFound = errors.New("album not found")

// ErrUnknownStatusCode indicates a status code outside the closed set.
var ErrUnknownStatusCode = errors.New("unknown status code")

const albumColumns = `id, project_id, company_id, name, status_code, department,
	executor, customer, deadline, comment, external_link, internal_link,
	created_at, updated_at`

// CreateAlbum inserts a new album in Waiting status and records the
// initial status event.
func (db *DB) CreateAlbum(ctx context.Context, projectID string, req *models.CreateAlbumRequest, actor string) (*models.Album, error) {
	start := time.Now()
	now := time.Now().UTC()

	album := &models.Album{
		ID:           uuid.New().String(),
		ProjectID:    models.NormalizeID(projectID),
		CompanyID:    models.NormalizeID(req.CompanyID),
		Name:         req.Name,
		StatusCode:   models.StatusWaiting,
		StatusLabel:  models.StatusLabel(models.StatusWaiting),
		Department:   req.Department,
		Executor:     req.Executor,
		Customer:     req.Customer,
		Deadline:     req.Deadline,
		Comment:      req.Comment,
		ExternalLink: req.ExternalLink,
		InternalLink: req.InternalLink,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	album.LastEvent = &models.LastEvent{Status: album.StatusLabel, Date: now}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO albums (`+albumColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		album.ID, album.ProjectID, album.CompanyID, album.Name, string(album.StatusCode),
		album.Department, album.Executor, album.Customer, album.Deadline,
		album.Comment, album.ExternalLink, album.InternalLink,
		album.CreatedAt, album.UpdatedAt,
	)
	if err != nil {
		metrics.ObserveDBQuery("insert", "albums", start, err)
		return nil, fmt.Errorf("failed to insert album: %w", err)
	}

	if _, err := insertEvent(ctx, tx, album, models.StatusWaiting, actor, "album created", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit album creation: %w", err)
	}
	metrics.ObserveDBQuery("insert", "albums", start, nil)
	return album, nil
}

// ListAlbums returns every album in a project, the bulk load performed
// when a table view mounts. Ordered by creation time for stable tables.
func (db *DB) ListAlbums(ctx context.Context, projectID string) ([]models.Album, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE project_id = ? ORDER BY created_at, id`,
		models.NormalizeID(projectID),
	)
	metrics.ObserveDBQuery("select", "albums", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	albums := make([]models.Album, 0, 64)
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate albums: %w", err)
	}

	if err := db.attachLastEvents(ctx, models.NormalizeID(projectID), albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// GetAlbum returns one album by id.
func (db *DB) GetAlbum(ctx context.Context, albumID string) (*models.Album, error) {
	start := time.Now()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = ?`,
		models.NormalizeID(albumID),
	)
	album, err := scanAlbum(row)
	metrics.ObserveDBQuery("select", "albums", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, err
	}

	events, err := db.ListAlbumEvents(ctx, album.ID)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		album.LastEvent = &models.LastEvent{Status: events[0].StatusLabel, Date: events[0].CreatedAt}
	}
	return album, nil
}

// UpdateAlbumStatus transitions an album to a new status and appends
// the status event in one transaction. The returned event feeds the
// WAL and the push pipeline.
func (db *DB) UpdateAlbumStatus(ctx context.Context, albumID string, code models.StatusCode, actor, comment string) (*models.StatusEvent, error) {
	if !models.ValidStatusCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatusCode, code)
	}

	start := time.Now()
	now := time.Now().UTC()
	id := models.NormalizeID(albumID)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlbumNotFound
	}
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE albums SET status_code = ?, updated_at = ? WHERE id = ?`,
		string(code), now, id,
	)
	if err != nil {
		metrics.ObserveDBQuery("update", "albums", start, err)
		return nil, fmt.Errorf("failed to update album status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlbumNotFound
	}

	ev, err := insertEvent(ctx, tx, album, code, actor, comment, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	metrics.ObserveDBQuery("update", "albums", start, nil)

	return ev, nil
}

// attachLastEvents populates LastEvent for every album in a project
// with a single window query, keyed by the newest event per album.
// The bulk load runs on every table-view mount; one query per album
// here would be an N+1 on the hottest read path.
func (db *DB) attachLastEvents(ctx context.Context, projectID string, albums []models.Album) error {
	if len(albums) == 0 {
		return nil
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT album_id, status_code, created_at FROM (
			SELECT e.album_id, e.status_code, e.created_at,
			       row_number() OVER (PARTITION BY e.album_id ORDER BY e.created_at DESC) AS rn
			FROM album_events e
			JOIN albums a ON a.id = e.album_id
			WHERE a.project_id = ?
		) WHERE rn = 1`,
		projectID,
	)
	metrics.ObserveDBQuery("select", "album_events", start, err)
	if err != nil {
		return fmt.Errorf("failed to load last events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := make(map[string]*models.LastEvent, len(albums))
	for rows.Next() {
		var albumID, code string
		var at time.Time
		if err := rows.Scan(&albumID, &code, &at); err != nil {
			return fmt.Errorf("failed to scan last event: %w", err)
		}
		latest[albumID] = &models.LastEvent{
			Status: models.StatusLabel(models.StatusCode(code)),
			Date:   at,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate last events: %w", err)
	}

	for i := range albums {
		if ev, ok := latest[albums[i].ID]; ok {
			albums[i].LastEvent = ev
		}
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlbum(s scanner) (*models.Album, error) {
	var a models.Album
	var code string
	var deadline sql.NullTime
	err := s.Scan(
		&a.ID, &a.ProjectID, &a.CompanyID, &a.Name, &code, &a.Department,
		&a.Executor, &a.Customer, &deadline, &a.Comment, &a.ExternalLink,
		&a.InternalLink, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.StatusCode = models.StatusCode(code)
	a.StatusLabel = models.StatusLabel(a.StatusCode)
	if deadline.Valid {
		d := deadline.Time
		a.Deadline = &d
	}
	return &a, nil
}
