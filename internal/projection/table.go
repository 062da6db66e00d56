// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package projection keeps a local, in-memory view of one project's
// albums and reconciles it against pushes from the event channel.
//
// Two invariants drive the design:
//
//  1. Status updates are structural merges. A push may only touch the
//     status fields of an existing record; it never creates records
//     and never touches CRUD fields.
//  2. The edit buffer is isolated. Values staged in an open form are
//     never modified by a push, and for status-like fields the
//     confirmed server state always wins when the record is rendered.
package projection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/albumflow/albumflow/internal/cache"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/metrics"
	"github.com/albumflow/albumflow/internal/models"
)

// Skip reasons recorded when a push is not applied.
const (
	skipUnknownAlbum  = "unknown_album"
	skipUnknownStatus = "unknown_status"
)

// ErrNoHistoryFetcher is returned by LoadEventHistory on a cache miss
// when the table was built without a fetcher.
var ErrNoHistoryFetcher = errors.New("no history fetcher configured")

// HistoryFetcher loads an album's status-change history on demand,
// typically over HTTP from the server.
type HistoryFetcher interface {
	FetchEvents(ctx context.Context, albumID string) ([]models.StatusEvent, error)
}

// Option configures a Table.
type Option func(*Table)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// WithHistoryCache overrides the history cache size and TTL.
func WithHistoryCache(capacity int, ttl time.Duration) Option {
	return func(t *Table) { t.history = cache.NewLRU[[]models.StatusEvent](capacity, ttl) }
}

// Table is the local projection of a project's albums. All methods are
// safe for concurrent use; the channel callback and the view render
// from different goroutines.
type Table struct {
	mu      sync.RWMutex
	records map[string]models.Album
	edits   map[string]map[string]interface{}
	history *cache.LRU[[]models.StatusEvent]
	fetcher HistoryFetcher
	now     func() time.Time
}

// NewTable builds an empty projection. fetcher may be nil when event
// history is never rendered (headless consumers); LoadEventHistory
// then returns ErrNoHistoryFetcher on a cache miss.
func NewTable(fetcher HistoryFetcher, opts ...Option) *Table {
	t := &Table{
		records: make(map[string]models.Album),
		edits:   make(map[string]map[string]interface{}),
		history: cache.NewLRU[[]models.StatusEvent](128, 5*time.Minute),
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load replaces the projection with a bulk-loaded album list. Open
// edit buffers survive a reload; staged form values belong to the
// user, not to the data that arrived underneath them.
func (t *Table) Load(albums []models.Album) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]models.Album, len(albums))
	for _, album := range albums {
		album.ID = models.NormalizeID(album.ID)
		album.ProjectID = models.NormalizeID(album.ProjectID)
		album.CompanyID = models.NormalizeID(album.CompanyID)
		t.records[album.ID] = album
	}
	t.history.Purge()
}

// Len returns the number of records in the projection.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Get returns the confirmed record for an album, without edit overlay.
func (t *Table) Get(albumID string) (models.Album, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	album, ok := t.records[models.NormalizeID(albumID)]
	return album, ok
}

// ApplyStatusUpdate reconciles one push into the projection.
//
// The merge is structural: only StatusCode, StatusLabel and LastEvent
// change. A push for an unknown album is a no-op (the record may not
// be loaded here at all), and an unrecognized status code is dropped
// rather than guessed at. Both outcomes are counted, not errored.
func (t *Table) ApplyStatusUpdate(msg models.StatusUpdateMessage) bool {
	id := models.NormalizeID(msg.AlbumID)

	t.mu.Lock()
	defer t.mu.Unlock()

	album, ok := t.records[id]
	if !ok {
		metrics.StatusUpdatesSkipped.WithLabelValues(skipUnknownAlbum).Inc()
		logging.Debug().Str("album_id", id).Msg("status update for album not in projection")
		return false
	}

	// A status event happened server-side for this album, so the
	// cached history is stale even when the code below is one we
	// cannot decode. Next hover refetches.
	t.history.Remove(id)

	status, ok := models.ResolveStatus(msg.Data.StatusCode)
	if !ok {
		metrics.StatusUpdatesSkipped.WithLabelValues(skipUnknownStatus).Inc()
		logging.Warn().
			Str("album_id", id).
			Str("status_code", string(msg.Data.StatusCode)).
			Msg("status update with unknown status code")
		return false
	}

	album.StatusCode = status.Code
	album.StatusLabel = status.Label
	album.LastEvent = &models.LastEvent{
		Status: status.Label,
		Date:   msg.EventTime(t.now),
	}
	t.records[id] = album

	metrics.StatusUpdatesApplied.Inc()
	return true
}

// LoadEventHistory returns an album's status-change history, serving
// from cache when the entry is still warm.
func (t *Table) LoadEventHistory(ctx context.Context, albumID string) ([]models.StatusEvent, error) {
	id := models.NormalizeID(albumID)

	if events, ok := t.history.Get(id); ok {
		metrics.HistoryCacheHits.Inc()
		return events, nil
	}
	metrics.HistoryCacheMisses.Inc()

	if t.fetcher == nil {
		return nil, ErrNoHistoryFetcher
	}
	events, err := t.fetcher.FetchEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	t.history.Add(id, events)
	return events, nil
}

// SetEdit stages a form value for an album. Staged values only affect
// Render output; the confirmed record is untouched until the edit is
// submitted through the API and comes back as data.
func (t *Table) SetEdit(albumID, field string, value interface{}) {
	id := models.NormalizeID(albumID)

	t.mu.Lock()
	defer t.mu.Unlock()

	buf, ok := t.edits[id]
	if !ok {
		buf = make(map[string]interface{})
		t.edits[id] = buf
	}
	buf[field] = value
}

// ClearEdits discards the staged values for an album, the close-form
// path.
func (t *Table) ClearEdits(albumID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.edits, models.NormalizeID(albumID))
}

// HasEdits reports whether an album has staged form values.
func (t *Table) HasEdits(albumID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	buf, ok := t.edits[models.NormalizeID(albumID)]
	return ok && len(buf) > 0
}

// Render returns the album as a view should display it: the confirmed
// record overlaid with staged edits. Status-like keys in the buffer
// are ignored outright, so the last confirmed status always wins even
// while a form is open.
func (t *Table) Render(albumID string) (models.Album, bool) {
	id := models.NormalizeID(albumID)

	t.mu.RLock()
	defer t.mu.RUnlock()

	album, ok := t.records[id]
	if !ok {
		return models.Album{}, false
	}

	buf, ok := t.edits[id]
	if !ok {
		return album, true
	}

	for field, value := range buf {
		if isStatusField(field) {
			continue
		}
		applyEditField(&album, field, value)
	}
	return album, true
}

// isStatusField matches every spelling a form might use for the
// status fields owned by the push pipeline.
func isStatusField(field string) bool {
	switch strings.ToLower(field) {
	case "status", "statuscode", "status_code", "statuslabel", "status_label",
		"lastevent", "last_event":
		return true
	}
	return false
}

func applyEditField(album *models.Album, field string, value interface{}) {
	s, isString := value.(string)

	switch strings.ToLower(field) {
	case "name":
		if isString {
			album.Name = s
		}
	case "department":
		if isString {
			album.Department = s
		}
	case "executor":
		if isString {
			album.Executor = s
		}
	case "customer":
		if isString {
			album.Customer = s
		}
	case "comment":
		if isString {
			album.Comment = s
		}
	case "external_link", "externallink":
		if isString {
			album.ExternalLink = s
		}
	case "internal_link", "internallink":
		if isString {
			album.InternalLink = s
		}
	case "deadline":
		switch v := value.(type) {
		case time.Time:
			album.Deadline = &v
		case *time.Time:
			album.Deadline = v
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				album.Deadline = &ts
			}
		}
	}
}
