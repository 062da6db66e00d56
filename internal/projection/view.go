// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package projection

import (
	"sort"
	"strings"

	"github.com/albumflow/albumflow/internal/models"
)

// Filter narrows the rendered table. Zero values match everything.
type Filter struct {
	Search     string
	Department string
	Executor   string
	Status     models.StatusCode
}

// Filtered returns the rendered albums matching the filter, ordered by
// creation time then id so repeated renders are stable. Every row goes
// through Render, so staged edits show up in filtered views too.
func (t *Table) Filtered(f Filter) []models.Album {
	t.mu.RLock()
	ids := make([]string, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	albums := make([]models.Album, 0, len(ids))
	for _, id := range ids {
		album, ok := t.Render(id)
		if !ok {
			continue
		}
		if matchesFilter(&album, &f) {
			albums = append(albums, album)
		}
	}

	sort.Slice(albums, func(i, j int) bool {
		if !albums[i].CreatedAt.Equal(albums[j].CreatedAt) {
			return albums[i].CreatedAt.Before(albums[j].CreatedAt)
		}
		return albums[i].ID < albums[j].ID
	})
	return albums
}

func matchesFilter(album *models.Album, f *Filter) bool {
	if f.Status != "" && album.StatusCode != f.Status {
		return false
	}
	if f.Department != "" && !strings.EqualFold(album.Department, f.Department) {
		return false
	}
	if f.Executor != "" && !strings.EqualFold(album.Executor, f.Executor) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(album.Name), needle) &&
			!strings.Contains(strings.ToLower(album.Comment), needle) {
			return false
		}
	}
	return true
}

// Summary aggregates the projection for the project dashboard.
type Summary struct {
	Total      int `json:"total"`
	Accepted   int `json:"accepted"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
}

// Summarize counts albums by outcome. An album is overdue when its
// deadline has passed and it has not been accepted.
func (t *Table) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	var s Summary
	for _, album := range t.records {
		s.Total++
		if album.StatusCode == models.StatusAccepted {
			s.Accepted++
			continue
		}
		s.InProgress++
		if album.Deadline != nil && album.Deadline.Before(now) {
			s.Overdue++
		}
	}
	return s
}
