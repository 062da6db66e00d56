// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package projection

import (
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/models"
)

func seedProject(t *testing.T) *Table {
	t.Helper()
	table := newTestTable(nil)

	overdue := fixedNow.Add(-48 * time.Hour)
	future := fixedNow.Add(72 * time.Hour)

	a := seedAlbum("1", "42", "Foundation drawings")
	a.Deadline = &overdue

	b := seedAlbum("2", "42", "Electrical layouts")
	b.Department = "Electrical"
	b.Executor = "Voltwork"
	b.Deadline = &future

	c := seedAlbum("3", "42", "Facade details")
	c.StatusCode = models.StatusAccepted
	c.StatusLabel = "Accepted"
	c.Deadline = &overdue

	table.Load([]models.Album{a, b, c})
	return table
}

func TestFiltered_ByStatus(t *testing.T) {
	table := seedProject(t)

	got := table.Filtered(Filter{Status: models.StatusAccepted})
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("accepted filter = %v", ids(got))
	}
}

func TestFiltered_ByDepartmentAndSearch(t *testing.T) {
	table := seedProject(t)

	got := table.Filtered(Filter{Department: "electrical"})
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("department filter = %v", ids(got))
	}

	got = table.Filtered(Filter{Search: "facade"})
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("search filter = %v", ids(got))
	}
}

func TestFiltered_StableOrderAndEditsVisible(t *testing.T) {
	table := seedProject(t)
	table.SetEdit("2", "comment", "staged note")

	got := table.Filtered(Filter{})
	if len(got) != 3 {
		t.Fatalf("filtered = %d albums", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ID != want {
			t.Errorf("order[%d] = %q, want %q", i, got[i].ID, want)
		}
	}
	if got[1].Comment != "staged note" {
		t.Errorf("staged edit not visible in filtered view")
	}
}

func TestSummarize(t *testing.T) {
	table := seedProject(t)

	s := table.Summarize()
	if s.Total != 3 {
		t.Errorf("total = %d", s.Total)
	}
	if s.Accepted != 1 {
		t.Errorf("accepted = %d", s.Accepted)
	}
	if s.InProgress != 2 {
		t.Errorf("in progress = %d", s.InProgress)
	}
	// Album 1 is overdue; album 3 is past deadline but accepted.
	if s.Overdue != 1 {
		t.Errorf("overdue = %d", s.Overdue)
	}
}

func ids(albums []models.Album) []string {
	out := make([]string, len(albums))
	for i, a := range albums {
		out[i] = a.ID
	}
	return out
}
