// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package wal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/models"
)

func newTestWAL(t *testing.T) *WAL {
	t.Helper()
	w, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func testEvent(albumID string) *models.StatusEvent {
	return &models.StatusEvent{
		EventID:     "ev-" + albumID,
		AlbumID:     albumID,
		ProjectID:   "42",
		CompanyID:   "1",
		StatusCode:  models.StatusSent,
		StatusLabel: "Sent",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestWriteConfirm(t *testing.T) {
	w := newTestWAL(t)
	ctx := context.Background()

	id, err := w.Write(ctx, testEvent("7"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", w.PendingCount())
	}

	if err := w.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if w.PendingCount() != 0 {
		t.Errorf("pending = %d after confirm, want 0", w.PendingCount())
	}

	// Confirming again is a no-op.
	if err := w.Confirm(ctx, id); err != nil {
		t.Errorf("second Confirm: %v", err)
	}
}

func TestGetPending_PayloadRoundTrip(t *testing.T) {
	w := newTestWAL(t)
	ctx := context.Background()

	if _, err := w.Write(ctx, testEvent("7")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	var ev models.StatusEvent
	if err := pending[0].UnmarshalPayload(&ev); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if ev.AlbumID != "7" || ev.StatusCode != models.StatusSent {
		t.Errorf("decoded event = %+v", ev)
	}
}

func TestMarkAttempt(t *testing.T) {
	w := newTestWAL(t)
	ctx := context.Background()

	id, err := w.Write(ctx, testEvent("7"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := w.MarkAttempt(ctx, id, errors.New("bus down")); err != nil {
		t.Fatalf("MarkAttempt: %v", err)
	}

	pending, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if pending[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", pending[0].Attempts)
	}
	if pending[0].LastError != "bus down" {
		t.Errorf("last error = %q", pending[0].LastError)
	}
}

// flakyPublisher fails the first n publishes.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []*models.StatusEvent
}

func (p *flakyPublisher) Publish(_ context.Context, ev *models.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("publish failed")
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *flakyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestForwarder_RetriesUntilPublished(t *testing.T) {
	w := newTestWAL(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := w.Write(ctx, testEvent("7")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pub := &flakyPublisher{failures: 2}
	fwd := NewForwarder(w, pub, 10*time.Millisecond, 0)

	done := make(chan struct{})
	go func() {
		_ = fwd.Serve(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for pub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("event never published")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if w.PendingCount() != 0 {
		t.Errorf("pending = %d after successful forward, want 0", w.PendingCount())
	}
}

func TestForwarder_DropsAfterMaxAttempts(t *testing.T) {
	w := newTestWAL(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := w.Write(ctx, testEvent("7")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pub := &flakyPublisher{failures: 1000}
	fwd := NewForwarder(w, pub, 5*time.Millisecond, 2)

	done := make(chan struct{})
	go func() {
		_ = fwd.Serve(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for w.PendingCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("entry never dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if pub.count() != 0 {
		t.Errorf("published = %d, want 0", pub.count())
	}
}
