// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package wal

import (
	"context"
	"time"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

// Publisher is the slice of the event bus the forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, event *models.StatusEvent) error
}

// Forwarder retries WAL entries whose publish failed. The API path
// publishes inline and confirms on success; everything left in the WAL
// is a publish that did not complete, and the forwarder drains those
// on an interval until they go through or exhaust their attempts.
type Forwarder struct {
	wal         *WAL
	publisher   Publisher
	interval    time.Duration
	maxAttempts int
}

// NewForwarder builds a retry forwarder. maxAttempts <= 0 retries
// forever.
func NewForwarder(w *WAL, publisher Publisher, interval time.Duration, maxAttempts int) *Forwarder {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Forwarder{
		wal:         w,
		publisher:   publisher,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Serve runs the retry loop until the context is cancelled. Implements
// suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", f.interval).Msg("wal forwarder started")

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// Drain anything left over from a previous run before the first tick.
	f.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("wal forwarder stopped")
			return ctx.Err()
		case <-ticker.C:
			f.drain(ctx)
		}
	}
}

func (f *Forwarder) drain(ctx context.Context) {
	pending, err := f.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to read pending wal entries")
		return
	}

	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}

		if f.maxAttempts > 0 && entry.Attempts >= f.maxAttempts {
			logging.Error().
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts).
				Str("last_error", entry.LastError).
				Msg("dropping wal entry after exhausting publish attempts")
			if err := f.wal.Confirm(ctx, entry.ID); err != nil {
				logging.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to drop wal entry")
			}
			continue
		}

		var event models.StatusEvent
		if err := entry.UnmarshalPayload(&event); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("dropping undecodable wal entry")
			if err := f.wal.Confirm(ctx, entry.ID); err != nil {
				logging.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to drop wal entry")
			}
			continue
		}

		if err := f.publisher.Publish(ctx, &event); err != nil {
			logging.Warn().Err(err).
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts+1).
				Msg("wal entry publish retry failed")
			if merr := f.wal.MarkAttempt(ctx, entry.ID, err); merr != nil {
				logging.Error().Err(merr).Str("entry_id", entry.ID).Msg("failed to record publish attempt")
			}
			continue
		}

		if err := f.wal.Confirm(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to confirm forwarded wal entry")
			continue
		}
		logging.Debug().Str("entry_id", entry.ID).Str("event_id", event.EventID).Msg("forwarded wal entry")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (f *Forwarder) String() string { return "wal-forwarder" }
