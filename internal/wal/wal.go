// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package wal provides durable write-ahead logging before bus publish.
// Status events are persisted to BadgerDB (ACID, fsync) before
// publishing, so a bus outage or process crash never loses an event.
package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/metrics"
)

// Entry is a single WAL record. The payload is raw JSON, keeping the
// WAL agnostic to the event type.
type Entry struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// UnmarshalPayload deserializes the payload into the given type.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// WAL persists events until their publish is confirmed.
type WAL struct {
	db *badger.DB
}

// Open opens (or creates) a WAL at the given directory.
func Open(path string) (*WAL, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's default logger is too chatty for a WAL
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open wal: %w", err)
	}
	return &WAL{db: db}, nil
}

// OpenInMemory opens an in-memory WAL for tests.
func OpenInMemory() (*WAL, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory wal: %w", err)
	}
	return &WAL{db: db}, nil
}

// Write persists an event and returns the entry id used to confirm it
// after a successful publish.
func (w *WAL) Write(ctx context.Context, event interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal wal event: %w", err)
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal wal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(entry.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to persist wal entry: %w", err)
	}

	w.updatePendingGauge()
	return entry.ID, nil
}

// Confirm removes an entry after its event was published. Confirming a
// missing entry is a no-op, making confirmation idempotent.
func (w *WAL) Confirm(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := w.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key(entryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to confirm wal entry: %w", err)
	}

	w.updatePendingGauge()
	return nil
}

// MarkAttempt records a failed publish attempt for retry bookkeeping.
func (w *WAL) MarkAttempt(ctx context.Context, entryID string, attemptErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return w.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(entryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var entry Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return err
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		if attemptErr != nil {
			entry.LastError = attemptErr.Error()
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(key(entryID), data)
	})
}

// GetPending returns all unconfirmed entries, oldest first. Used on
// startup recovery and by the forwarder's retry loop.
func (w *WAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pending wal entries: %w", err)
	}

	// Badger iterates in key order (random UUIDs); sort by write time
	// so retries preserve server-send order as far as possible.
	sortByCreatedAt(entries)
	return entries, nil
}

// PendingCount returns the number of unconfirmed entries.
func (w *WAL) PendingCount() int {
	count := 0
	_ = w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Close shuts down the underlying store.
func (w *WAL) Close() error {
	return w.db.Close()
}

func (w *WAL) updatePendingGauge() {
	metrics.WALPendingEntries.Set(float64(w.PendingCount()))
}

func key(id string) []byte {
	return []byte("entry:" + id)
}

func sortByCreatedAt(entries []*Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].CreatedAt.Before(entries[j-1].CreatedAt); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// LogRecovery logs pending entries found at startup.
func (w *WAL) LogRecovery(ctx context.Context) {
	pending, err := w.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("wal recovery scan failed")
		return
	}
	if len(pending) > 0 {
		logging.Info().Int("pending", len(pending)).Msg("wal has unpublished entries from previous run")
	}
}
