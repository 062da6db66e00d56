// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package websocket

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/albumflow/albumflow/internal/eventbus"
	"github.com/albumflow/albumflow/internal/logging"
)

// EventSource is the slice of the event bus the bridge consumes.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Bridge connects the event bus to the hub: every status event
// published by any server instance fans out to this instance's
// websocket clients. Implements suture.Service.
type Bridge struct {
	source EventSource
	hub    *Hub
}

// NewBridge builds a bus-to-hub bridge.
func NewBridge(source EventSource, hub *Hub) *Bridge {
	return &Bridge{source: source, hub: hub}
}

// Serve consumes status events until the context is cancelled.
// Undecodable messages are acked and dropped; nacking them would make
// the bus redeliver garbage forever.
func (b *Bridge) Serve(ctx context.Context) error {
	msgs, err := b.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Str("component", "event-bridge").Msg("event bridge started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "event-bridge").Msg("event bridge stopped")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				logging.Warn().Str("component", "event-bridge").Msg("event stream closed")
				return nil
			}
			event, err := eventbus.DecodeStatusEvent(msg)
			if err != nil {
				logging.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable status event")
				msg.Ack()
				continue
			}
			b.hub.BroadcastStatusUpdate(event)
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bridge) String() string { return "event-bridge" }
