// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/eventbus"
	"github.com/albumflow/albumflow/internal/models"
)

func TestBridge_BusEventReachesSubscribedClient(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	bus := eventbus.NewInProcess()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := NewBridge(bus, hub)
	bridgeDone := make(chan struct{})
	go func() {
		_ = bridge.Serve(ctx)
		close(bridgeDone)
	}()

	client := NewClient(hub, nil)
	client.Subscribe("1", "42")
	hub.Register <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	if err := bus.Publish(ctx, testStatusEvent("7", "42")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case raw := <-client.send:
		msg, ok := raw.(models.StatusUpdateMessage)
		if !ok {
			t.Fatalf("unexpected message type %T", raw)
		}
		if msg.AlbumID.String() != "7" {
			t.Errorf("album id = %q", msg.AlbumID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bus event never reached the client")
	}

	cancel()
	<-bridgeDone
}
