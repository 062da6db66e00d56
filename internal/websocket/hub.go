// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package websocket implements the server side of the album event
// channel. Browsers connect, send a subscribe message naming their
// company and project, and receive album_status_updated pushes scoped
// to that project.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/metrics"
	"github.com/albumflow/albumflow/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// broadcast pairs an outgoing message with the project scope it
// belongs to. Only clients subscribed to that scope receive it.
type broadcast struct {
	message   interface{}
	projectID string
	companyID string
}

// Hub maintains the set of active clients and fans status updates out
// to the clients subscribed to the matching project.
type Hub struct {
	clients    map[*Client]bool
	broadcasts chan broadcast
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcasts: make(chan broadcast, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// RunWithContext starts the hub with context support for graceful
// shutdown, designed for suture supervision.
//
// Priority-based selection keeps behavior deterministic when multiple
// channels are ready: shutdown first, then client lifecycle, then
// broadcasts. Client state is always settled before a message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check).
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle (non-blocking check).
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or block until anything arrives.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case b := <-h.broadcasts:
			h.broadcastToClients(b)
		}
	}
}

// Run starts the hub without shutdown support.
//
// Deprecated: Use RunWithContext for supervised operation.
func (h *Hub) Run() {
	_ = h.RunWithContext(context.Background())
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers a scoped message to every subscribed
// client whose project matches, in client-id order. Sorting makes
// delivery order reproducible; map iteration order is not.
func (h *Hub) broadcastToClients(b broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		if !client.matchesScope(b.companyID, b.projectID) {
			continue
		}
		select {
		case client.send <- b.message:
			metrics.EventsBroadcast.Inc()
		default:
			// Channel full, the client is too slow to keep.
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSClients.Set(float64(len(h.clients)))
		logging.Warn().Int("removed", len(toRemove)).Msg("dropped slow websocket clients")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSClients.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// BroadcastStatusUpdate pushes an album status change to every client
// subscribed to the event's project.
func (h *Hub) BroadcastStatusUpdate(event *models.StatusEvent) {
	msg := models.NewStatusUpdateMessage(event)
	b := broadcast{
		message:   msg,
		projectID: models.NormalizeID(event.ProjectID),
		companyID: models.NormalizeID(event.CompanyID),
	}

	select {
	case h.broadcasts <- b:
	default:
		logging.Warn().
			Str("album_id", event.AlbumID).
			Msg("broadcast channel full, dropping status update")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetSubscriberCount returns the number of clients subscribed to a
// project. Exposed for the readiness endpoint and tests.
func (h *Hub) GetSubscriberCount(companyID, projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for client := range h.clients {
		if client.matchesScope(models.NormalizeID(companyID), models.NormalizeID(projectID)) {
			count++
		}
	}
	return count
}
