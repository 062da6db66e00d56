// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package api

import (
	"net/http"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/websocket"
)

// WebSocket upgrades the connection and hands it to the hub. The
// client sends its subscribe message over the established connection;
// until then it receives no broadcasts.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
