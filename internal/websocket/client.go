// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB, subscribe messages are tiny
)

// clientIDCounter generates unique, monotonically increasing IDs so
// clients can be sorted into a consistent broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between a websocket connection and the hub.
// A client receives nothing until it sends a subscribe message naming
// its company and project.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan interface{}

	subMu      sync.RWMutex
	subscribed bool
	companyID  string
	projectID  string
}

// NewClient creates a new Client with a unique id.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan interface{}, 256),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Subscribe records the client's project scope. Re-subscribing
// replaces the previous scope.
func (c *Client) Subscribe(companyID, projectID string) {
	c.subMu.Lock()
	c.subscribed = true
	c.companyID = models.NormalizeID(companyID)
	c.projectID = models.NormalizeID(projectID)
	c.subMu.Unlock()
	logging.Debug().
		Uint64("client_id", c.id).
		Str("company_id", companyID).
		Str("project_id", projectID).
		Msg("websocket client subscribed")
}

// matchesScope reports whether a broadcast scoped to the given company
// and project should reach this client. Unsubscribed clients receive
// nothing.
func (c *Client) matchesScope(companyID, projectID string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if !c.subscribed {
		return false
	}
	if c.projectID != projectID {
		return false
	}
	// Company mismatch only matters when both sides carry one.
	if c.companyID != "" && companyID != "" && c.companyID != companyID {
		return false
	}
	return true
}

// readPump pumps messages from the websocket connection to the hub.
// The only client-to-server messages are subscribe and ping.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		env, err := models.DecodeEnvelope(raw)
		if err != nil {
			logging.Warn().Err(err).Uint64("client_id", c.id).Msg("dropping malformed websocket message")
			continue
		}

		switch env.Type {
		case models.MessageTypeSubscribe:
			var sub models.SubscribeMessage
			if err := json.Unmarshal(raw, &sub); err != nil {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("dropping malformed subscribe message")
				continue
			}
			c.Subscribe(sub.CompanyID.String(), sub.ProjectID.String())

		case models.MessageTypePing:
			pong := map[string]string{"type": models.MessageTypePong}
			select {
			case c.send <- pong:
			default:
			}

		default:
			// Unknown types are ignored, not an error.
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
