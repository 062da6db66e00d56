// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package channel implements the subscribing side of the album event
// channel: a WebSocket client that connects to an Albumflow server,
// announces its (company, project) scope, and feeds status updates to
// a local projection.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

const (
	handshakeTimeout  = 10 * time.Second
	readTimeout       = 60 * time.Second
	pingInterval      = 30 * time.Second
	initialReconnect  = 1 * time.Second
	maxReconnectDelay = 32 * time.Second
)

// Client maintains a WebSocket connection to the album event channel.
// It reconnects with bounded exponential backoff and re-subscribes
// after every reconnect, since the server keeps no subscription state
// across connections.
type Client struct {
	wsURL     string
	companyID string
	projectID string

	conn   *websocket.Conn
	connMu sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	callbackMu     sync.RWMutex
	onStatusUpdate func(models.StatusUpdateMessage)
}

// NewClient creates a channel client for one project scope. wsURL is
// the full endpoint, e.g. ws://host:8480/api/v1/ws.
func NewClient(wsURL, companyID, projectID string) *Client {
	return &Client{
		wsURL:     wsURL,
		companyID: models.NormalizeID(companyID),
		projectID: models.NormalizeID(projectID),
		stopChan:  make(chan struct{}),
	}
}

// NewFromConfig creates a channel client using the endpoint for the
// configured deployment (local, tunnel or production).
func NewFromConfig(cfg *config.ChannelConfig, companyID, projectID string) *Client {
	return NewClient(cfg.Endpoint(), companyID, projectID)
}

// OnStatusUpdate registers the callback invoked for every
// album_status_updated message in this client's project.
func (c *Client) OnStatusUpdate(fn func(models.StatusUpdateMessage)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onStatusUpdate = fn
}

// Connect dials the channel and starts the listen and ping loops.
// Subscription failures are not fatal; the listen loop retries the
// whole connect cycle.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return nil // already connected
	}

	logging.Info().Str("url", c.wsURL).Str("project_id", c.projectID).Msg("connecting to event channel")

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("event channel dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("event channel dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close handshake response body")
		}
	}

	c.conn = conn
	logging.Info().Msg("event channel connected")

	if err := c.subscribe(); err != nil {
		logging.Warn().Err(err).Msg("failed to send subscribe message")
	}

	c.wg.Add(2)
	go c.listen(ctx)
	go c.pingLoop(ctx)

	return nil
}

// subscribe announces the project scope. Called with connMu held.
func (c *Client) subscribe() error {
	msg := models.NewSubscribeMessage(c.companyID, c.projectID)
	return c.conn.WriteJSON(msg)
}

// listen processes incoming messages and drives reconnection. The
// backoff doubles from 1s to a 32s ceiling and resets after any
// successful read.
func (c *Client) listen(ctx context.Context) {
	defer c.wg.Done()

	reconnectDelay := initialReconnect

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("event channel listener stopping (context canceled)")
			return
		case <-c.stopChan:
			logging.Info().Msg("event channel listener stopping (closed)")
			return
		default:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				logging.Info().Dur("delay", reconnectDelay).Msg("event channel lost, reconnecting")
				select {
				case <-time.After(reconnectDelay):
				case <-ctx.Done():
					return
				case <-c.stopChan:
					return
				}
				reconnectDelay *= 2
				if reconnectDelay > maxReconnectDelay {
					reconnectDelay = maxReconnectDelay
				}

				if err := c.reconnect(ctx); err != nil {
					logging.Warn().Err(err).Msg("event channel reconnect failed")
					continue
				}
				reconnectDelay = initialReconnect
				continue
			}

			if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
				logging.Warn().Err(err).Msg("failed to set read deadline")
			}

			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.Info().Msg("event channel closed by server")
				} else if ctx.Err() != nil {
					return
				} else {
					logging.Warn().Err(err).Msg("event channel read error")
				}
				c.closeConnection()
				continue
			}

			reconnectDelay = initialReconnect
			c.handleMessage(raw)
		}
	}
}

// reconnect re-dials and re-subscribes without spawning new pump
// goroutines; the existing loops keep running across reconnects.
func (c *Client) reconnect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("event channel dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("event channel dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.conn = conn
	logging.Info().Msg("event channel reconnected")

	if err := c.subscribe(); err != nil {
		logging.Warn().Err(err).Msg("failed to re-subscribe after reconnect")
	}
	return nil
}

// handleMessage dispatches one channel message. Malformed payloads are
// logged and dropped; unknown types are ignored so new server message
// types never break old clients.
func (c *Client) handleMessage(raw []byte) {
	env, err := models.DecodeEnvelope(raw)
	if err != nil {
		logging.Warn().Err(err).Msg("dropping malformed channel message")
		return
	}

	switch env.Type {
	case models.MessageTypeAlbumStatusUpdated:
		var msg models.StatusUpdateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Warn().Err(err).Msg("dropping malformed status update")
			return
		}

		// The server already scopes pushes, but a defect or a shared
		// topic could leak another project's events. Filter again here.
		if models.NormalizeID(msg.ProjectID) != c.projectID {
			logging.Debug().
				Str("project_id", msg.ProjectID.String()).
				Msg("ignoring status update for another project")
			return
		}

		c.callbackMu.RLock()
		fn := c.onStatusUpdate
		c.callbackMu.RUnlock()
		if fn != nil {
			fn(msg)
		}

	case models.MessageTypePong:
		// Keep-alive acknowledgment.

	default:
		logging.Debug().Str("type", env.Type).Msg("ignoring unknown channel message type")
	}
}

// pingLoop sends periodic keep-alive messages.
func (c *Client) pingLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			var err error
			if conn != nil {
				err = conn.WriteJSON(map[string]string{"type": models.MessageTypePing})
			}
			c.connMu.Unlock()

			if conn == nil {
				continue
			}
			if err != nil {
				logging.Warn().Err(err).Msg("event channel keep-alive failed")
				c.closeConnection()
			}
		}
	}
}

func (c *Client) closeConnection() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		if err := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(1*time.Second),
		); err != nil {
			logging.Debug().Err(err).Msg("failed to send close message")
		}
		if err := c.conn.Close(); err != nil {
			logging.Debug().Err(err).Msg("failed to close event channel connection")
		}
		c.conn = nil
	}
}

// IsConnected reports whether the channel is currently up.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil
}

// Close shuts the client down and waits for its goroutines.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.closeConnection()
	c.wg.Wait()
	logging.Info().Msg("event channel client closed")
	return nil
}
