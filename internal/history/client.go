// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package history fetches album status-change history from an
// Albumflow server over HTTP. The client sits behind a circuit breaker
// and a rate limiter: hover-driven history lookups burst hard, and a
// struggling server must not be hammered into the ground by them.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/albumflow/albumflow/internal/logging"
	"github.com/albumflow/albumflow/internal/models"
)

// ErrRateLimited indicates the local rate limiter rejected the call.
var ErrRateLimited = errors.New("history fetch rate limited")

// Client fetches event history with circuit breaker protection.
// Implements projection.HistoryFetcher.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]models.StatusEvent]
	limiter *rate.Limiter
}

// NewClient builds a history client for the given server. token is the
// bearer token used for authenticated deployments; empty disables the
// header.
func NewClient(baseURL, token string) *Client {
	cbName := "history-api"

	cb := gobreaker.NewCircuitBreaker[[]models.StatusEvent](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		// Open after a 60% failure rate over at least 5 requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("history breaker state transition")
		},
	})

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		cb:      cb,
		// Hover lookups: 5 rps sustained, bursts of 10.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// FetchEvents loads one album's history, most-recent-first.
func (c *Client) FetchEvents(ctx context.Context, albumID string) ([]models.StatusEvent, error) {
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return c.cb.Execute(func() ([]models.StatusEvent, error) {
		return c.fetch(ctx, albumID)
	})
}

func (c *Client) fetch(ctx context.Context, albumID string) ([]models.StatusEvent, error) {
	endpoint := fmt.Sprintf("%s/api/v1/albums/%s/events", c.baseURL, url.PathEscape(models.NormalizeID(albumID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read history response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request returned status %d", resp.StatusCode)
	}

	var wrapper struct {
		Status string                `json:"status"`
		Data   models.EventsResponse `json:"data"`
		Error  *models.APIError      `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	if wrapper.Status != "success" {
		if wrapper.Error != nil {
			return nil, fmt.Errorf("history request failed: %s", wrapper.Error.Message)
		}
		return nil, errors.New("history request failed")
	}

	return wrapper.Data.Events, nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}
