// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/albumflow/albumflow/internal/websocket"
)

// mockServer simulates *http.Server's blocking lifecycle.
type mockServer struct {
	serveErr   error
	closed     chan struct{}
	shutdowns  atomic.Int32
	shutdownOK bool
}

func newMockServer(serveErr error) *mockServer {
	return &mockServer{serveErr: serveErr, closed: make(chan struct{}), shutdownOK: true}
}

func (m *mockServer) ListenAndServe() error {
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.closed
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdowns.Add(1)
	close(m.closed)
	if !m.shutdownOK {
		return errors.New("shutdown failed")
	}
	return nil
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	srv := newMockServer(nil)
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the serve goroutine start before cancelling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve never returned")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns.Load())
	}
}

func TestHTTPService_StartFailure(t *testing.T) {
	srv := newMockServer(errors.New("address already in use"))
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected error for failed start")
	}
}

func TestHubService_StopsOnCancel(t *testing.T) {
	hub := websocket.NewHub()
	svc := NewHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hub service never stopped")
	}
}

func TestTree_RunsAndStops(t *testing.T) {
	tree := NewTree(DefaultTreeConfig())

	hub := websocket.NewHub()
	tree.AddMessagingService(NewHubService(hub))

	srv := newMockServer(nil)
	tree.AddAPIService(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree never stopped")
	}
}
