// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/logging"
)

// startEmbeddedNATS runs an in-process NATS server with JetStream for
// standalone deployments. Returns the shutdown function.
func startEmbeddedNATS(cfg *config.NATSConfig) (func(), error) {
	host, port, err := natsListenAddr(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts := &server.Options{
		ServerName: "albumflow-events",
		Host:       host,
		Port:       port,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready within timeout")
	}

	logging.Info().Str("client_url", ns.ClientURL()).Str("store_dir", cfg.StoreDir).Msg("embedded nats server started")

	return func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}, nil
}

// natsListenAddr extracts the host and port the embedded server should
// bind from the configured client URL.
func natsListenAddr(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid nats url %q: %w", raw, err)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		// No explicit port in the URL.
		return u.Host, 4222, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid nats port %q: %w", portStr, err)
	}
	return host, port, nil
}
