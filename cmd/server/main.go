// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package main is the entry point for the TierDrop server.
//
// TierDrop is a self-hosted dashboard for a ZeroTier network controller.
// It polls the local node's control API, keeps an in-memory snapshot of
// the full entity graph (node status, networks, members), and serves a
// REST API with Server-Sent Events and WebSocket push for real-time
// dashboard updates.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML file,
//     environment variables)
//  2. Control API client: authenticated with the node's X-ZT1-Auth token
//  3. Snapshot store, event bus, and poller (the synchronization engine)
//  4. WebSocket hub and the bus-to-hub forwarder
//  5. HTTP server: REST API, SSE, WebSocket, and Prometheus metrics
//
// All long-running components are managed by a Suture v4 supervisor
// tree with two layers: engine-layer (poller, hub, forwarder) and
// api-layer (HTTP server).
//
// # Configuration
//
// Settings come from environment variables with the TIERDROP_ prefix,
// or a YAML file found via TIERDROP_CONFIG:
//
//	export TIERDROP_ZEROTIER_BASE_URL=http://localhost:9993
//	export TIERDROP_ZEROTIER_TOKEN_FILE=/var/lib/zerotier-one/authtoken.secret
//	export TIERDROP_SERVER_PORT=8000
//	./tierdrop
//
// When no token is configured the server still starts: the API answers
// from an empty snapshot and mutations return 503 until a token is
// provided and the process restarted.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests under the configured timeout, the poller finishes
// its current cycle, and websocket clients are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinerieus/tierdrop/internal/api"
	"github.com/cinerieus/tierdrop/internal/config"
	"github.com/cinerieus/tierdrop/internal/logging"
	"github.com/cinerieus/tierdrop/internal/supervisor"
	"github.com/cinerieus/tierdrop/internal/supervisor/services"
	statesync "github.com/cinerieus/tierdrop/internal/sync"
	ws "github.com/cinerieus/tierdrop/internal/websocket"
	"github.com/cinerieus/tierdrop/internal/zt"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().
		Str("version", version).
		Str("base_url", cfg.ZeroTier.BaseURL).
		Dur("poll_interval", cfg.ZeroTier.PollInterval).
		Msg("Starting TierDrop")

	token, err := cfg.ResolveToken()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to resolve control API token")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := statesync.NewStore()
	bus := statesync.NewBus()
	wsHub := ws.NewHub()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Without a token the engine never starts: the API serves the empty
	// snapshot and mutations answer 503.
	var client zt.ClientInterface
	var trigger api.Triggerer
	if token != "" {
		ztClient := zt.NewClient(cfg.ZeroTier.BaseURL, token)
		poller := statesync.NewPoller(ztClient, store, bus, statesync.PollerConfig{
			Interval: cfg.ZeroTier.PollInterval,
		})
		client = ztClient
		trigger = poller
		tree.AddEngineService(poller)
		logging.Info().Msg("Synchronization engine added to supervisor tree")
	} else {
		logging.Warn().Msg("No control API token configured; synchronization disabled, mutations will return 503")
	}

	tree.AddEngineService(services.NewWebSocketHubService(wsHub))
	tree.AddEngineService(ws.NewForwarder(wsHub, bus, store))

	handler := api.NewHandler(store, bus, client, trigger, wsHub, version)
	router := api.NewRouter(handler, &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitRequests <= 0,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("TierDrop stopped")
}
