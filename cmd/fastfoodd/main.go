// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package main is the entry point for the fastfoodd sync daemon.
//
// fastfoodd keeps a local view of the user's FastFood orders in sync with
// the backend. It holds a websocket connection for push notifications,
// normalizes the backend's event payloads into order events, patches the
// in-memory order list, and falls back to REST polling when the push
// channel is quiet or down.
//
// The daemon initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     FASTFOOD_* environment variables (Koanf v2)
//  2. Event bus: in-process Pub/Sub for raw frames and order events
//  3. REST client: authenticated order API with rate limiting, retries,
//     and a circuit breaker
//  4. Websocket transport: push channel with exponential reconnect
//  5. Normalizer: raw frame to order event pipeline (Watermill router)
//  6. Tracker manager: one polling tracker per in-flight order
//  7. Order list store: patched in place from order events, feeding the
//     tracker manager on every change
//  8. Debug server (optional): /metrics, /healthz, /status
//
// All long-running pieces run under a suture supervisor tree and shut
// down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastfoodapp/client-go/internal/api"
	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/config"
	"github.com/fastfoodapp/client-go/internal/debug"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/models"
	"github.com/fastfoodapp/client-go/internal/notify"
	"github.com/fastfoodapp/client-go/internal/orderlist"
	"github.com/fastfoodapp/client-go/internal/supervisor"
	"github.com/fastfoodapp/client-go/internal/tracker"
	"github.com/fastfoodapp/client-go/internal/transport"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("api_url", cfg.API.URL).
		Dur("poll_interval", cfg.Tracker.PollInterval).
		Bool("debug_server", cfg.Debug.Enabled).
		Msg("Starting fastfoodd")

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to derive websocket endpoint")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process event bus. Everything downstream of the websocket hangs
	// off these topics.
	b := bus.New(bus.NewZerologAdapter(logging.Logger()))
	defer func() {
		if err := b.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// REST client wrapped in a circuit breaker so a struggling backend
	// fails fast instead of piling up blocked refetches.
	orders := api.NewBreakerClient(api.NewClient(&cfg.API))

	ws := transport.NewClient(wsURL, cfg.WebSocket, b)
	if cfg.API.Token != "" {
		ws.SetToken(cfg.API.Token)
	} else {
		logging.Warn().Msg("No API token configured; websocket will stay idle until a token is set")
	}

	history := notify.NewHistory(cfg.Notifications.HistorySize)
	normalizer, err := notify.NewNormalizer(b, history, bus.NewZerologAdapter(logging.Logger()))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build event normalizer")
	}

	// Per-order trackers provide the polling fallback: one tracker per
	// in-flight order, disarmed once the order goes terminal. The list
	// store's change callback keeps the set reconciled with the list.
	trackers := tracker.NewManager(orders, b, cfg.Tracker.PollInterval, func(o models.Order) {
		logging.Info().
			Int64("order_id", o.ID).
			Str("status", string(o.Status)).
			Msg("Order state updated")
	})
	defer trackers.Stop()

	// Order list store, kept current from the order-update channel.
	list := orderlist.NewStore(orders, b, func(snapshot []models.Order) {
		trackers.Sync(ctx, snapshot)
	})
	if err := list.Load(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial order list load failed; list will fill in on first event")
	}
	if err := list.Watch(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to subscribe order list store")
	}
	defer list.Stop()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddSyncService(ws)
	tree.AddSyncService(normalizer)
	if cfg.Debug.Enabled {
		tree.AddAPIService(debug.NewServer(cfg.Debug.Addr, ws))
		logging.Info().Str("addr", cfg.Debug.Addr).Msg("Debug server enabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor actually finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("fastfoodd stopped")
}
