// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/fastfoodapp/client-go/internal/api"
	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/models"
)

// Manager runs one Tracker per in-flight order.
//
// It is driven by order-list snapshots: Sync starts a tracker for every
// non-terminal order that has none yet, and stops trackers whose order has
// reached a terminal status or left the list. The daemon feeds it from the
// list store's change callback, which closes the loop: a tracker's refetch
// patches the list, the list change resyncs the manager.
type Manager struct {
	client   api.OrdersAPI
	bus      *bus.Bus
	interval time.Duration
	onUpdate UpdateFunc

	mu       sync.Mutex
	trackers map[int64]*Tracker
	stopped  bool
}

// NewManager creates a manager. interval is each tracker's polling fallback
// period; onUpdate receives every applied order state and may be nil.
func NewManager(client api.OrdersAPI, b *bus.Bus, interval time.Duration, onUpdate UpdateFunc) *Manager {
	return &Manager{
		client:   client,
		bus:      b,
		interval: interval,
		onUpdate: onUpdate,
		trackers: make(map[int64]*Tracker),
	}
}

// Sync reconciles the running trackers against an order-list snapshot.
// Safe to call repeatedly with overlapping snapshots; idempotent per order.
func (m *Manager) Sync(ctx context.Context, orders []models.Order) {
	want := make(map[int64]bool, len(orders))
	for _, order := range orders {
		if !order.Status.IsTerminal() {
			want[order.ID] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	for id, tr := range m.trackers {
		if want[id] {
			continue
		}
		delete(m.trackers, id)
		tr.Stop()
		logging.Debug().Int64("order_id", id).Msg("Order tracker stopped")
	}

	for id := range want {
		if _, ok := m.trackers[id]; ok {
			continue
		}
		tr := New(m.client, m.bus, id, m.interval, m.onUpdate)
		if err := tr.Start(ctx); err != nil {
			logging.Warn().Err(err).Int64("order_id", id).Msg("Order tracker failed to start")
			continue
		}
		m.trackers[id] = tr
		logging.Debug().Int64("order_id", id).Msg("Order tracker started")
	}
}

// Tracking reports how many orders currently have a running tracker.
func (m *Manager) Tracking() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trackers)
}

// Stop tears down all trackers. Subsequent Sync calls are no-ops.
func (m *Manager) Stop() {
	m.mu.Lock()
	trackers := m.trackers
	m.trackers = make(map[int64]*Tracker)
	m.stopped = true
	m.mu.Unlock()

	for _, tr := range trackers {
		tr.Stop()
	}
}
