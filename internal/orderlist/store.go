// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package orderlist maintains the order-list view's local copy of the
// user's orders and applies cheap in-place patches when push events arrive,
// avoiding a full list reload on every status change.
package orderlist

import (
	"context"
	"sync"

	"github.com/fastfoodapp/client-go/internal/api"
	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/metrics"
	"github.com/fastfoodapp/client-go/internal/models"
)

// ChangeFunc is invoked with a snapshot of the list after every change.
type ChangeFunc func([]models.Order)

// Store holds the list view's copy of the user's orders.
//
// Mutation happens on two paths only: a full refetch from the backend, or a
// targeted in-place status patch when a canonical order event names a known
// row. Readers receive snapshots; the internal slice is never shared.
type Store struct {
	client   api.OrdersAPI
	bus      *bus.Bus
	onChange ChangeFunc

	mu     sync.RWMutex
	orders []models.Order

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates an order-list store. onChange may be nil.
func NewStore(client api.OrdersAPI, b *bus.Bus, onChange ChangeFunc) *Store {
	return &Store{
		client:   client,
		bus:      b,
		onChange: onChange,
	}
}

// Load fetches the full list. User-initiated: the error is returned for
// display and existing rows stay visible on failure.
func (s *Store) Load(ctx context.Context) error {
	orders, err := s.client.ListOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()

	s.notify()
	return nil
}

// Apply reconciles one canonical order event against the list.
//
// An event of the form order_<status> naming a known row replaces only that
// row's Status, leaving every other field untouched. Anything else — an
// unroutable event, an unknown order id (a brand-new order not in the list
// yet), or a kind carrying no status — falls back to a full refetch rather
// than silently dropping the event.
func (s *Store) Apply(ctx context.Context, event models.OrderEvent) {
	status, hasStatus := event.Status()

	if event.Routable() && hasStatus {
		s.mu.Lock()
		for i := range s.orders {
			if s.orders[i].ID == event.OrderID {
				s.orders[i].Status = status
				s.mu.Unlock()

				metrics.ListPatches.WithLabelValues("patched").Inc()
				s.notify()
				return
			}
		}
		s.mu.Unlock()
	}

	metrics.ListPatches.WithLabelValues("refetched").Inc()
	// Background reconciliation path: failures are logged and the stale
	// list stays visible until the next event or user refresh.
	if err := s.Load(ctx); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Int64("order_id", event.OrderID).Msg("Order list refetch failed")
	}
}

// Watch subscribes the store to the order-update channel until Stop is
// called. Each event is applied on the watch goroutine, so patches are
// serialized.
func (s *Store) Watch() error {
	ctx, cancel := context.WithCancel(context.Background())

	events, err := s.bus.SubscribeOrderEvents(ctx)
	if err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for event := range events {
			s.Apply(ctx, event)
		}
	}()

	return nil
}

// Stop ends the Watch subscription. Safe to call without a prior Watch.
func (s *Store) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Get returns a copy of one row by order id.
func (s *Store) Get(id int64) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			return s.orders[i], true
		}
	}
	return models.Order{}, false
}

// notify hands a fresh snapshot to the change callback.
func (s *Store) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}
