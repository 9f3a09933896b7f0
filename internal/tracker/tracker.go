// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package tracker reconciles a displayed order against the backend.
//
// Two independent mechanisms drive refetches: a fixed-interval poll (the
// safety net when push delivery fails) and the fastfood-order-update channel
// (immediate refresh on push). Neither resets the other, they may fire close
// together, and every refetch carries a monotonic sequence number so a slow,
// stale response can never overwrite a fresher one.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fastfoodapp/client-go/internal/api"
	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/metrics"
	"github.com/fastfoodapp/client-go/internal/models"
)

// UpdateFunc receives each newly applied order state. Called from the
// tracker's goroutines; implementations hand the value to their view's
// update path. Never called after Stop returns.
type UpdateFunc func(models.Order)

// Tracker keeps one order's local state converged with the backend while a
// view displays it.
//
// Lifecycle: Start performs the initial user-facing fetch and arms the
// background machinery; Stop tears down the poll ticker and the event
// subscription and guarantees no further updates are delivered. Polling
// disarms itself as soon as a terminal status is observed.
type Tracker struct {
	client   api.OrdersAPI
	bus      *bus.Bus
	orderID  int64
	interval time.Duration
	onUpdate UpdateFunc

	mu      sync.Mutex
	order   *models.Order
	mounted bool
	nextSeq uint64
	applied uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a tracker for the given order. interval is the polling
// fallback period (20 seconds in production).
func New(client api.OrdersAPI, b *bus.Bus, orderID int64, interval time.Duration, onUpdate UpdateFunc) *Tracker {
	return &Tracker{
		client:   client,
		bus:      b,
		orderID:  orderID,
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Start fetches the order once in the foreground and arms the background
// reconciliation. The initial fetch is user-initiated: its error is
// returned for display rather than swallowed.
func (t *Tracker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.mounted = true
	t.cancel = cancel
	t.mu.Unlock()

	if err := t.refetch(ctx, "manual"); err != nil {
		t.mu.Lock()
		t.mounted = false
		t.mu.Unlock()
		cancel()
		return err
	}

	if t.terminal() {
		// Nothing left to converge; never arm the poller.
		cancel()
		return nil
	}

	events, err := t.bus.SubscribeOrderEvents(runCtx)
	if err != nil {
		t.mu.Lock()
		t.mounted = false
		t.mu.Unlock()
		cancel()
		return err
	}

	t.wg.Add(1)
	go t.run(runCtx, events)
	return nil
}

// run is the reconciliation loop: a poll ticker and the order-update
// subscription, independent of each other. It exits on teardown or once a
// terminal status has been observed.
func (t *Tracker) run(ctx context.Context, events <-chan models.OrderEvent) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if t.terminal() {
				return
			}
			t.backgroundRefetch(ctx, "poll")

		case event, open := <-events:
			if !open {
				return
			}
			// Events naming another order are not ours; unroutable events
			// mean "refresh everything", which includes us.
			if event.Routable() && event.OrderID != t.orderID {
				continue
			}
			t.backgroundRefetch(ctx, "event")
		}

		if t.terminal() {
			logging.Debug().Int64("order_id", t.orderID).Msg("Order reached terminal status, polling disarmed")
			return
		}
	}
}

// backgroundRefetch launches one silent refetch. A poll and an event-driven
// refetch may be in flight at the same time; the sequence guard in apply
// keeps the outcome consistent.
func (t *Tracker) backgroundRefetch(ctx context.Context, trigger string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		// Background refreshes are silent: failures are logged, never
		// surfaced, and prior state stays visible.
		if err := t.refetch(ctx, trigger); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Int64("order_id", t.orderID).Str("trigger", trigger).Msg("Background order refetch failed")
		}
	}()
}

// refetch fetches the order and applies the response under the sequence
// guard.
func (t *Tracker) refetch(ctx context.Context, trigger string) error {
	t.mu.Lock()
	t.nextSeq++
	seq := t.nextSeq
	t.mu.Unlock()

	metrics.TrackerRefetches.WithLabelValues(trigger).Inc()

	order, err := t.client.GetOrder(ctx, t.orderID)
	if err != nil {
		return err
	}

	t.apply(seq, order)
	return nil
}

// apply installs a fetched order state unless a newer response has already
// been applied or the tracker has been stopped.
func (t *Tracker) apply(seq uint64, order *models.Order) {
	t.mu.Lock()
	if !t.mounted {
		t.mu.Unlock()
		return
	}
	if seq <= t.applied {
		t.mu.Unlock()
		metrics.TrackerStaleResponses.Inc()
		return
	}
	t.applied = seq
	t.order = order
	onUpdate := t.onUpdate
	t.mu.Unlock()

	if onUpdate != nil {
		onUpdate(*order)
	}
}

// ErrStopped is returned by Refresh after Stop has torn the tracker down.
var ErrStopped = errors.New("tracker stopped")

// Refresh performs a user-initiated refetch. Unlike the background paths
// its error is returned for display. The refetch joins the tracker's wait
// group, so a Refresh racing Stop either completes before Stop returns or
// is rejected with ErrStopped; no update callback fires after Stop.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	if !t.mounted {
		t.mu.Unlock()
		return ErrStopped
	}
	t.wg.Add(1)
	t.mu.Unlock()
	defer t.wg.Done()

	return t.refetch(ctx, "manual")
}

// Order returns a copy of the last applied state, or nil before the first
// successful fetch.
func (t *Tracker) Order() *models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.order == nil {
		return nil
	}
	out := *t.order
	return &out
}

// terminal reports whether the last applied status admits no further
// transitions.
func (t *Tracker) terminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order != nil && t.order.Status.IsTerminal()
}

// Stop tears the tracker down: the ticker and event subscription are
// cleared and no update callback fires after Stop returns. In-flight
// fetches are not aborted; their late responses are simply dropped.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.mounted = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}
