// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package notify

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/metrics"
)

// Normalizer consumes raw frames from the fastfood-ws-message channel,
// derives canonical order events, and republishes them on the
// fastfood-order-update and new-notification channels. It also maintains the
// bounded notification history as a side effect of normalization.
//
// This is the only component that interprets raw frame shapes; everything
// downstream of it consumes models.OrderEvent exclusively.
type Normalizer struct {
	bus     *bus.Bus
	history *History
	router  *message.Router
	now     func() time.Time
}

// NewNormalizer builds the normalizer and its watermill router. The router
// carries the recoverer middleware so a panic while interpreting a hostile
// payload cannot take down the process.
func NewNormalizer(b *bus.Bus, history *History, logger watermill.LoggerAdapter) (*Normalizer, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.Recoverer)

	n := &Normalizer{
		bus:     b,
		history: history,
		router:  router,
		now:     time.Now,
	}

	router.AddNoPublisherHandler(
		"normalize-order-events",
		bus.TopicWSMessage,
		b.Subscriber(),
		n.handle,
	)

	return n, nil
}

// handle normalizes one raw frame and fans it out.
//
// Non-order frames are acked and dropped: no upsert, no republish, nothing
// for the views to see. Publish failures are returned so the router retries
// the message.
func (n *Normalizer) handle(msg *message.Message) error {
	event, ok := Normalize(msg.Payload, n.now)
	if !ok {
		metrics.EventsNormalized.WithLabelValues("discarded").Inc()
		return nil
	}

	if !event.Routable() {
		// Still published: consumers treat it as a refresh-everything
		// signal.
		metrics.EventsNormalized.WithLabelValues("unroutable").Inc()
	} else {
		metrics.EventsNormalized.WithLabelValues("published").Inc()
	}

	n.history.Upsert(event)

	if err := n.bus.PublishOrderEvent(bus.TopicOrderUpdate, event); err != nil {
		return err
	}
	if err := n.bus.PublishOrderEvent(bus.TopicNewNotification, event); err != nil {
		return err
	}

	logging.Debug().
		Str("kind", event.Kind).
		Int64("order_id", event.OrderID).
		Msg("Normalized order event")
	return nil
}

// History returns the notification history maintained by this normalizer.
func (n *Normalizer) History() *History {
	return n.history
}

// Serve implements suture.Service: it runs the router until the context is
// cancelled.
func (n *Normalizer) Serve(ctx context.Context) error {
	if err := n.router.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// Running returns a channel closed once the router is running. Tests use it
// to avoid publishing before the subscription exists.
func (n *Normalizer) Running() <-chan struct{} {
	return n.router.Running()
}

// Close stops the router outside supervisor control.
func (n *Normalizer) Close() error {
	return n.router.Close()
}

// String implements fmt.Stringer for supervisor logging.
func (n *Normalizer) String() string {
	return "event-normalizer"
}
