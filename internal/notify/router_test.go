// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/fastfoodapp/client-go/internal/bus"
)

// startNormalizer runs a normalizer against a fresh bus and waits for its
// router to come up.
func startNormalizer(t *testing.T) (*bus.Bus, *Normalizer, context.Context) {
	t.Helper()

	b := bus.New(nil)
	t.Cleanup(func() { _ = b.Close() })

	n, err := NewNormalizer(b, NewHistory(10), nil)
	if err != nil {
		t.Fatalf("NewNormalizer() error: %v", err)
	}
	n.now = fixedNow

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	go func() { _ = n.Serve(ctx) }()

	select {
	case <-n.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	return b, n, ctx
}

func TestNormalizerFansOutOrderFrames(t *testing.T) {
	b, n, ctx := startNormalizer(t)

	updates, err := b.SubscribeOrderEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeOrderEvents() error: %v", err)
	}
	notifications, err := b.Subscribe(ctx, bus.TopicNewNotification)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	raw := []byte(`{"type":"notification","data":{"notification_type":"order_ready","reference_type":"FastFoodOrder","reference_id":42,"id":"evt-1","message":"Seu pedido está pronto"}}`)
	if err := b.PublishRaw(bus.TopicWSMessage, raw); err != nil {
		t.Fatalf("PublishRaw() error: %v", err)
	}

	select {
	case event := <-updates:
		if event.OrderID != 42 || event.Kind != "order_ready" {
			t.Errorf("order update = %+v, want order_ready for order 42", event)
		}
	case <-ctx.Done():
		t.Fatal("no event on fastfood-order-update")
	}

	select {
	case msg := <-notifications:
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no event on new-notification")
	}

	if n.History().Len() != 1 {
		t.Errorf("history len = %d, want 1", n.History().Len())
	}
}

func TestNormalizerDropsIrrelevantFrames(t *testing.T) {
	b, n, ctx := startNormalizer(t)

	updates, err := b.SubscribeOrderEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeOrderEvents() error: %v", err)
	}

	if err := b.PublishRaw(bus.TopicWSMessage, []byte(`{"type":"promo_weekend","message":"50% off"}`)); err != nil {
		t.Fatalf("PublishRaw() error: %v", err)
	}
	// A relevant frame afterwards proves the pipeline survived and the
	// irrelevant one was dropped rather than queued.
	if err := b.PublishRaw(bus.TopicWSMessage, []byte(`{"type":"order_completed","order_id":7,"id":"evt-2"}`)); err != nil {
		t.Fatalf("PublishRaw() error: %v", err)
	}

	select {
	case event := <-updates:
		if event.OrderID != 7 {
			t.Errorf("OrderID = %d, want 7 (promo frame must not pass)", event.OrderID)
		}
	case <-ctx.Done():
		t.Fatal("order frame not delivered")
	}

	if n.History().Len() != 1 {
		t.Errorf("history len = %d, want 1 (irrelevant frames never recorded)", n.History().Len())
	}
}

func TestNormalizerPublishesUnroutableEvents(t *testing.T) {
	b, _, ctx := startNormalizer(t)

	updates, err := b.SubscribeOrderEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeOrderEvents() error: %v", err)
	}

	if err := b.PublishRaw(bus.TopicWSMessage, []byte(`{"type":"order_ready","id":"evt-3"}`)); err != nil {
		t.Fatalf("PublishRaw() error: %v", err)
	}

	select {
	case event := <-updates:
		if event.Routable() {
			t.Errorf("event = %+v, want unroutable refresh signal", event)
		}
	case <-ctx.Done():
		t.Fatal("unroutable event not delivered")
	}
}
