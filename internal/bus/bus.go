// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package bus provides the process-wide event channels that decouple the
// WebSocket transport from the views consuming its messages.
//
// Topics:
//   - fastfood-ws-message: every successfully parsed inbound frame, verbatim
//   - fastfood-order-update: canonical order events only
//   - new-notification: normalized notifications for the notification history
//
// The bus is a singleton created at process start and owned by the
// composition root; topics are never removed. Subscribers register on mount
// and cancel their subscription context on unmount. It is an in-process
// boundary, not a network protocol.
package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fastfoodapp/client-go/internal/models"
)

// Topic names. These are part of the client's internal contract: any view
// component may subscribe without holding a reference to the transport.
const (
	TopicWSMessage       = "fastfood-ws-message"
	TopicOrderUpdate     = "fastfood-order-update"
	TopicNewNotification = "new-notification"
)

// Bus is the in-process pub/sub used for all fastfood-* channels.
//
// It wraps a watermill gochannel Pub/Sub: publishing never blocks on slow
// subscribers beyond the configured buffer, and each subscriber receives its
// own copy of every message.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// New creates the process-wide bus.
func New(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			// Buffer absorbs bursts while a view is busy rendering.
			OutputChannelBuffer: 64,
		}, logger),
		logger: logger,
	}
}

// Publisher exposes the underlying watermill publisher, e.g. for router
// handlers that forward between topics.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscriber exposes the underlying watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// PublishRaw publishes an already-encoded payload on the given topic.
func (b *Bus) PublishRaw(topic string, payload []byte) error {
	msg := message.NewMessage(uuid.New().String(), payload)
	return b.pubsub.Publish(topic, msg)
}

// PublishOrderEvent publishes a canonical order event on the given topic.
func (b *Bus) PublishOrderEvent(topic string, event models.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(event.ID, payload)
	return b.pubsub.Publish(topic, msg)
}

// Subscribe returns a channel of messages for the topic. The subscription
// lives until ctx is cancelled; cancelling is the unmount operation for a
// view and must always happen to avoid leaking the subscriber.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// SubscribeOrderEvents subscribes to TopicOrderUpdate and decodes each
// message into a canonical order event, acking as it goes. Messages that do
// not decode are acked and dropped; only the normalizer publishes to this
// topic, so a decode failure is a programming error worth logging, not a
// reason to wedge the subscription.
func (b *Bus) SubscribeOrderEvents(ctx context.Context) (<-chan models.OrderEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicOrderUpdate)
	if err != nil {
		return nil, err
	}

	out := make(chan models.OrderEvent)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event models.OrderEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("Undecodable order event on bus", err, watermill.LogFields{
					"message_id": msg.UUID,
				})
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts the bus down, terminating all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
