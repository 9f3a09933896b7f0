// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// OrderEventPrefix marks notification kinds that concern order lifecycle.
// Anything whose resolved kind lacks this prefix (and is not a FastFoodOrder
// reference) is not order-related and is discarded by the normalizer.
const OrderEventPrefix = "order_"

// ReferenceTypeOrder is the reference_type value the backend uses when a
// notification points at an order resource.
const ReferenceTypeOrder = "FastFoodOrder"

// Envelope is the outer JSON object of a WebSocket frame.
//
// The backend does not guarantee a fixed schema: the interesting fields may
// live on the envelope or inside Data, under several historical names. Only
// the normalizer is allowed to interpret this shape; everything else consumes
// OrderEvent.
type Envelope struct {
	Type      string          `json:"type"`
	Tipo      string          `json:"tipo"` // legacy alias for Type
	ID        json.RawMessage `json:"id"`
	OrderID   json.RawMessage `json:"order_id"`
	Message   string          `json:"message"`
	Title     string          `json:"title"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EnvelopeData is the variant-shaped inner payload of an Envelope.
type EnvelopeData struct {
	NotificationType string          `json:"notification_type"`
	Type             string          `json:"type"`
	ReferenceType    string          `json:"reference_type"`
	ReferenceID      json.RawMessage `json:"reference_id"`
	OrderID          json.RawMessage `json:"order_id"`
	ID               json.RawMessage `json:"id"`
	Message          string          `json:"message"`
	CreatedAt        string          `json:"created_at"`
}

// OrderEvent is the canonical, order-scoped record derived from a raw frame.
//
// Invariants:
//   - Kind begins with OrderEventPrefix for status events; an event that is
//     relevant only through its FastFoodOrder reference keeps the backend's
//     kind verbatim, and Status() reports ok=false for it.
//   - OrderID 0 means the event could not be routed to a specific order and
//     consumers should treat it as a "refresh everything" signal.
//   - ID is the deduplication key; synthesized ids (uuid-based) are unique
//     and therefore never deduplicate against future events.
type OrderEvent struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	OrderID   int64           `json:"order_id"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Status extracts the order status encoded in the event kind
// (order_ready → ready). ok is false when the kind carries no known prefix.
func (e OrderEvent) Status() (OrderStatus, bool) {
	if len(e.Kind) <= len(OrderEventPrefix) || e.Kind[:len(OrderEventPrefix)] != OrderEventPrefix {
		return "", false
	}
	return OrderStatus(e.Kind[len(OrderEventPrefix):]), true
}

// Routable reports whether the event names a specific order.
func (e OrderEvent) Routable() bool {
	return e.OrderID != 0
}
