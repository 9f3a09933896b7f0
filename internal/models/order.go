// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package models

import "time"

// OrderStatus is the lifecycle state of an order as reported by the backend.
//
// Lifecycle:
//
//	pending → preparing → ready → delivering (delivery orders) → completed
//
// The two failure states, cancelled and rejected, are only reachable from
// pending or preparing. completed, cancelled and rejected are terminal:
// no transition out of them is valid.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusDelivering OrderStatus = "delivering"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRejected   OrderStatus = "rejected"
)

// OrderType distinguishes how an order is fulfilled.
type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderTakeout  OrderType = "takeout"
	OrderDelivery OrderType = "delivery"
)

// IsTerminal reports whether no further status transition is possible.
// Trackers use this to disarm their polling fallback.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// IsValid reports whether the status is one of the known lifecycle states.
// The server is the source of truth; unknown values are preserved but
// callers should treat them as non-terminal.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivering,
		StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition. Terminal states admit no transitions; cancelled/rejected are
// reachable only from pending or preparing.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch next {
	case StatusCancelled, StatusRejected:
		return s == StatusPending || s == StatusPreparing
	}

	switch s {
	case StatusPending:
		return next == StatusPreparing
	case StatusPreparing:
		return next == StatusReady
	case StatusReady:
		return next == StatusDelivering || next == StatusCompleted
	case StatusDelivering:
		return next == StatusCompleted
	default:
		return false
	}
}

// ProgressStates returns the ordered display states for a progress
// visualization. delivering is only meaningful for delivery orders and is
// skipped for locally consumed ones, though it remains a legal value if the
// server emits it.
func ProgressStates(orderType OrderType) []OrderStatus {
	if orderType == OrderDelivery {
		return []OrderStatus{StatusPending, StatusPreparing, StatusReady, StatusDelivering, StatusCompleted}
	}
	return []OrderStatus{StatusPending, StatusPreparing, StatusReady, StatusCompleted}
}

// Order is the client-side copy of one order's server state.
//
// Ownership: each view fetches and holds its own copy and independently
// reconciles it against the server. Order values are never shared mutably
// across components.
type Order struct {
	ID         int64       `json:"id"`
	Status     OrderStatus `json:"status"`
	Type       OrderType   `json:"order_type"`
	Items      []OrderItem `json:"items"`
	TotalValue float64     `json:"total_value"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
