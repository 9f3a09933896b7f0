// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fastfoodapp/client-go/internal/models"
)

// OrdersAPI is the order surface consumed by the tracker and order-list
// store. Implemented by *Client for production and by the circuit-breaker
// wrapper in breaker.go; tests supply fakes.
type OrdersAPI interface {
	// GetOrder fetches one order by id. Returns ErrOrderNotFound for
	// unknown ids.
	GetOrder(ctx context.Context, id int64) (*models.Order, error)

	// ListOrders fetches all orders of the current user, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)

	// CancelOrder asks the backend to cancel an order. It is not
	// guaranteed to be idempotent: cancelling an already-cancelled order
	// may surface a server error. Local state must not be changed
	// optimistically; refetch after a successful cancel.
	CancelOrder(ctx context.Context, id int64) error
}

var _ OrdersAPI = (*Client)(nil)

// orderResponse is the backend envelope for a single order.
type orderResponse struct {
	Order models.Order `json:"order"`
}

// ordersResponse is the backend envelope for the order list.
type ordersResponse struct {
	Orders []models.Order `json:"orders"`
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var out orderResponse
	path := fmt.Sprintf("/api/v1/orders/%d", id)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &out.Order, nil
}

// ListOrders fetches the current user's orders.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out ordersResponse
	if err := c.getJSON(ctx, "/api/v1/orders", nil, &out); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out.Orders, nil
}

// CancelOrder cancels an order by id.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/v1/orders/%d/cancel", id)
	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}
	return nil
}
