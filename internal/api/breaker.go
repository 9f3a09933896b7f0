// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package api

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/metrics"
	"github.com/fastfoodapp/client-go/internal/models"
)

// ErrBackendUnavailable is returned while the circuit is open. Background
// pollers treat it like any other silent fetch failure; user-initiated
// actions surface it.
var ErrBackendUnavailable = errors.New("fastfood backend unavailable (circuit open)")

// BreakerClient wraps an OrdersAPI with a circuit breaker so a degraded
// backend is not hammered by the 20-second reconciliation pollers.
//
// The breaker uses real time for its open/half-open transitions; tests
// should exercise the wrapped client directly and test the breaker with an
// injected failing inner client.
type BreakerClient struct {
	inner OrdersAPI
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps inner with a circuit breaker.
//
// Configuration:
//   - opens after 3 consecutive failures
//   - stays open for 60 seconds before probing half-open
//   - allows 1 request in half-open state
func NewBreakerClient(inner OrdersAPI) *BreakerClient {
	const name = "fastfood-api"

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			// A 404 is a definitive answer from a healthy backend, not a
			// reason to open the circuit.
			return err == nil || errors.Is(err, ErrOrderNotFound)
		},
	})

	return &BreakerClient{inner: inner, cb: cb}
}

var _ OrdersAPI = (*BreakerClient)(nil)

// GetOrder fetches one order through the breaker.
func (b *BreakerClient) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.GetOrder(ctx, id)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.(*models.Order), nil
}

// ListOrders fetches the order list through the breaker.
func (b *BreakerClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.ListOrders(ctx)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.([]models.Order), nil
}

// CancelOrder cancels an order through the breaker.
func (b *BreakerClient) CancelOrder(ctx context.Context, id int64) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.CancelOrder(ctx, id)
	})
	return wrapBreakerErr(err)
}

// wrapBreakerErr maps gobreaker sentinels onto ErrBackendUnavailable so
// callers never see gobreaker internals.
func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBackendUnavailable
	}
	return err
}

// stateToFloat maps breaker states onto the metric encoding
// (0 closed, 1 half-open, 2 open).
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
