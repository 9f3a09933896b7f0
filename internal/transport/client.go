// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package transport owns the single push-notification WebSocket connection
// of a logged-in session.
//
// The rest of the application never touches the connection handle: every
// successfully parsed frame is republished verbatim on the process-wide
// fastfood-ws-message channel and consumed from there. Reconnection after a
// non-clean drop is handled internally; a clean, logout-triggered close
// never reconnects.
package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/fastfoodapp/client-go/internal/bus"
	"github.com/fastfoodapp/client-go/internal/config"
	"github.com/fastfoodapp/client-go/internal/logging"
	"github.com/fastfoodapp/client-go/internal/metrics"
)

// Status is the connection state of the session's push channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// ErrNotLoggedIn is returned by Connect when no auth token is set.
var ErrNotLoggedIn = errors.New("no auth token: session is not logged in")

// Client maintains at most one live WebSocket connection per logged-in
// session.
//
// Reconnection policy: after a non-clean closure while still logged in,
// exactly one reconnection attempt is scheduled. The delay starts at the
// configured base (3s), doubles per consecutive failure up to the configured
// ceiling, carries up to 20% additive jitter, and resets on a successful
// connect. Timers
// never run concurrently: scheduling a new attempt supersedes any pending
// one, and logout cancels it outright.
type Client struct {
	endpoint string // ws(s)://host/ws, token and app_type appended per dial
	appType  string
	cfg      config.WebSocketConfig
	bus      *bus.Bus

	mu             sync.Mutex
	token          string
	status         Status
	conn           *websocket.Conn
	reconnectTimer *time.Timer
	reconnectDelay time.Duration
	connGen        uint64        // increments per connection, guards stale read loops
	connDone       chan struct{} // closed when the current connection is torn down

	wg sync.WaitGroup
}

// NewClient creates a transport client for the given endpoint.
// No connection is made until Connect is called with a token set.
func NewClient(endpoint string, cfg config.WebSocketConfig, b *bus.Bus) *Client {
	return &Client{
		endpoint:       endpoint,
		appType:        cfg.AppType,
		cfg:            cfg,
		bus:            b,
		status:         StatusDisconnected,
		reconnectDelay: cfg.ReconnectBaseDelay,
	}
}

// SetToken installs the session's auth token. Called on login or session
// restore; Connect is a no-op until this happens.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect establishes the push channel.
//
// It is a no-op (returning nil) when a connection or attempt is already in
// flight, and returns ErrNotLoggedIn when no token is set. Establishing a
// new connection while an old one is open closes the old one first: a
// session owns at most one connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.setStatusLocked(StatusConnecting)
	dialURL := c.buildURLLocked()
	startGen := c.connGen
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout:  c.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, dialURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.setStatusLocked(StatusDisconnected)
		c.mu.Unlock()
		if resp != nil {
			return fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	// Logout may have landed while the dial was in flight; a logged-out
	// session must not end up owning a live connection.
	if c.token == "" || c.connGen != startGen {
		c.setStatusLocked(StatusDisconnected)
		c.mu.Unlock()
		_ = conn.Close()
		return ErrNotLoggedIn
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.connGen++
	gen := c.connGen
	c.connDone = make(chan struct{})
	done := c.connDone
	c.setStatusLocked(StatusConnected)
	c.reconnectDelay = c.cfg.ReconnectBaseDelay
	c.mu.Unlock()

	logging.Info().Str("endpoint", c.endpoint).Msg("Push channel connected")

	c.wg.Add(1)
	go c.readLoop(conn, gen)

	if c.cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn, done)
	}

	return nil
}

// buildURLLocked embeds the token and app discriminator as query parameters.
// Must be called with mu held.
func (c *Client) buildURLLocked() string {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("app_type", c.appType)
	return c.endpoint + "?" + q.Encode()
}

// setStatusLocked updates the status and its metric. Must hold mu.
func (c *Client) setStatusLocked(s Status) {
	c.status = s
	switch s {
	case StatusDisconnected:
		metrics.WSConnectionState.Set(0)
	case StatusConnecting:
		metrics.WSConnectionState.Set(1)
	case StatusConnected:
		metrics.WSConnectionState.Set(2)
	}
}

// readLoop consumes frames from one connection until it fails or closes.
// gen identifies the connection; a loop whose connection has been superseded
// must not mutate client state.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(conn, gen, err)
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame republishes one inbound frame on the process-wide channel.
// Malformed input is dropped with a diagnostic log and must never crash the
// transport.
func (c *Client) handleFrame(data []byte) {
	if !json.Valid(data) {
		metrics.WSParseFailures.Inc()
		logging.Warn().Int("bytes", len(data)).Msg("Dropping malformed push frame")
		return
	}

	metrics.WSMessagesReceived.Inc()
	if err := c.bus.PublishRaw(bus.TopicWSMessage, data); err != nil {
		logging.Error().Err(err).Msg("Failed to republish push frame")
	}
}

// handleClosure decides whether a closed connection warrants a reconnect.
//
// Only the normal close code (1000, the logout-triggered teardown) or a
// cleared token suppresses reconnection. Every other closure — including a
// 1001 from a restarting server — schedules exactly one attempt, because a
// logged-in session must resume push delivery.
func (c *Client) handleClosure(conn *websocket.Conn, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connGen != gen {
		// A newer connection owns the state now.
		return
	}

	c.conn = nil
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.setStatusLocked(StatusDisconnected)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		logging.Info().Msg("Push channel closed cleanly")
		return
	}
	if c.token == "" {
		// Logged out while the read was failing; nothing to resume.
		return
	}

	logging.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("Push channel dropped, scheduling reconnect")
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the single reconnection timer. Must hold mu.
// An already-pending timer is superseded, never duplicated.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}

	delay := jitter(c.reconnectDelay)

	// Double for the next consecutive failure, up to the ceiling. The delay
	// resets to the base on any successful connect.
	c.reconnectDelay *= 2
	if c.reconnectDelay > c.cfg.ReconnectMaxDelay {
		c.reconnectDelay = c.cfg.ReconnectMaxDelay
	}

	metrics.WSReconnects.Inc()
	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
}

// reconnect is the timer callback for a scheduled reconnection attempt.
func (c *Client) reconnect() {
	c.mu.Lock()
	if c.token == "" || c.status != StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		logging.Warn().Err(err).Msg("Reconnect attempt failed")
		c.mu.Lock()
		if c.token != "" {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
	}
}

// pingLoop keeps the connection alive. It exits when its connection is torn
// down; read failures caused by a dead peer are detected by the read loop.
func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				logging.Debug().Err(err).Msg("Push channel ping failed")
				return
			}
		}
	}
}

// Logout tears the session down: the token is cleared, any pending
// reconnect timer is cancelled, and the connection is closed with a normal
// status code so the closure is recognized as intentional.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectDelay = c.cfg.ReconnectBaseDelay
	conn := c.conn
	c.conn = nil
	c.connGen++
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			logging.Debug().Err(err).Msg("Failed to send close message")
		}
		_ = conn.Close()
	}

	c.wg.Wait()
	logging.Info().Msg("Push channel logged out")
}

// Serve implements suture.Service. It connects once the supervisor starts
// the service and blocks until the context is cancelled; mid-session drops
// are recovered by the internal reconnect timer, while an initial dial
// failure is returned so the supervisor applies its own restart backoff.
func (c *Client) Serve(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			// Stay idle until a token appears; the supervisor restart
			// cadence doubles as the login poll.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			return ctx.Err()
		}
		return err
	}

	<-ctx.Done()
	c.Logout()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (c *Client) String() string {
	return "ws-transport"
}

// jitter stretches a delay by up to 20% so reconnecting clients do not
// stampede the backend in lockstep after an outage. Jitter is additive
// only: a scheduled attempt never fires before its base delay.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*0.2*float64(d))
}
