// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package notify interprets raw push frames.
//
// The backend's message shape is not contractually fixed: the same logical
// notification may carry its kind, order id and message under several field
// names depending on the notification variant. All of that shape-guessing is
// isolated here, in Normalize; the rest of the client only ever sees the
// canonical models.OrderEvent. Treat this mapping as a contract boundary and
// version/test it independently of any view code.
package notify

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fastfoodapp/client-go/internal/models"
)

// Normalize derives a canonical order event from one raw frame.
//
// Field precedence (each step falls through only if the prior is absent):
//
//	kind      ← data.notification_type, data.type, type, tipo, "notification"
//	orderId   ← data.reference_id (when reference_type is FastFoodOrder),
//	            data.order_id, order_id
//	id        ← data.id, id, synthesized unique value
//	message   ← data.message, message, title, ""
//	timestamp ← timestamp, data.created_at, now
//
// ok is false when the frame is not order-related: its resolved kind lacks
// the order_ prefix and its reference_type is not FastFoodOrder. Such frames
// produce no canonical event at all.
//
// An event whose orderId cannot be resolved to a finite number is still
// returned, with OrderID 0: consumers treat it as a generic "refresh
// everything" signal rather than a targeted patch.
func Normalize(raw []byte, now func() time.Time) (event models.OrderEvent, ok bool) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.OrderEvent{}, false
	}

	var data models.EnvelopeData
	if len(env.Data) > 0 {
		// A non-object data payload is tolerated and treated as absent.
		_ = json.Unmarshal(env.Data, &data)
	}

	kind := firstNonEmpty(data.NotificationType, data.Type, env.Type, env.Tipo, "notification")

	orderRef := data.ReferenceType == models.ReferenceTypeOrder
	if !strings.HasPrefix(kind, models.OrderEventPrefix) && !orderRef {
		return models.OrderEvent{}, false
	}

	var orderID int64
	if orderRef {
		orderID = rawToInt64(data.ReferenceID)
	}
	if orderID == 0 {
		orderID = rawToInt64(data.OrderID)
	}
	if orderID == 0 {
		orderID = rawToInt64(env.OrderID)
	}

	id := firstNonEmpty(rawToString(data.ID), rawToString(env.ID))
	if id == "" {
		// Synthesized ids are unique and never deduplicate against future
		// events.
		id = uuid.New().String()
	}

	message := firstNonEmpty(data.Message, env.Message, env.Title)

	ts := parseTimestamp(env.Timestamp)
	if ts.IsZero() {
		ts = parseTimestamp(data.CreatedAt)
	}
	if ts.IsZero() {
		ts = now()
	}

	return models.OrderEvent{
		ID:        id,
		Kind:      kind,
		OrderID:   orderID,
		Message:   message,
		Timestamp: ts,
		Raw:       raw,
	}, true
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawToString renders a JSON scalar (string or number) as a string.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawToInt64 extracts a finite integer from a JSON scalar that may be a
// number or a numeric string. Returns 0 when no finite number resolves.
func rawToInt64(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int64(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v
		}
	}
	return 0
}

// parseTimestamp parses the timestamp formats the backend is known to emit.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
