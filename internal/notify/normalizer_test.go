// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package notify

import (
	"testing"
	"time"

	"github.com/fastfoodapp/client-go/internal/models"
)

var testNow = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func TestNormalizeCanonicalShape(t *testing.T) {
	raw := []byte(`{
		"type": "notification",
		"data": {
			"notification_type": "order_ready",
			"reference_type": "FastFoodOrder",
			"reference_id": 42,
			"id": "abc-123",
			"message": "Seu pedido está pronto",
			"created_at": "2026-08-30T14:59:00Z"
		}
	}`)

	event, ok := Normalize(raw, fixedNow)
	if !ok {
		t.Fatal("Normalize() ok = false, want true")
	}
	if event.Kind != "order_ready" {
		t.Errorf("Kind = %q, want order_ready", event.Kind)
	}
	if event.OrderID != 42 {
		t.Errorf("OrderID = %d, want 42", event.OrderID)
	}
	if event.ID != "abc-123" {
		t.Errorf("ID = %q, want abc-123", event.ID)
	}
	if event.Message != "Seu pedido está pronto" {
		t.Errorf("Message = %q", event.Message)
	}
	want := time.Date(2026, 8, 30, 14, 59, 0, 0, time.UTC)
	if !event.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %s, want %s", event.Timestamp, want)
	}
	if status, ok := event.Status(); !ok || status != models.StatusReady {
		t.Errorf("Status() = (%q, %v), want (ready, true)", status, ok)
	}
}

func TestNormalizeKindPrecedence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "data.notification_type wins over everything",
			raw:  `{"type":"order_completed","data":{"notification_type":"order_ready","type":"order_preparing"}}`,
			want: "order_ready",
		},
		{
			name: "data.type wins over envelope type",
			raw:  `{"type":"order_completed","data":{"type":"order_preparing"}}`,
			want: "order_preparing",
		},
		{
			name: "envelope type",
			raw:  `{"type":"order_completed"}`,
			want: "order_completed",
		},
		{
			name: "legacy tipo alias",
			raw:  `{"tipo":"order_cancelled"}`,
			want: "order_cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := Normalize([]byte(tt.raw), fixedNow)
			if !ok {
				t.Fatal("Normalize() ok = false, want true")
			}
			if event.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", event.Kind, tt.want)
			}
		})
	}
}

func TestNormalizeDiscardsNonOrderFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"promo notification", `{"type":"promo_weekend","message":"50% off"}`},
		{"bare notification", `{"message":"hello"}`},
		{"other reference type", `{"data":{"notification_type":"coupon","reference_type":"Coupon","reference_id":9}}`},
		{"not json", `this is not json`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Normalize([]byte(tt.raw), fixedNow); ok {
				t.Error("Normalize() ok = true, want false")
			}
		})
	}
}

func TestNormalizeReferenceTypeAloneIsRelevant(t *testing.T) {
	// No order_ prefix anywhere, but the frame points at an order resource.
	raw := []byte(`{"type":"push","data":{"reference_type":"FastFoodOrder","reference_id":"77"}}`)

	event, ok := Normalize(raw, fixedNow)
	if !ok {
		t.Fatal("Normalize() ok = false, want true")
	}
	if event.OrderID != 77 {
		t.Errorf("OrderID = %d, want 77 (numeric string reference_id)", event.OrderID)
	}
	if event.Kind != "push" {
		t.Errorf("Kind = %q, want push", event.Kind)
	}
	if status, ok := event.Status(); ok {
		t.Errorf("Status() = (%q, true), want ok=false for a verbatim kind", status)
	}
}

func TestNormalizeOrderIDFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"reference_id number", `{"data":{"notification_type":"order_ready","reference_type":"FastFoodOrder","reference_id":11}}`, 11},
		{"reference_id float", `{"data":{"notification_type":"order_ready","reference_type":"FastFoodOrder","reference_id":11.0}}`, 11},
		{"data.order_id", `{"data":{"notification_type":"order_ready","order_id":12}}`, 12},
		{"envelope order_id", `{"type":"order_ready","order_id":13}`, 13},
		{"envelope order_id string", `{"type":"order_ready","order_id":"14"}`, 14},
		{"unresolvable", `{"type":"order_ready","order_id":"soon"}`, 0},
		{"absent", `{"type":"order_ready"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := Normalize([]byte(tt.raw), fixedNow)
			if !ok {
				t.Fatal("Normalize() ok = false, want true")
			}
			if event.OrderID != tt.want {
				t.Errorf("OrderID = %d, want %d", event.OrderID, tt.want)
			}
			if tt.want == 0 && event.Routable() {
				t.Error("event with unresolvable order id must not be routable")
			}
		})
	}
}

func TestNormalizeSynthesizesUniqueIDs(t *testing.T) {
	raw := []byte(`{"type":"order_ready","order_id":5}`)

	first, ok := Normalize(raw, fixedNow)
	if !ok {
		t.Fatal("Normalize() ok = false, want true")
	}
	second, _ := Normalize(raw, fixedNow)

	if first.ID == "" {
		t.Fatal("synthesized ID is empty")
	}
	if first.ID == second.ID {
		t.Error("synthesized IDs must be unique per event")
	}
}

func TestNormalizeNumericID(t *testing.T) {
	event, ok := Normalize([]byte(`{"type":"order_ready","id":314,"order_id":5}`), fixedNow)
	if !ok {
		t.Fatal("Normalize() ok = false, want true")
	}
	if event.ID != "314" {
		t.Errorf("ID = %q, want 314 (numeric envelope id rendered as string)", event.ID)
	}
}

func TestNormalizeMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"data.message wins", `{"type":"order_ready","message":"outer","title":"t","data":{"message":"inner"}}`, "inner"},
		{"envelope message", `{"type":"order_ready","message":"outer","title":"t"}`, "outer"},
		{"title fallback", `{"type":"order_ready","title":"Pedido pronto"}`, "Pedido pronto"},
		{"empty", `{"type":"order_ready"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, _ := Normalize([]byte(tt.raw), fixedNow)
			if event.Message != tt.want {
				t.Errorf("Message = %q, want %q", event.Message, tt.want)
			}
		})
	}
}

func TestNormalizeTimestampFallsBackToNow(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"envelope timestamp", `{"type":"order_ready","timestamp":"2026-08-30T10:00:00Z"}`, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{"legacy space layout", `{"type":"order_ready","timestamp":"2026-08-30 10:00:00"}`, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{"data created_at", `{"type":"order_ready","data":{"created_at":"2026-08-30T11:00:00Z"}}`, time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)},
		{"unparseable falls back", `{"type":"order_ready","timestamp":"yesterday"}`, testNow},
		{"absent falls back", `{"type":"order_ready"}`, testNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, _ := Normalize([]byte(tt.raw), fixedNow)
			if !event.Timestamp.Equal(tt.want) {
				t.Errorf("Timestamp = %s, want %s", event.Timestamp, tt.want)
			}
		})
	}
}

func TestNormalizeToleratesNonObjectData(t *testing.T) {
	event, ok := Normalize([]byte(`{"type":"order_ready","order_id":3,"data":"opaque"}`), fixedNow)
	if !ok {
		t.Fatal("Normalize() ok = false, want true")
	}
	if event.OrderID != 3 {
		t.Errorf("OrderID = %d, want 3", event.OrderID)
	}
}
