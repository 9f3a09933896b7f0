// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

package notify

import (
	"sync"

	"github.com/fastfoodapp/client-go/internal/metrics"
	"github.com/fastfoodapp/client-go/internal/models"
)

// History is the bounded, newest-first notification history backing the
// notifications view.
//
// Upsert is idempotent by event ID: delivering the same notification twice
// results in exactly one entry, replaced in place rather than duplicated.
// Only the normalizer mutates the history; readers get snapshots and must
// never mutate them.
type History struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.OrderEvent // newest first
}

// NewHistory creates a history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	return &History{
		capacity: capacity,
		entries:  make([]models.OrderEvent, 0, capacity),
	}
}

// Upsert inserts the event at the front, or replaces an existing entry with
// the same ID in place. When the history is full the oldest entry is
// evicted.
func (h *History) Upsert(event models.OrderEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		if h.entries[i].ID == event.ID {
			h.entries[i] = event
			return
		}
	}

	h.entries = append([]models.OrderEvent{event}, h.entries...)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
	metrics.NotificationHistorySize.Set(float64(len(h.entries)))
}

// Snapshot returns a copy of the history, newest first. The copy is the
// caller's to keep; later upserts do not affect it.
func (h *History) Snapshot() []models.OrderEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.OrderEvent, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the current number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
