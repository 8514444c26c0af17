// Package position provides best-effort access to the courier's current
// device coordinates. Callers must treat position as optional: an absent
// or stale fix resolves to "no position" after a bounded wait rather than
// an error.
package position

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"couriertrack/geo"
)

// Fix is one GPS sample.
type Fix struct {
	Point      geo.Point `json:"point"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Source yields the current device coordinates, or ok=false when no
// fresh-enough fix is available within the source's bounded wait.
type Source interface {
	Current(ctx context.Context) (geo.Point, bool)
}

// Feed holds the most recent fix pushed by the device, over MQTT or the
// HTTP API. Current waits briefly for a fresh fix when the held one has
// gone stale.
type Feed struct {
	maxAge  time.Duration
	timeout time.Duration

	mu      sync.RWMutex
	fix     *Fix
	updated chan struct{}
}

func NewFeed(timeout, maxAge time.Duration) *Feed {
	return &Feed{
		maxAge:  maxAge,
		timeout: timeout,
		updated: make(chan struct{}),
	}
}

// Update records a new fix and wakes any waiting Current call.
func (f *Feed) Update(p geo.Point, at time.Time) {
	if !p.Valid() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	f.mu.Lock()
	f.fix = &Fix{Point: p, RecordedAt: at}
	close(f.updated)
	f.updated = make(chan struct{})
	f.mu.Unlock()
}

// Latest returns the held fix without waiting, regardless of age.
func (f *Feed) Latest() (Fix, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.fix == nil {
		return Fix{}, false
	}
	return *f.fix, true
}

// Current returns a fresh fix, waiting up to the feed's timeout for one to
// arrive when the held fix is stale or absent.
func (f *Feed) Current(ctx context.Context) (geo.Point, bool) {
	deadline := time.NewTimer(f.timeout)
	defer deadline.Stop()

	for {
		f.mu.RLock()
		fix := f.fix
		updated := f.updated
		f.mu.RUnlock()

		if fix != nil && time.Since(fix.RecordedAt) <= f.maxAge {
			return fix.Point, true
		}

		select {
		case <-ctx.Done():
			return geo.Point{}, false
		case <-deadline.C:
			return geo.Point{}, false
		case <-updated:
		}
	}
}

type wirePosition struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"`
}

// HandleMessage ingests a GPS fix published by the device, e.g. over the
// MQTT position topic. Malformed payloads are dropped.
func (f *Feed) HandleMessage(payload []byte) {
	var wp wirePosition
	if err := json.Unmarshal(payload, &wp); err != nil {
		log.Printf("position: bad fix payload: %v", err)
		return
	}
	at := time.Now()
	if wp.RecordedAt != "" {
		if t, err := time.Parse(time.RFC3339, wp.RecordedAt); err == nil {
			at = t
		}
	}
	f.Update(geo.Point{Lat: wp.Lat, Lng: wp.Lng}, at)
}
