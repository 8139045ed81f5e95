// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"sync"
	"time"
)

// PacedGeocoder waits a fixed delay between consecutive provider calls,
// whatever the outcome of the previous call. The first call is not delayed.
type PacedGeocoder struct {
	Geocoder Geocoder
	Delay    time.Duration

	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	called bool
	calls  int
}

// NewPacedGeocoder wraps g so that calls are spaced by delay.
func NewPacedGeocoder(g Geocoder, delay time.Duration) *PacedGeocoder {
	return &PacedGeocoder{Geocoder: g, Delay: delay, Sleep: SleepContext}
}

// Calls returns how many provider calls went through.
func (p *PacedGeocoder) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

func (p *PacedGeocoder) wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.called && p.Delay > 0 {
		sleep := p.Sleep
		if sleep == nil {
			sleep = SleepContext
		}

		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.called = true
	p.calls++

	return nil
}

// Forward implements Geocoder.
func (p *PacedGeocoder) Forward(ctx context.Context, address string, opts Options) (*Result, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	return p.Geocoder.Forward(ctx, address, opts)
}

// Reverse implements Geocoder.
func (p *PacedGeocoder) Reverse(ctx context.Context, lat, lng float64, opts Options) (*Result, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	return p.Geocoder.Reverse(ctx, lat, lng, opts)
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
