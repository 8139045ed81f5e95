// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"sync"
)

// FakeCall records one call made to a FakeGeocoder.
type FakeCall struct {
	Method  string
	Address string
	Lat     float64
	Lng     float64
	Options Options
}

// FakeGeocoder is an in-memory Geocoder for tests and dry runs.
type FakeGeocoder struct {
	ForwardFunc func(address string) (*Result, error)
	ReverseFunc func(lat, lng float64) (*Result, error)

	mu    sync.Mutex
	calls []FakeCall
}

// Calls returns the recorded calls in order.
func (f *FakeGeocoder) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]FakeCall(nil), f.calls...)
}

func (f *FakeGeocoder) record(c FakeCall) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, c)
}

// Forward implements Geocoder.
func (f *FakeGeocoder) Forward(_ context.Context, address string, opts Options) (*Result, error) {
	f.record(FakeCall{Method: "forward", Address: address, Options: opts})

	if f.ForwardFunc == nil {
		return nil, notFound(address)
	}

	return f.ForwardFunc(address)
}

// Reverse implements Geocoder.
func (f *FakeGeocoder) Reverse(_ context.Context, lat, lng float64, opts Options) (*Result, error) {
	f.record(FakeCall{Method: "reverse", Lat: lat, Lng: lng, Options: opts})

	if f.ReverseFunc == nil {
		return nil, notFound(formatLatLng(lat, lng))
	}

	return f.ReverseFunc(lat, lng)
}
