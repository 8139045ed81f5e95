// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacedGeocoderDelaysBetweenCalls(t *testing.T) {
	fake := &FakeGeocoder{
		ReverseFunc: func(lat, lng float64) (*Result, error) {
			if lat > 50 {
				return nil, errors.New("boom")
			}

			return &Result{Formatted: "ok"}, nil
		},
	}

	var slept []time.Duration

	p := NewPacedGeocoder(fake, 250*time.Millisecond)
	p.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)

		return nil
	}

	ctx := context.Background()

	_, err := p.Reverse(ctx, 1, 1, Options{})
	require.NoError(t, err)
	assert.Empty(t, slept, "first call is not delayed")

	_, err = p.Reverse(ctx, 60, 1, Options{})
	require.Error(t, err)

	_, err = p.Forward(ctx, "Madrid", Options{})
	require.Error(t, err)

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, slept)
	assert.Equal(t, 3, p.Calls())
	assert.Len(t, fake.Calls(), 3)
}

func TestPacedGeocoderCancelled(t *testing.T) {
	fake := &FakeGeocoder{}
	p := NewPacedGeocoder(fake, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	_, _ = p.Reverse(ctx, 1, 1, Options{})

	cancel()

	_, err := p.Reverse(ctx, 1, 1, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.Calls(), 1)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
