// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geobatch/geobatch/geocoding"
	"github.com/geobatch/geobatch/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func madridResult() *geocoding.Result {
	return &geocoding.Result{
		Formatted: "Calle de Alcalá, 28014 Madrid, España",
		Components: geocoding.Components{
			"road":         "Calle de Alcalá",
			"city":         "Madrid",
			"state":        "Comunidad de Madrid",
			"country":      "España",
			"country_code": "es",
			"postcode":     "28014",
		},
		Point:      spatial.Point{Lat: 40.4183, Lng: -3.7003},
		Confidence: 9,
		Provider:   "fake",
		Annotations: &geocoding.Annotations{
			Timezone:    geocoding.Timezone{Name: "Europe/Madrid", OffsetString: "+0100"},
			Currency:    geocoding.Currency{ISOCode: "EUR"},
			CallingCode: 34,
			Geohash:     "ezjmgu",
		},
	}
}

func newTestEnhancer(fake *geocoding.FakeGeocoder, opts *EnhancerOptions) *Enhancer {
	e := NewEnhancer(fake, opts)
	e.now = func() time.Time { return fixedNow }

	return e
}

func TestCompleteReverse(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ReverseFunc: func(_, _ float64) (*geocoding.Result, error) { return madridResult(), nil },
	}
	e := newTestEnhancer(fake, &EnhancerOptions{Language: "es", Cleaner: NewCleaner(LevelAggressive)})

	c, err := e.Complete(context.Background(), "Alcalá 17", &spatial.Point{Lat: 40.4183, Lng: -3.7003})
	require.NoError(t, err)

	assert.Equal(t, MethodReverse, c.Method)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
	// the provider address already carries digits, nothing is merged
	assert.Equal(t, "Calle de Alcala, 28014 Madrid, Espana", c.Completed)
	assert.Equal(t, "Espana", c.Components.Get("country"))
	assert.Empty(t, c.Suggestions)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "reverse", calls[0].Method)
	assert.Equal(t, "es", calls[0].Options.Language)
	assert.True(t, calls[0].Options.NoAnnotations)
}

func TestCompleteForwardFallback(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ForwardFunc: func(string) (*geocoding.Result, error) { return madridResult(), nil },
	}
	e := newTestEnhancer(fake, nil)

	c, err := e.Complete(context.Background(), "callle alcala", &spatial.Point{Lat: 1, Lng: 2})
	require.NoError(t, err)

	assert.Equal(t, MethodForward, c.Method)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9, "forward confidence is capped")
	assert.Equal(t, "Calle de Alcalá, 28014 Madrid, España", c.Completed)
	require.NotNil(t, c.Point)
	assert.InDelta(t, 40.4183, c.Point.Lat, 1e-9)
	assert.Contains(t, c.Suggestions, "Calle Alcala")
	require.NotNil(t, c.DistanceMeters)
	assert.Greater(t, *c.DistanceMeters, 4_000_000.0)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "reverse", calls[0].Method)
	assert.Equal(t, "forward", calls[1].Method)
}

func TestCompleteForwardWithoutPoint(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ForwardFunc: func(string) (*geocoding.Result, error) { return madridResult(), nil },
	}

	c, err := newTestEnhancer(fake, nil).Complete(context.Background(), "calle alcala", nil)
	require.NoError(t, err)

	assert.Equal(t, MethodForward, c.Method)
	assert.Nil(t, c.DistanceMeters)
	assert.Len(t, fake.Calls(), 1)
}

func TestCompleteNothingFound(t *testing.T) {
	e := newTestEnhancer(&geocoding.FakeGeocoder{}, nil)

	c, err := e.Complete(context.Background(), "Nowhere", nil)
	require.NoError(t, err)

	assert.Equal(t, MethodNone, c.Method)
	assert.Equal(t, "Nowhere", c.Completed)
	assert.Zero(t, c.Confidence)
}

func TestCompleteProviderError(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ForwardFunc: func(string) (*geocoding.Result, error) {
			return nil, &geocoding.GeocodingError{Type: geocoding.ErrorTypeRateLimit, Message: "rate limit reached"}
		},
	}
	e := newTestEnhancer(fake, nil)

	_, err := e.Complete(context.Background(), "Madrid", nil)
	require.Error(t, err)
	assert.True(t, geocoding.IsRateLimitError(err))
}

func TestMergeAddress(t *testing.T) {
	tests := []struct {
		partial, full, want string
	}{
		{"", "Calle Mayor, Madrid", "Calle Mayor, Madrid"},
		{"Mayor 5", "Calle Mayor, Madrid", "5 Calle Mayor, Madrid"},
		{"Mayor 5", "Calle Mayor 7, Madrid", "Calle Mayor 7, Madrid"},
		{"calle mayor,", "Calle Mayor, Madrid", "Calle Mayor, Madrid"},
		{"plaza", "Calle Mayor, Madrid", "Calle Mayor, Madrid"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mergeAddress(tt.partial, tt.full), "partial %q", tt.partial)
	}
}

func TestEnrich(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ForwardFunc: func(string) (*geocoding.Result, error) { return madridResult(), nil },
		ReverseFunc: func(_, _ float64) (*geocoding.Result, error) { return madridResult(), nil },
	}
	e := newTestEnhancer(fake, nil)

	en, err := e.Enrich(context.Background(), "Calle de Alcalá, Madrid", nil)
	require.NoError(t, err)

	require.NotNil(t, en.Point)
	assert.InDelta(t, -3.7003, en.Point.Lng, 1e-9)
	assert.Len(t, en.H3Cell, 15)
	require.NotNil(t, en.Administrative)
	assert.Equal(t, "Comunidad de Madrid", en.Administrative.State)
	assert.Equal(t, "es", en.Administrative.CountryCode)
	assert.Equal(t, "28014", en.Postcode)
	require.NotNil(t, en.Annotations)
	assert.Equal(t, "Europe/Madrid", en.Annotations.Timezone.Name)
	assert.Equal(t, fixedNow, en.EnrichedAt)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[1].Options.NoAnnotations, "enrichment asks for annotations")
}

func TestEnrichWithoutLocation(t *testing.T) {
	fake := &geocoding.FakeGeocoder{}
	e := newTestEnhancer(fake, nil)

	en, err := e.Enrich(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, en.Point)
	assert.Nil(t, en.Administrative)
	assert.Empty(t, fake.Calls())
}

func TestProcessCompleteAddressSkipsCompletion(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ForwardFunc: func(string) (*geocoding.Result, error) { return madridResult(), nil },
		ReverseFunc: func(_, _ float64) (*geocoding.Result, error) { return madridResult(), nil },
	}
	e := newTestEnhancer(fake, &EnhancerOptions{Language: "es"})

	out, err := e.Process(context.Background(), Input{Index: 1, Address: "c/ alcalá 17, 28014 madrid"})
	require.NoError(t, err)

	assert.True(t, out.Completeness.IsComplete)
	assert.Nil(t, out.Completion)
	assert.Equal(t, "Calle Alcalá 17, 28014 Madrid", out.NormalizedAddress)
	assert.Equal(t, MethodNone, out.Quality.Method)
	assert.True(t, out.Quality.HasCoordinates)
	assert.InDelta(t, 1.0, out.Quality.CompletenessScore, 1e-9)
}

func TestProcessIncompleteAddress(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ReverseFunc: func(_, _ float64) (*geocoding.Result, error) { return madridResult(), nil },
	}
	e := newTestEnhancer(fake, &EnhancerOptions{Language: "es"})

	out, err := e.Process(context.Background(), Input{Index: 1, Address: "Alcalá", Point: &spatial.Point{Lat: 40.4183, Lng: -3.7003}})
	require.NoError(t, err)

	require.NotNil(t, out.Completion)
	assert.Equal(t, MethodReverse, out.Quality.Method)
	require.NotNil(t, out.PostalValidation)
	assert.True(t, out.PostalValidation.Valid)
	assert.Equal(t, "ES", out.PostalValidation.CountryCode)
	assert.Equal(t, "Calle De Alcalá, 28014 Madrid, España", out.NormalizedAddress)
	require.NotNil(t, out.Enrichment)
	assert.Equal(t, "Madrid", out.Enrichment.Administrative.City)
}

func TestProcessBatchContainsFailures(t *testing.T) {
	fake := &geocoding.FakeGeocoder{
		ReverseFunc: func(lat, _ float64) (*geocoding.Result, error) {
			if lat < 0 {
				return nil, &geocoding.GeocodingError{Type: geocoding.ErrorTypeNetworkError, Message: "connection reset"}
			}

			return madridResult(), nil
		},
	}
	e := newTestEnhancer(fake, nil)

	inputs := []Input{
		{Index: 1, Address: "Alcalá", Point: &spatial.Point{Lat: 40.4, Lng: -3.7}},
		{Index: 2, Address: "Broken", Point: &spatial.Point{Lat: -10, Lng: -3.7}},
		{Index: 3, Err: errors.New("parsing latitude \"abc\"")},
		{Index: 4, Address: "Alcalá", Point: &spatial.Point{Lat: 40.4, Lng: -3.7}},
	}

	out, err := e.ProcessBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, out, 4)

	for i, o := range out {
		assert.Equal(t, i+1, o.Index)
	}

	assert.Empty(t, out[0].Error)
	assert.Contains(t, out[1].Error, "connection reset")
	assert.Contains(t, out[2].Error, "abc")
	assert.Empty(t, out[3].Error)
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEnhancer(&geocoding.FakeGeocoder{}, nil)

	out, err := e.ProcessBatch(ctx, []Input{{Index: 1, Address: "x"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
}
