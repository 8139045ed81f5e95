// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/geobatch/geobatch/address"
	"github.com/geobatch/geobatch/geocoding"
	"github.com/geobatch/geobatch/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverseFake() *geocoding.FakeGeocoder {
	return &geocoding.FakeGeocoder{
		ReverseFunc: func(lat, lng float64) (*geocoding.Result, error) {
			if lat < 0 {
				return nil, &geocoding.GeocodingError{Type: geocoding.ErrorTypeNetworkError, Message: "connection reset"}
			}

			return &geocoding.Result{
				Formatted: "Calle (de) Alcalá!, 28014 Madrid",
				Components: geocoding.Components{
					"country":  "España",
					"state":    "Comunidad de Madrid",
					"town":     "Madrid",
					"postcode": "28014",
				},
				Point: spatial.Point{Lat: lat, Lng: lng},
			}, nil
		},
		ForwardFunc: func(q string) (*geocoding.Result, error) {
			if q == "Nowhere" {
				return nil, &geocoding.GeocodingError{Type: geocoding.ErrorTypeNotFound, Message: "no results found for Nowhere"}
			}

			return &geocoding.Result{
				Formatted:  q + ", Spain",
				Components: geocoding.Components{"country": "Spain", "city": "Madrid"},
				Point:      spatial.Point{Lat: 40.4168, Lng: -3.7038},
			}, nil
		},
	}
}

func TestDriverReverse(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("lat,lng\n40.4,-3.7\n91.0,0.0\n-10,5\n41.3,2.1\n"), FormatCSV)
	require.NoError(t, err)

	fake := reverseFake()

	var slept []time.Duration

	paced := geocoding.NewPacedGeocoder(fake, time.Second)
	paced.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)

		return nil
	}

	d := NewDriver(paced, &Options{Language: "es", CountryCode: "ES", Cleaner: address.NewCleaner(address.LevelConservative)})

	out, err := d.Reverse(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, out, 4, "one output row per input row")

	for i := range out {
		assert.Equal(t, rows[i].Line, out[i].Query.Line, "input order is kept")
	}

	assert.True(t, out[0].OK())
	assert.Equal(t, "Calle de Alcalá, 28014 Madrid", out[0].Address)
	assert.Equal(t, "España", out[0].Country)
	assert.Equal(t, "Comunidad de Madrid", out[0].State)
	assert.Equal(t, "Madrid", out[0].City)
	assert.Equal(t, "28014", out[0].Postcode)

	require.ErrorIs(t, out[1].Err, spatial.ErrLatitudeRange)
	assert.Empty(t, out[1].Address)

	require.Error(t, out[2].Err)
	assert.Contains(t, out[2].Err.Error(), "connection reset")
	assert.Empty(t, out[2].Country)

	assert.True(t, out[3].OK())

	assert.Equal(t, Metrics{Rows: 4, Attempted: 3, Succeeded: 2, Failed: 1, Rejected: 1}, d.Metrics)

	calls := fake.Calls()
	require.Len(t, calls, 3, "rejected rows never reach the provider")
	assert.Equal(t, "es", calls[0].Options.Language)
	assert.Equal(t, "ES", calls[0].Options.CountryCode)

	// delay between the three calls, regardless of the failure in between
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestDriverInvalidLatitudeScenario(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("lat,lng\n91.0,0.0\n"), FormatCSV)
	require.NoError(t, err)

	d := NewDriver(reverseFake(), nil)

	out, err := d.Reverse(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, out, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ModeReverse, out, false))
	assert.Equal(t, "latitude,longitude,address,country,state,city,postcode\n91.0,0.0,,,,,\n", buf.String())
}

func TestDriverForward(t *testing.T) {
	rows, err := ReadAddresses(strings.NewReader("Gran Vía 1\nNowhere\n"), FormatTXT)
	require.NoError(t, err)

	d := NewDriver(reverseFake(), nil)

	out, err := d.Forward(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].OK())
	assert.InDelta(t, 40.4168, out[0].Lat, 1e-12)
	assert.Equal(t, "Gran Vía 1, Spain", out[0].Address)
	assert.True(t, geocoding.IsNotFoundError(out[1].Err))

	assert.Equal(t, Metrics{Rows: 2, Attempted: 2, Succeeded: 1, Failed: 1}, d.Metrics)
}

func TestDriverCancelled(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("1,2\n3,4\n"), FormatTXT)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := reverseFake()

	out, err := NewDriver(fake, nil).Reverse(ctx, rows)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
	assert.Empty(t, fake.Calls())
}
