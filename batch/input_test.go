// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"strings"
	"testing"

	"github.com/geobatch/geobatch/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path, override string
		want           Format
		wantErr        bool
	}{
		{path: "points.csv", want: FormatCSV},
		{path: "POINTS.CSV", want: FormatCSV},
		{path: "points.txt", want: FormatTXT},
		{path: "points", want: FormatTXT},
		{path: "points.tsv", want: FormatTXT},
		{path: "points.txt", override: "csv", want: FormatCSV},
		{path: "points.csv", override: "TXT", want: FormatTXT},
		{path: "points.csv", override: "xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.override, func(t *testing.T) {
			got, err := DetectFormat(tt.path, tt.override)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCoordinatesTXT(t *testing.T) {
	in := "40.4168, -3.7038\n" +
		"# comment\n" +
		"\n" +
		"  41.3874 2.1686  \n" +
		"91.0,0.0\n" +
		"abc,1\n" +
		"1,2,3\n"

	rows, err := ReadCoordinates(strings.NewReader(in), FormatTXT)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, 1, rows[0].Line)
	assert.True(t, rows[0].Valid())
	assert.InDelta(t, 40.4168, rows[0].Lat, 1e-12)
	assert.InDelta(t, -3.7038, rows[0].Lng, 1e-12)
	assert.Equal(t, "-3.7038", rows[0].LngText)

	assert.Equal(t, 4, rows[1].Line)
	assert.True(t, rows[1].Valid())
	assert.InDelta(t, 2.1686, rows[1].Lng, 1e-12)

	assert.Equal(t, 5, rows[2].Line)
	require.ErrorIs(t, rows[2].Err, spatial.ErrLatitudeRange)
	assert.Equal(t, "91.0", rows[2].LatText)

	assert.Equal(t, 6, rows[3].Line)
	require.Error(t, rows[3].Err)

	assert.Equal(t, 7, rows[4].Line)
	require.Error(t, rows[4].Err)
	assert.Empty(t, rows[4].LatText)
	assert.Empty(t, rows[4].LngText)
}

func TestWrongFieldCountWritesEmptyCoordinates(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("1,2,3\n"), FormatTXT)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec := (&ResultRow{Query: rows[0], Err: rows[0].Err}).Record(ModeReverse, true)

	assert.Equal(t, "", rec[0])
	assert.Equal(t, "", rec[1])
	assert.Equal(t, "line 1: expected 2 values, got 3", rec[len(rec)-1])
}

func TestReadCoordinatesTXTSingleRow(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("40.4168, -3.7038\n# comment\n"), FormatTXT)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Valid())
}

func TestReadCoordinatesCSV(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantLines []int
		wantLat   []float64
	}{
		{
			name:      "lat lng columns",
			in:        "id,lng,lat\na,-3.7038,40.4168\nb,2.1686,41.3874\n",
			wantLines: []int{2, 3},
			wantLat:   []float64{40.4168, 41.3874},
		},
		{
			name:      "latitude longitude columns, any case and BOM",
			in:        "\uFEFFName,Latitude,Longitude\nx,40.4168,-3.7038\n",
			wantLines: []int{2},
			wantLat:   []float64{40.4168},
		},
		{
			name:      "positional with header",
			in:        "y,x\n40.4168,-3.7038\n",
			wantLines: []int{2},
			wantLat:   []float64{40.4168},
		},
		{
			name:      "positional without header",
			in:        "40.4168,-3.7038\n41.3874,2.1686\n",
			wantLines: []int{1, 2},
			wantLat:   []float64{40.4168, 41.3874},
		},
		{
			name: "empty",
			in:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadCoordinates(strings.NewReader(tt.in), FormatCSV)
			require.NoError(t, err)
			require.Len(t, rows, len(tt.wantLines))

			for i, row := range rows {
				assert.Equal(t, tt.wantLines[i], row.Line)
				require.NoError(t, row.Err)
				assert.InDelta(t, tt.wantLat[i], row.Lat, 1e-12)
			}
		})
	}
}

func TestReadCoordinatesCSVInvalidRowsKept(t *testing.T) {
	rows, err := ReadCoordinates(strings.NewReader("lat,lng\n91.0,0.0\n10,20\nfoo,1\n5\n"), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.ErrorIs(t, rows[0].Err, spatial.ErrLatitudeRange)
	assert.Equal(t, "91.0", rows[0].LatText)
	assert.Equal(t, "0.0", rows[0].LngText)
	assert.True(t, rows[1].Valid())
	require.Error(t, rows[2].Err)
	require.Error(t, rows[3].Err)
}

func TestReadCoordinatesCSVSingleColumn(t *testing.T) {
	_, err := ReadCoordinates(strings.NewReader("only\n1\n"), FormatCSV)
	require.ErrorIs(t, err, ErrNoColumns)
}

func TestReadAddresses(t *testing.T) {
	rows, err := ReadAddresses(strings.NewReader("id,Address\n1,\"Calle Mayor, 5, Madrid\"\n2,\n"), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Calle Mayor, 5, Madrid", rows[0].Address)
	assert.Equal(t, 2, rows[0].Line)
	require.Error(t, rows[1].Err)

	rows, err = ReadAddresses(strings.NewReader("query\nMadrid\n"), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Madrid", rows[0].Address)

	rows, err = ReadAddresses(strings.NewReader("# addresses\nMadrid\n\nGran Vía 1, Madrid\n"), FormatTXT)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Gran Vía 1, Madrid", rows[1].Address)
	assert.Equal(t, 4, rows[1].Line)
}
