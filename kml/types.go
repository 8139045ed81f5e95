// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package kml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/geobatch/geobatch/spatial"
	"github.com/geobatch/geobatch/utils/textutils"
)

// Errors returned by ParseCoordinates.
var (
	ErrEmptyCoordinates   = errors.New("empty coordinates")
	ErrTooFewCoordinates  = errors.New("expected at least longitude and latitude")
	ErrInvalidCoordinates = errors.New("invalid coordinate value")
)

// Record is one extracted placemark. Coordinate fields are nil when the
// placemark had no coordinates or they could not be parsed.
type Record struct {
	Index          int      `json:"index"`
	ID             string   `json:"id"`
	Address        string   `json:"address"`
	Longitude      *float64 `json:"longitude"`
	Latitude       *float64 `json:"latitude"`
	Altitude       *float64 `json:"altitude"`
	CoordinatesRaw string   `json:"coordinates_raw"`
}

// HasCoordinates reports whether the placemark carried parsable coordinates.
func (r *Record) HasCoordinates() bool {
	return r.Longitude != nil && r.Latitude != nil
}

// Point returns the placemark location, if any.
func (r *Record) Point() (spatial.Point, bool) {
	if !r.HasCoordinates() {
		return spatial.Point{}, false
	}

	return spatial.Point{Lat: *r.Latitude, Lng: *r.Longitude}, true
}

func (r *Record) setCoordinates(c Coordinates) {
	r.Longitude = &c.Longitude
	r.Latitude = &c.Latitude
	r.Altitude = &c.Altitude
}

// Coordinates is a parsed KML coordinate tuple.
type Coordinates struct {
	Longitude float64
	Latitude  float64
	Altitude  float64
}

// String renders the tuple back in KML "lon,lat,alt" form.
func (c Coordinates) String() string {
	return textutils.FormatFloat(c.Longitude) + "," +
		textutils.FormatFloat(c.Latitude) + "," +
		textutils.FormatFloat(c.Altitude)
}

// ParseCoordinates parses KML coordinate text ("lon,lat[,alt]").
//
// Fields are split on commas. Only the first tuple is considered when the
// element holds several whitespace-separated tuples, and fields beyond the
// third are ignored. A missing altitude is 0.
func ParseCoordinates(text string) (Coordinates, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Coordinates{}, ErrEmptyCoordinates
	}

	var fields []string

	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)

		// whitespace inside a field marks the start of the next tuple
		if i := strings.IndexFunc(part, unicode.IsSpace); i >= 0 {
			fields = append(fields, part[:i])

			break
		}

		fields = append(fields, part)
	}

	if len(fields) < 2 {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrTooFewCoordinates, text)
	}

	if len(fields) > 3 {
		fields = fields[:3]
	}

	values := make([]float64, 3)

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("%w: field %d %q", ErrInvalidCoordinates, i+1, f)
		}

		values[i] = v
	}

	return Coordinates{
		Longitude: values[0],
		Latitude:  values[1],
		Altitude:  values[2],
	}, nil
}
