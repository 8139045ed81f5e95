// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding wraps the external forward/reverse geocoding services.
package geocoding

import (
	"context"
	"fmt"
	"strconv"

	"github.com/geobatch/geobatch/spatial"
)

// Options are passed through to the provider on every request.
type Options struct {
	// Language is the preferred language for the results (e.g. "es", "en").
	Language string

	// CountryCode biases the results to a country (ISO 3166-1 alpha-2).
	CountryCode string

	// NoAnnotations asks the provider to skip the annotation block.
	NoAnnotations bool
}

// Components maps address part names (country, state, city, postcode, …) to values.
type Components map[string]string

// Get returns the value of key, or "" when absent.
func (c Components) Get(key string) string {
	if c == nil {
		return ""
	}

	return c[key]
}

// First returns the first non-empty value among keys.
func (c Components) First(keys ...string) string {
	for _, k := range keys {
		if v := c.Get(k); v != "" {
			return v
		}
	}

	return ""
}

// City returns the most specific settlement name available.
func (c Components) City() string {
	return c.First("city", "town", "village", "hamlet", "municipality")
}

// Timezone describes the timezone annotation.
type Timezone struct {
	Name         string `json:"name"`
	OffsetSec    int    `json:"offset_sec"`
	OffsetString string `json:"offset_string"`
}

// Currency describes the currency annotation.
type Currency struct {
	ISOCode string `json:"iso_code"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Annotations holds the optional metadata some providers attach to results.
type Annotations struct {
	Timezone    Timezone `json:"timezone"`
	Currency    Currency `json:"currency"`
	CallingCode int      `json:"callingcode"`
	Flag        string   `json:"flag"`
	Geohash     string   `json:"geohash"`
	MGRS        string   `json:"MGRS"`
	Maidenhead  string   `json:"Maidenhead"`
	DMS         struct {
		Lat string `json:"lat"`
		Lng string `json:"lng"`
	} `json:"DMS"`
	What3Words struct {
		Words string `json:"words"`
	} `json:"what3words"`
}

// Result represents a geocoding result from any provider.
type Result struct {
	Formatted   string
	Components  Components
	Point       spatial.Point
	Confidence  int
	Provider    string
	Annotations *Annotations
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	// Forward converts a free-text address into a result with coordinates.
	Forward(ctx context.Context, address string, opts Options) (*Result, error)

	// Reverse converts coordinates into a structured address.
	Reverse(ctx context.Context, lat, lng float64, opts Options) (*Result, error)
}

// stringifyComponents keeps scalar values only; nested objects are dropped.
func stringifyComponents(raw map[string]any) Components {
	out := make(Components, len(raw))

	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		case nil:
		default:
			// arrays and objects are not address parts
		}
	}

	return out
}

func formatLatLng(lat, lng float64) string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))
}
