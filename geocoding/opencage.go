// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// OpenCageEndpoint is the public OpenCage geocoding endpoint.
const OpenCageEndpoint = "https://api.opencagedata.com/geocode/v1/json"

const maxResponseSize = 8 << 20

// OpenCageGeocoder uses the OpenCage Geocoding API.
type OpenCageGeocoder struct {
	// Endpoint overrides OpenCageEndpoint.
	Endpoint string

	apiKey     string
	httpClient *http.Client
}

// NewOpenCageGeocoder creates a new OpenCage geocoder. A nil client uses NewHTTPClient defaults.
func NewOpenCageGeocoder(apiKey string, httpClient *http.Client) *OpenCageGeocoder {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}

	return &OpenCageGeocoder{
		Endpoint:   OpenCageEndpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type openCageResponse struct {
	Results []struct {
		Formatted  string         `json:"formatted"`
		Components map[string]any `json:"components"`
		Confidence int            `json:"confidence"`
		Geometry   struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Annotations *Annotations `json:"annotations"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Forward geocodes a free-text address.
func (g *OpenCageGeocoder) Forward(ctx context.Context, address string, opts Options) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "empty address"}
	}

	return g.query(ctx, address, opts)
}

// Reverse geocodes a coordinate pair.
func (g *OpenCageGeocoder) Reverse(ctx context.Context, lat, lng float64, opts Options) (*Result, error) {
	return g.query(ctx, formatLatLng(lat, lng), opts)
}

func (g *OpenCageGeocoder) query(ctx context.Context, q string, opts Options) (*Result, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("key", g.apiKey)
	params.Set("limit", "1")

	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	if opts.CountryCode != "" {
		params.Set("countrycode", strings.ToLower(opts.CountryCode))
	}

	if opts.NoAnnotations {
		params.Set("no_annotations", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var ocResp openCageResponse

	if resp.StatusCode != http.StatusOK {
		// the body usually explains the failure in status.message
		_ = json.Unmarshal(body, &ocResp)

		return nil, ClassifyHTTPError(resp.StatusCode, ocResp.Status.Message)
	}

	if err := json.Unmarshal(body, &ocResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	if len(ocResp.Results) == 0 {
		return nil, notFound(q)
	}

	result := ocResp.Results[0]

	out := &Result{
		Formatted:   result.Formatted,
		Components:  stringifyComponents(result.Components),
		Confidence:  result.Confidence,
		Provider:    "opencage",
		Annotations: result.Annotations,
	}
	out.Point.Lat = result.Geometry.Lat
	out.Point.Lng = result.Geometry.Lng

	return out, nil
}
