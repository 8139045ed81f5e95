// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GoogleMapsEndpoint is the Google Maps Geocoding API endpoint.
const GoogleMapsEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	// Endpoint overrides GoogleMapsEndpoint.
	Endpoint string

	apiKey     string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, httpClient *http.Client) *GoogleMapsGeocoder {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}

	return &GoogleMapsGeocoder{
		Endpoint:   GoogleMapsEndpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// googleComponentNames maps Google address component types to the component
// names used across providers.
var googleComponentNames = map[string]string{
	"street_number":               "house_number",
	"route":                       "road",
	"neighborhood":                "neighbourhood",
	"sublocality":                 "suburb",
	"locality":                    "city",
	"postal_town":                 "town",
	"administrative_area_level_2": "county",
	"administrative_area_level_1": "state",
	"country":                     "country",
	"postal_code":                 "postcode",
}

// Forward geocodes a free-text address.
func (g *GoogleMapsGeocoder) Forward(ctx context.Context, address string, opts Options) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "empty address"}
	}

	params := url.Values{}
	params.Set("address", address)

	return g.query(ctx, address, params, opts)
}

// Reverse geocodes a coordinate pair.
func (g *GoogleMapsGeocoder) Reverse(ctx context.Context, lat, lng float64, opts Options) (*Result, error) {
	latlng := formatLatLng(lat, lng)

	params := url.Values{}
	params.Set("latlng", latlng)

	return g.query(ctx, latlng, params, opts)
}

func (g *GoogleMapsGeocoder) query(ctx context.Context, q string, params url.Values, opts Options) (*Result, error) {
	params.Set("key", g.apiKey)

	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	if opts.CountryCode != "" {
		params.Set("region", strings.ToLower(opts.CountryCode))
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

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, "")
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, notFound(q)
	case "OVER_QUERY_LIMIT":
		return nil, &GeocodingError{Type: ErrorTypeRateLimit, Message: "google maps status: OVER_QUERY_LIMIT"}
	case "OVER_DAILY_LIMIT":
		return nil, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: OVER_DAILY_LIMIT"}
	case "REQUEST_DENIED":
		return nil, &GeocodingError{Type: ErrorTypeUnauthorized, Message: "google maps status: REQUEST_DENIED " + gmResp.ErrorMessage}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps status: INVALID_REQUEST"}
	default:
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps status: " + gmResp.Status}
	}

	if len(gmResp.Results) == 0 {
		return nil, notFound(q)
	}

	result := gmResp.Results[0]

	components := make(Components)

	for _, c := range result.AddressComponents {
		for _, t := range c.Types {
			name, ok := googleComponentNames[t]
			if !ok {
				continue
			}

			if _, seen := components[name]; !seen {
				components[name] = c.LongName
			}

			switch t {
			case "country":
				components["country_code"] = strings.ToLower(c.ShortName)
			case "administrative_area_level_1":
				components["state_code"] = c.ShortName
			}
		}
	}

	// Confidence on the OpenCage 0-10 scale, from location_type
	confidence := 3

	switch result.Geometry.LocationType {
	case "ROOFTOP":
		confidence = 10
	case "RANGE_INTERPOLATED":
		confidence = 8
	case "GEOMETRIC_CENTER":
		confidence = 6
	case "APPROXIMATE":
		confidence = 3
	}

	out := &Result{
		Formatted:  result.FormattedAddress,
		Components: components,
		Confidence: confidence,
		Provider:   "google_maps",
	}
	out.Point.Lat = result.Geometry.Location.Lat
	out.Point.Lng = result.Geometry.Location.Lng

	return out, nil
}
