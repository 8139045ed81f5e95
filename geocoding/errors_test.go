// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []errorCheckTestCase{
		{
			name: "rate limit error type",
			err: &GeocodingError{
				Type:    ErrorTypeRateLimit,
				Message: "rate limit exceeded",
			},
			want: true,
		},
		{
			name: "wrapped rate limit error",
			err:  fmt.Errorf("row 3: %w", &GeocodingError{Type: ErrorTypeRateLimit}),
			want: true,
		},
		{
			name: "error message contains too many requests",
			err:  errors.New("too many requests"),
			want: true,
		},
		{
			name: "error message contains 429",
			err:  errors.New("opencage returned status 429"),
			want: true,
		},
		{
			name: "other error type",
			err: &GeocodingError{
				Type:    ErrorTypeNotFound,
				Message: "not found",
			},
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	runErrorCheckTest(t, tests, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	tests := []errorCheckTestCase{
		{
			name: "quota exceeded error type",
			err: &GeocodingError{
				Type:    ErrorTypeQuotaExceeded,
				Message: "quota exceeded",
			},
			want: true,
		},
		{
			name: "error message contains over_query_limit",
			err:  errors.New("google maps status: OVER_QUERY_LIMIT"),
			want: true,
		},
		{
			name: "other error type",
			err: &GeocodingError{
				Type:    ErrorTypeRateLimit,
				Message: "rate limit",
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}

	runErrorCheckTest(t, tests, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	tests := []errorCheckTestCase{
		{
			name: "timeout error type",
			err: &GeocodingError{
				Type:    ErrorTypeTimeout,
				Message: "timeout",
			},
			want: true,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: true,
		},
		{
			name: "other error type",
			err: &GeocodingError{
				Type:    ErrorTypeNotFound,
				Message: "not found",
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}

	runErrorCheckTest(t, tests, IsTimeoutError)
}

func TestIsNotFoundError(t *testing.T) {
	tests := []errorCheckTestCase{
		{name: "not found", err: notFound("nowhere"), want: true},
		{name: "wrapped", err: fmt.Errorf("x: %w", notFound("nowhere")), want: true},
		{name: "plain message", err: errors.New("not found"), want: false},
		{name: "nil", err: nil, want: false},
	}

	runErrorCheckTest(t, tests, IsNotFoundError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   ErrorType
	}{
		{name: "429 too many requests", statusCode: 429, wantType: ErrorTypeRateLimit},
		{name: "402 payment required", statusCode: 402, wantType: ErrorTypeQuotaExceeded},
		{name: "403 forbidden", statusCode: 403, wantType: ErrorTypeQuotaExceeded},
		{name: "401 unauthorized", statusCode: 401, body: "invalid API key", wantType: ErrorTypeUnauthorized},
		{name: "400 bad request", statusCode: 400, wantType: ErrorTypeInvalidRequest},
		{name: "404 not found", statusCode: 404, wantType: ErrorTypeNotFound},
		{name: "408 request timeout", statusCode: 408, wantType: ErrorTypeTimeout},
		{name: "503 service unavailable", statusCode: 503, wantType: ErrorTypeNetworkError},
		{name: "502 bad gateway", statusCode: 502, wantType: ErrorTypeNetworkError},
		{name: "504 gateway timeout", statusCode: 504, wantType: ErrorTypeNetworkError},
		{name: "500 internal server error", statusCode: 500, wantType: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyHTTPError(tt.statusCode, tt.body)
			if got.Type != tt.wantType {
				t.Errorf("ClassifyHTTPError() type = %v, want %v", got.Type, tt.wantType)
			}
		})
	}
}

func TestClassifyHTTPErrorAppendsBody(t *testing.T) {
	got := ClassifyHTTPError(401, "  invalid API key ")
	if got.Error() != "invalid API key: invalid API key" {
		t.Errorf("Error() = %q", got.Error())
	}
}

func TestErrorTypeString(t *testing.T) {
	if got := ErrorTypeQuotaExceeded.String(); got != "quota_exceeded" {
		t.Errorf("String() = %q, want quota_exceeded", got)
	}

	if got := ErrorType(99).String(); got != "ErrorType(99)" {
		t.Errorf("String() = %q, want ErrorType(99)", got)
	}
}

func TestGeocodingErrorUnwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	geoErr := &GeocodingError{
		Type:    ErrorTypeNotFound,
		Message: "location not found",
		Err:     innerErr,
	}

	if !errors.Is(geoErr, innerErr) {
		t.Error("errors.Is should find wrapped error")
	}

	if !errors.Is(geoErr.Unwrap(), innerErr) {
		t.Error("Unwrap should return inner error")
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := classifyTransportError(context.DeadlineExceeded); got.Type != ErrorTypeTimeout {
		t.Errorf("deadline: type = %v, want timeout", got.Type)
	}

	if got := classifyTransportError(errors.New("connection refused")); got.Type != ErrorTypeNetworkError {
		t.Errorf("refused: type = %v, want network", got.Type)
	}
}
