// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/geobatch/geobatch/utils/httputils"
)

// HTTPOptions configures the HTTP client shared by the providers.
type HTTPOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Timeout for a whole request, defaults to 30 seconds
	Timeout time.Duration

	// TraceWriter receives the traces, defaults to stderr
	TraceWriter io.Writer
}

// NewHTTPClient builds the client used to talk to the geocoding providers.
// API keys travel in the query string, so they are redacted from traces.
func NewHTTPClient(options *HTTPOptions) *http.Client {
	if options == nil {
		options = &HTTPOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = options.TraceWriter
		if httpLogWriter == nil {
			httpLogWriter = os.Stderr
		}
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:       httpLogWriter,
		DumpBody:     options.EnableHTTPBodyTrace,
		Transport:    transport,
		RedactParams: redactParams,
	}

	userAgent := "geobatch/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: headerTransport,
	}
}
