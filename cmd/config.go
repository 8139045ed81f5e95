// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/geobatch/geobatch/geocoding"
	"github.com/geobatch/geobatch/store"
)

const (
	providerOpenCage = "opencage"
	providerGoogle   = "google"

	openCageKeyEnv = "OPENCAGE_API_KEY"
	googleKeyEnv   = "GOOGLE_MAPS_API_KEY"
)

// ErrMissingAPIKey is returned when no API key can be found for the provider.
var ErrMissingAPIKey = errors.New("missing API key")

// Config holds the settings shared by every command.
type Config struct {
	Verbose  bool
	EnvFile  string
	Provider string

	GCPKeyName string
	GCPProject string

	HTTP geocoding.HTTPOptions
}

var config = &Config{}

// apiKey resolves the key of the configured provider from the environment,
// falling back to Application Default Credentials for Google when
// --gcp-key-name is set.
func (c *Config) apiKey(ctx context.Context) (string, error) {
	switch c.Provider {
	case providerOpenCage:
		if key := strings.TrimSpace(os.Getenv(openCageKeyEnv)); key != "" {
			return key, nil
		}

		return "", fmt.Errorf("%w: set %s in the environment or in %s", ErrMissingAPIKey, openCageKeyEnv, c.EnvFile)
	case providerGoogle:
		if key := strings.TrimSpace(os.Getenv(googleKeyEnv)); key != "" {
			return key, nil
		}

		if c.GCPKeyName == "" {
			return "", fmt.Errorf("%w: set %s or --gcp-key-name", ErrMissingAPIKey, googleKeyEnv)
		}

		log.Printf("%s is not set. Attempting to retrieve %q via ADC...", googleKeyEnv, c.GCPKeyName)

		key, err := geocoding.APIKeyFromADC(ctx, c.GCPProject, c.GCPKeyName)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMissingAPIKey, err)
		}

		log.Println("Retrieved Google Maps API key via ADC")

		return key, nil
	default:
		return "", fmt.Errorf("unknown provider %q, expected %s or %s", c.Provider, providerOpenCage, providerGoogle)
	}
}

// newGeocoder builds the configured provider wrapped in a PacedGeocoder that
// waits delay between consecutive calls.
func (c *Config) newGeocoder(ctx context.Context, delay time.Duration) (*geocoding.PacedGeocoder, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	httpOptions := c.HTTP
	httpOptions.UserAgent = fmt.Sprintf("geobatch/%s", Version)
	client := geocoding.NewHTTPClient(&httpOptions)

	var g geocoding.Geocoder

	switch c.Provider {
	case providerGoogle:
		g = geocoding.NewGoogleMapsGeocoder(key, client)
	default:
		g = geocoding.NewOpenCageGeocoder(key, client)
	}

	if c.Verbose {
		log.Printf("Geocoding with %s, %s between calls", c.Provider, delay)
	}

	return geocoding.NewPacedGeocoder(g, delay), nil
}

// secondsToDuration converts the --delay flag value.
func secondsToDuration(seconds float64) (time.Duration, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("delay must not be negative, got %g", seconds)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// openRepository opens the DuckDB database at path and ensures its schema.
func openRepository(path string) (store.Repository, func(), error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}

	repo := store.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, func() {
		if err := db.Close(); err != nil {
			log.Printf("Closing database: %v", err)
		}
	}, nil
}
