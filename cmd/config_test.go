// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("opencage from env", func(t *testing.T) {
		t.Setenv(openCageKeyEnv, " oc-key ")

		key, err := (&Config{Provider: providerOpenCage}).apiKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, "oc-key", key)
	})

	t.Run("opencage missing", func(t *testing.T) {
		t.Setenv(openCageKeyEnv, "")

		_, err := (&Config{Provider: providerOpenCage}).apiKey(ctx)
		require.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("google from env", func(t *testing.T) {
		t.Setenv(googleKeyEnv, "gm-key")

		key, err := (&Config{Provider: providerGoogle}).apiKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, "gm-key", key)
	})

	t.Run("google missing without key name", func(t *testing.T) {
		t.Setenv(googleKeyEnv, "")

		_, err := (&Config{Provider: providerGoogle}).apiKey(ctx)
		require.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := (&Config{Provider: "bing"}).apiKey(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingAPIKey)
	})
}

func TestNewGeocoderRequiresKey(t *testing.T) {
	t.Setenv(openCageKeyEnv, "")

	_, err := (&Config{Provider: providerOpenCage}).newGeocoder(context.Background(), time.Second)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv(openCageKeyEnv, "k")

	g, err := (&Config{Provider: providerOpenCage}).newGeocoder(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, g.Delay)
	assert.Zero(t, g.Calls())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default is ignored", func(t *testing.T) {
		require.NoError(t, loadEnvFile(filepath.Join(dir, ".env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		require.Error(t, loadEnvFile(filepath.Join(dir, "nope.env"), true))
	})

	t.Run("does not override the environment", func(t *testing.T) {
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("GEOBATCH_TEST_A=from-file\nGEOBATCH_TEST_B=from-file\n"), 0o600))

		t.Setenv("GEOBATCH_TEST_A", "from-env")
		t.Setenv("GEOBATCH_TEST_B", "")
		os.Unsetenv("GEOBATCH_TEST_B")

		require.NoError(t, loadEnvFile(path, true))
		assert.Equal(t, "from-env", os.Getenv("GEOBATCH_TEST_A"))
		assert.Equal(t, "from-file", os.Getenv("GEOBATCH_TEST_B"))
	})
}

func TestSecondsToDuration(t *testing.T) {
	d, err := secondsToDuration(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	d, err = secondsToDuration(0)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = secondsToDuration(-1)
	require.Error(t, err)
}
