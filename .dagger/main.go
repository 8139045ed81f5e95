// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// CI pipelines of the geobatch CLI
package main

import (
	"context"
	"dagger/geobatch/internal/dagger"
)

type Geobatch struct{}

// Runs the unit tests of every package
func (g *Geobatch) Test(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "*.duckdb"]
	src *dagger.Directory,
) (string, error) {
	return g.BuildCliBase(ctx, src).
		WithExec([]string{"go", "test", "-count=1", "./..."}).
		Stdout(ctx)
}

// Runs validation and tests, the gate for merging
func (g *Geobatch) Check(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "*.duckdb"]
	src *dagger.Directory,
) (string, error) {
	if _, err := g.BuildCliValidate(ctx, src).Sync(ctx); err != nil {
		return "", err
	}

	return g.Test(ctx, src)
}
