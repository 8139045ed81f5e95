// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Builds the CLI
package main

import (
	"context"
	"dagger/geobatch/internal/dagger"
)

const (
	cliUser        = "appuser"
	distrolessUser = "nonroot"
)

// Builds the CLI binary
func (g *Geobatch) BuildCliBase(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "*.duckdb"]
	src *dagger.Directory,
) *dagger.Container {
	// GOCACHE lives in the user home so the cache volume is writable
	const cacheDir = "/home/" + cliUser + "/.cache"
	const goBuild = cacheDir + "/go-build"

	return dag.Container().
		// duckdb does not like musl, so no alpine
		From("golang:1.25.5-bookworm").
		WithExec([]string{"useradd", "-m", "-u", "1000", cliUser}).
		WithWorkdir("/src").
		WithMountedCache(
			"/go/pkg",
			dag.CacheVolume("go-pkg"),
			dagger.ContainerWithMountedCacheOpts{Owner: cliUser},
		).
		WithEnvVariable("GOCACHE", goBuild).
		WithMountedCache(
			cacheDir,
			dag.CacheVolume("go-cache"),
			dagger.ContainerWithMountedCacheOpts{Owner: cliUser},
		).
		// go.mod and go.sum first, source changes must not invalidate the module cache
		WithFile("go.mod", src.File("go.mod")).
		WithFile("go.sum", src.File("go.sum")).
		WithExec([]string{"chown", "-R", cliUser + ":" + cliUser,
			"/src",
			"/home/" + cliUser,
		}).
		WithUser(cliUser).
		WithExec([]string{"go", "mod", "download"}).
		WithUser("root").
		WithDirectory("/src", src).
		WithExec([]string{"chown", "-R", cliUser + ":" + cliUser, "/src"}).
		WithUser(cliUser).
		WithExec([]string{"go", "build", "-o", "build/geobatch", "main.go"})
}

// Runs validation on CLI code
func (g *Geobatch) BuildCliValidate(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "*.duckdb"]
	src *dagger.Directory,
) *dagger.Container {
	return g.BuildCliBase(ctx, src).
		WithExec([]string{"go", "install", "-v", "github.com/golangci/golangci-lint/cmd/golangci-lint@latest"}).
		WithExec([]string{"go", "install", "-v", "github.com/securego/gosec/v2/cmd/gosec@latest"}).
		WithExec([]string{"go", "install", "-v", "golang.org/x/vuln/cmd/govulncheck@latest"}).
		WithExec([]string{"go", "install", "-v", "github.com/google/addlicense@latest"}).
		WithExec([]string{
			"golangci-lint",
			"run",
			"--timeout",
			"5m",
			"./...",
		}).
		WithExec([]string{
			"gosec",
			"-no-fail",
			"-exclude-generated",
			"-exclude-dir", ".dagger",
			"./...",
		}).
		WithExec([]string{"govulncheck", "./..."}).
		WithExec([]string{
			"addlicense",
			"--check",
			"--ignore", "build/**",
			"--ignore", ".dagger/internal/**",
			"-c", "The GeoBatch Authors",
			"-l", "apache",
			"-s=only",
			".",
		})
}

// Returns a container with the CLI built standalone
func (g *Geobatch) BuildCli(
	ctx context.Context,
	// +defaultPath="/"
	// +ignore=["build", "*.duckdb"]
	src *dagger.Directory,
) *dagger.Container {
	builder := g.BuildCliBase(ctx, src)

	return dag.Container().
		From("gcr.io/distroless/cc-debian12").
		WithWorkdir("/app").
		WithFile("/app/geobatch", builder.File("/src/build/geobatch")).
		WithUser(distrolessUser).
		WithEntrypoint([]string{"/app/geobatch"})
}
