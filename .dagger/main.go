// Curlens CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/curlens/internal/dagger"
)

// Curlens is the main module for the curlens CI pipeline
type Curlens struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Curlens CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Curlens {
	return &Curlens{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container for platform with
// gcc, libsqlite3-dev, CGO enabled, and the project source mounted.
func (c *Curlens) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", c.Source)
}

// Test runs the curlens unit tests via "go test"
func (c *Curlens) Test(ctx context.Context) (string, error) {
	return c.goContainer("").
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
