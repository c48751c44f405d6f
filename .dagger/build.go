package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/curlens/internal/dagger"
)

// Build and return directory of curlens binaries for linux. go-sqlite3 needs
// cgo, so each architecture builds in a container of that platform.
func (c *Curlens) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	outputs := dag.Directory()

	for _, goarch := range []string{"amd64", "arm64"} {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := c.goContainer(dagger.Platform("linux/"+goarch)).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/curlens"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (c *Curlens) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/curlens/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/curlens/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/curlens/pkg/utils.Buildtime=%s'", time.Now().Format(time.RFC3339)),
	}

	return c.Build(ctx, strings.Join(ldflags, " "))
}
