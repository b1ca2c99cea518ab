package main

import (
	"fmt"
	"strings"
	"time"

	"context"

	"dagger/folio/internal/dagger"
)

// Build and return directory of go binaries.
// The sqlite drivers need cgo, so the matrix is limited to targets the
// bookworm toolchain can link natively.
func (f *Folio) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// define build matrix
	goos := "linux"
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	golang := f.goContainer()

	for _, goarch := range goarches {
		// create directory for each architecture
		path := fmt.Sprintf("%s/%s/", goos, goarch)

		// build artifact
		build := golang.
			WithEnvVariable("GOOS", goos).
			WithEnvVariable("GOARCH", goarch).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/folio"})

		// add build to outputs
		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (f *Folio) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/foliodocs/folio/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/foliodocs/folio/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/foliodocs/folio/pkg/utils.Buildtime=%s'", buildtime),
	}

	return f.Build(ctx, strings.Join(ldflags, " "))
}
