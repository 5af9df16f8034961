package ports

import (
	"context"

	"github.com/snjax/nook/internal/core/domain"
)

// UpOptions tune a single builder invocation.
type UpOptions struct {
	// RemoveExisting recreates the container instead of reusing it.
	RemoveExisting bool
	// OnLine, when set, receives every output line as it is produced.
	OnLine func(level domain.LogLevel, line string)
}

// Builder brings a devcontainer up from a workspace definition.
type Builder interface {
	// Up builds and starts the container for workspace and returns the
	// builder's stdout. A non-zero exit returns an error wrapping
	// domain.ErrBuildFailed.
	Up(ctx context.Context, workspace string, opts UpOptions) (string, error)
	// Version returns the builder's version string.
	Version(ctx context.Context) (string, error)
}
