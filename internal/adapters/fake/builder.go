package fake

import (
	"context"

	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.Builder = (*Builder)(nil)

// Builder is a scriptable ports.Builder.
type Builder struct {
	CallRecorder

	UpFn       func(ctx context.Context, workspace string, opts ports.UpOptions) (string, error)
	VersionErr error
}

func (b *Builder) Up(ctx context.Context, workspace string, opts ports.UpOptions) (string, error) {
	b.record("Up", workspace, opts.RemoveExisting)
	if b.UpFn != nil {
		return b.UpFn(ctx, workspace, opts)
	}
	return "", nil
}

func (b *Builder) Version(context.Context) (string, error) {
	b.record("Version")
	if b.VersionErr != nil {
		return "", b.VersionErr
	}
	return "0.71.0", nil
}
