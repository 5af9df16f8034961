package ports

import (
	"context"

	"github.com/snjax/nook/internal/core/domain"
)

// PodConfigStore persists per-pod configuration keyed by pod name.
type PodConfigStore interface {
	Load(ctx context.Context, name string) (domain.PodConfig, bool, error)
	Save(ctx context.Context, cfg domain.PodConfig) error
	Delete(ctx context.Context, name string) error
	FindByProjectPath(ctx context.Context, path string) (domain.PodConfig, bool, error)
	List(ctx context.Context) ([]domain.PodConfig, error)
}

// WorkspaceInspector reads project metadata from a workspace directory.
type WorkspaceInspector interface {
	Inspect(path string) (domain.Workspace, error)
}
