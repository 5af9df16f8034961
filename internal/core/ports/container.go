package ports

import (
	"context"
	"time"

	"github.com/snjax/nook/internal/core/domain"
)

// ContainerRuntime defines the container operations the orchestrator needs.
// This interface keeps the core independent of Docker, so Podman or a fake
// can stand in without changing lifecycle logic.
type ContainerRuntime interface {
	Ping(ctx context.Context) (string, error)
	// ListManaged returns every container created from a devcontainer
	// definition, running or not.
	ListManaged(ctx context.Context) ([]domain.Container, error)
	Inspect(ctx context.Context, id string) (domain.ContainerInfo, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, grace time.Duration) error
	Kill(ctx context.Context, id string) error
	Remove(ctx context.Context, id string, removeVolumes bool) error

	// Stats streams resource samples until ctx is done or the stream ends,
	// then closes the channel.
	Stats(ctx context.Context, id string) (<-chan domain.ResourceSample, error)
	// Logs follows container output starting tail lines back. The channel
	// is closed when the stream ends.
	Logs(ctx context.Context, id string, tail int) (<-chan domain.LogChunk, error)
	Top(ctx context.Context, id string, args ...string) (domain.ProcessTable, error)
	// Exec runs cmd inside the container as user and returns its combined
	// output.
	Exec(ctx context.Context, id, user string, cmd []string) (string, error)
}
