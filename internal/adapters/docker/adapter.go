package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.ContainerRuntime = (*Adapter)(nil)

// Adapter implements ports.ContainerRuntime using the Docker SDK
type Adapter struct {
	cli *client.Client
}

// NewAdapter creates a Docker adapter. An empty host uses DOCKER_HOST and the
// default socket.
func NewAdapter(host string) (*Adapter, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

func (a *Adapter) Close() error {
	return a.cli.Close()
}

// wrap maps Docker "not found" errors onto the domain sentinel.
func wrap(op, id string, err error) error {
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to %s container %q: %w", op, id, domain.ErrContainerNotFound)
	}
	return fmt.Errorf("failed to %s container %q: %w", op, id, err)
}

// Ping checks the daemon and returns its API version
func (a *Adapter) Ping(ctx context.Context) (string, error) {
	p, err := a.cli.Ping(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to ping docker daemon: %w", err)
	}
	return p.APIVersion, nil
}

// ListManaged returns all containers created by the devcontainer CLI
func (a *Adapter) ListManaged(ctx context.Context) ([]domain.Container, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelLocalFolder)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		meta := ParseMetadata(c.Labels[LabelMetadata])
		result = append(result, domain.Container{
			ID:                    c.ID,
			Name:                  name,
			Image:                 c.Image,
			State:                 string(c.State),
			ProjectPath:           c.Labels[LabelLocalFolder],
			RemoteUser:            meta.RemoteUser,
			RemoteWorkspaceFolder: meta.RemoteWorkspaceFolder,
		})
	}
	return result, nil
}

// Inspect returns image, name, user and network address of a container
func (a *Adapter) Inspect(ctx context.Context, id string) (domain.ContainerInfo, error) {
	resp, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return domain.ContainerInfo{}, wrap("inspect", id, err)
	}

	info := domain.ContainerInfo{ID: id}
	if resp.ContainerJSONBase != nil {
		info.ID = resp.ID
		info.Name = strings.TrimPrefix(resp.Name, "/")
		if resp.State != nil {
			info.Running = resp.State.Running
		}
	}
	if resp.Config != nil {
		info.Image = resp.Config.Image
		info.User = resp.Config.User
	}
	if ns := resp.NetworkSettings; ns != nil {
		// Prefer the default bridge address, then any attached network.
		info.IPAddress = ns.IPAddress
		if info.IPAddress == "" {
			for _, ep := range ns.Networks {
				if ep != nil && ep.IPAddress != "" {
					info.IPAddress = ep.IPAddress
					break
				}
			}
		}
	}
	return info, nil
}

// Start starts an existing container
func (a *Adapter) Start(ctx context.Context, id string) error {
	if err := a.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return wrap("start", id, err)
	}
	return nil
}

// Stop asks the container to exit, killing it after grace
func (a *Adapter) Stop(ctx context.Context, id string, grace time.Duration) error {
	secs := int(grace.Seconds())
	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return wrap("stop", id, err)
	}
	return nil
}

// Kill sends SIGKILL to the container
func (a *Adapter) Kill(ctx context.Context, id string) error {
	if err := a.cli.ContainerKill(ctx, id, "SIGKILL"); err != nil {
		return wrap("kill", id, err)
	}
	return nil
}

// Remove force-removes the container, optionally with its anonymous volumes
func (a *Adapter) Remove(ctx context.Context, id string, removeVolumes bool) error {
	err := a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: removeVolumes})
	if err != nil {
		return wrap("remove", id, err)
	}
	return nil
}
