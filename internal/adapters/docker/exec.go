package docker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/snjax/nook/internal/core/domain"
)

// Top lists processes in the container, `ps` style
func (a *Adapter) Top(ctx context.Context, id string, args ...string) (domain.ProcessTable, error) {
	resp, err := a.cli.ContainerTop(ctx, id, args)
	if err != nil {
		return domain.ProcessTable{}, wrap("list processes of", id, err)
	}
	return domain.ProcessTable{Titles: resp.Titles, Rows: resp.Processes}, nil
}

// Exec runs cmd in the container and returns stdout and stderr combined.
// The exit code is not checked; callers parse the output.
func (a *Adapter) Exec(ctx context.Context, id, user string, cmd []string) (string, error) {
	created, err := a.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		User:         user,
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", wrap("exec in", id, err)
	}

	resp, err := a.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to attach to exec %s: %w", created.ID, err)
	}
	defer resp.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, resp.Reader); err != nil {
		return out.String(), fmt.Errorf("failed to read exec output: %w", err)
	}
	return out.String(), nil
}
