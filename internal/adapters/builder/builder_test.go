package builder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

// fakeCLI writes an executable shell script standing in for the devcontainer CLI.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devcontainer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestUpSuccess(t *testing.T) {
	bin := fakeCLI(t, `
echo "[1 ms] Start: Run: docker build" >&2
echo "building"
echo "args: $*" >&2
echo '{"outcome":"success","containerId":"abc123"}'
`)
	var (
		mu    sync.Mutex
		lines []string
	)
	out, err := NewAdapter(bin).Up(context.Background(), "/home/dev/web", ports.UpOptions{
		RemoveExisting: true,
		OnLine: func(level domain.LogLevel, line string) {
			mu.Lock()
			lines = append(lines, string(level)+": "+line)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"containerId":"abc123"`)
	assert.Contains(t, out, "building\n")
	assert.NotContains(t, out, "Start: Run")

	assert.Contains(t, lines, "stdout: building")
	assert.Contains(t, lines, "stderr: args: up --workspace-folder /home/dev/web --remove-existing-container")
}

func TestUpFailureKeepsStderrTail(t *testing.T) {
	bin := fakeCLI(t, `
echo one >&2
echo two >&2
echo three >&2
echo four >&2
exit 3
`)
	_, err := NewAdapter(bin).Up(context.Background(), "/w", ports.UpOptions{})
	require.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, err.Error(), "exit code 3")
	assert.Contains(t, err.Error(), "two\nthree\nfour")
	assert.NotContains(t, err.Error(), "one")
}

func TestUpMissingBinary(t *testing.T) {
	_, err := NewAdapter(filepath.Join(t.TempDir(), "nope")).Up(context.Background(), "/w", ports.UpOptions{})
	assert.ErrorIs(t, err, domain.ErrBuilderNotFound)

	_, err = NewAdapter("nook-devcontainer-missing").Up(context.Background(), "/w", ports.UpOptions{})
	assert.ErrorIs(t, err, domain.ErrBuilderNotFound)
}

func TestUpCancelled(t *testing.T) {
	bin := fakeCLI(t, "exec sleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewAdapter(bin).Up(ctx, "/w", ports.UpOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestUpCancelledWhileChildHoldsOutput(t *testing.T) {
	bin := fakeCLI(t, "(sleep 5) &\necho started\nsleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := NewAdapter(bin).Up(ctx, "/w", ports.UpOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestVersion(t *testing.T) {
	bin := fakeCLI(t, `echo "0.71.0"`)
	v, err := NewAdapter(bin).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.71.0", v)

	_, err = NewAdapter("nook-devcontainer-missing").Version(context.Background())
	assert.ErrorIs(t, err, domain.ErrBuilderNotFound)
}
