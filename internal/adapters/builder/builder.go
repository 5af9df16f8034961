package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

const (
	DefaultBinary = "devcontainer"
	stderrTail    = 3
	maxLineSize   = 1 << 20
)

var _ ports.Builder = (*Adapter)(nil)

// Adapter implements ports.Builder by running the devcontainer CLI
type Adapter struct {
	binary string
}

func NewAdapter(binary string) *Adapter {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Adapter{binary: binary}
}

// tailLines keeps the last n lines written to it.
type tailLines struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func (t *tailLines) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tailLines) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

func notFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func scanLines(r io.Reader, fn func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// Up runs `devcontainer up` for workspace and returns its stdout. stdout and
// stderr are drained concurrently; every line is passed to opts.OnLine.
func (a *Adapter) Up(ctx context.Context, workspace string, opts ports.UpOptions) (string, error) {
	args := []string{"up", "--workspace-folder", workspace}
	if opts.RemoveExisting {
		args = append(args, "--remove-existing-container")
	}

	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.WaitDelay = 2 * time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if notFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrBuilderNotFound, a.binary)
		}
		return "", fmt.Errorf("failed to start %s: %w", a.binary, err)
	}

	var out strings.Builder
	errTail := &tailLines{n: stderrTail}

	// 1. Drain both pipes before Wait closes them.
	var g errgroup.Group
	g.Go(func() error {
		return scanLines(stdout, func(line string) {
			out.WriteString(line)
			out.WriteByte('\n')
			if opts.OnLine != nil {
				opts.OnLine(domain.LogStdout, line)
			}
		})
	})
	g.Go(func() error {
		return scanLines(stderr, func(line string) {
			errTail.add(line)
			if opts.OnLine != nil {
				opts.OnLine(domain.LogStderr, line)
			}
		})
	})
	// A grandchild that inherited the pipes keeps them open after the CLI is
	// killed, so close the read ends once ctx is done.
	drained := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = stdout.Close()
			_ = stderr.Close()
		case <-drained:
		}
	}()
	readErr := g.Wait()
	close(drained)

	// 2. Collect the exit status.
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return "", fmt.Errorf("%w: exit code %d: %s", domain.ErrBuildFailed, exitErr.ExitCode(), errTail)
		}
		return "", fmt.Errorf("failed to run %s: %w", a.binary, waitErr)
	}
	if readErr != nil {
		return "", fmt.Errorf("failed to read %s output: %w", a.binary, readErr)
	}
	return out.String(), nil
}

// Version returns the output of `devcontainer --version`
func (a *Adapter) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, a.binary, "--version").Output()
	if err != nil {
		if notFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrBuilderNotFound, a.binary)
		}
		return "", fmt.Errorf("failed to query %s version: %w", a.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}
