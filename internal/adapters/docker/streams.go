package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/snjax/nook/internal/core/domain"
)

func cpuCounters(c container.CPUStats) domain.CPUCounters {
	return domain.CPUCounters{
		Total:      c.CPUUsage.TotalUsage,
		System:     c.SystemUsage,
		OnlineCPUs: c.OnlineCPUs,
		PerCPU:     len(c.CPUUsage.PercpuUsage),
	}
}

func statsSample(f container.StatsResponse) domain.ResourceSample {
	return domain.ResourceSample{
		CPU:         cpuCounters(f.CPUStats),
		PreCPU:      cpuCounters(f.PreCPUStats),
		MemoryUsed:  f.MemoryStats.Usage,
		MemoryLimit: f.MemoryStats.Limit,
	}
}

// decodeStats reads frames from r until it fails or ctx is done.
func decodeStats(ctx context.Context, r io.Reader, out chan<- domain.ResourceSample) error {
	dec := json.NewDecoder(r)
	for {
		var f container.StatsResponse
		if err := dec.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		select {
		case out <- statsSample(f):
		case <-ctx.Done():
			return nil
		}
	}
}

// Stats streams resource usage until ctx is done or the stream ends
func (a *Adapter) Stats(ctx context.Context, id string) (<-chan domain.ResourceSample, error) {
	resp, err := a.cli.ContainerStats(ctx, id, true)
	if err != nil {
		return nil, wrap("stream stats of", id, err)
	}

	ch := make(chan domain.ResourceSample)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		if err := decodeStats(ctx, resp.Body, ch); err != nil && ctx.Err() == nil {
			slog.Debug("stats stream ended", "container", id, "err", err)
		}
	}()
	return ch, nil
}

// lineWriter turns writes into one LogChunk per complete line.
type lineWriter struct {
	ctx   context.Context
	level domain.LogLevel
	out   chan<- domain.LogChunk
	buf   bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(w.buf.Next(i + 1))
		if err := w.send(line); err != nil {
			return 0, err
		}
	}
}

func (w *lineWriter) send(line string) error {
	select {
	case w.out <- domain.LogChunk{Level: w.level, Data: line}:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// Flush emits a trailing partial line.
func (w *lineWriter) Flush() {
	if w.buf.Len() > 0 {
		_ = w.send(w.buf.String())
		w.buf.Reset()
	}
}

// Logs follows stdout and stderr of the container, starting tail lines back
func (a *Adapter) Logs(ctx context.Context, id string, tail int) (<-chan domain.LogChunk, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, wrap("inspect", id, err)
	}
	tty := info.Config != nil && info.Config.Tty

	rc, err := a.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, wrap("stream logs of", id, err)
	}

	ch := make(chan domain.LogChunk)
	go func() {
		defer close(ch)
		defer rc.Close()

		stdout := &lineWriter{ctx: ctx, level: domain.LogStdout, out: ch}
		stderr := &lineWriter{ctx: ctx, level: domain.LogStderr, out: ch}
		// TTY containers have a single raw stream.
		var copyErr error
		if tty {
			_, copyErr = io.Copy(stdout, rc)
		} else {
			_, copyErr = stdcopy.StdCopy(stdout, stderr, rc)
		}
		if ctx.Err() != nil {
			return
		}
		if copyErr != nil {
			slog.Debug("log stream ended", "container", id, "err", copyErr)
		}
		stdout.Flush()
		stderr.Flush()
	}()
	return ch, nil
}
