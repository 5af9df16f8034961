// Package monitor runs the per-pod background tasks that keep a running pod's
// resource usage, logs, processes and listening ports current.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
	"github.com/snjax/nook/internal/core/registry"
)

// Options tune the monitoring tasks.
type Options struct {
	ProcessInterval  time.Duration
	PortInterval     time.Duration
	LogTail          int
	LogBatchSize     int
	LogFlushInterval time.Duration
	// PortProtocols overrides protocol detection per container port.
	PortProtocols map[uint16]string
}

func DefaultOptions() Options {
	return Options{
		ProcessInterval:  5 * time.Second,
		PortInterval:     3 * time.Second,
		LogTail:          100,
		LogBatchSize:     50,
		LogFlushInterval: 200 * time.Millisecond,
	}
}

// Supervisor starts monitoring task groups. Each group is guarded by one
// registry token; cancelling the token stops all four tasks.
type Supervisor struct {
	reg      *registry.Registry
	runtime  ports.ContainerRuntime
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	opts Options
}

func NewSupervisor(reg *registry.Registry, runtime ports.ContainerRuntime, notifier ports.Notifier, opts Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		reg:      reg,
		runtime:  runtime,
		notifier: notifier,
		logger:   logger.With("component", "monitor"),
		now:      time.Now,
		opts:     opts,
	}
}

// SetOptions applies to monitoring groups started afterwards.
func (s *Supervisor) SetOptions(opts Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

func (s *Supervisor) options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.opts
	d := DefaultOptions()
	if o.ProcessInterval <= 0 {
		o.ProcessInterval = d.ProcessInterval
	}
	if o.PortInterval <= 0 {
		o.PortInterval = d.PortInterval
	}
	if o.LogTail <= 0 {
		o.LogTail = d.LogTail
	}
	if o.LogBatchSize <= 0 {
		o.LogBatchSize = d.LogBatchSize
	}
	if o.LogFlushInterval <= 0 {
		o.LogFlushInterval = d.LogFlushInterval
	}
	return o
}

// Start launches the stats, log, process and port tasks for a pod and
// registers their token, replacing any previous group. Monitoring is best
// effort: it reports false and does nothing without a runtime or container.
func (s *Supervisor) Start(podID, containerID string) bool {
	if s.runtime == nil || containerID == "" {
		return false
	}
	opts := s.options()

	tok := registry.NewToken()
	registered := false
	_ = s.reg.Update(func(tx *registry.Txn) error {
		if _, ok := tx.Pod(podID); !ok {
			return nil
		}
		tx.SetMonitor(podID, tok)
		registered = true
		return nil
	})
	if !registered {
		return false
	}

	s.logger.Debug("monitoring started", "pod", podID, "container", containerID)
	tok.Go(func(ctx context.Context) { s.streamStats(ctx, podID, containerID) })
	tok.Go(func(ctx context.Context) { s.streamLogs(ctx, podID, containerID, opts) })
	tok.Go(func(ctx context.Context) { s.pollProcesses(ctx, podID, containerID, opts) })
	tok.Go(func(ctx context.Context) { s.scanPorts(ctx, podID, containerID, opts) })
	return true
}

// commit applies fn to the pod unless monitoring was cancelled or the pod is
// gone. Both are checked under the registry lock, which is also where stop
// cancels the token, so no write lands after cancellation.
func (s *Supervisor) commit(ctx context.Context, podID string, fn func(tx *registry.Txn, pod *domain.Pod)) bool {
	ok := false
	_ = s.reg.Update(func(tx *registry.Txn) error {
		if ctx.Err() != nil {
			return nil
		}
		pod, found := tx.Pod(podID)
		if !found {
			return nil
		}
		fn(tx, pod)
		ok = true
		return nil
	})
	return ok
}

func (s *Supervisor) emit(ctx context.Context, ev domain.Event) {
	if s.notifier == nil || ctx.Err() != nil {
		return
	}
	if err := s.notifier.Publish(ev); err != nil {
		s.logger.Warn("publish event", "type", ev.Type, "pod", ev.PodID, "err", err)
	}
}
