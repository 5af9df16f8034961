// Package lifecycle drives pods through start, stop, rebuild and removal.
//
// The registry lock is held only for bookkeeping and released before any
// call to the runtime, builder or store. Operations on the same pod are
// serialized by the pod's own lock, which is held across those calls.
package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/monitor"
	"github.com/snjax/nook/internal/core/ports"
	"github.com/snjax/nook/internal/core/registry"
)

const (
	DefaultBuildTimeout = 180 * time.Second
	DefaultStopGrace    = 10 * time.Second
	DefaultLogsTail     = 500
)

type Options struct {
	BuildTimeout time.Duration
	StopGrace    time.Duration
}

// Deps are the collaborators of a Controller. Runtime, Builder, Store and
// Workspace may be nil; operations needing a missing one fail or degrade.
type Deps struct {
	Registry  *registry.Registry
	Runtime   ports.ContainerRuntime
	Builder   ports.Builder
	Store     ports.PodConfigStore
	Workspace ports.WorkspaceInspector
	Notifier  ports.Notifier
	Monitor   *monitor.Supervisor
	Logger    *slog.Logger
}

type Controller struct {
	reg       *registry.Registry
	runtime   ports.ContainerRuntime
	builder   ports.Builder
	store     ports.PodConfigStore
	workspace ports.WorkspaceInspector
	notifier  ports.Notifier
	monitor   *monitor.Supervisor
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	opts Options
}

func New(deps Deps, opts Options) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = registry.New(registry.DefaultLogCapacity)
	}
	mon := deps.Monitor
	if mon == nil {
		mon = monitor.NewSupervisor(reg, deps.Runtime, deps.Notifier, monitor.DefaultOptions(), logger)
	}
	c := &Controller{
		reg:       reg,
		runtime:   deps.Runtime,
		builder:   deps.Builder,
		store:     deps.Store,
		workspace: deps.Workspace,
		notifier:  deps.Notifier,
		monitor:   mon,
		logger:    logger.With("component", "lifecycle"),
		now:       time.Now,
	}
	c.SetOptions(opts)
	return c
}

func (c *Controller) SetOptions(opts Options) {
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()
}

func (c *Controller) options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Registry exposes the shared pod registry to other components.
func (c *Controller) Registry() *registry.Registry { return c.reg }

func (c *Controller) publish(ev domain.Event) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ev); err != nil {
		c.logger.Warn("publish event", "type", ev.Type, "pod", ev.PodID, "err", err)
	}
}

func (c *Controller) emitStatus(id string, status domain.PodStatus, msg string) {
	c.publish(domain.Event{
		Type:    domain.EventStatusChanged,
		PodID:   id,
		Payload: domain.StatusChanged{Status: status, ErrorMessage: msg},
	})
}

// cancelBackground cancels and detaches the pod's monitoring and proxy
// tokens. Call inside Update; wait on the result after releasing the lock.
func cancelBackground(tx *registry.Txn, id string) []*registry.Token {
	var tokens []*registry.Token
	if t := tx.TakeMonitor(id); t != nil {
		tokens = append(tokens, t)
	}
	tokens = append(tokens, tx.TakeProxies(id)...)
	for _, t := range tokens {
		t.Cancel()
	}
	return tokens
}

func waitAll(tokens []*registry.Token) {
	for _, t := range tokens {
		t.Wait()
	}
}
