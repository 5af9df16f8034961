package fake

import (
	"context"
	"sync"
	"time"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.ContainerRuntime = (*Runtime)(nil)

// Runtime is a scriptable ContainerRuntime. Unset hooks return zero values;
// Stats and Logs streams stay open until ctx is done.
type Runtime struct {
	CallRecorder

	mu         sync.Mutex
	containers map[string]domain.ContainerInfo
	Managed    []domain.Container

	PingErr   error
	InspectFn func(ctx context.Context, id string) (domain.ContainerInfo, error)
	StopFn    func(ctx context.Context, id string) error
	KillErr   error
	RemoveErr error
	StatsFn   func(ctx context.Context, id string) (<-chan domain.ResourceSample, error)
	LogsFn    func(ctx context.Context, id string, tail int) (<-chan domain.LogChunk, error)
	TopFn     func(ctx context.Context, id string) (domain.ProcessTable, error)
	ExecFn    func(ctx context.Context, id, user string, cmd []string) (string, error)
}

func NewRuntime() *Runtime {
	return &Runtime{containers: make(map[string]domain.ContainerInfo)}
}

// AddContainer registers a container that Inspect will find.
func (r *Runtime) AddContainer(info domain.ContainerInfo) {
	r.mu.Lock()
	r.containers[info.ID] = info
	r.mu.Unlock()
}

func (r *Runtime) Ping(context.Context) (string, error) {
	r.record("Ping")
	return "1.47", r.PingErr
}

func (r *Runtime) ListManaged(context.Context) ([]domain.Container, error) {
	r.record("ListManaged")
	return r.Managed, nil
}

func (r *Runtime) Inspect(ctx context.Context, id string) (domain.ContainerInfo, error) {
	r.record("Inspect", id)
	if r.InspectFn != nil {
		return r.InspectFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.containers[id]
	if !ok {
		return domain.ContainerInfo{}, domain.ErrContainerNotFound
	}
	return info, nil
}

func (r *Runtime) Start(_ context.Context, id string) error {
	r.record("Start", id)
	return nil
}

func (r *Runtime) Stop(ctx context.Context, id string, grace time.Duration) error {
	r.record("Stop", id, grace)
	if r.StopFn != nil {
		return r.StopFn(ctx, id)
	}
	return nil
}

func (r *Runtime) Kill(_ context.Context, id string) error {
	r.record("Kill", id)
	return r.KillErr
}

func (r *Runtime) Remove(_ context.Context, id string, removeVolumes bool) error {
	r.record("Remove", id, removeVolumes)
	return r.RemoveErr
}

func (r *Runtime) Stats(ctx context.Context, id string) (<-chan domain.ResourceSample, error) {
	r.record("Stats", id)
	if r.StatsFn != nil {
		return r.StatsFn(ctx, id)
	}
	ch := make(chan domain.ResourceSample)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (r *Runtime) Logs(ctx context.Context, id string, tail int) (<-chan domain.LogChunk, error) {
	r.record("Logs", id, tail)
	if r.LogsFn != nil {
		return r.LogsFn(ctx, id, tail)
	}
	ch := make(chan domain.LogChunk)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (r *Runtime) Top(ctx context.Context, id string, _ ...string) (domain.ProcessTable, error) {
	r.record("Top", id)
	if r.TopFn != nil {
		return r.TopFn(ctx, id)
	}
	return domain.ProcessTable{}, nil
}

func (r *Runtime) Exec(ctx context.Context, id, user string, cmd []string) (string, error) {
	r.record("Exec", id, user, cmd)
	if r.ExecFn != nil {
		return r.ExecFn(ctx, id, user, cmd)
	}
	return "", nil
}
