package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

const unnamedPod = "unnamed"

func podName(path string) string {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return unnamedPod
	}
	return name
}

// AddPod registers the workspace at path as a stopped pod. Registering a
// path twice returns the existing pod.
func (c *Controller) AddPod(ctx context.Context, path string) (domain.Pod, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Pod{}, fmt.Errorf("resolve workspace path %q: %w", path, err)
	}

	ws := domain.Workspace{Path: abs, Name: podName(abs)}
	if c.workspace != nil {
		if ws, err = c.workspace.Inspect(abs); err != nil {
			return domain.Pod{}, fmt.Errorf("inspect workspace %q: %w", abs, err)
		}
		if ws.Name == "" {
			ws.Name = podName(abs)
		}
	}

	pod := domain.Pod{
		ID:                    uuid.NewString(),
		Name:                  ws.Name,
		ProjectPath:           abs,
		Status:                domain.StatusStopped,
		GitBranch:             ws.Branch,
		RemoteUser:            ws.RemoteUser,
		RemoteWorkspaceFolder: ws.WorkspaceFolder,
	}
	c.applySavedConfig(ctx, &pod)

	var existing *domain.Pod
	_ = c.reg.Update(func(tx *registry.Txn) error {
		if p, ok := tx.FindPod(func(p *domain.Pod) bool { return p.ProjectPath == abs }); ok {
			cp := p.Clone()
			existing = &cp
			return nil
		}
		tx.Insert(pod)
		return nil
	})
	if existing != nil {
		return *existing, nil
	}

	c.logger.Info("pod added", "pod", pod.ID, "name", pod.Name, "path", abs)
	return pod, nil
}

// applySavedConfig merges the saved config for the pod's workspace into pod,
// or saves a fresh one when there is none.
func (c *Controller) applySavedConfig(ctx context.Context, pod *domain.Pod) {
	if c.store == nil {
		return
	}
	cfg, ok, err := c.store.FindByProjectPath(ctx, pod.ProjectPath)
	if err != nil {
		c.logger.Warn("find pod config", "path", pod.ProjectPath, "err", err)
		return
	}
	if !ok {
		cfg = domain.PodConfig{Name: pod.Name, ProjectPath: pod.ProjectPath, UpdatedAt: c.now()}
		if err := c.store.Save(ctx, cfg); err != nil {
			c.logger.Warn("save pod config", "name", pod.Name, "err", err)
		}
		return
	}
	if cfg.Name != "" {
		pod.Name = cfg.Name
	}
	applyOverrides(pod, cfg)
}

func applyOverrides(pod *domain.Pod, cfg domain.PodConfig) {
	pod.Alias = cfg.Alias
	if cfg.RemoteUser != "" {
		pod.RemoteUser = cfg.RemoteUser
	}
	if cfg.WorkingDir != "" {
		pod.RemoteWorkspaceFolder = cfg.WorkingDir
	}
	if cfg.Shell != "" {
		pod.DefaultShell = cfg.Shell
	}
}

func (c *Controller) ListPods() []domain.Pod {
	return c.reg.List()
}

func (c *Controller) GetPod(id string) (domain.Pod, error) {
	pod, ok := c.reg.Get(id)
	if !ok {
		return domain.Pod{}, domain.ErrPodNotFound
	}
	return pod, nil
}

// Logs returns up to tail of the pod's most recent log entries, restricted to
// those containing filter when it is set. tail <= 0 means DefaultLogsTail.
func (c *Controller) Logs(id string, tail int, filter string) ([]domain.LogEntry, error) {
	if tail <= 0 {
		tail = DefaultLogsTail
	}
	var out []domain.LogEntry
	err := c.reg.Update(func(tx *registry.Txn) error {
		if _, ok := tx.Pod(id); !ok {
			return domain.ErrPodNotFound
		}
		buf := tx.Logs(id)
		if filter == "" {
			out = buf.Tail(tail)
			return nil
		}
		out = buf.Search(filter)
		if len(out) > tail {
			out = out[len(out)-tail:]
		}
		return nil
	})
	return out, err
}

func (c *Controller) ClearLogs(id string) error {
	return c.reg.Update(func(tx *registry.Txn) error {
		if _, ok := tx.Pod(id); !ok {
			return domain.ErrPodNotFound
		}
		tx.Logs(id).Clear()
		return nil
	})
}

// PodSettings returns the saved configuration of a pod, or an empty one
// bound to the pod when nothing was saved yet.
func (c *Controller) PodSettings(ctx context.Context, id string) (domain.PodConfig, error) {
	pod, ok := c.reg.Get(id)
	if !ok {
		return domain.PodConfig{}, domain.ErrPodNotFound
	}
	if c.store == nil {
		return domain.PodConfig{Name: pod.Name, ProjectPath: pod.ProjectPath}, nil
	}
	cfg, found, err := c.store.Load(ctx, pod.Name)
	if err != nil {
		return domain.PodConfig{}, fmt.Errorf("load pod config %q: %w", pod.Name, err)
	}
	if !found {
		cfg = domain.PodConfig{Name: pod.Name, ProjectPath: pod.ProjectPath}
	}
	return cfg, nil
}

// SavePodSettings persists cfg for the pod and applies its overrides to the
// live pod.
func (c *Controller) SavePodSettings(ctx context.Context, id string, cfg domain.PodConfig) (domain.Pod, error) {
	pod, ok := c.reg.Get(id)
	if !ok {
		return domain.Pod{}, domain.ErrPodNotFound
	}
	cfg.Name = pod.Name
	cfg.ProjectPath = pod.ProjectPath
	cfg.Alias = strings.TrimSpace(cfg.Alias)
	cfg.UpdatedAt = c.now()
	if c.store != nil {
		if err := c.store.Save(ctx, cfg); err != nil {
			return domain.Pod{}, fmt.Errorf("save pod config %q: %w", cfg.Name, err)
		}
	}

	var updated domain.Pod
	err := c.reg.Update(func(tx *registry.Txn) error {
		p, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		applyOverrides(p, cfg)
		updated = p.Clone()
		return nil
	})
	return updated, err
}

// Discover registers devcontainers that already exist on the runtime and
// starts monitoring the running ones. It returns the number of pods added.
func (c *Controller) Discover(ctx context.Context) (int, error) {
	if c.runtime == nil {
		return 0, domain.ErrRuntimeUnavailable
	}
	containers, err := c.runtime.ListManaged(ctx)
	if err != nil {
		return 0, fmt.Errorf("list devcontainers: %w", err)
	}

	added := 0
	for _, ctr := range containers {
		if ctr.ProjectPath == "" {
			continue
		}
		known := false
		_ = c.reg.Update(func(tx *registry.Txn) error {
			_, known = tx.FindPod(func(p *domain.Pod) bool {
				return p.ContainerID == ctr.ID || p.ProjectPath == ctr.ProjectPath
			})
			return nil
		})
		if known {
			continue
		}

		pod := c.discoveredPod(ctx, ctr)
		_ = c.reg.Update(func(tx *registry.Txn) error {
			tx.Insert(pod)
			return nil
		})
		added++
		c.logger.Info("pod discovered", "pod", pod.ID, "name", pod.Name, "status", pod.Status)

		if pod.Status == domain.StatusRunning && !c.monitor.Start(pod.ID, pod.ContainerID) {
			c.logger.Warn("monitoring not started", "pod", pod.ID)
		}
	}
	return added, nil
}

func (c *Controller) discoveredPod(ctx context.Context, ctr domain.Container) domain.Pod {
	pod := domain.Pod{
		ID:                    uuid.NewString(),
		Name:                  podName(ctr.ProjectPath),
		ProjectPath:           ctr.ProjectPath,
		Image:                 ctr.Image,
		Status:                domain.StatusStopped,
		ContainerID:           ctr.ID,
		ContainerName:         strings.TrimPrefix(ctr.Name, "/"),
		RemoteUser:            ctr.RemoteUser,
		RemoteWorkspaceFolder: ctr.RemoteWorkspaceFolder,
	}
	if c.workspace != nil {
		if ws, err := c.workspace.Inspect(ctr.ProjectPath); err == nil {
			pod.GitBranch = ws.Branch
			if pod.RemoteUser == "" {
				pod.RemoteUser = ws.RemoteUser
			}
			if pod.RemoteWorkspaceFolder == "" {
				pod.RemoteWorkspaceFolder = ws.WorkspaceFolder
			}
		}
	}
	c.applySavedConfig(ctx, &pod)

	if ctr.Running() {
		now := c.now()
		pod.Status = domain.StatusRunning
		pod.StartedAt = &now
		if pod.DefaultShell == "" {
			pod.DefaultShell = DetectShell(ctx, c.runtime, ctr.ID, pod.RemoteUser)
		}
	}
	return pod
}

// CheckDependencies checks the container runtime and the devcontainer CLI.
func (c *Controller) CheckDependencies(ctx context.Context) []domain.DependencyCheck {
	runtime := domain.DependencyCheck{Name: "docker"}
	if c.runtime == nil {
		runtime.Detail = domain.ErrRuntimeUnavailable.Error()
	} else if v, err := c.runtime.Ping(ctx); err != nil {
		runtime.Detail = err.Error()
	} else {
		runtime.Satisfied, runtime.Version = true, v
	}

	builder := domain.DependencyCheck{Name: "devcontainer"}
	if c.builder == nil {
		builder.Detail = domain.ErrBuilderNotFound.Error()
	} else if v, err := c.builder.Version(ctx); err != nil {
		builder.Detail = err.Error()
	} else {
		builder.Satisfied, builder.Version = true, v
	}
	return []domain.DependencyCheck{runtime, builder}
}
