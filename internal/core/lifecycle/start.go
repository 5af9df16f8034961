package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
	"github.com/snjax/nook/internal/core/registry"
)

// Start builds and starts the pod's container and begins monitoring it.
// A pod that is already running or starting is rejected.
func (c *Controller) Start(ctx context.Context, id string) error {
	lock, tok, err := c.markStarting(id)
	if err != nil {
		return err
	}
	c.emitStatus(id, domain.StatusStarting, "")

	lock.Lock()
	defer lock.Unlock()
	return c.bringUp(ctx, id, tok, false)
}

// Rebuild recreates the pod's container from its definition, stopping the
// pod first if needed.
func (c *Controller) Rebuild(ctx context.Context, id string) error {
	pod, ok := c.reg.Get(id)
	if !ok {
		return domain.ErrPodNotFound
	}
	if pod.Status.Active() {
		if err := c.Stop(ctx, id); err != nil {
			return err
		}
	}

	lock, tok, err := c.markStarting(id)
	if err != nil {
		return err
	}
	c.emitStatus(id, domain.StatusStarting, "")

	lock.Lock()
	defer lock.Unlock()
	return c.bringUp(ctx, id, tok, true)
}

// markStarting flips the pod to starting and registers the build token in
// the same registry transaction, so CancelBuild can reach a start that is
// still waiting for the pod lock.
func (c *Controller) markStarting(id string) (*sync.Mutex, *registry.Token, error) {
	var lock *sync.Mutex
	tok := registry.NewToken()
	err := c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		if pod.Status.Active() {
			return domain.ErrAlreadyRunning
		}
		pod.Status = domain.StatusStarting
		pod.ErrorMessage = ""
		lock = tx.PodLock(id)
		tx.SetBuild(id, tok)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lock, tok, nil
}

// bringUp runs the builder under tok and commits the result. The pod lock
// is held.
func (c *Controller) bringUp(ctx context.Context, id string, tok *registry.Token, rebuild bool) error {
	var name, projectPath string
	restarted := false
	err := c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		if tok.Cancelled() || tx.Build(id) != tok {
			if tx.Build(id) == tok {
				tx.TakeBuild(id)
			}
			return domain.ErrBuildCancelled
		}
		if pod.Status != domain.StatusStarting {
			// A stop ran while this start waited for the lock.
			pod.Status = domain.StatusStarting
			restarted = true
		}
		name, projectPath = pod.Name, pod.ProjectPath
		return nil
	})
	if errors.Is(err, domain.ErrBuildCancelled) {
		c.logger.Info("start cancelled before build", "pod", id)
	}
	if err != nil {
		return err
	}
	if restarted {
		c.emitStatus(id, domain.StatusStarting, "")
	}

	out, buildErr := c.runBuild(tok, id, projectPath, rebuild)

	current := false
	_ = c.reg.Update(func(tx *registry.Txn) error {
		if tx.Build(id) == tok {
			tx.TakeBuild(id)
			current = true
		}
		return nil
	})
	if !current || errors.Is(buildErr, domain.ErrBuildCancelled) {
		c.logger.Info("build result discarded", "pod", id)
		return domain.ErrBuildCancelled
	}
	if buildErr != nil {
		return c.fail(id, buildErr)
	}

	res := ParseUpOutput(out)
	if res.ContainerID == "" {
		return c.fail(id, fmt.Errorf("%w: no container id in builder output", domain.ErrBuildFailed))
	}

	var info domain.ContainerInfo
	if c.runtime != nil {
		if info, err = c.runtime.Inspect(ctx, res.ContainerID); err != nil {
			c.logger.Warn("inspect container", "pod", id, "container", res.ContainerID, "err", err)
		}
	}
	user := res.RemoteUser
	if user == "" {
		user = info.User
	}

	cfg, _ := c.loadConfig(ctx, name)
	shell := cfg.Shell
	if shell == "" {
		shell = DetectShell(ctx, c.runtime, res.ContainerID, user)
	}

	now := c.now()
	err = c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		pod.Status = domain.StatusRunning
		pod.ErrorMessage = ""
		pod.ContainerID = res.ContainerID
		if info.Image != "" {
			pod.Image = info.Image
		}
		pod.ContainerName = strings.TrimPrefix(info.Name, "/")
		pod.RemoteUser = user
		pod.RemoteWorkspaceFolder = res.RemoteWorkspaceFolder
		pod.DefaultShell = shell
		pod.StartedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	c.rememberLearned(ctx, cfg, name, projectPath, user, res.RemoteWorkspaceFolder, shell)
	c.emitStatus(id, domain.StatusRunning, "")
	c.logger.Info("pod running", "pod", id, "container", res.ContainerID)

	if !c.monitor.Start(id, res.ContainerID) {
		c.logger.Warn("monitoring not started", "pod", id)
	}
	return nil
}

type buildResult struct {
	out string
	err error
}

// runBuild invokes the builder under the build token and the build timeout.
// The timeout wins even if the builder ignores its context.
func (c *Controller) runBuild(tok *registry.Token, id, projectPath string, rebuild bool) (string, error) {
	if c.builder == nil {
		return "", domain.ErrBuilderNotFound
	}
	timeout := c.options().BuildTimeout
	ctx, cancel := context.WithTimeout(tok.Context(), timeout)
	defer cancel()

	opts := ports.UpOptions{RemoveExisting: rebuild}
	if !rebuild {
		opts.OnLine = c.buildLogWriter(id)
	}

	done := make(chan buildResult, 1)
	go func() {
		out, err := c.builder.Up(ctx, projectPath, opts)
		done <- buildResult{out: out, err: err}
	}()

	var r buildResult
	select {
	case r = <-done:
	case <-ctx.Done():
	}
	switch {
	case tok.Cancelled():
		return "", domain.ErrBuildCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s", domain.ErrBuildTimeout, timeout)
	case r.err != nil:
		return "", r.err
	}
	return r.out, nil
}

// buildLogWriter records builder output lines as build log entries.
func (c *Controller) buildLogWriter(id string) func(domain.LogLevel, string) {
	return func(level domain.LogLevel, line string) {
		entry := domain.LogEntry{
			Timestamp: c.now(),
			Message:   line,
			Source:    domain.LogSourceBuild,
			Level:     level,
		}
		if !c.reg.AppendLogs(id, []domain.LogEntry{entry}) {
			return
		}
		c.publish(domain.Event{Type: domain.EventLogBatch, PodID: id, Payload: domain.LogBatch{Entries: []domain.LogEntry{entry}}})
	}
}

func (c *Controller) fail(id string, err error) error {
	msg := err.Error()
	_ = c.reg.Update(func(tx *registry.Txn) error {
		if pod, ok := tx.Pod(id); ok {
			pod.Status = domain.StatusError
			pod.ErrorMessage = msg
		}
		return nil
	})
	c.logger.Error("start pod", "pod", id, "err", err)
	c.emitStatus(id, domain.StatusError, msg)
	return err
}

func (c *Controller) loadConfig(ctx context.Context, name string) (domain.PodConfig, bool) {
	if c.store == nil {
		return domain.PodConfig{}, false
	}
	cfg, ok, err := c.store.Load(ctx, name)
	if err != nil {
		c.logger.Warn("load pod config", "name", name, "err", err)
		return domain.PodConfig{}, false
	}
	return cfg, ok
}

// rememberLearned fills empty fields of the saved config with values
// discovered while starting. Existing values are never overwritten.
func (c *Controller) rememberLearned(ctx context.Context, cfg domain.PodConfig, name, projectPath, user, workdir, shell string) {
	if c.store == nil {
		return
	}
	changed := false
	if cfg.Name == "" {
		cfg.Name, cfg.ProjectPath = name, projectPath
		changed = true
	}
	if cfg.RemoteUser == "" && user != "" {
		cfg.RemoteUser = user
		changed = true
	}
	if cfg.WorkingDir == "" && workdir != "" {
		cfg.WorkingDir = workdir
		changed = true
	}
	if cfg.Shell == "" && IsRealShell(shell) {
		cfg.Shell = shell
		changed = true
	}
	if !changed {
		return
	}
	cfg.UpdatedAt = c.now()
	if err := c.store.Save(ctx, cfg); err != nil {
		c.logger.Warn("save pod config", "name", name, "err", err)
	}
}
