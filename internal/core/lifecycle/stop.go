package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

// Stop gracefully stops the pod's container. Monitoring and port proxies are
// cancelled before the runtime is asked to stop. A runtime failure is logged
// and the pod still ends up stopped.
func (c *Controller) Stop(ctx context.Context, id string) error {
	var (
		lock   *sync.Mutex
		tokens []*registry.Token
	)
	err := c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		pod.Status = domain.StatusStopping
		lock = tx.PodLock(id)
		tokens = cancelBackground(tx, id)
		return nil
	})
	if err != nil {
		return err
	}
	c.emitStatus(id, domain.StatusStopping, "")

	lock.Lock()
	defer lock.Unlock()

	// A start that held the lock may have begun monitoring meanwhile.
	containerID, late, err := c.detachBackground(id)
	if err != nil {
		return err
	}
	waitAll(append(tokens, late...))

	if containerID != "" && c.runtime != nil {
		if err := c.runtime.Stop(ctx, containerID, c.options().StopGrace); err != nil {
			c.logger.Warn("stop container", "pod", id, "container", containerID, "err", err)
		}
	}
	c.markStopped(id)
	return nil
}

// ForceStop kills the pod's container immediately. It does not wait for the
// pod lock, so it can interrupt a stop that hangs.
func (c *Controller) ForceStop(ctx context.Context, id string) error {
	containerID, tokens, err := c.detachBackground(id)
	if err != nil {
		return err
	}
	waitAll(tokens)

	if containerID != "" && c.runtime != nil {
		if err := c.runtime.Kill(ctx, containerID); err != nil {
			c.logger.Warn("kill container", "pod", id, "container", containerID, "err", err)
		}
	}
	c.markStopped(id)
	return nil
}

// Restart stops then starts the pod.
func (c *Controller) Restart(ctx context.Context, id string) error {
	if err := c.Stop(ctx, id); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return c.Start(ctx, id)
}

func (c *Controller) detachBackground(id string) (string, []*registry.Token, error) {
	var (
		containerID string
		tokens      []*registry.Token
	)
	err := c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		containerID = pod.ContainerID
		tokens = cancelBackground(tx, id)
		return nil
	})
	return containerID, tokens, err
}

func (c *Controller) markStopped(id string) {
	found := false
	_ = c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return nil
		}
		pod.Status = domain.StatusStopped
		pod.ErrorMessage = ""
		pod.ClearRuntime()
		found = true
		return nil
	})
	if !found {
		return
	}
	c.emitStatus(id, domain.StatusStopped, "")
	c.publish(domain.Event{Type: domain.EventProcessList, PodID: id, Payload: domain.ProcessListUpdate{Processes: []domain.Process{}}})
	c.logger.Info("pod stopped", "pod", id)
}
