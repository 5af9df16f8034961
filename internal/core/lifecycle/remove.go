package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

// Remove deletes the pod's container and forgets the pod together with its
// saved configuration. Concurrent removals of the same pod see
// ErrPodNotFound once the first one completes.
func (c *Controller) Remove(ctx context.Context, id string, removeVolumes bool) error {
	var (
		lock   *sync.Mutex
		tokens []*registry.Token
	)
	err := c.reg.Update(func(tx *registry.Txn) error {
		if _, ok := tx.Pod(id); !ok {
			return domain.ErrPodNotFound
		}
		lock = tx.PodLock(id)
		tokens = cancelBackground(tx, id)
		if t := tx.TakeBuild(id); t != nil {
			t.Cancel()
		}
		return nil
	})
	if err != nil {
		return err
	}
	waitAll(tokens)

	lock.Lock()
	defer lock.Unlock()

	var containerID, name string
	err = c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		containerID, name = pod.ContainerID, pod.Name
		tokens = cancelBackground(tx, id)
		return nil
	})
	if err != nil {
		return err
	}
	waitAll(tokens)

	if containerID != "" && c.runtime != nil {
		err := c.runtime.Remove(ctx, containerID, removeVolumes)
		if err != nil && !errors.Is(err, domain.ErrContainerNotFound) {
			c.logger.Warn("remove container", "pod", id, "container", containerID, "err", err)
		}
	}

	_ = c.reg.Update(func(tx *registry.Txn) error {
		tokens = tx.Delete(id)
		return nil
	})
	waitAll(tokens)

	if c.store != nil {
		if err := c.store.Delete(ctx, name); err != nil {
			c.logger.Warn("delete pod config", "name", name, "err", err)
		}
	}
	c.logger.Info("pod removed", "pod", id, "volumes", removeVolumes)
	return nil
}

// CancelBuild aborts an in-flight start or rebuild. The pod is left stopped
// and any result the builder reports afterwards is discarded.
func (c *Controller) CancelBuild(id string) error {
	changed := false
	err := c.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(id)
		if !ok {
			return domain.ErrPodNotFound
		}
		tok := tx.TakeBuild(id)
		if tok != nil {
			tok.Cancel()
		}
		if tok != nil || pod.Status == domain.StatusStarting {
			pod.Status = domain.StatusStopped
			pod.ErrorMessage = ""
			changed = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		c.logger.Info("build cancelled", "pod", id)
		c.emitStatus(id, domain.StatusStopped, "")
	}
	return nil
}
