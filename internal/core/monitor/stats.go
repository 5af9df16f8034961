package monitor

import (
	"context"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

// CPUPercent converts two cumulative counter readings into a usage
// percentage across all CPUs.
func CPUPercent(cur, prev domain.CPUCounters) float64 {
	systemDelta := float64(cur.System) - float64(prev.System)
	cpuDelta := float64(cur.Total) - float64(prev.Total)
	if systemDelta <= 0 || cpuDelta < 0 {
		return 0
	}
	cpus := float64(cur.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(cur.PerCPU)
	}
	if cpus == 0 {
		cpus = 1
	}
	return cpuDelta / systemDelta * cpus * 100
}

func (s *Supervisor) streamStats(ctx context.Context, podID, containerID string) {
	samples, err := s.runtime.Stats(ctx, containerID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("stats stream", "pod", podID, "err", err)
		}
		return
	}

	var prev *domain.CPUCounters
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			base := sample.PreCPU
			if base.System == 0 && prev != nil {
				base = *prev
			}
			cur := sample.CPU
			prev = &cur

			cpu := CPUPercent(sample.CPU, base)
			var update domain.StatsUpdate
			live := s.commit(ctx, podID, func(_ *registry.Txn, pod *domain.Pod) {
				pod.CPUPercent = cpu
				pod.MemoryUsed = sample.MemoryUsed
				pod.MemoryLimit = sample.MemoryLimit
				update = domain.StatsUpdate{
					CPUPercent:  cpu,
					MemoryUsed:  sample.MemoryUsed,
					MemoryLimit: sample.MemoryLimit,
					UptimeSecs:  uint64(pod.Uptime(s.now()).Seconds()),
				}
			})
			if !live {
				return
			}
			s.emit(ctx, domain.Event{Type: domain.EventStatsUpdate, PodID: podID, Payload: update})
		}
	}
}
