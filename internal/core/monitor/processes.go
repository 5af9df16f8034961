package monitor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

func column(titles []string, fallback int, names ...string) int {
	for _, name := range names {
		for i, t := range titles {
			if strings.EqualFold(t, name) {
				return i
			}
		}
	}
	return fallback
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ParseProcessTable turns `ps aux` style output into processes. Columns are
// located by header name with fixed fallbacks; rows without a numeric PID
// are skipped.
func ParseProcessTable(table domain.ProcessTable) []domain.Process {
	pidCol := column(table.Titles, 1, "PID")
	cmdCol := column(table.Titles, len(table.Titles)-1, "COMMAND", "CMD")
	cpuCol := column(table.Titles, 2, "%CPU")
	memCol := column(table.Titles, 5, "RSS", "VSZ")

	procs := make([]domain.Process, 0, len(table.Rows))
	for _, row := range table.Rows {
		if cmdCol < 0 {
			cmdCol = len(row) - 1
		}
		pid, err := strconv.ParseUint(strings.TrimSpace(field(row, pidCol)), 10, 32)
		if err != nil {
			continue
		}
		name := ""
		if words := strings.Fields(field(row, cmdCol)); len(words) > 0 {
			name = words[0]
		}
		cpu, _ := strconv.ParseFloat(strings.TrimSpace(field(row, cpuCol)), 64)
		kib, _ := strconv.ParseUint(strings.TrimSpace(field(row, memCol)), 10, 64)

		procs = append(procs, domain.Process{
			PID:         uint32(pid),
			Name:        name,
			CPUPercent:  cpu,
			MemoryBytes: kib * 1024,
		})
	}
	return procs
}

func (s *Supervisor) pollProcesses(ctx context.Context, podID, containerID string, opts Options) {
	ticker := time.NewTicker(opts.ProcessInterval)
	defer ticker.Stop()

	for {
		table, err := s.runtime.Top(ctx, containerID, "aux")
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.logger.Debug("process poll", "pod", podID, "err", err)
		default:
			procs := ParseProcessTable(table)
			live := s.commit(ctx, podID, func(_ *registry.Txn, pod *domain.Pod) {
				pod.Processes = procs
			})
			if !live {
				return
			}
			s.emit(ctx, domain.Event{Type: domain.EventProcessList, PodID: podID, Payload: domain.ProcessListUpdate{Processes: procs}})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
