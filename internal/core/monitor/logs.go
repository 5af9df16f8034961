package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

func splitLines(data string) []string {
	data = strings.TrimRight(data, "\r\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func (s *Supervisor) streamLogs(ctx context.Context, podID, containerID string, opts Options) {
	chunks, err := s.runtime.Logs(ctx, containerID, opts.LogTail)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("log stream", "pod", podID, "err", err)
		}
		return
	}

	ticker := time.NewTicker(opts.LogFlushInterval)
	defer ticker.Stop()

	var batch []domain.LogEntry
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		entries := batch
		batch = nil
		live := s.commit(ctx, podID, func(tx *registry.Txn, _ *domain.Pod) {
			tx.Logs(podID).PushBatch(entries)
		})
		if live {
			s.emit(ctx, domain.Event{Type: domain.EventLogBatch, PodID: podID, Payload: domain.LogBatch{Entries: entries}})
		}
		return live
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !flush() {
				return
			}
		case chunk, ok := <-chunks:
			if !ok {
				flush()
				return
			}
			now := s.now()
			for _, line := range splitLines(chunk.Data) {
				batch = append(batch, domain.LogEntry{
					Timestamp: now,
					Message:   line,
					Source:    domain.LogSourceContainer,
					Level:     chunk.Level,
				})
			}
			if len(batch) >= opts.LogBatchSize {
				if !flush() {
					return
				}
			}
		}
	}
}
