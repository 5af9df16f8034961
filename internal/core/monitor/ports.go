package monitor

import (
	"context"
	"time"

	"github.com/snjax/nook/internal/core/detect"
	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/registry"
)

var (
	ssCommand      = []string{"ss", "-tlnp"}
	procNetCommand = []string{"cat", "/proc/net/tcp", "/proc/net/tcp6"}
)

// listeners asks the container for its listening TCP sockets, falling back
// to /proc/net when ss is not installed.
func (s *Supervisor) listeners(ctx context.Context, containerID string) ([]detect.Listener, error) {
	out, err := s.runtime.Exec(ctx, containerID, "", ssCommand)
	if err == nil {
		if ls := detect.ParseSS(out); len(ls) > 0 {
			return ls, nil
		}
	}
	out, err = s.runtime.Exec(ctx, containerID, "", procNetCommand)
	if err != nil {
		return nil, err
	}
	return detect.ParseProcNetTCP(out), nil
}

func (s *Supervisor) scanPorts(ctx context.Context, podID, containerID string, opts Options) {
	ticker := time.NewTicker(opts.PortInterval)
	defer ticker.Stop()

	known := make(map[uint16]bool)
	cache := detect.NewCache(opts.PortProtocols)

	for {
		found, err := s.listeners(ctx, containerID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Debug("port scan", "pod", podID, "err", err)
		}

		for _, l := range found {
			if known[l.Port] {
				continue
			}
			known[l.Port] = true
			dp := cache.Resolve(l.Port, l.Process)

			added := false
			live := s.commit(ctx, podID, func(_ *registry.Txn, pod *domain.Pod) {
				if _, exposed := pod.Exposed(l.Port); exposed {
					return
				}
				if _, dup := pod.Detected(l.Port); dup {
					return
				}
				pod.DetectedPorts = append(pod.DetectedPorts, dp)
				added = true
			})
			if !live {
				return
			}
			if !added {
				continue
			}
			s.logger.Debug("port detected", "pod", podID, "port", l.Port, "protocol", dp.Protocol)
			s.emit(ctx, domain.Event{Type: domain.EventPortDetected, PodID: podID, Payload: domain.PortDetected{Port: dp}})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
