// Package portproxy forwards host TCP ports to ports inside pod containers.
package portproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/snjax/nook/internal/core/detect"
	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
	"github.com/snjax/nook/internal/core/registry"
)

const (
	DefaultBindAddress   = "0.0.0.0"
	DefaultBannerTimeout = 500 * time.Millisecond
)

type Engine struct {
	reg           *registry.Registry
	runtime       ports.ContainerRuntime
	logger        *slog.Logger
	bannerTimeout time.Duration

	mu       sync.Mutex
	bindAddr string
}

func NewEngine(reg *registry.Registry, runtime ports.ContainerRuntime, bindAddress string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		reg:           reg,
		runtime:       runtime,
		logger:        logger.With("component", "portproxy"),
		bannerTimeout: DefaultBannerTimeout,
	}
	e.SetBindAddress(bindAddress)
	return e
}

// SetBindAddress changes the host address used for future exposures.
func (e *Engine) SetBindAddress(addr string) {
	if addr == "" {
		addr = DefaultBindAddress
	}
	e.mu.Lock()
	e.bindAddr = addr
	e.mu.Unlock()
}

func (e *Engine) bindAddress() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bindAddr
}

// errNotRunning is returned when the pod stops or changes container while an
// exposure is being set up.
var errNotRunning = fmt.Errorf("pod is not running: %w", domain.ErrNoContainer)

func (e *Engine) listen(hostPort uint16) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(e.bindAddress(), strconv.Itoa(int(hostPort))))
}

// Expose forwards hostPort to containerPort of the pod's container. When the
// host port is already taken the exposure is recorded with status
// hostPortBusy and no proxy runs; that is not an error.
//
// An existing exposure of the same container port keeps running until the
// new one is committed, except when it holds the requested host port, in
// which case it is released just before rebinding.
func (e *Engine) Expose(ctx context.Context, podID string, containerPort, hostPort uint16) (domain.ExposedPort, error) {
	if containerPort == 0 || hostPort == 0 {
		return domain.ExposedPort{}, domain.ErrInvalidPort
	}
	key := registry.ProxyKey{PodID: podID, Port: containerPort}

	var (
		containerID string
		protocol    string
		previous    *registry.Token
		prevHost    uint16
	)
	err := e.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(podID)
		if !ok {
			return domain.ErrPodNotFound
		}
		if pod.ContainerID == "" {
			return domain.ErrNoContainer
		}
		if pod.Status != domain.StatusRunning {
			return errNotRunning
		}
		containerID = pod.ContainerID
		if dp, ok := pod.Detected(containerPort); ok {
			protocol = dp.Protocol
		}
		if ep, ok := pod.Exposed(containerPort); ok {
			prevHost = ep.HostPort
			if protocol == "" {
				protocol = ep.Protocol
			}
		}
		previous = tx.Proxy(key)
		return nil
	})
	if err != nil {
		return domain.ExposedPort{}, err
	}
	if e.runtime == nil {
		return domain.ExposedPort{}, domain.ErrRuntimeUnavailable
	}

	info, err := e.runtime.Inspect(ctx, containerID)
	if err != nil {
		return domain.ExposedPort{}, fmt.Errorf("inspect container %q: %w", containerID, err)
	}
	if info.IPAddress == "" {
		return domain.ExposedPort{}, fmt.Errorf("container %q has no network address: %w", containerID, domain.ErrNoContainer)
	}
	target := net.JoinHostPort(info.IPAddress, strconv.Itoa(int(containerPort)))

	ep := domain.ExposedPort{
		ContainerPort: containerPort,
		HostPort:      hostPort,
		Status:        domain.PortActive,
		AutoExpose:    true,
	}
	ln, err := e.listen(hostPort)
	released := false
	if errors.Is(err, syscall.EADDRINUSE) && previous != nil && prevHost == hostPort && e.release(key, previous) {
		released = true
		ln, err = e.listen(hostPort)
	}
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		ep.Status = domain.PortHostPortBusy
	case err != nil:
		if released {
			e.dropStale(podID, key)
		}
		return domain.ExposedPort{}, fmt.Errorf("bind host port %d: %w", hostPort, err)
	}

	if (protocol == "" || protocol == detect.UnknownProtocol) && ln != nil {
		protocol, _ = detect.BannerGrab(ctx, info.IPAddress, containerPort, e.bannerTimeout)
	}
	ep.Protocol = protocol

	var tok *registry.Token
	if ln != nil {
		tok = registry.NewToken()
		e.serve(tok, ln, podID, target)
	}

	var replaced *registry.Token
	err = e.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(podID)
		if !ok {
			return domain.ErrPodNotFound
		}
		if pod.Status != domain.StatusRunning || pod.ContainerID != containerID {
			return errNotRunning
		}
		if replaced = tx.TakeProxy(key); replaced != nil {
			replaced.Cancel()
		}
		pod.RemoveDetected(containerPort)
		pod.RemoveExposed(containerPort)
		pod.ExposedPorts = append(pod.ExposedPorts, ep)
		if tok != nil {
			tx.SetProxy(key, tok)
		}
		return nil
	})
	if err != nil {
		if tok != nil {
			tok.Cancel()
			tok.Wait()
		}
		return domain.ExposedPort{}, err
	}
	if replaced != nil {
		replaced.Wait()
	}

	e.logger.Info("port exposed", "pod", podID, "container_port", containerPort, "host_port", hostPort, "status", ep.Status)
	return ep, nil
}

// release stops the proxy tok if it is still registered under key, so its
// host port can be bound again.
func (e *Engine) release(key registry.ProxyKey, tok *registry.Token) bool {
	taken := false
	_ = e.reg.Update(func(tx *registry.Txn) error {
		if tx.Proxy(key) == tok {
			tx.TakeProxy(key)
			tok.Cancel()
			taken = true
		}
		return nil
	})
	if taken {
		tok.Wait()
	}
	return taken
}

// dropStale removes the exposure record of key when no proxy backs it.
func (e *Engine) dropStale(podID string, key registry.ProxyKey) {
	_ = e.reg.Update(func(tx *registry.Txn) error {
		if pod, ok := tx.Pod(podID); ok && tx.Proxy(key) == nil {
			pod.RemoveExposed(key.Port)
		}
		return nil
	})
}

// Unexpose stops forwarding containerPort. Unexposing a port that is not
// exposed is a no-op.
func (e *Engine) Unexpose(podID string, containerPort uint16) error {
	var tok *registry.Token
	err := e.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(podID)
		if !ok {
			return domain.ErrPodNotFound
		}
		pod.RemoveExposed(containerPort)
		if tok = tx.TakeProxy(registry.ProxyKey{PodID: podID, Port: containerPort}); tok != nil {
			tok.Cancel()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if tok != nil {
		tok.Wait()
		e.logger.Info("port unexposed", "pod", podID, "container_port", containerPort)
	}
	return nil
}

// Ignore drops a detected port without exposing it.
func (e *Engine) Ignore(podID string, containerPort uint16) error {
	return e.reg.Update(func(tx *registry.Txn) error {
		pod, ok := tx.Pod(podID)
		if !ok {
			return domain.ErrPodNotFound
		}
		pod.RemoveDetected(containerPort)
		return nil
	})
}
