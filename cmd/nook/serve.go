package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snjax/nook/internal/adapters/builder"
	"github.com/snjax/nook/internal/adapters/docker"
	"github.com/snjax/nook/internal/adapters/events"
	httpadapter "github.com/snjax/nook/internal/adapters/http"
	"github.com/snjax/nook/internal/adapters/sqlite"
	"github.com/snjax/nook/internal/adapters/workspace"
	"github.com/snjax/nook/internal/config"
	"github.com/snjax/nook/internal/core/lifecycle"
	"github.com/snjax/nook/internal/core/monitor"
	"github.com/snjax/nook/internal/core/portproxy"
	"github.com/snjax/nook/internal/core/registry"
)

const shutdownTimeout = 5 * time.Second

// daemon holds the wired components of a running nook server.
type daemon struct {
	holder  *config.Holder
	runtime *docker.Adapter
	store   *sqlite.PodConfigStore
	broker  *events.Broker
	reg     *registry.Registry
	monitor *monitor.Supervisor
	ports   *portproxy.Engine
	pods    *lifecycle.Controller
}

func newDaemon(holder *config.Holder, logger *slog.Logger) (*daemon, error) {
	s := holder.Get()

	runtime, err := docker.NewAdapter(s.DockerHost)
	if err != nil {
		return nil, fmt.Errorf("init docker: %w", err)
	}
	store, err := sqlite.Open(s.DBPath())
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("open pod store: %w", err)
	}

	d := &daemon{
		holder:  holder,
		runtime: runtime,
		store:   store,
		broker:  events.NewBroker(events.DefaultBufferSize),
		reg:     registry.New(s.LogCapacity),
	}
	d.monitor = monitor.NewSupervisor(d.reg, runtime, d.broker, s.MonitorOptions(), logger)
	d.ports = portproxy.NewEngine(d.reg, runtime, s.BindAddress, logger)
	d.pods = lifecycle.New(lifecycle.Deps{
		Registry:  d.reg,
		Runtime:   runtime,
		Builder:   builder.NewAdapter(s.DevcontainerPath),
		Store:     store,
		Workspace: workspace.NewInspector(),
		Notifier:  d.broker,
		Monitor:   d.monitor,
		Logger:    logger,
	}, s.LifecycleOptions())
	return d, nil
}

// apply pushes changed settings into the running components.
func (d *daemon) apply(s config.Settings) {
	d.monitor.SetOptions(s.MonitorOptions())
	d.ports.SetBindAddress(s.BindAddress)
	d.pods.SetOptions(s.LifecycleOptions())
}

func (d *daemon) bindAddress() string {
	return d.holder.Get().BindAddress
}

func (d *daemon) close() {
	if err := d.store.Close(); err != nil {
		slog.Warn("close pod store", "err", err)
	}
	if err := d.runtime.Close(); err != nil {
		slog.Warn("close docker client", "err", err)
	}
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the nook daemon and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			holder, err := opts.loadSettings()
			if err != nil {
				return err
			}
			logger := slog.Default()

			d, err := newDaemon(holder, logger)
			if err != nil {
				return err
			}
			defer d.close()

			if n, err := d.pods.Discover(ctx); err != nil {
				logger.Warn("discover existing pods", "err", err)
			} else {
				logger.Info("discovered pods", "count", n)
			}

			app := httpadapter.NewApp(httpadapter.Handlers{
				Pods:     httpadapter.NewPodHandler(d.pods, d.ports),
				Settings: httpadapter.NewSettingsHandler(holder, d.apply),
				Events:   httpadapter.NewEventsHandler(d.broker),
				Proxy:    httpadapter.NewProxyHandler(d.reg, d.bindAddress),
			})

			go func() {
				<-ctx.Done()
				if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
					logger.Warn("shutdown http server", "err", err)
				}
			}()

			addr := holder.Get().ListenAddr
			logger.Info("server starting", "addr", addr, "config", holder.Path())
			if err := app.Listen(addr); err != nil {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		},
	}
}

func depsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that docker and the devcontainer CLI are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := opts.loadSettings()
			if err != nil {
				return err
			}
			s := holder.Get()

			deps := lifecycle.Deps{Builder: builder.NewAdapter(s.DevcontainerPath)}
			if runtime, err := docker.NewAdapter(s.DockerHost); err == nil {
				defer runtime.Close()
				deps.Runtime = runtime
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			missing := 0
			out := cmd.OutOrStdout()
			for _, check := range lifecycle.New(deps, s.LifecycleOptions()).CheckDependencies(ctx) {
				if check.Satisfied {
					fmt.Fprintf(out, "ok      %-14s %s\n", check.Name, check.Version)
					continue
				}
				missing++
				fmt.Fprintf(out, "missing %-14s %s\n", check.Name, check.Detail)
			}
			if missing > 0 {
				return fmt.Errorf("%d dependencies missing", missing)
			}
			return nil
		},
	}
}
