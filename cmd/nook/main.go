package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/snjax/nook/internal/config"
	"github.com/snjax/nook/internal/logging"
)

var version = "dev"

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
}

// loadSettings reads the settings file and applies its log level unless
// --debug overrides it.
func (o *rootOptions) loadSettings() (*config.Holder, error) {
	holder, err := config.NewHolder(o.configPath)
	if err != nil {
		return nil, err
	}
	level := holder.Get().LogLevel
	if o.debug {
		level = logging.LevelDebug
	}
	if err := logging.Configure(level); err != nil {
		return nil, err
	}
	return holder, nil
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "nook",
		Short:         "Devcontainer pod manager",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Settings file")
	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(depsCmd(opts))
	return cmd
}
