// Package config loads and persists daemon settings.
//
// Settings live at $XDG_CONFIG_HOME/nook/settings.yaml (defaults to
// ~/.config/nook/settings.yaml). A missing file yields defaults, and fields
// absent from the file keep their default values.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snjax/nook/internal/core/lifecycle"
	"github.com/snjax/nook/internal/core/monitor"
	"github.com/snjax/nook/internal/core/registry"
)

// Duration is a time.Duration written as "5s" in both YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Settings struct {
	ListenAddr          string            `yaml:"listenAddr" json:"listenAddr"`
	DataDir             string            `yaml:"dataDir" json:"dataDir"`
	LogLevel            string            `yaml:"logLevel" json:"logLevel"`
	DockerHost          string            `yaml:"dockerHost,omitempty" json:"dockerHost,omitempty"`
	DevcontainerPath    string            `yaml:"devcontainerPath,omitempty" json:"devcontainerPath,omitempty"`
	BindAddress         string            `yaml:"bindAddress" json:"bindAddress"`
	ProcessScanInterval Duration          `yaml:"processScanInterval" json:"processScanInterval"`
	PortScanInterval    Duration          `yaml:"portScanInterval" json:"portScanInterval"`
	BuildTimeout        Duration          `yaml:"buildTimeout" json:"buildTimeout"`
	StopGrace           Duration          `yaml:"stopGrace" json:"stopGrace"`
	LogCapacity         int               `yaml:"logCapacity" json:"logCapacity"`
	LogTail             int               `yaml:"logTail" json:"logTail"`
	PortProtocols       map[uint16]string `yaml:"portProtocols,omitempty" json:"portProtocols,omitempty"`
}

func Defaults() Settings {
	mon := monitor.DefaultOptions()
	return Settings{
		ListenAddr:          "127.0.0.1:7780",
		DataDir:             DefaultDataDir(),
		LogLevel:            "info",
		DevcontainerPath:    "devcontainer",
		BindAddress:         "0.0.0.0",
		ProcessScanInterval: Duration(mon.ProcessInterval),
		PortScanInterval:    Duration(mon.PortInterval),
		BuildTimeout:        Duration(lifecycle.DefaultBuildTimeout),
		StopGrace:           Duration(lifecycle.DefaultStopGrace),
		LogCapacity:         registry.DefaultLogCapacity,
		LogTail:             mon.LogTail,
	}
}

func (s Settings) Validate() error {
	if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
		return fmt.Errorf("listenAddr: %w", err)
	}
	if net.ParseIP(s.BindAddress) == nil {
		return fmt.Errorf("bindAddress: %q is not an IP address", s.BindAddress)
	}
	for name, d := range map[string]Duration{
		"processScanInterval": s.ProcessScanInterval,
		"portScanInterval":    s.PortScanInterval,
		"buildTimeout":        s.BuildTimeout,
		"stopGrace":           s.StopGrace,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if s.LogCapacity <= 0 {
		return errors.New("logCapacity must be positive")
	}
	if s.LogTail < 0 {
		return errors.New("logTail must not be negative")
	}
	return nil
}

func (s Settings) MonitorOptions() monitor.Options {
	opts := monitor.DefaultOptions()
	opts.ProcessInterval = s.ProcessScanInterval.Std()
	opts.PortInterval = s.PortScanInterval.Std()
	opts.LogTail = s.LogTail
	opts.PortProtocols = s.PortProtocols
	return opts
}

func (s Settings) LifecycleOptions() lifecycle.Options {
	return lifecycle.Options{BuildTimeout: s.BuildTimeout.Std(), StopGrace: s.StopGrace.Std()}
}

// DBPath is the location of the pod config database inside DataDir.
func (s Settings) DBPath() string {
	return filepath.Join(s.DataDir, "nook.db")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// DefaultPath respects XDG_CONFIG_HOME, falling back to ~/.config.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "nook", "settings.yaml")
}

func DefaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "nook")
}

func Load(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path, creating directories as needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Holder guards the live settings and persists every accepted update.
type Holder struct {
	path string

	mu sync.Mutex
	s  Settings
}

func NewHolder(path string) (*Holder, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Holder{path: path, s: s}, nil
}

func (h *Holder) Path() string { return h.path }

func (h *Holder) Get() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s
}

// Update validates and saves next. On error the live settings are unchanged.
func (h *Holder) Update(next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := Save(h.path, next); err != nil {
		return Settings{}, err
	}
	h.s = next
	return next, nil
}
