package fake

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var (
	_ ports.PodConfigStore     = (*Store)(nil)
	_ ports.WorkspaceInspector = (*Workspace)(nil)
)

// Store is an in-memory PodConfigStore.
type Store struct {
	mu      sync.Mutex
	configs map[string]domain.PodConfig
}

func NewStore() *Store {
	return &Store{configs: make(map[string]domain.PodConfig)}
}

func (s *Store) Load(_ context.Context, name string) (domain.PodConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[name]
	return cfg, ok, nil
}

func (s *Store) Save(_ context.Context, cfg domain.PodConfig) error {
	s.mu.Lock()
	s.configs[cfg.Name] = cfg
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.configs, name)
	s.mu.Unlock()
	return nil
}

func (s *Store) FindByProjectPath(_ context.Context, path string) (domain.PodConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		if cfg.ProjectPath == path {
			return cfg, true, nil
		}
	}
	return domain.PodConfig{}, false, nil
}

func (s *Store) List(context.Context) ([]domain.PodConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PodConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

// Workspace reports every path as a workspace named after its last element.
type Workspace struct {
	Branch string
}

func (w *Workspace) Inspect(path string) (domain.Workspace, error) {
	return domain.Workspace{Path: path, Name: filepath.Base(path), Branch: w.Branch, HasDefinition: true}, nil
}
