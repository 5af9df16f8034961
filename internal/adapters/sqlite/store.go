package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snjax/nook/internal/core/domain"
	"github.com/snjax/nook/internal/core/ports"
)

var _ ports.PodConfigStore = (*PodConfigStore)(nil)

// PodConfigStore implements ports.PodConfigStore backed by SQLite.
type PodConfigStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pod_configs (
	name         TEXT PRIMARY KEY,
	project_path TEXT NOT NULL,
	config       TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pod_configs_project_path ON pod_configs (project_path);
`

func Open(path string) (*PodConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PodConfigStore{db: db}, nil
}

func (s *PodConfigStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanConfig(row interface{ Scan(...any) error }) (domain.PodConfig, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		return domain.PodConfig{}, err
	}
	var cfg domain.PodConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.PodConfig{}, fmt.Errorf("decode pod config: %w", err)
	}
	return cfg, nil
}

func (s *PodConfigStore) Load(ctx context.Context, name string) (domain.PodConfig, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT config FROM pod_configs WHERE name = ?`, name)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PodConfig{}, false, nil
	}
	if err != nil {
		return domain.PodConfig{}, false, fmt.Errorf("load pod config %q: %w", name, err)
	}
	return cfg, true, nil
}

func (s *PodConfigStore) Save(ctx context.Context, cfg domain.PodConfig) error {
	if cfg.Name == "" {
		return errors.New("save pod config: empty name")
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode pod config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pod_configs (name, project_path, config, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			project_path = excluded.project_path,
			config       = excluded.config,
			updated_at   = excluded.updated_at`,
		cfg.Name, cfg.ProjectPath, string(raw), cfg.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save pod config %q: %w", cfg.Name, err)
	}
	return nil
}

func (s *PodConfigStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pod_configs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete pod config %q: %w", name, err)
	}
	return nil
}

func (s *PodConfigStore) FindByProjectPath(ctx context.Context, path string) (domain.PodConfig, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT config FROM pod_configs WHERE project_path = ? ORDER BY updated_at DESC LIMIT 1`, path)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PodConfig{}, false, nil
	}
	if err != nil {
		return domain.PodConfig{}, false, fmt.Errorf("find pod config for %q: %w", path, err)
	}
	return cfg, true, nil
}

func (s *PodConfigStore) List(ctx context.Context) ([]domain.PodConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config FROM pod_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list pod configs: %w", err)
	}
	defer rows.Close()

	var out []domain.PodConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("list pod configs: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
