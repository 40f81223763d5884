// Package sqlite backs the repository ports with an embedded database, so the
// one-shot CLI can run without a Postgres instance.
package sqlite

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS dataset (
  id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  name TEXT NOT NULL UNIQUE,
  slug TEXT NOT NULL,
  workspace TEXT NOT NULL,
  project TEXT NOT NULL,
  version INTEGER NOT NULL,
  format TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  classes TEXT NOT NULL DEFAULT '[]',
  image_count INTEGER NOT NULL DEFAULT 0,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  state TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS training_run (
  id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  dataset_id TEXT NOT NULL,
  name TEXT NOT NULL,
  base_weights TEXT NOT NULL,
  image_size INTEGER NOT NULL,
  batch_size INTEGER NOT NULL,
  epochs INTEGER NOT NULL,
  device TEXT NOT NULL DEFAULT '',
  runner TEXT NOT NULL,
  state TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  output_dir TEXT NOT NULL DEFAULT '',
  weights_path TEXT NOT NULL DEFAULT '',
  started_at DATETIME,
  finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS generation_job (
  id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  prompt TEXT NOT NULL,
  negative_prompt TEXT NOT NULL DEFAULT '',
  total_images INTEGER NOT NULL,
  batch_size INTEGER NOT NULL,
  steps INTEGER NOT NULL,
  guidance_scale REAL NOT NULL,
  seed INTEGER NOT NULL,
  output_dir TEXT NOT NULL DEFAULT '',
  produced INTEGER NOT NULL DEFAULT 0,
  state TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  started_at DATETIME,
  finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS upload_batch (
  id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  workspace TEXT NOT NULL,
  project TEXT NOT NULL,
  source_dir TEXT NOT NULL,
  suffix TEXT NOT NULL,
  split TEXT NOT NULL,
  batch_name TEXT NOT NULL,
  retries INTEGER NOT NULL,
  total INTEGER NOT NULL DEFAULT 0,
  uploaded INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  state TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  started_at DATETIME,
  finished_at DATETIME
);
`)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
