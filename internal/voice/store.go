package voice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vaanilabs/vaani-core/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("voice: profile not found")

// Store wraps a SQLite-backed voice profile catalog.
type Store struct {
	db    *sql.DB
	cfg   config.VoicesConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the profile store according to config.
func Open(ctx context.Context, cfg config.VoicesConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.DatabasePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.DatabasePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("voice store vacuum failed", slog.String("error", err.Error()))
		}
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS voices (
    name TEXT PRIMARY KEY,
    language TEXT,
    reference_path TEXT NOT NULL,
    fingerprint BLOB,
    metadata BLOB,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces a profile keyed by name.
func (s *Store) Put(ctx context.Context, p Profile) error {
	fingerprint, err := json.Marshal(p.Fingerprint)
	if err != nil {
		return fmt.Errorf("encode fingerprint: %w", err)
	}
	var metadata []byte
	if len(p.Metadata) > 0 {
		metadata, err = json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}

	now := s.clock().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO voices(name, language, reference_path, fingerprint, metadata, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   language=excluded.language,
		   reference_path=excluded.reference_path,
		   fingerprint=excluded.fingerprint,
		   metadata=excluded.metadata,
		   updated_at=excluded.updated_at`,
		p.Name, p.Language, p.ReferencePath, fingerprint, metadata, p.CreatedAt, now)
	return err
}

// Get retrieves a profile by name.
func (s *Store) Get(ctx context.Context, name string) (Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, language, reference_path, fingerprint, metadata, created_at, updated_at
		 FROM voices WHERE name = ?`, name)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, err
}

// List returns all profiles ordered by name.
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, language, reference_path, fingerprint, metadata, created_at, updated_at
		 FROM voices ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes a profile and returns the reference path the caller
// should clean up. Deleting an unknown name returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) (string, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM voices WHERE name = ?`, name); err != nil {
		return "", err
	}
	return p.ReferencePath, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var fingerprint, metadata []byte
	var created, updated string
	if err := row.Scan(&p.Name, &p.Language, &p.ReferencePath, &fingerprint, &metadata, &created, &updated); err != nil {
		return Profile{}, err
	}
	if len(fingerprint) > 0 {
		if err := json.Unmarshal(fingerprint, &p.Fingerprint); err != nil {
			return Profile{}, fmt.Errorf("decode fingerprint: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return Profile{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		p.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		p.UpdatedAt = ts
	}
	return p, nil
}
