package preset

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists presets in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (or creates) the preset database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS presets (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			brightness INTEGER NOT NULL DEFAULT 0,
			contrast REAL NOT NULL DEFAULT 1,
			targets TEXT,
			linked INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Save inserts or replaces a preset. A zero CreatedAt is set to now.
func (s *Store) Save(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	var targets []byte
	if len(p.Targets) > 0 {
		var err error
		targets, err = json.Marshal(p.Targets)
		if err != nil {
			return fmt.Errorf("failed to encode targets: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO presets (name, kind, brightness, contrast, targets, linked, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.Name, string(p.Kind), p.Brightness, p.Contrast, string(targets), boolToInt(p.Linked), p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	return nil
}

// Get loads the preset with the given name.
func (s *Store) Get(name string) (Preset, error) {
	row := s.db.QueryRow(
		"SELECT name, kind, brightness, contrast, targets, linked, created_at FROM presets WHERE name = ?",
		name,
	)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("failed to query preset: %w", err)
	}
	return p, nil
}

// List returns all presets ordered by name.
func (s *Store) List() ([]Preset, error) {
	rows, err := s.db.Query("SELECT name, kind, brightness, contrast, targets, linked, created_at FROM presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a preset.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM presets WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(sc scanner) (Preset, error) {
	var (
		p         Preset
		kind      string
		targets   sql.NullString
		linked    int
		createdAt int64
	)
	if err := sc.Scan(&p.Name, &kind, &p.Brightness, &p.Contrast, &targets, &linked, &createdAt); err != nil {
		return Preset{}, err
	}
	p.Kind = Kind(kind)
	p.Linked = linked != 0
	p.CreatedAt = time.UnixMilli(createdAt)

	if targets.Valid && targets.String != "" {
		if err := json.Unmarshal([]byte(targets.String), &p.Targets); err != nil {
			return Preset{}, fmt.Errorf("failed to decode targets of %q: %w", p.Name, err)
		}
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
