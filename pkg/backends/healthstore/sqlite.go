package healthstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/pulse/pkg/backends"
)

// Store persists the last-known health of each backend in SQLite so a
// restart does not forget that a backend was failing.
//
// Store is safe for concurrent use. SQLite allows a single writer, so the
// pool is limited to one connection.
type Store struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once

	upsertStmt *sql.Stmt
	loadStmt   *sql.Stmt
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		path:   path,
		logger: logger.With("component", "healthstore"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS backend_health (
		name TEXT PRIMARY KEY,
		availability TEXT NOT NULL,
		consecutive_failures INTEGER NOT NULL,
		last_checked_at INTEGER NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO backend_health (name, availability, consecutive_failures, last_checked_at, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			availability = excluded.availability,
			consecutive_failures = excluded.consecutive_failures,
			last_checked_at = excluded.last_checked_at,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT name, availability, consecutive_failures, last_checked_at, last_error
		FROM backend_health
		ORDER BY name
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	return nil
}

// Save upserts one descriptor.
func (s *Store) Save(ctx context.Context, d backends.Descriptor) error {
	var checked int64
	if !d.LastCheckedAt.IsZero() {
		checked = d.LastCheckedAt.UnixMilli()
	}

	_, err := s.upsertStmt.ExecContext(ctx,
		d.Name,
		d.Availability.String(),
		d.ConsecutiveFailures,
		checked,
		d.LastError,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save health for %s: %w", d.Name, err)
	}
	return nil
}

// Load returns every stored descriptor, ordered by name. Only the health
// fields are populated.
func (s *Store) Load(ctx context.Context) ([]backends.Descriptor, error) {
	rows, err := s.loadStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load health snapshot: %w", err)
	}
	defer rows.Close()

	var out []backends.Descriptor
	for rows.Next() {
		var (
			d            backends.Descriptor
			availability string
			checked      int64
		)
		if err := rows.Scan(&d.Name, &availability, &d.ConsecutiveFailures, &checked, &d.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan health row: %w", err)
		}

		a, ok := backends.ParseAvailability(availability)
		if !ok {
			s.logger.Warn("ignoring unknown availability in snapshot",
				"backend", d.Name,
				"availability", availability,
			)
			continue
		}
		d.Availability = a
		if checked > 0 {
			d.LastCheckedAt = time.UnixMilli(checked)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Observer returns a registry observer that persists every change. Write
// failures are logged; persistence is best effort.
func (s *Store) Observer() backends.Observer {
	return func(d backends.Descriptor) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Save(ctx, d); err != nil {
			s.logger.Warn("failed to persist backend health", "backend", d.Name, "error", err)
		}
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.upsertStmt != nil {
			s.upsertStmt.Close()
		}
		if s.loadStmt != nil {
			s.loadStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
