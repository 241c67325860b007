package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the durable history of submitted jobs.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "a2v", "history.sqlite")
}

// Open opens (creating if needed) the history database and applies any
// migrations newer than the stored schema version.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	current, err := s.Version(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		version := migrationVersion(entry.Name())
		if entry.IsDir() || version <= current {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if err := s.applyMigration(ctx, version, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the highest applied schema version, 0 for a fresh database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(name[:end])
	return n
}

// Put inserts e, or replaces every field of an existing entry with the same
// ID, in a single transaction.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put %s: %w", e.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (id, jobId, resourceBaseName, videoUrl, transcriptJsonUrl, transcriptVttUrl, createdAt, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			jobId=excluded.jobId,
			resourceBaseName=excluded.resourceBaseName,
			videoUrl=excluded.videoUrl,
			transcriptJsonUrl=excluded.transcriptJsonUrl,
			transcriptVttUrl=excluded.transcriptVttUrl,
			createdAt=excluded.createdAt,
			source=excluded.source
	`, e.ID, e.JobID, e.ResourceBaseName, e.VideoURL, e.TranscriptJSONURL, e.TranscriptVTTURL,
		e.CreatedAt.UnixNano(), string(e.Source)); err != nil {
		return fmt.Errorf("put %s: %w", e.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s: %w", e.ID, err)
	}
	return nil
}

// PutAll writes each entry in its own transaction, concurrently. A failed
// write does not roll back or block the others; all failures are joined.
func (s *Store) PutAll(ctx context.Context, entries []Entry) error {
	errs := make([]error, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			errs[i] = s.Put(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// List returns every entry, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, jobId, resourceBaseName, videoUrl, transcriptJsonUrl, transcriptVttUrl, createdAt, source
		FROM history
		ORDER BY createdAt DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, jobId, resourceBaseName, videoUrl, transcriptJsonUrl, transcriptVttUrl, createdAt, source
		FROM history
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var createdAt int64
	var source string
	if err := sc.Scan(&e.ID, &e.JobID, &e.ResourceBaseName, &e.VideoURL,
		&e.TranscriptJSONURL, &e.TranscriptVTTURL, &createdAt, &source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	e.CreatedAt = time.Unix(0, createdAt)
	e.Source = Source(source)
	return e, nil
}
