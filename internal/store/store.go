// SPDX-License-Identifier: MIT

// Package store provides SQLite persistence for company snapshots,
// LLM analyses and topic searches.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/eqlens/eqlens/internal/marketdata"
	"github.com/eqlens/eqlens/internal/quality"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Snapshot is a persisted company snapshot with its quality assessment.
type Snapshot struct {
	Ticker    string             `json:"ticker"`
	Period    string             `json:"period"`
	Company   marketdata.Company `json:"company"`
	Quality   quality.Validation `json:"quality"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Analysis is a persisted LLM result. Kind is one of "company",
// "perspective" or "search".
type Analysis struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Ticker    string    `json:"ticker,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Period    string    `json:"period"`
	Model     string    `json:"model"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis kinds.
const (
	KindCompany     = "company"
	KindPerspective = "perspective"
	KindSearch      = "search"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open initializes the store and runs migrations. WAL mode plus
// busy_timeout keeps concurrent readers from tripping over the refresher.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS company_snapshots (
		ticker TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		data TEXT NOT NULL,
		quality_score INTEGER NOT NULL,
		quality_level TEXT NOT NULL CHECK(quality_level IN ('high', 'medium', 'low')),
		fetched_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK(kind IN ('company', 'perspective', 'search')),
		ticker TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL,
		model TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_ticker ON analyses(ticker, kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_topic ON analyses(topic, created_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON company_snapshots(fetched_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertSnapshot stores or replaces a company snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap.Company)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	query := `
	INSERT INTO company_snapshots (ticker, period, data, quality_score, quality_level, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(ticker) DO UPDATE SET
		period = excluded.period,
		data = excluded.data,
		quality_score = excluded.quality_score,
		quality_level = excluded.quality_level,
		fetched_at = excluded.fetched_at
	`
	_, err = s.db.ExecContext(ctx, query,
		snap.Ticker, snap.Period, string(data),
		snap.Quality.Score, string(snap.Quality.Level),
		snap.FetchedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetSnapshot retrieves one snapshot by ticker.
func (s *Store) GetSnapshot(ctx context.Context, ticker string) (*Snapshot, error) {
	query := `
	SELECT ticker, period, data, quality_score, quality_level, fetched_at
	FROM company_snapshots
	WHERE ticker = ?
	`
	row := s.db.QueryRowContext(ctx, query, ticker)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns all snapshots ordered by ticker.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	query := `
	SELECT ticker, period, data, quality_score, quality_level, fetched_at
	FROM company_snapshots
	ORDER BY ticker
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// LatestFetch returns the most recent fetched_at across all snapshots, or
// ErrNotFound when no snapshot exists yet.
func (s *Store) LatestFetch(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(fetched_at) FROM company_snapshots`).Scan(&raw)
	if err != nil {
		return time.Time{}, err
	}
	if !raw.Valid {
		return time.Time{}, ErrNotFound
	}
	return time.Parse(time.RFC3339, raw.String)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var data, level, fetchedAt string

	if err := row.Scan(&snap.Ticker, &snap.Period, &data, &snap.Quality.Score, &level, &fetchedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &snap.Company); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.Ticker, err)
	}
	snap.Quality.Level = quality.Level(level)

	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at for %s: %w", snap.Ticker, err)
	}
	snap.FetchedAt = t
	return &snap, nil
}

// InsertAnalysis stores a new analysis row.
func (s *Store) InsertAnalysis(ctx context.Context, a Analysis) error {
	query := `
	INSERT INTO analyses (id, kind, ticker, topic, period, model, content, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Kind, a.Ticker, a.Topic, a.Period, a.Model, a.Content,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetAnalysis retrieves an analysis by ID.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	query := `
	SELECT id, kind, ticker, topic, period, model, content, created_at
	FROM analyses
	WHERE id = ?
	`
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// LatestAnalysis returns the newest analysis of the given kind for a ticker.
func (s *Store) LatestAnalysis(ctx context.Context, ticker, kind string) (*Analysis, error) {
	query := `
	SELECT id, kind, ticker, topic, period, model, content, created_at
	FROM analyses
	WHERE ticker = ? AND kind = ?
	ORDER BY created_at DESC
	LIMIT 1
	`
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, query, ticker, kind))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns recent analyses for a ticker, newest first.
func (s *Store) ListAnalyses(ctx context.Context, ticker string, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, kind, ticker, topic, period, model, content, created_at
	FROM analyses
	WHERE ticker = ?
	ORDER BY created_at DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	var createdAt string

	if err := row.Scan(&a.ID, &a.Kind, &a.Ticker, &a.Topic, &a.Period, &a.Model, &a.Content, &createdAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", a.ID, err)
	}
	a.CreatedAt = t
	return &a, nil
}
