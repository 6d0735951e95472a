package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/iconidentify/ultragrab/internal/domain"
)

// DefaultListLimit is the page size used when none is given.
const DefaultListLimit = 50

const historySchema = `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		media_id TEXT NOT NULL,
		title TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		quality TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL,
		source TEXT NOT NULL,
		outcome TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
`

// SQLiteHistoryRepository implements HistoryRepository on an SQLite file.
// Source URLs are short-lived credentials and are never written.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository opens (creating if needed) the database at path.
func NewSQLiteHistoryRepository(ctx context.Context, path string) (*SQLiteHistoryRepository, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent downloads.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Record stores one entry.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = domain.HistoryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (id, media_id, title, thumbnail, kind, quality, filename, source, outcome, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.MediaID,
		entry.Title,
		entry.Thumbnail,
		string(entry.Kind),
		entry.Quality,
		entry.Filename,
		string(entry.Source),
		entry.Outcome.String(),
		entry.Bytes,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means DefaultListLimit.
func (r *SQLiteHistoryRepository) List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, media_id, title, thumbnail, kind, quality, filename, source, outcome, bytes, created_at
		FROM history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e                         domain.HistoryEntry
			id, kind, source, outcome string
			createdAt                 int64
		)
		if err := rows.Scan(&id, &e.MediaID, &e.Title, &e.Thumbnail, &kind, &e.Quality,
			&e.Filename, &source, &outcome, &e.Bytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ID = domain.HistoryID(id)
		e.Kind = domain.MediaKind(kind)
		e.Source = domain.RelaySource(source)
		e.Outcome, _ = domain.ParseRelayOutcome(outcome)
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}

// Count returns the number of stored entries.
func (r *SQLiteHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (r *SQLiteHistoryRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// PruneBefore removes entries created before cutoff.
func (r *SQLiteHistoryRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks that the database is reachable.
func (r *SQLiteHistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}
