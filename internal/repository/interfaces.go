package repository

import (
	"context"
	"time"

	"github.com/iconidentify/ultragrab/internal/domain"
)

// HistoryRepository persists the download history.
type HistoryRepository interface {
	// Record stores one entry. A missing ID or CreatedAt is filled in.
	Record(ctx context.Context, entry *domain.HistoryEntry) error

	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	// PruneBefore removes entries created before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store.
	Close() error
}
