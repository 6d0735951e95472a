package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/repository"
)

// HistoryService exposes the optional download history.
// With a nil repository every read returns domain.ErrHistoryDisabled and
// Record is a no-op.
type HistoryService struct {
	repo   repository.HistoryRepository
	logger *slog.Logger
}

// NewHistoryService creates a history service. repo may be nil.
func NewHistoryService(repo repository.HistoryRepository, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger,
	}
}

// Enabled reports whether history is stored.
func (s *HistoryService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Record stores one entry. Failures are logged, never returned: history is
// secondary to the download it describes.
func (s *HistoryService) Record(ctx context.Context, entry *domain.HistoryEntry) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record history", "media_id", entry.MediaID, "error", err)
	}
}

// List returns up to limit entries, newest first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if !s.Enabled() {
		return nil, domain.ErrHistoryDisabled
	}
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Clear removes every entry and returns how many were removed.
func (s *HistoryService) Clear(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, domain.ErrHistoryDisabled
	}
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", "removed", n)
	return n, nil
}

// Ping checks the store. It returns nil when history is disabled.
func (s *HistoryService) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.Ping(ctx)
}
