// Package worker runs background maintenance for the server.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/ultragrab/internal/metrics"
	"github.com/iconidentify/ultragrab/internal/repository"
)

// ErrShutdownTimeout is returned when the pruner doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("history pruner shutdown timed out")

// Config holds pruner configuration.
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// Pruner periodically deletes history entries older than the retention window.
type Pruner struct {
	interval  time.Duration
	retention time.Duration
	repo      repository.HistoryRepository
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPruner creates a pruner. m may be nil.
func NewPruner(
	cfg Config,
	repo repository.HistoryRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pruner{
		interval:  cfg.Interval,
		retention: cfg.Retention,
		repo:      repo,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start prunes once and then on every interval until Stop.
func (p *Pruner) Start() {
	p.logger.Info("starting history pruner",
		"interval", p.interval.String(),
		"retention", p.retention.String(),
	)

	p.wg.Add(1)
	go p.run()
}

// Stop cancels the pruner and waits for an in-flight prune to finish.
func (p *Pruner) Stop(timeout time.Duration) error {
	p.logger.Info("stopping history pruner")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("history pruner stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

// PruneOnce deletes every entry older than the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	p.metrics.HistoryPruned(n)
	return n, nil
}

func (p *Pruner) run() {
	defer p.wg.Done()

	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("history pruner stopping")
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	n, err := p.PruneOnce(p.ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Error("failed to prune history", "error", err)
		}
		return
	}
	if n > 0 {
		p.logger.Info("pruned history", "removed", n)
	}
}
