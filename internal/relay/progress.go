package relay

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const progressLogInterval = 30 * time.Second

// progressReader wraps an origin body to log progress and detect stalls.
// When no data arrives for readTimeout, cancel aborts the pending read.
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	stall       *time.Timer
	isStalled   atomic.Bool
	lastLog     time.Time
	logger      *slog.Logger
	mu          sync.Mutex
	closed      bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, cancel context.CancelFunc, logger *slog.Logger) *progressReader {
	p := &progressReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		lastLog:     time.Now(),
		logger:      logger,
	}
	if readTimeout > 0 {
		p.stall = time.AfterFunc(readTimeout, func() {
			p.isStalled.Store(true)
			cancel()
		})
	}
	return p
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	if n > 0 && p.stall != nil && !p.isStalled.Load() {
		p.stall.Reset(p.readTimeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		p.downloaded += int64(n)
		if time.Since(p.lastLog) > progressLogInterval {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}

	return n, err
}

// hold stops the stall timer while the client is slow to accept a chunk.
func (p *progressReader) hold() {
	if p.stall != nil {
		p.stall.Stop()
	}
}

// resume restarts the stall timer after a chunk was delivered.
func (p *progressReader) resume() {
	if p.stall != nil && !p.isStalled.Load() {
		p.stall.Reset(p.readTimeout)
	}
}

// stalled reports whether the stall timer fired.
func (p *progressReader) stalled() bool {
	return p.isStalled.Load()
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.stall != nil {
		p.stall.Stop()
	}
	p.mu.Unlock()

	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Info("relay progress",
			"relayed", humanize.Bytes(uint64(p.downloaded)),
			"total", humanize.Bytes(uint64(p.total)),
			"percent", humanize.FtoaWithDigits(pct, 1),
		)
	} else {
		p.logger.Info("relay progress",
			"relayed", humanize.Bytes(uint64(p.downloaded)),
		)
	}
}
