package handler

import (
	"sync"
	"time"
)

// diskUsage describes the filesystem holding the history database.
type diskUsage struct {
	Total int64
	Free  int64
}

func (d diskUsage) usedPct() float64 {
	if d.Total <= 0 {
		return 0
	}
	return float64(d.Total-d.Free) / float64(d.Total) * 100
}

// cpuSampler reports process CPU use between consecutive samples,
// as a share of one core.
type cpuSampler struct {
	mu       sync.Mutex
	cpuTime  func() (time.Duration, error)
	now      func() time.Time
	lastCPU  time.Duration
	lastWall time.Time
	primed   bool
}

func newCPUSampler() *cpuSampler {
	return &cpuSampler{cpuTime: processCPUTime, now: time.Now}
}

// sample returns the CPU percentage since the previous call, clamped to
// [0, 100]. The first call only records a baseline and returns 0.
func (s *cpuSampler) sample() float64 {
	used, err := s.cpuTime()
	if err != nil {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prevCPU, prevWall, primed := s.lastCPU, s.lastWall, s.primed
	s.lastCPU, s.lastWall, s.primed = used, now, true

	wall := now.Sub(prevWall)
	if !primed || wall <= 0 {
		return 0
	}

	pct := float64(used-prevCPU) / float64(wall) * 100
	return min(max(pct, 0), 100)
}
