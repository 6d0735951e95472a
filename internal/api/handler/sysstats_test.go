package handler

import (
	"errors"
	"testing"
	"time"
)

func TestCPUSampler(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var (
		used time.Duration
		wall = base
	)
	s := &cpuSampler{
		cpuTime: func() (time.Duration, error) { return used, nil },
		now:     func() time.Time { return wall },
	}

	if got := s.sample(); got != 0 {
		t.Errorf("first sample = %v, want 0", got)
	}

	used, wall = 250*time.Millisecond, base.Add(time.Second)
	if got := s.sample(); got != 25 {
		t.Errorf("sample = %v, want 25", got)
	}

	// Several busy cores clamp to one.
	used, wall = 4*time.Second, base.Add(2*time.Second)
	if got := s.sample(); got != 100 {
		t.Errorf("sample = %v, want 100", got)
	}

	// No wall time elapsed.
	if got := s.sample(); got != 0 {
		t.Errorf("sample = %v, want 0", got)
	}
}

func TestCPUSampler_Error(t *testing.T) {
	s := &cpuSampler{
		cpuTime: func() (time.Duration, error) { return 0, errors.New("unsupported") },
		now:     time.Now,
	}
	s.sample()
	if got := s.sample(); got != 0 {
		t.Errorf("sample = %v, want 0", got)
	}
}

func TestDiskUsage_UsedPct(t *testing.T) {
	tests := []struct {
		du   diskUsage
		want float64
	}{
		{diskUsage{}, 0},
		{diskUsage{Total: 100, Free: 100}, 0},
		{diskUsage{Total: 200, Free: 50}, 75},
	}
	for _, tt := range tests {
		if got := tt.du.usedPct(); got != tt.want {
			t.Errorf("%+v.usedPct() = %v, want %v", tt.du, got, tt.want)
		}
	}
}
