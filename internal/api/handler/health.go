package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/ultragrab/internal/service"
)

var startTime = time.Now()

// FallbackProber checks the fixed fallback source.
type FallbackProber interface {
	Probe(ctx context.Context) error
	FallbackConfigured() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	history     *service.HistoryService
	fallback    FallbackProber
	historyPath string
	backend     string
	cpu         *cpuSampler
}

// NewHealthHandler creates a new health handler. historyPath may be empty.
func NewHealthHandler(history *service.HistoryService, fallback FallbackProber, historyPath, backend string) *HealthHandler {
	return &HealthHandler{
		history:     history,
		fallback:    fallback,
		historyPath: historyPath,
		backend:     backend,
		cpu:         newCPUSampler(),
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe.
// An unreachable history store fails the probe; an unreachable fallback
// only degrades it, since primary relays still work.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	switch {
	case !h.history.Enabled():
		resp.Checks["history"] = "disabled"
	case h.history.Ping(ctx) != nil:
		resp.Checks["history"] = "error"
		resp.Status = "error"
		status = http.StatusServiceUnavailable
	default:
		resp.Checks["history"] = "ok"
	}

	switch {
	case h.fallback == nil || !h.fallback.FallbackConfigured():
		resp.Checks["fallback"] = "disabled"
	case h.fallback.Probe(ctx) != nil:
		resp.Checks["fallback"] = "unreachable"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	default:
		resp.Checks["fallback"] = "ok"
	}

	writeJSON(w, status, resp)
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime         int64   `json:"uptime_seconds"`
	UptimeHuman    string  `json:"uptime_human"`
	MemAllocMB     int64   `json:"mem_alloc_mb"`
	MemSysMB       int64   `json:"mem_sys_mb"`
	MemHeapMB      int64   `json:"mem_heap_mb"`
	MemAllocHuman  string  `json:"mem_alloc_human"`
	NumGoroutines  int     `json:"num_goroutines"`
	NumCPU         int     `json:"num_cpu"`
	CPUPct         float64 `json:"cpu_pct"`
	Backend        string  `json:"extractor_backend"`
	HistoryEnabled bool    `json:"history_enabled"`
	DiskFreeBytes  int64   `json:"disk_free_bytes,omitempty"`
	DiskFreeHuman  string  `json:"disk_free_human,omitempty"`
	DiskTotalBytes int64   `json:"disk_total_bytes,omitempty"`
	DiskUsedPct    float64 `json:"disk_used_pct,omitempty"`
}

// Stats handles GET /api/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:         int64(uptime.Seconds()),
		UptimeHuman:    formatUptime(uptime),
		MemAllocMB:     int64(m.Alloc / 1024 / 1024),
		MemSysMB:       int64(m.Sys / 1024 / 1024),
		MemHeapMB:      int64(m.HeapAlloc / 1024 / 1024),
		MemAllocHuman:  humanize.Bytes(m.Alloc),
		NumGoroutines:  runtime.NumGoroutine(),
		NumCPU:         runtime.NumCPU(),
		CPUPct:         h.cpu.sample(),
		Backend:        h.backend,
		HistoryEnabled: h.history.Enabled(),
	}

	// Disk stats cover the history database volume.
	if h.historyPath != "" {
		if du, err := statDisk(filepath.Dir(h.historyPath)); err == nil {
			stats.DiskTotalBytes = du.Total
			stats.DiskFreeBytes = du.Free
			stats.DiskFreeHuman = humanize.Bytes(uint64(du.Free))
			stats.DiskUsedPct = du.usedPct()
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
