// Package diag provides best-effort diagnostic side tasks with no effect on
// pipeline correctness.
package diag

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// DefaultReportInterval is how often the memory reporter logs usage.
const DefaultReportInterval = 30 * time.Second

// MemoryReporter periodically logs process memory usage. It is a read-only
// side task: omitting it entirely changes nothing about the pipeline.
type MemoryReporter struct {
	interval time.Duration
	logger   *slog.Logger
}

// NewMemoryReporter creates a reporter with the given interval; zero or
// negative selects the default.
func NewMemoryReporter(interval time.Duration, logger *slog.Logger) *MemoryReporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &MemoryReporter{interval: interval, logger: logger}
}

// Start launches the reporter until the context is cancelled
func (m *MemoryReporter) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *MemoryReporter) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *MemoryReporter) report() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.logger.Debug("memory usage",
		"heap_alloc_bytes", stats.HeapAlloc,
		"heap_sys_bytes", stats.HeapSys,
		"total_alloc_bytes", stats.TotalAlloc,
		"sys_bytes", stats.Sys,
		"num_gc", stats.NumGC,
		"goroutines", runtime.NumGoroutine())
}
