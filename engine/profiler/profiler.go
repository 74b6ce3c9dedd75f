package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stats is one profiler sample taken at the end of an update interval.
type Stats struct {
	// FPS is the average frame rate over the interval.
	FPS float64

	// HeapMB is the live heap size in megabytes.
	HeapMB float64

	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64

	// GCCount is the total number of completed GC cycles.
	GCCount uint32

	// LastPause and MaxPause are the most recent and the longest GC pause since the previous sample.
	LastPause time.Duration
	MaxPause  time.Duration

	// SysMB is the memory obtained from the OS in megabytes.
	SysMB float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Takes a sample every update interval and optionally logs it.
type Profiler struct {
	mu             sync.Mutex
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	stats          Stats

	logger  *slog.Logger
	logging bool
	now     func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and logging is off.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Samples performance statistics when the update interval has elapsed: FPS, heap usage,
// allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if a new sample was taken this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap. TotalAlloc: cumulative, tracks churn. Sys: process footprint.
	s := Stats{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
		GCCount: p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if s.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		s.LastPause = time.Duration(p.memStats.PauseNs[(s.GCCount-1)%256])

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			s.MaxPause = max(s.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	if p.logging {
		p.logger.Debug("profiler",
			"fps", s.FPS,
			"heap_mb", s.HeapMB,
			"alloc_rate_mb", s.AllocRateMB,
			"gc", s.GCCount,
			"gc_last", s.LastPause,
			"gc_max", s.MaxPause,
			"sys_mb", s.SysMB,
		)
	}

	p.stats = s
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Stats returns the most recent sample, or the zero Stats before the first interval elapsed.
//
// Returns:
//   - Stats: the last sample
func (p *Profiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
