// Package memctl implements the MemoryController component (§4.5): a
// periodic process-RSS sampler that drives graduated release/restart
// actions on the BrowserPool. Grounded on the teacher's
// internal/crawlers/resource_monitor.go (gopsutil RSS reads, the
// threshold-ladder shape of ShouldScaleDown) generalized from a
// max-tabs calculation to the full §4.5 action table.
package memctl

import (
	"context"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// Pool is the subset of browser.Pool the controller drives. Depending
// on an interface instead of the concrete type keeps memctl free of a
// direct dependency on the browser package's go-rod types.
type Pool interface {
	ReleaseUnusedContexts() int
	ForceCleanupAndRestart(ctx context.Context) error
	Status() model.BrowserStatus
}

// ActiveRequestsFunc reports the number of requests currently in flight,
// used by the idle-cleanup timer.
type ActiveRequestsFunc func() int

// Controller runs the §4.5 sampling loop against pool.
type Controller struct {
	cfg  model.MemoryControllerConfig
	pool Pool
	pid  int32

	activeRequests ActiveRequestsFunc

	mu       sync.Mutex
	window   []uint64
	lastRSS  uint64
	trend    string
	actions  atomic.Int64

	restartPending atomic.Bool

	cancel context.CancelFunc
}

// New constructs a Controller sampling the current process's RSS.
func New(cfg model.MemoryControllerConfig, pool Pool, activeRequests ActiveRequestsFunc) (*Controller, error) {
	return &Controller{
		cfg:            cfg,
		pool:           pool,
		pid:            int32(os.Getpid()),
		activeRequests: activeRequests,
		trend:          "stable",
	}, nil
}

// Start runs the metrics-interval sampling loop and the separate 5-minute
// idle-cleanup timer, both in background goroutines.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.sampleLoop(ctx)
	go c.idleLoop(ctx)
}

// Stop cancels both background loops.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) idleLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.IdleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rss := c.readRSS()
			if c.activeRequests() <= c.cfg.IdleMaxActiveReqs && rss > c.cfg.IdleRSSThresholdMB*1024*1024 {
				log.Info().Uint64("rss_mb", rss/1024/1024).Msg("idle cleanup triggered")
				c.pool.ReleaseUnusedContexts()
				c.actions.Add(1)
			}
		}
	}
}

// tick samples RSS, updates the rolling window/trend, and applies the
// §4.5 graduated action table.
func (c *Controller) tick() {
	rss := c.readRSS()
	if rss == 0 {
		return
	}

	trend := c.updateWindow(rss)
	c.applyBand(rss/(1024*1024), trend)
}

// applyBand runs the §4.5 graduated action table for a sampled rssMB.
// Split out from tick so the band thresholds and restart fallback can be
// exercised without a live RSS sample.
func (c *Controller) applyBand(rssMB uint64, trend string) {
	switch {
	case rssMB < c.cfg.WarnThresholdMB:
		// none
	case rssMB < c.cfg.CriticalThresholdMB:
		closed := c.pool.ReleaseUnusedContexts()
		requestGC()
		log.Debug().Uint64("rss_mb", rssMB).Int("closed", closed).Str("trend", trend).Msg("memory warn band: released idle contexts")
		c.actions.Add(1)
	case rssMB < c.cfg.EmergencyThresholdMB:
		closed := c.pool.ReleaseUnusedContexts()
		log.Warn().Uint64("rss_mb", rssMB).Int("closed", closed).Msg("memory critical band: aggressive release")
		c.actions.Add(1)
		c.scheduleRestartIfNothingClosed(closed)
	default:
		closed := c.pool.ReleaseUnusedContexts()
		log.Error().Uint64("rss_mb", rssMB).Int("closed", closed).Msg("memory emergency band: closing a context and forcing GC")
		requestGC()
		requestGC()
		c.actions.Add(1)
		c.scheduleRestartIfNothingClosed(closed)
	}
}

// scheduleRestartIfNothingClosed schedules a background
// ForceCleanupAndRestart when a release attempt closed zero contexts, so
// sustained pressure still gets relieved when nothing is idle to release.
func (c *Controller) scheduleRestartIfNothingClosed(closed int) {
	if closed != 0 || !c.restartPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(c.cfg.ForceRestartDelay, func() {
		defer c.restartPending.Store(false)
		if err := c.pool.ForceCleanupAndRestart(context.Background()); err != nil {
			log.Error().Err(err).Msg("memory-pressure restart failed")
		}
	})
}

// updateWindow appends rss to the rolling window (capped at
// RollingWindowSize) and recomputes the trend classification.
func (c *Controller) updateWindow(rss uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = append(c.window, rss)
	if len(c.window) > c.cfg.RollingWindowSize {
		c.window = c.window[len(c.window)-c.cfg.RollingWindowSize:]
	}
	c.lastRSS = rss

	if len(c.window) < 2 {
		c.trend = "stable"
		return c.trend
	}

	first := float64(c.window[0])
	last := float64(c.window[len(c.window)-1])
	if first == 0 {
		c.trend = "stable"
		return c.trend
	}

	pctChange := (last - first) / first * 100
	switch {
	case pctChange > c.cfg.TrendThresholdPct:
		c.trend = "increasing"
	case pctChange < -c.cfg.TrendThresholdPct:
		c.trend = "decreasing"
	default:
		c.trend = "stable"
	}
	return c.trend
}

// readRSS samples the current process's resident set size via gopsutil.
func (c *Controller) readRSS() uint64 {
	return ReadProcessRSS(c.pid)
}

// ReadProcessRSS samples pid's resident set size via gopsutil. Shared
// with WebsiteCrawler's §4.4 step 4 batch RSS check so both components
// read memory pressure the same way.
func ReadProcessRSS(pid int32) uint64 {
	proc, err := process.NewProcess(pid)
	if err != nil {
		log.Debug().Err(err).Msg("opening process handle for RSS sample")
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		log.Debug().Err(err).Msg("reading process memory info")
		return 0
	}
	return info.RSS
}

// requestGC asks the Go runtime for a GC cycle, "if available" per
// §4.5 — debug.FreeOSMemory forces one and returns freed pages to the OS.
func requestGC() {
	debug.FreeOSMemory()
}

// Metrics returns the controller's current RSS/trend snapshot for the
// Metrics() operation.
func (c *Controller) Metrics() model.MemoryMetrics {
	c.mu.Lock()
	rss := c.lastRSS
	trend := c.trend
	c.mu.Unlock()
	return model.MemoryMetrics{
		CurrentRSSBytes: rss,
		Trend:           trend,
		ActionsTaken:    c.actions.Load(),
	}
}

// Pressure classifies the current RSS into the §4.5 band name, for the
// Health() operation's memory.pressure field.
func (c *Controller) Pressure() string {
	c.mu.Lock()
	rss := c.lastRSS
	c.mu.Unlock()
	rssMB := rss / (1024 * 1024)
	switch {
	case rssMB < c.cfg.WarnThresholdMB:
		return "normal"
	case rssMB < c.cfg.CriticalThresholdMB:
		return "warn"
	case rssMB < c.cfg.EmergencyThresholdMB:
		return "critical"
	default:
		return "emergency"
	}
}
