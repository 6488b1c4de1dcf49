package memctl

import (
	"context"
	"testing"
	"time"

	"github.com/0xtamizh/scrapebase/internal/model"
)

type fakePool struct {
	released    int
	restarts    int
	releaseStub func() int
}

func (f *fakePool) ReleaseUnusedContexts() int {
	f.released++
	if f.releaseStub != nil {
		return f.releaseStub()
	}
	return 1
}

func (f *fakePool) ForceCleanupAndRestart(ctx context.Context) error {
	f.restarts++
	return nil
}

func (f *fakePool) Status() model.BrowserStatus {
	return model.BrowserStatus{}
}

func newTestController(t *testing.T) (*Controller, *fakePool) {
	t.Helper()
	pool := &fakePool{}
	c, err := New(model.DefaultMemoryControllerConfig(), pool, func() int { return 0 })
	if err != nil {
		t.Fatalf("unexpected error constructing controller: %v", err)
	}
	return c, pool
}

func TestUpdateWindowTrendClassification(t *testing.T) {
	c, _ := newTestController(t)

	// Stable: no meaningful change.
	trend := c.updateWindow(400 * 1024 * 1024)
	if trend != "stable" {
		t.Errorf("first sample should be stable, got %s", trend)
	}

	// +5% sits exactly at the threshold, which is not above it, so still stable.
	trend = c.updateWindow(420 * 1024 * 1024)
	if trend != "stable" {
		t.Errorf("small change should be stable, got %s", trend)
	}
}

func TestUpdateWindowIncreasingTrend(t *testing.T) {
	c, _ := newTestController(t)
	c.updateWindow(400 * 1024 * 1024)
	trend := c.updateWindow(600 * 1024 * 1024) // +50%, well above the 5% threshold
	if trend != "increasing" {
		t.Errorf("expected increasing trend, got %s", trend)
	}
}

func TestUpdateWindowDecreasingTrend(t *testing.T) {
	c, _ := newTestController(t)
	c.updateWindow(600 * 1024 * 1024)
	trend := c.updateWindow(400 * 1024 * 1024) // -33%, well below the -5% threshold
	if trend != "decreasing" {
		t.Errorf("expected decreasing trend, got %s", trend)
	}
}

func TestUpdateWindowCapsAtRollingSize(t *testing.T) {
	c, _ := newTestController(t)
	c.cfg.RollingWindowSize = 3
	for i := 0; i < 10; i++ {
		c.updateWindow(uint64(i) * 1024 * 1024)
	}
	if len(c.window) != 3 {
		t.Errorf("expected window capped at 3, got %d", len(c.window))
	}
}

func TestPressureBands(t *testing.T) {
	c, _ := newTestController(t)

	cases := []struct {
		rssMB uint64
		want  string
	}{
		{200, "normal"},
		{500, "warn"},
		{1000, "critical"},
		{2000, "emergency"},
	}
	for _, tc := range cases {
		c.updateWindow(tc.rssMB * 1024 * 1024)
		if got := c.Pressure(); got != tc.want {
			t.Errorf("rss=%dMB: got pressure %s, want %s", tc.rssMB, got, tc.want)
		}
	}
}

// TestApplyBandSchedulesRestartWhenCriticalReleaseClosesNothing covers the
// §8 testable property for the critical band: when ReleaseUnusedContexts
// closes zero contexts, a background restart must still be scheduled.
func TestApplyBandSchedulesRestartWhenCriticalReleaseClosesNothing(t *testing.T) {
	c, pool := newTestController(t)
	pool.releaseStub = func() int { return 0 }
	c.cfg.ForceRestartDelay = time.Millisecond

	c.applyBand(1000, "stable") // critical band

	waitForRestart(t, pool)
}

// TestApplyBandSchedulesRestartWhenEmergencyReleaseClosesNothing covers the
// same property for the emergency band: sustained RSS above the emergency
// threshold with nothing idle to release must still schedule a restart,
// not just a release attempt and a couple of GC calls.
func TestApplyBandSchedulesRestartWhenEmergencyReleaseClosesNothing(t *testing.T) {
	c, pool := newTestController(t)
	pool.releaseStub = func() int { return 0 }
	c.cfg.ForceRestartDelay = time.Millisecond

	c.applyBand(2000, "stable") // emergency band

	waitForRestart(t, pool)
}

// TestApplyBandDoesNotRestartWhenReleaseClosedSomething covers the other
// side of the same property: a release that actually closed a context
// must not also trigger a restart.
func TestApplyBandDoesNotRestartWhenReleaseClosedSomething(t *testing.T) {
	c, pool := newTestController(t)
	pool.releaseStub = func() int { return 1 }
	c.cfg.ForceRestartDelay = time.Millisecond

	c.applyBand(2000, "stable") // emergency band

	time.Sleep(10 * time.Millisecond)
	if pool.restarts != 0 {
		t.Errorf("expected no restart when release closed a context, got %d", pool.restarts)
	}
}

func waitForRestart(t *testing.T, pool *fakePool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if pool.restarts > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected a restart to be scheduled, got %d", pool.restarts)
}

func TestMetricsReflectsWindowAndActions(t *testing.T) {
	c, _ := newTestController(t)
	c.updateWindow(500 * 1024 * 1024)
	c.actions.Add(2)

	m := c.Metrics()
	if m.CurrentRSSBytes != 500*1024*1024 {
		t.Errorf("expected current RSS reflected in metrics, got %d", m.CurrentRSSBytes)
	}
	if m.ActionsTaken != 2 {
		t.Errorf("expected actionsTaken=2, got %d", m.ActionsTaken)
	}
}
