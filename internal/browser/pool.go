package browser

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// poolMetrics holds the atomic counters backing Pool.Metrics().
type poolMetrics struct {
	pagesServed       atomic.Int64
	contextsCreated   atomic.Int64
	contextsDestroyed atomic.Int64
	contextsEvicted   atomic.Int64
	restarts          atomic.Int64
	pagePoolHits      atomic.Int64
	pagePoolMisses    atomic.Int64
}

// pageLease tracks where an acquired page came from, so the release path
// (§4.1) returns it to the exact contextPool generation it was borrowed
// from — not whatever p.contexts happens to point to at release time,
// which may have been swapped out by a restart in between.
type pageLease struct {
	fromPool bool
	ctxRef   *browserContext
	ctxPool  *contextPool
}

// Pool is the BrowserPool component: one process-wide headless Browser,
// a pool of BrowserContext leases, and an optional fast-path Page pool.
type Pool struct {
	cfg model.BrowserPoolConfig

	mu       sync.RWMutex
	state    State
	browser  *rod.Browser
	contexts *contextPool
	pages    *pagePool

	pagesProcessed   atomic.Int64
	restartScheduled atomic.Bool

	metrics poolMetrics

	maintenanceCancel context.CancelFunc
	shutdownOnce      sync.Once
}

// New constructs a Pool in the Uninitialized state. Call Start before
// any WithPage call.
func New(cfg model.BrowserPoolConfig) *Pool {
	return &Pool{cfg: cfg, state: StateUninitialized}
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pool) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Start launches the Browser and pre-warms MIN_CONTEXTS contexts,
// retrying up to 3 times with linear backoff (2s, 4s, 6s) per §4.1.
func (p *Pool) Start(ctx context.Context) error {
	const maxRetries = 3
	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if err := p.startOnce(ctx); err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("browser pool start failed")
			if attempt <= maxRetries {
				time.Sleep(time.Duration(attempt) * 2 * time.Second)
			}
			continue
		}
		return nil
	}
	p.setState(StateUninitialized)
	return fmt.Errorf("starting browser pool after %d attempts: %w", maxRetries+1, lastErr)
}

func (p *Pool) startOnce(ctx context.Context) error {
	p.setState(StateStarting)

	b, err := launchBrowser(p.cfg)
	if err != nil {
		return err
	}

	contexts := newContextPool(b, p.cfg, &p.metrics)
	if err := contexts.prewarm(p.cfg.MinContexts, p.cfg.AcquireTimeout); err != nil {
		_ = b.Close()
		return fmt.Errorf("prewarming context pool: %w", err)
	}

	p.mu.Lock()
	p.browser = b
	p.contexts = contexts
	p.pages = newPagePool(p.cfg.PagePoolSize)
	p.mu.Unlock()

	p.watchDisconnect(b)
	p.startMaintenance()
	p.setState(StateReady)
	return nil
}

// launchBrowser starts a fresh headless Chrome process and connects rod
// to it, applying the §4.1 context-creation policy's process-wide flags
// (certificate tolerance; the viewport and user-agent are per-context).
func launchBrowser(cfg model.BrowserPoolConfig) (*rod.Browser, error) {
	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("ignore-certificate-errors").
		Set("disable-background-networking").
		Set("disable-default-apps").
		Set("mute-audio")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser process: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return b, nil
}

// WithPage borrows (or creates) a Page, invokes fn, and guarantees
// cleanup on every exit path — success, error, panic, or cancellation —
// per §4.1's public contract. It is a free function rather than a
// method because Go methods cannot carry their own type parameters.
func WithPage[T any](p *Pool, ctx context.Context, fn func(*rod.Page) (T, error)) (T, error) {
	var zero T

	switch p.State() {
	case StateShutdown:
		return zero, ErrShutdown
	case StateUninitialized, StateStarting:
		return zero, ErrNotReady
	}

	page, lease, err := p.acquirePage(ctx)
	if err != nil {
		return zero, err
	}
	// Bind the caller's cancellation token to the page so a cancelled ctx
	// aborts whatever CDP call fn is blocked in (navigation, evaluate),
	// per §5's "cancelled task in-flight signals the Page" rule.
	page = page.Context(ctx)

	var (
		result T
		fnErr  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				fnErr = scrapeerrors.New(scrapeerrors.KindInternal, fmt.Sprintf("panic in WithPage body: %v", r))
			}
			p.releasePage(page, lease, fnErr == nil)
		}()
		result, fnErr = fn(page)
	}()

	if fnErr == nil {
		p.onPageProcessed()
	}
	return result, fnErr
}

// acquirePage implements the §4.1 page-acquisition algorithm: an 0.8
// probability fast-path borrow from the warm page pool, falling back to
// a fresh context acquisition and page creation.
func (p *Pool) acquirePage(ctx context.Context) (*rod.Page, *pageLease, error) {
	p.mu.RLock()
	pages := p.pages
	p.mu.RUnlock()

	if pages != nil && pages.len() > 0 && rand.Float64() < 0.8 {
		if wp, ok := pages.tryBorrow(500 * time.Millisecond); ok {
			if err := resetWarmPage(wp.page); err == nil {
				p.metrics.pagePoolHits.Add(1)
				// wp's activePages slot was never released when it was
				// stashed back into the warm pool, so borrowing it again
				// here must not double-count it.
				return wp.page, &pageLease{fromPool: true, ctxRef: wp.ctxRef, ctxPool: wp.ctxPool}, nil
			}
			_ = wp.page.Close()
			p.disposeFromContext(&pageLease{ctxRef: wp.ctxRef, ctxPool: wp.ctxPool})
		}
	}

	p.metrics.pagePoolMisses.Add(1)

	contexts, err := p.borrowContextWithDrainRetry(ctx)
	if err != nil {
		return nil, nil, err
	}

	pageCtx, cancel := context.WithTimeout(ctx, p.cfg.PageTimeout)
	defer cancel()

	page, err := contexts.bc.newPage(pageCtx)
	if err != nil {
		contexts.pool.release(contexts.bc)
		return nil, nil, scrapeerrors.Wrap(scrapeerrors.KindBrowserError, "creating page", err)
	}

	installResourceFilter(page)
	page = page.Timeout(p.cfg.PageTimeout)
	atomic.AddInt32(&contexts.bc.activePages, 1)

	return page, &pageLease{fromPool: false, ctxRef: contexts.bc, ctxPool: contexts.pool}, nil
}

// borrowed pairs a leased browserContext with the generation of the
// contextPool it was borrowed from.
type borrowed struct {
	bc   *browserContext
	pool *contextPool
}

// borrowContextWithDrainRetry implements the §4.1 draining-recovery
// policy: on ErrDraining, log, reset the context pool, and retry up to 3
// times with 1s spacing.
func (p *Pool) borrowContextWithDrainRetry(ctx context.Context) (borrowed, error) {
	for attempt := 1; attempt <= 3; attempt++ {
		p.mu.RLock()
		contexts := p.contexts
		p.mu.RUnlock()

		bc, err := contexts.borrow(ctx, p.cfg.AcquireTimeout)
		if err == nil {
			return borrowed{bc: bc, pool: contexts}, nil
		}
		if err != ErrDraining {
			return borrowed{}, err
		}

		log.Warn().Int("attempt", attempt).Msg("context pool is draining, resetting")
		p.ResetContextPool()
		if attempt < 3 {
			time.Sleep(time.Second)
		}
	}
	return borrowed{}, ErrDraining
}

// ResetContextPool starts draining the current context pool in the
// background and swaps in a freshly pre-warmed one, per §4.1.
func (p *Pool) ResetContextPool() {
	p.mu.Lock()
	old := p.contexts
	b := p.browser
	p.mu.Unlock()

	fresh := newContextPool(b, p.cfg, &p.metrics)

	p.mu.Lock()
	p.contexts = fresh
	p.mu.Unlock()

	go old.drain()

	if err := fresh.prewarm(p.cfg.MinContexts, 10*time.Second); err != nil {
		log.Error().Err(err).Msg("prewarming reset context pool")
	}
}

// releasePage runs the §4.1 release path. A page whose WithPage body
// succeeded is reset and offered to the warm pool, whether it was
// borrowed from there or freshly created, so the fast path has something
// to serve (§4.1 describes the warm pool but not how it gets seeded). A
// page whose body failed, whose reset failed, or that finds the warm
// pool full is disposed.
func (p *Pool) releasePage(page *rod.Page, lease *pageLease, success bool) {
	if success && lease.ctxPool != nil {
		if err := resetWarmPage(page); err == nil {
			p.mu.RLock()
			pages := p.pages
			p.mu.RUnlock()
			if pages != nil && pages.tryReturn(&warmPage{page: page, ctxRef: lease.ctxRef, ctxPool: lease.ctxPool}) {
				return
			}
		}
	}

	clearPageStorageBestEffort(page)
	_ = page.Close()
	p.disposeFromContext(lease)
}

// disposeFromContext decrements the owning context's active-page count
// and, if it has hit zero and the pool has more than MIN_CONTEXTS live
// contexts, closes the context about 30% of the time to avoid thrash —
// the exact heuristic from §4.1's release path.
func (p *Pool) disposeFromContext(lease *pageLease) {
	remaining := atomic.AddInt32(&lease.ctxRef.activePages, -1)
	if remaining <= 0 && lease.ctxPool.liveCount() > p.cfg.MinContexts && rand.Float64() < 0.3 {
		lease.ctxPool.destroyAndForget(lease.ctxRef)
		return
	}
	lease.ctxPool.release(lease.ctxRef)
}

// clearPageStorageBestEffort clears local/session storage on a
// freshly-created page before closing it, per §4.1's "dispose: clear
// storages (best-effort)" release step. Errors are swallowed.
func clearPageStorageBestEffort(page *rod.Page) {
	const script = `() => {
		try { if (typeof localStorage !== 'undefined') localStorage.clear(); } catch (e) {}
		try { if (typeof sessionStorage !== 'undefined') sessionStorage.clear(); } catch (e) {}
		return true;
	}`
	_, _ = page.Evaluate(&rod.EvalOptions{JS: script})
}

// onPageProcessed increments the browser-wide pages-served counter and,
// on crossing RESTART_THRESHOLD, schedules exactly one background
// restart per §4.1's browser-restart policy.
func (p *Pool) onPageProcessed() {
	p.metrics.pagesServed.Add(1)
	n := p.pagesProcessed.Add(1)
	if n >= int64(p.cfg.RestartThreshold) && p.restartScheduled.CompareAndSwap(false, true) {
		go func() {
			log.Info().Int64("pages_processed", n).Msg("restart threshold reached, scheduling browser restart")
			if err := p.ForceCleanupAndRestart(context.Background()); err != nil {
				log.Error().Err(err).Msg("scheduled browser restart failed")
			}
			p.pagesProcessed.Store(0)
			p.restartScheduled.Store(false)
		}()
	}
}

// ForceCleanupAndRestart replaces the Browser and its context pool.
// Following §4.1, the replacement is initialized first; the old Browser
// is closed 10 seconds later so in-flight requests against it complete.
func (p *Pool) ForceCleanupAndRestart(ctx context.Context) error {
	p.setState(StateDraining)

	newBrowser, err := launchBrowser(p.cfg)
	if err != nil {
		p.setState(StateReady)
		return fmt.Errorf("launching replacement browser: %w", err)
	}

	p.setState(StateRestarting)

	newContexts := newContextPool(newBrowser, p.cfg, &p.metrics)
	if err := newContexts.prewarm(p.cfg.MinContexts, p.cfg.AcquireTimeout); err != nil {
		_ = newBrowser.Close()
		p.setState(StateReady)
		return fmt.Errorf("prewarming replacement context pool: %w", err)
	}

	p.mu.Lock()
	oldBrowser := p.browser
	oldContexts := p.contexts
	oldPages := p.pages
	p.browser = newBrowser
	p.contexts = newContexts
	p.pages = newPagePool(p.cfg.PagePoolSize)
	p.mu.Unlock()

	oldContexts.drain()
	if oldPages != nil {
		oldPages.drain()
	}

	p.metrics.restarts.Add(1)
	p.watchDisconnect(newBrowser)
	p.setState(StateReady)

	go func() {
		time.Sleep(10 * time.Second)
		if err := oldBrowser.Close(); err != nil {
			log.Debug().Err(err).Msg("closing superseded browser instance")
		}
	}()
	return nil
}

// watchDisconnect runs a lightweight CDP heartbeat against b and
// schedules a re-initialize 1s after an unexpected disconnect, per
// §4.1's disconnect-handling policy. It exits quietly once b has been
// superseded by a restart or the pool has shut down.
func (p *Pool) watchDisconnect(b *rod.Browser) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			p.mu.RLock()
			current := p.browser
			state := p.state
			p.mu.RUnlock()

			if current != b || state == StateShutdown {
				return
			}

			if _, err := (proto.BrowserGetVersion{}).Call(b); err != nil {
				log.Warn().Err(err).Msg("browser disconnected unexpectedly")
				time.AfterFunc(time.Second, func() {
					if err := p.ForceCleanupAndRestart(context.Background()); err != nil {
						log.Error().Err(err).Msg("re-initializing browser after disconnect failed")
					}
				})
				return
			}
		}
	}()
}

// startMaintenance runs the periodic idle-context eviction sweep
// (§4.1's IDLE_TIMEOUT) on a SOFT_IDLE cadence.
func (p *Pool) startMaintenance() {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.maintenanceCancel != nil {
		p.maintenanceCancel()
	}
	p.maintenanceCancel = cancel
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(p.cfg.SoftIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.mu.RLock()
				contexts := p.contexts
				p.mu.RUnlock()
				if contexts != nil {
					if n := contexts.evictIdle(p.cfg.IdleTimeout); n > 0 {
						log.Debug().Int("evicted", n).Msg("evicted idle browser contexts")
					}
				}
			}
		}
	}()
}

// ReleaseUnusedContexts proactively closes idle contexts beyond
// MIN_CONTEXTS, returning the number closed.
func (p *Pool) ReleaseUnusedContexts() int {
	p.mu.RLock()
	contexts := p.contexts
	p.mu.RUnlock()
	if contexts == nil {
		return 0
	}
	return contexts.releaseUnusedContexts()
}

// Shutdown drains both pools and closes the Browser. It is idempotent;
// per §4.1, Shutdown errors are logged but never returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.setState(StateDraining)

		p.mu.Lock()
		if p.maintenanceCancel != nil {
			p.maintenanceCancel()
		}
		contexts := p.contexts
		pages := p.pages
		b := p.browser
		p.mu.Unlock()

		if pages != nil {
			pages.drain()
		}
		if contexts != nil {
			contexts.drain()
		}
		if b != nil {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("closing browser during shutdown")
			}
		}
		p.setState(StateShutdown)
	})
	return nil
}

// Status returns a point-in-time snapshot of the pool's lifecycle state
// and sizes, for the Health() operation.
func (p *Pool) Status() model.BrowserStatus {
	p.mu.RLock()
	state := p.state
	contexts := p.contexts
	pages := p.pages
	p.mu.RUnlock()

	var live, idle, warm int
	if contexts != nil {
		live = contexts.liveCount()
		idle = contexts.idleCount()
	}
	if pages != nil {
		warm = pages.len()
	}

	return model.BrowserStatus{
		State:            state.String(),
		LiveContexts:     live,
		BorrowedContexts: live - idle,
		PagesProcessed:   int(p.pagesProcessed.Load()),
		WarmPages:        warm,
	}
}

// Metrics returns the pool's lifecycle counters for the Metrics()
// operation.
func (p *Pool) Metrics() model.BrowserMetrics {
	return model.BrowserMetrics{
		PagesServed:       p.metrics.pagesServed.Load(),
		ContextsCreated:   p.metrics.contextsCreated.Load(),
		ContextsDestroyed: p.metrics.contextsDestroyed.Load(),
		ContextsEvicted:   p.metrics.contextsEvicted.Load(),
		Restarts:          p.metrics.restarts.Load(),
		PagePoolHits:      p.metrics.pagePoolHits.Load(),
		PagePoolMisses:    p.metrics.pagePoolMisses.Load(),
	}
}
