package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// A fixed 1280x720 desktop viewport (set in newPage) and this realistic
// desktop user-agent are applied to every page created under a pool
// context, per §4.1's context-creation policy.
const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// browserContext wraps a CDP browser context (an isolation boundary with
// its own cookies, storage, and cache). activePages counts pages
// currently checked out under this context; it is advisory (§9 shared
// counters) and bounds concurrency, not correctness.
type browserContext struct {
	id          proto.BrowserContextID
	browser     *rod.Browser
	activePages int32
	lastUsed    atomic.Int64
	mu          sync.Mutex
	closed      bool
}

func (bc *browserContext) isValid() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return !bc.closed
}

func (bc *browserContext) touch() {
	bc.lastUsed.Store(time.Now().UnixNano())
}

func (bc *browserContext) idleDuration() time.Duration {
	t := bc.lastUsed.Load()
	if t == 0 {
		return 0
	}
	return time.Since(time.Unix(0, t))
}

// newPage creates a Page scoped to this context and applies the fixed
// desktop viewport / user-agent / TLS-error-tolerance policy from §4.1.
func (bc *browserContext) newPage(ctx context.Context) (*rod.Page, error) {
	page, err := bc.browser.Context(ctx).Page(proto.TargetCreateTarget{
		BrowserContextID: bc.id,
	})
	if err != nil {
		return nil, err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1280,
		Height: 720,
	}); err != nil {
		log.Warn().Err(err).Msg("setting viewport failed")
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: desktopUserAgent,
	}); err != nil {
		log.Warn().Err(err).Msg("setting user agent failed")
	}
	// ignoreHTTPSErrors is applied process-wide via the launcher's
	// --ignore-certificate-errors flag (see pool.go); rod has no
	// per-context equivalent of Playwright's ignoreHTTPSErrors option.
	return page, nil
}

// destroy disposes the underlying CDP browser context. Errors are
// swallowed, matching §4.1's "destroy closes the context (errors
// swallowed)" policy.
func (bc *browserContext) destroy() {
	bc.mu.Lock()
	if bc.closed {
		bc.mu.Unlock()
		return
	}
	bc.closed = true
	bc.mu.Unlock()

	if err := (proto.TargetDisposeBrowserContext{BrowserContextID: bc.id}).Call(bc.browser); err != nil {
		log.Debug().Err(err).Msg("disposing browser context")
	}
}

// contextPool manages the lease pool of browserContext values. Borrowing
// is LIFO-biased: the most recently released context is handed out
// first, since it is most likely still warm in the browser process.
type contextPool struct {
	mu       sync.Mutex
	idle     []*browserContext
	created  int
	draining bool

	cfg     model.BrowserPoolConfig
	browser *rod.Browser

	releaseSignal chan struct{}

	contextsCreated   *atomic.Int64
	contextsDestroyed *atomic.Int64
	contextsEvicted   *atomic.Int64
}

func newContextPool(browser *rod.Browser, cfg model.BrowserPoolConfig, m *poolMetrics) *contextPool {
	return &contextPool{
		cfg:               cfg,
		browser:           browser,
		releaseSignal:     make(chan struct{}, cfg.MaxContexts),
		contextsCreated:   &m.contextsCreated,
		contextsDestroyed: &m.contextsDestroyed,
		contextsEvicted:   &m.contextsEvicted,
	}
}

// borrow returns a context with room for another page (activePages <
// MaxPagesPerContext), creating one if under MaxContexts, or blocking up
// to timeout / until ctx is cancelled.
func (p *contextPool) borrow(ctx context.Context, timeout time.Duration) (*browserContext, error) {
	deadline := time.Now().Add(timeout)
	for {
		bc, wait, err := p.tryBorrowOnce()
		if err != nil {
			return nil, err
		}
		if bc != nil {
			return bc, nil
		}
		if !wait {
			bc, err := p.createContext()
			if err != nil {
				return nil, err
			}
			return bc, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrAcquireTimeout
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrAcquireTimeout
		case <-p.releaseSignal:
			timer.Stop()
		}
	}
}

// tryBorrowOnce pops a usable context from idle if one exists. It
// returns (nil, false, nil) when the caller should create a fresh
// context, and (nil, true, nil) when the caller should wait.
func (p *contextPool) tryBorrowOnce() (*browserContext, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return nil, false, ErrDraining
	}

	var full []*browserContext
	for len(p.idle) > 0 {
		bc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if !bc.isValid() {
			p.created--
			p.contextsDestroyed.Add(1)
			continue
		}
		if atomic.LoadInt32(&bc.activePages) >= int32(p.cfg.MaxPagesPerContext) {
			full = append(full, bc)
			continue
		}
		p.idle = append(p.idle, full...)
		return bc, false, nil
	}
	p.idle = append(p.idle, full...)

	if p.created < p.cfg.MaxContexts {
		p.created++
		return nil, false, nil
	}
	return nil, true, nil
}

// createContext instantiates a fresh CDP browser context. It is called
// with the created-count slot already reserved by tryBorrowOnce.
func (p *contextPool) createContext() (*browserContext, error) {
	result, err := proto.TargetCreateBrowserContext{}.Call(p.browser)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	bc := &browserContext{id: result.BrowserContextID, browser: p.browser}
	bc.touch()
	p.contextsCreated.Add(1)
	return bc, nil
}

// release returns bc to the idle stack, or destroys it immediately if
// the pool is draining.
func (p *contextPool) release(bc *browserContext) {
	bc.touch()
	p.mu.Lock()
	if p.draining {
		p.created--
		p.mu.Unlock()
		bc.destroy()
		p.contextsDestroyed.Add(1)
		return
	}
	p.idle = append(p.idle, bc)
	p.mu.Unlock()

	select {
	case p.releaseSignal <- struct{}{}:
	default:
	}
}

// destroyAndForget removes bc from bookkeeping and closes it. Used by
// the release path (§4.1) when a context is closed after its last page.
func (p *contextPool) destroyAndForget(bc *browserContext) {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
	bc.destroy()
}

func (p *contextPool) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

func (p *contextPool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// releaseUnusedContexts closes idle contexts beyond MinContexts, per
// BrowserPool.ReleaseUnusedContexts.
func (p *contextPool) releaseUnusedContexts() int {
	p.mu.Lock()
	var toClose []*browserContext
	for len(p.idle) > 0 && p.created > p.cfg.MinContexts {
		bc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		toClose = append(toClose, bc)
		p.created--
	}
	p.mu.Unlock()

	for _, bc := range toClose {
		bc.destroy()
		p.contextsDestroyed.Add(1)
	}
	return len(toClose)
}

// evictIdle closes idle contexts that have exceeded IdleTimeout, never
// dropping below MinContexts.
func (p *contextPool) evictIdle(idleTimeout time.Duration) int {
	p.mu.Lock()
	keep := make([]*browserContext, 0, len(p.idle))
	var evict []*browserContext
	for _, bc := range p.idle {
		if p.created-len(evict) > p.cfg.MinContexts && bc.idleDuration() > idleTimeout {
			evict = append(evict, bc)
			continue
		}
		keep = append(keep, bc)
	}
	p.idle = keep
	p.created -= len(evict)
	p.mu.Unlock()

	for _, bc := range evict {
		bc.destroy()
		p.contextsEvicted.Add(1)
	}
	return len(evict)
}

// drain marks the pool draining and closes every idle context before it
// returns. Contexts still checked out are closed later, when their
// holder releases them, since release() sees draining.
func (p *contextPool) drain() {
	p.mu.Lock()
	p.draining = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, bc := range idle {
		bc.destroy()
		p.contextsDestroyed.Add(1)
	}
}

// prewarm creates n contexts up front, one at a time under perContextTimeout.
func (p *contextPool) prewarm(n int, perContextTimeout time.Duration) error {
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), perContextTimeout)
		bc, err := p.borrow(ctx, perContextTimeout)
		cancel()
		if err != nil {
			return fmt.Errorf("prewarming context %d/%d: %w", i+1, n, err)
		}
		p.release(bc)
	}
	return nil
}
