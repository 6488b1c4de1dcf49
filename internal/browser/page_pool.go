package browser

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
)

// warmPage is a page sitting idle in the fast-path pool, along with the
// context it was created under and the pool that context belongs to (so
// a drain triggered by a browser restart releases it into the right
// generation of the context pool, not whichever one is current).
type warmPage struct {
	page    *rod.Page
	ctxRef  *browserContext
	ctxPool *contextPool
}

// pagePool is the optional fast-path pool of pre-warmed pages (§4.1 step
// 1). It trades a small amount of residual memory for skipping context
// acquisition and page creation on the common path.
type pagePool struct {
	ch chan *warmPage
}

func newPagePool(size int) *pagePool {
	return &pagePool{ch: make(chan *warmPage, size)}
}

func (pp *pagePool) len() int {
	return len(pp.ch)
}

// tryBorrow attempts to pop a warm page within timeout. It returns
// (nil, false) if the pool stays empty for the whole window.
func (pp *pagePool) tryBorrow(timeout time.Duration) (*warmPage, bool) {
	select {
	case wp := <-pp.ch:
		return wp, true
	case <-time.After(timeout):
		return nil, false
	}
}

// tryReturn pushes wp back into the pool. It returns false if the pool
// is full, in which case the caller must dispose of the page instead.
func (pp *pagePool) tryReturn(wp *warmPage) bool {
	select {
	case pp.ch <- wp:
		return true
	default:
		return false
	}
}

// drain empties the pool, closing every page it held and releasing the
// context each one was pinned to back to its owning contextPool.
func (pp *pagePool) drain() {
	for {
		select {
		case wp := <-pp.ch:
			_ = wp.page.Close()
			atomic.AddInt32(&wp.ctxRef.activePages, -1)
			if wp.ctxPool != nil {
				wp.ctxPool.release(wp.ctxRef)
			}
		default:
			return
		}
	}
}

// resetWarmPage implements the §4.1 step-1 reset: clear local/session
// storage, scroll to origin, and with probability 0.3 clear cookies.
func resetWarmPage(page *rod.Page) error {
	clearCookies := rand.Float64() < 0.3
	const script = `(clearCookies) => {
		try { if (typeof localStorage !== 'undefined') localStorage.clear(); } catch (e) {}
		try { if (typeof sessionStorage !== 'undefined') sessionStorage.clear(); } catch (e) {}
		try { window.scrollTo(0, 0); } catch (e) {}
		if (clearCookies && typeof document !== 'undefined' && document.cookie) {
			try {
				document.cookie.split(";").forEach((c) => {
					var eq = c.indexOf("=");
					var name = eq > -1 ? c.substr(0, eq) : c;
					document.cookie = name.replace(/^ +/, "") + "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/";
				});
			} catch (e) {}
		}
		return true;
	}`
	if _, err := page.Evaluate(&rod.EvalOptions{JS: script, JSArgs: []interface{}{clearCookies}}); err != nil {
		return fmt.Errorf("resetting warm page: %w", err)
	}
	return nil
}
