// Package browser implements the BrowserPool component: one process-wide
// headless Browser, a pool of reusable BrowserContext leases, and an
// optional fast-path pool of pre-warmed Pages.
//
// The pool is built on go-rod (github.com/go-rod/rod). Rod models only
// Browser and Page; there is no first-class "context" type exposed the
// way Playwright has one. This package fills that gap with the CDP
// primitives rod does expose — proto.TargetCreateBrowserContext and
// proto.TargetDisposeBrowserContext — giving genuine per-lease cookie and
// storage isolation without depending on a higher-level library.
//
//	pool := browser.New(cfg)
//	if err := pool.Start(ctx); err != nil { ... }
//	defer pool.Shutdown(context.Background())
//
//	title, err := browser.WithPage(pool, ctx, func(page *rod.Page) (string, error) {
//		if err := page.Navigate(url); err != nil {
//			return "", err
//		}
//		return page.MustInfo().Title, nil
//	})
package browser
