package scrape

import (
	"time"

	"github.com/go-rod/rod"
)

// detectDynamicContentJS implements §4.3 step 5's signal detection: lazy
// loading attributes, infinite-scroll/pagination markers, or page source
// mentioning both "scroll" and a load-more/infinite keyword.
const detectDynamicContentJS = `() => {
	if (document.querySelector('[data-lazy], [data-src], [loading="lazy"]')) return true;
	if (document.querySelector('.infinite-scroll, .load-more, #infinite, .pagination')) return true;
	var src = document.documentElement.outerHTML.toLowerCase();
	if (src.indexOf('scroll') !== -1 && (src.indexOf('load-more') !== -1 || src.indexOf('infinite') !== -1)) return true;
	return false;
}`

const scrollStepJS = `(byPixels) => {
	window.scrollBy(0, byPixels);
	var doc = document.documentElement;
	return {
		scrollY: window.scrollY,
		atBottom: (window.innerHeight + window.scrollY) >= (doc.scrollHeight - 50),
		scrollHeight: doc.scrollHeight,
	};
}`

const scrollToTopJS = `() => { window.scrollTo(0, 0); return true; }`

type scrollStepResult struct {
	ScrollY      float64 `json:"scrollY"`
	AtBottom     bool    `json:"atBottom"`
	ScrollHeight float64 `json:"scrollHeight"`
}

// hasDynamicContent runs the §4.3 step 5 detection heuristic.
func hasDynamicContent(page *rod.Page) bool {
	res, err := page.Evaluate(&rod.EvalOptions{JS: detectDynamicContentJS})
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// scrollPage implements §4.3 step 5's scroll loop: only entered when
// hasDynamicContent signals dynamic content, but always performs at least
// one viewport scroll before returning to the top.
func scrollPage(page *rod.Page, cfg scrollConfig) {
	if !hasDynamicContent(page) {
		return
	}

	deadline := time.Now().Add(cfg.maxScrollTime)
	lastHeight := -1.0
	noChangeStreak := 0
	didOne := false

	for {
		res, err := page.Evaluate(&rod.EvalOptions{JS: scrollStepJS, JSArgs: []interface{}{cfg.byPixels}})
		if err != nil {
			break
		}
		var step scrollStepResult
		if err := res.Value.Unmarshal(&step); err != nil {
			break
		}
		didOne = true

		if step.AtBottom {
			break
		}
		if step.ScrollHeight == lastHeight {
			noChangeStreak++
			if noChangeStreak >= 3 {
				break
			}
		} else {
			noChangeStreak = 0
		}
		lastHeight = step.ScrollHeight

		if time.Now().After(deadline) {
			break
		}
		time.Sleep(cfg.interval)
	}

	if !didOne {
		_, _ = page.Evaluate(&rod.EvalOptions{JS: scrollStepJS, JSArgs: []interface{}{cfg.byPixels}})
	}
	_, _ = page.Evaluate(&rod.EvalOptions{JS: scrollToTopJS})
}

type scrollConfig struct {
	byPixels      int
	interval      time.Duration
	maxScrollTime time.Duration
}
