package model

import "time"

// BrowserHealth is the browser-pool slice of a Health() response.
type BrowserHealth struct {
	Status   string `json:"status"`
	Contexts int    `json:"contexts"`
	Pages    int    `json:"pages"`
}

// QueueHealth is the request-queue slice of a Health() response.
type QueueHealth struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

// MemoryHealth is the memory-controller slice of a Health() response.
type MemoryHealth struct {
	RSSBytes uint64 `json:"rssBytes"`
	Pressure string `json:"pressure"`
}

// Health is the full payload the service layer's Health() operation
// returns (§6, elaborated in the supplemented-features section).
type Health struct {
	Uptime  time.Duration `json:"uptime"`
	Memory  MemoryHealth  `json:"memory"`
	Browser BrowserHealth `json:"browser"`
	Queue   QueueHealth   `json:"queue"`
}

// BrowserMetrics counts BrowserPool lifecycle events for observability.
type BrowserMetrics struct {
	PagesServed        int64 `json:"pagesServed"`
	ContextsCreated     int64 `json:"contextsCreated"`
	ContextsDestroyed   int64 `json:"contextsDestroyed"`
	ContextsEvicted     int64 `json:"contextsEvicted"`
	Restarts            int64 `json:"restarts"`
	PagePoolHits        int64 `json:"pagePoolHits"`
	PagePoolMisses      int64 `json:"pagePoolMisses"`
}

// QueueMetrics counts RequestQueue lifecycle events.
type QueueMetrics struct {
	Admitted   int64 `json:"admitted"`
	Rejected   int64 `json:"rejected"`
	TimedOut   int64 `json:"timedOut"`
	Cancelled  int64 `json:"cancelled"`
	Completed  int64 `json:"completed"`
}

// MemoryMetrics reports the memory controller's rolling trend.
type MemoryMetrics struct {
	CurrentRSSBytes uint64  `json:"currentRssBytes"`
	Trend           string  `json:"trend"`
	ActionsTaken    int64   `json:"actionsTaken"`
}

// Metrics is the full payload the service layer's Metrics() operation
// returns (§4.5, §6).
type Metrics struct {
	Browser BrowserMetrics `json:"browser"`
	Queue   QueueMetrics   `json:"queue"`
	Memory  MemoryMetrics  `json:"memory"`
}

// BrowserStatus is BrowserPool's own Status() return value — the pool's
// internal lifecycle state plus a point-in-time snapshot of pool sizes.
type BrowserStatus struct {
	State           string `json:"state"`
	LiveContexts    int    `json:"liveContexts"`
	BorrowedContexts int   `json:"borrowedContexts"`
	PagesProcessed  int    `json:"pagesProcessed"`
	WarmPages       int    `json:"warmPages"`
}
