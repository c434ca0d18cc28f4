package crawler

import "errors"

var (
	// ErrNotSeeded is returned when a crawl is started on a state that was
	// never given a seed URL.
	ErrNotSeeded = errors.New("crawl has not been seeded")

	// ErrCrawlDone is returned when a crawl is started on a state whose
	// frontier is already exhausted.
	ErrCrawlDone = errors.New("crawl is already complete")

	// ErrCheckpointUnavailable is returned when too many consecutive
	// checkpoint writes have failed.
	ErrCheckpointUnavailable = errors.New("checkpoint storage unavailable")

	// ErrRunning is returned when Run or RunBatch is called while another
	// call on the same Crawler is in progress.
	ErrRunning = errors.New("crawl is already running")
)
