package model

import "slices"

// CrawlState is the unit of persisted crawl progress.
//
// Visited and Frontier are kept as ordered slices so that a checkpoint
// round-trips exactly; set semantics are enforced by frontier.Manager.
type CrawlState struct {
	// Visited holds every URL whose fetch completed successfully,
	// in the order it was recorded. A URL is never removed.
	Visited []string `json:"visited"`

	// Frontier is the FIFO queue of URLs awaiting processing.
	// It never contains a URL that is also in Visited.
	Frontier []string `json:"frontier"`

	// BatchCounter is incremented once per completed batch.
	BatchCounter int `json:"batch_counter"`

	// CategoryCounts maps a category label to the number of pages
	// recorded under it. Informational only.
	CategoryCounts map[string]int `json:"category_counts"`

	// MethodCounts maps an extracted method token to the number of
	// visited pages it appeared on.
	MethodCounts map[string]int `json:"method_counts"`

	// Failed maps a URL to the kind of its most recent fetch failure.
	// Entries are removed when a later fetch of the URL succeeds.
	Failed map[string]string `json:"failed"`
}

// NewCrawlState returns an empty CrawlState with all maps allocated.
func NewCrawlState() *CrawlState {
	return &CrawlState{
		Visited:        make([]string, 0),
		Frontier:       make([]string, 0),
		CategoryCounts: make(map[string]int),
		MethodCounts:   make(map[string]int),
		Failed:         make(map[string]string),
	}
}

// IsEmpty reports whether the state has neither visited nor queued URLs.
func (s *CrawlState) IsEmpty() bool {
	return len(s.Visited) == 0 && len(s.Frontier) == 0
}

// Clone returns a deep copy of the state.
func (s *CrawlState) Clone() *CrawlState {
	if s == nil {
		return nil
	}
	c := &CrawlState{
		Visited:        slices.Clone(s.Visited),
		Frontier:       slices.Clone(s.Frontier),
		BatchCounter:   s.BatchCounter,
		CategoryCounts: make(map[string]int, len(s.CategoryCounts)),
		MethodCounts:   make(map[string]int, len(s.MethodCounts)),
		Failed:         make(map[string]string, len(s.Failed)),
	}
	if c.Visited == nil {
		c.Visited = make([]string, 0)
	}
	if c.Frontier == nil {
		c.Frontier = make([]string, 0)
	}
	for k, v := range s.CategoryCounts {
		c.CategoryCounts[k] = v
	}
	for k, v := range s.MethodCounts {
		c.MethodCounts[k] = v
	}
	for k, v := range s.Failed {
		c.Failed[k] = v
	}
	return c
}

// Normalize allocates any nil collection so that a state decoded from an
// older or hand-edited checkpoint can be mutated safely.
func (s *CrawlState) Normalize() {
	if s.Visited == nil {
		s.Visited = make([]string, 0)
	}
	if s.Frontier == nil {
		s.Frontier = make([]string, 0)
	}
	if s.CategoryCounts == nil {
		s.CategoryCounts = make(map[string]int)
	}
	if s.MethodCounts == nil {
		s.MethodCounts = make(map[string]int)
	}
	if s.Failed == nil {
		s.Failed = make(map[string]string)
	}
}
