package model

import (
	"cmp"
	"slices"
	"time"
)

// DefaultTopMethods is the number of most frequent methods kept in a Summary.
const DefaultTopMethods = 20

// CategoryCount is one row of the per-category breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Pages    int    `json:"pages"`
}

// MethodCount is one row of the most-frequent-methods table.
type MethodCount struct {
	Method string `json:"method"`
	Pages  int    `json:"pages"`
}

// Summary is the aggregate report of a crawl.
// It is derived from a CrawlState alone, so it can be rebuilt from a
// checkpoint without fetching anything.
type Summary struct {
	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Complete is true when the frontier was empty at build time.
	Complete bool `json:"complete"`

	// Succeeded is the number of visited URLs.
	Succeeded int `json:"succeeded"`

	// Failed is the number of URLs whose latest fetch failed.
	Failed int `json:"failed"`

	// Pending is the number of URLs still in the frontier.
	Pending int `json:"pending"`

	// Batches is the number of completed batches.
	Batches int `json:"batches"`

	// Categories is the per-category breakdown, largest first.
	Categories []CategoryCount `json:"categories"`

	// UniqueMethods is the number of distinct method tokens seen.
	UniqueMethods int `json:"unique_methods"`

	// TopMethods are the most frequent method tokens, largest first.
	TopMethods []MethodCount `json:"top_methods"`

	// FailedURLs lists the failed URLs with their failure kind, sorted by URL.
	FailedURLs []FailedURL `json:"failed_urls,omitempty"`
}

// FailedURL is a URL whose latest fetch failed.
type FailedURL struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// NewSummary builds a Summary from a crawl state.
// topN limits TopMethods; values <= 0 use DefaultTopMethods.
func NewSummary(state *CrawlState, topN int, now time.Time) *Summary {
	if topN <= 0 {
		topN = DefaultTopMethods
	}

	s := &Summary{
		GeneratedAt:   now,
		Complete:      len(state.Frontier) == 0,
		Succeeded:     len(state.Visited),
		Failed:        len(state.Failed),
		Pending:       len(state.Frontier),
		Batches:       state.BatchCounter,
		Categories:    make([]CategoryCount, 0, len(state.CategoryCounts)),
		UniqueMethods: len(state.MethodCounts),
		TopMethods:    make([]MethodCount, 0, min(topN, len(state.MethodCounts))),
	}

	for category, n := range state.CategoryCounts {
		s.Categories = append(s.Categories, CategoryCount{Category: category, Pages: n})
	}
	slices.SortFunc(s.Categories, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Pages, a.Pages); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	methods := make([]MethodCount, 0, len(state.MethodCounts))
	for method, n := range state.MethodCounts {
		methods = append(methods, MethodCount{Method: method, Pages: n})
	}
	slices.SortFunc(methods, func(a, b MethodCount) int {
		if c := cmp.Compare(b.Pages, a.Pages); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	if len(methods) > topN {
		methods = methods[:topN]
	}
	s.TopMethods = append(s.TopMethods, methods...)

	for u, kind := range state.Failed {
		s.FailedURLs = append(s.FailedURLs, FailedURL{URL: u, Kind: kind})
	}
	slices.SortFunc(s.FailedURLs, func(a, b FailedURL) int {
		return cmp.Compare(a.URL, b.URL)
	})

	return s
}

// Total returns the number of URLs that were attempted.
func (s *Summary) Total() int {
	return s.Succeeded + s.Failed
}
