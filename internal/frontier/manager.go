package frontier

import (
	"slices"
	"sync"

	"github.com/nao1215/docscrawl/internal/model"
)

// Manager owns the frontier queue and the visited set.
// All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	// queue is the FIFO frontier.
	queue []string

	// queued mirrors queue for O(1) membership checks.
	queued map[string]struct{}

	// visited is the insertion-ordered visited list.
	visited []string

	// visitedSet mirrors visited for O(1) membership checks.
	visitedSet map[string]struct{}
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		queue:      make([]string, 0),
		queued:     make(map[string]struct{}),
		visited:    make([]string, 0),
		visitedSet: make(map[string]struct{}),
	}
}

// NewManagerFromState rebuilds a Manager from a persisted state.
// Duplicate frontier entries and frontier entries that are already
// visited are dropped, so a hand-edited checkpoint cannot break the
// invariants.
func NewManagerFromState(state *model.CrawlState) *Manager {
	m := NewManager()
	if state == nil {
		return m
	}
	for _, u := range state.Visited {
		m.recordVisitedLocked(u)
	}
	for _, u := range state.Frontier {
		m.offerLocked(u)
	}
	return m
}

// Seed inserts url into the frontier only when both the frontier and the
// visited set are empty. It reports whether the seed was inserted.
func (m *Manager) Seed(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if url == "" || len(m.queue) > 0 || len(m.visited) > 0 {
		return false
	}
	return m.offerLocked(url)
}

// TakeBatch removes and returns up to maxSize URLs from the front of the
// frontier in FIFO order. It returns an empty slice when the frontier is
// empty or maxSize is not positive.
func (m *Manager) TakeBatch(maxSize int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxSize <= 0 || len(m.queue) == 0 {
		return []string{}
	}

	n := min(maxSize, len(m.queue))
	batch := slices.Clone(m.queue[:n])
	m.queue = slices.Clone(m.queue[n:])
	for _, u := range batch {
		delete(m.queued, u)
	}
	return batch
}

// RecordVisited moves url into the visited set. It is idempotent.
// If url is still queued it is removed from the frontier.
func (m *Manager) RecordVisited(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordVisitedLocked(url)
}

func (m *Manager) recordVisitedLocked(url string) {
	if _, ok := m.visitedSet[url]; ok {
		return
	}
	if _, ok := m.queued[url]; ok {
		delete(m.queued, url)
		m.queue = slices.DeleteFunc(m.queue, func(q string) bool { return q == url })
	}
	m.visitedSet[url] = struct{}{}
	m.visited = append(m.visited, url)
}

// Offer appends url to the back of the frontier if it is neither visited
// nor already queued. It reports whether url was added.
func (m *Manager) Offer(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offerLocked(url)
}

func (m *Manager) offerLocked(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := m.visitedSet[url]; ok {
		return false
	}
	if _, ok := m.queued[url]; ok {
		return false
	}
	m.queued[url] = struct{}{}
	m.queue = append(m.queue, url)
	return true
}

// Requeue puts claimed but unprocessed URLs back at the front of the
// frontier, preserving their order. URLs already visited or queued are
// skipped.
func (m *Manager) Requeue(urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	front := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := m.visitedSet[u]; ok {
			continue
		}
		if _, ok := m.queued[u]; ok {
			continue
		}
		m.queued[u] = struct{}{}
		front = append(front, u)
	}
	m.queue = append(front, m.queue...)
}

// HasWork reports whether the frontier is non-empty.
func (m *Manager) HasWork() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0
}

// IsVisited reports whether url is in the visited set.
func (m *Manager) IsVisited(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.visitedSet[url]
	return ok
}

// Queued reports whether url is in the frontier.
func (m *Manager) Queued(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.queued[url]
	return ok
}

// Len returns the frontier size.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// VisitedCount returns the size of the visited set.
func (m *Manager) VisitedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visited)
}

// Frontier returns a copy of the frontier in FIFO order.
func (m *Manager) Frontier() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

// Visited returns a copy of the visited URLs in insertion order.
func (m *Manager) Visited() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.visited)
}
