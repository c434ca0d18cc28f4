package crawler

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/docscrawl/internal/checkpoint"
	"github.com/nao1215/docscrawl/internal/frontier"
	"github.com/nao1215/docscrawl/internal/model"
)

const (
	testSeed = "https://example.com/docs/index.html"
	docsA    = "https://example.com/docs/a.html"
	docsB    = "https://example.com/docs/b.html"
	docsC    = "https://example.com/docs/c.html"
	docsD    = "https://example.com/docs/d.html"
	docsE    = "https://example.com/docs/e.html"
)

// fakeSite is an in-memory Fetcher over a fixed link graph.
type fakeSite struct {
	mu       sync.Mutex
	pages    map[string][]string
	failures map[string]model.FetchErrorKind
	fetched  map[string]int
	// onFetch runs at the start of every fetch.
	onFetch func(url string)
}

func newFakeSite(pages map[string][]string) *fakeSite {
	return &fakeSite{
		pages:    pages,
		failures: make(map[string]model.FetchErrorKind),
		fetched:  make(map[string]int),
	}
}

// docsSite returns a small documentation graph with a cycle, a self link,
// an external link and a binary link.
func docsSite() *fakeSite {
	return newFakeSite(map[string][]string{
		testSeed: {docsA, docsB, "https://other.example.org/docs/x.html", testSeed},
		docsA:    {docsB, docsC, testSeed, "https://example.com/docs/manual.pdf"},
		docsB:    {docsC, docsD},
		docsC:    {docsA},
		docsD:    {docsE, "https://example.com/blog/post.html"},
		docsE:    {},
	})
}

func (s *fakeSite) Fetch(ctx context.Context, url string) (*model.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.onFetch != nil {
		s.onFetch(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.fetched[url]++
	kind, failing := s.failures[url]
	links, found := s.pages[url]
	s.mu.Unlock()

	if failing {
		return nil, &model.FetchError{Kind: kind, URL: url}
	}
	if !found {
		return nil, &model.FetchError{Kind: model.FetchHTTPStatus, URL: url, StatusCode: 404}
	}

	name := strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".html")
	return &model.PageResult{
		URL:      url,
		Title:    name,
		Category: "cat-" + name,
		Methods:  []string{"shared", "get" + name},
		Links:    links,
		OK:       true,
	}, nil
}

func (s *fakeSite) fetchCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched[url]
}

// recordingSink collects pages and summaries.
type recordingSink struct {
	mu        sync.Mutex
	pages     []string
	summaries []*model.Summary
}

func (r *recordingSink) RecordPage(_ context.Context, page *model.PageResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page.URL)
	return nil
}

func (r *recordingSink) SaveSummary(_ context.Context, summary *model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
	return nil
}

// flakyStore fails the first failFirst saves, or every save when
// failFirst < 0. When failCall is positive only that save fails.
type flakyStore struct {
	*checkpoint.MemoryStore

	mu        sync.Mutex
	failFirst int
	failCall  int
	calls     int
}

func (s *flakyStore) Save(ctx context.Context, state *model.CrawlState) error {
	s.mu.Lock()
	s.calls++
	fail := s.failFirst < 0 || s.calls <= s.failFirst || s.calls == s.failCall
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, state)
}

func testFilter() *frontier.Filter {
	return frontier.NewFilter("example.com", "/docs/", frontier.DefaultSkipPatterns)
}

func newTestCrawler(fetcher Fetcher, store checkpoint.Store, state *model.CrawlState, opts ...Option) *Crawler {
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(fetcher, store, testFilter(), state, opts...)
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

var allDocs = []string{docsA, docsB, docsC, docsD, docsE, testSeed}

func TestRunBatchAdmitsOnlyMatchingLinks(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string][]string{
		testSeed: {docsA, "https://external.example.org/docs/a.html"},
	})
	store := checkpoint.NewMemoryStore()
	c := newTestCrawler(site, store, nil)
	if !c.Seed(testSeed) {
		t.Fatal("Seed() = false, want true")
	}

	res, err := c.RunBatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	want := BatchResult{Batch: 1, Processed: 1, Succeeded: 1, Discovered: 1, Remaining: 1}
	if diff := cmp.Diff(want, *res); diff != "" {
		t.Errorf("RunBatch() mismatch (-want +got):\n%s", diff)
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{testSeed}, saved.Visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{docsA}, saved.Frontier); diff != "" {
		t.Errorf("frontier mismatch (-want +got):\n%s", diff)
	}
	if saved.BatchCounter != 1 {
		t.Errorf("BatchCounter = %d, want 1", saved.BatchCounter)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", c.Phase())
	}
}

func TestRunToCompletion(t *testing.T) {
	t.Parallel()

	site := docsSite()
	store := checkpoint.NewMemoryStore()
	sink := &recordingSink{}
	var batches []BatchResult

	c := newTestCrawler(site, store, nil,
		WithBatchSize(2),
		WithPageSink(sink),
		WithSummarySink(sink),
		WithBatchHook(func(r BatchResult) { batches = append(batches, r) }),
	)
	c.Seed(testSeed)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if c.Phase() != PhaseDone {
		t.Errorf("Phase() = %v, want done", c.Phase())
	}

	state := c.Snapshot()
	if diff := cmp.Diff(sorted(allDocs), sorted(state.Visited)); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if len(state.Frontier) != 0 {
		t.Errorf("frontier = %v, want empty", state.Frontier)
	}
	for _, u := range allDocs {
		if n := site.fetchCount(u); n != 1 {
			t.Errorf("%s fetched %d times, want 1", u, n)
		}
	}

	if !summary.Complete || summary.Succeeded != len(allDocs) || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Batches != len(batches) || summary.Batches != 4 {
		t.Errorf("Batches = %d, hook saw %d, want 4", summary.Batches, len(batches))
	}
	if len(summary.TopMethods) == 0 || summary.TopMethods[0] != (model.MethodCount{Method: "shared", Pages: len(allDocs)}) {
		t.Errorf("TopMethods = %v", summary.TopMethods)
	}

	if diff := cmp.Diff(sorted(allDocs), sorted(sink.pages)); diff != "" {
		t.Errorf("page sink mismatch (-want +got):\n%s", diff)
	}
	if len(sink.summaries) != 1 {
		t.Errorf("summary sink received %d summaries, want 1", len(sink.summaries))
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(state, saved); diff != "" {
		t.Errorf("final checkpoint mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Run(context.Background()); !errors.Is(err, ErrCrawlDone) {
		t.Errorf("second Run() error = %v, want ErrCrawlDone", err)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	t.Run("unseeded state", func(t *testing.T) {
		t.Parallel()

		c := newTestCrawler(docsSite(), checkpoint.NewMemoryStore(), nil)
		if _, err := c.Run(context.Background()); !errors.Is(err, ErrNotSeeded) {
			t.Errorf("Run() error = %v, want ErrNotSeeded", err)
		}
		if _, err := c.RunBatch(context.Background(), 1); !errors.Is(err, ErrNotSeeded) {
			t.Errorf("RunBatch() error = %v, want ErrNotSeeded", err)
		}
	})

	t.Run("resumed completed state", func(t *testing.T) {
		t.Parallel()

		state := model.NewCrawlState()
		state.Visited = []string{testSeed}
		c := newTestCrawler(docsSite(), checkpoint.NewMemoryStore(), state)
		if _, err := c.Run(context.Background()); !errors.Is(err, ErrCrawlDone) {
			t.Errorf("Run() error = %v, want ErrCrawlDone", err)
		}
		if c.Phase() != PhaseDone {
			t.Errorf("Phase() = %v, want done", c.Phase())
		}
	})

	t.Run("seed ignored when progress exists", func(t *testing.T) {
		t.Parallel()

		state := model.NewCrawlState()
		state.Visited = []string{docsA}
		state.Frontier = []string{docsB}
		c := newTestCrawler(docsSite(), checkpoint.NewMemoryStore(), state)
		if c.Seed(testSeed) {
			t.Error("Seed() = true, want false")
		}
	})
}

func TestFailedFetchIsNotVisited(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string][]string{
		testSeed: {docsA, docsB},
		docsB:    {},
	})
	site.failures[docsA] = model.FetchTimeout

	c := newTestCrawler(site, checkpoint.NewMemoryStore(), nil, WithBatchSize(5))
	c.Seed(testSeed)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	state := c.Snapshot()
	if slices.Contains(state.Visited, docsA) {
		t.Error("failed URL must not be visited")
	}
	if slices.Contains(state.Frontier, docsA) {
		t.Error("failed URL must not be re-queued")
	}
	if state.Failed[docsA] != string(model.FetchTimeout) {
		t.Errorf("Failed = %v, want %s recorded as timeout", state.Failed, docsA)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("summary succeeded=%d failed=%d, want 2 and 1", summary.Succeeded, summary.Failed)
	}

	// Rediscovery re-queues the URL.
	m := frontier.NewManagerFromState(state)
	if !m.Offer(docsA) {
		t.Error("Offer() of a failed URL should re-queue it")
	}
}

func TestFailedEntryClearedOnLaterSuccess(t *testing.T) {
	t.Parallel()

	state := model.NewCrawlState()
	state.Frontier = []string{docsE}
	state.Failed[docsE] = string(model.FetchNetwork)

	c := newTestCrawler(docsSite(), checkpoint.NewMemoryStore(), state)
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := c.Snapshot().Failed; len(got) != 0 {
		t.Errorf("Failed = %v, want empty", got)
	}
}

func TestFailedSeedIsRetriedOnResume(t *testing.T) {
	t.Parallel()

	store := checkpoint.NewMemoryStore()
	site := newFakeSite(map[string][]string{
		testSeed: {docsA},
		docsA:    {},
	})
	site.failures[testSeed] = model.FetchNetwork

	first := newTestCrawler(site, store, nil)
	if !first.Seed(testSeed) {
		t.Fatal("Seed() = false, want true")
	}
	summary, err := first.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if summary.Succeeded != 0 || summary.Failed != 1 {
		t.Errorf("first summary succeeded=%d failed=%d, want 0 and 1", summary.Succeeded, summary.Failed)
	}

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !state.IsEmpty() || state.Failed[testSeed] != string(model.FetchNetwork) {
		t.Fatalf("saved state = %+v, want only the failed seed", state)
	}

	site.mu.Lock()
	delete(site.failures, testSeed)
	site.mu.Unlock()

	resumed := newTestCrawler(site, store, state)
	if _, err := resumed.Run(context.Background()); !errors.Is(err, ErrNotSeeded) {
		t.Errorf("Run() before reseeding error = %v, want ErrNotSeeded", err)
	}
	if !resumed.Seed(testSeed) {
		t.Fatal("Seed() after a failed seed = false, want true")
	}
	if _, err := resumed.Run(context.Background()); err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}

	if n := site.fetchCount(testSeed); n != 2 {
		t.Errorf("seed fetched %d times, want 2", n)
	}
	got := resumed.Snapshot()
	if diff := cmp.Diff([]string{docsA, testSeed}, sorted(got.Visited)); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if len(got.Failed) != 0 {
		t.Errorf("Failed = %v, want empty", got.Failed)
	}
}

func TestResumeIdempotence(t *testing.T) {
	t.Parallel()

	oneRun := newTestCrawler(docsSite(), checkpoint.NewMemoryStore(), nil, WithBatchSize(2))
	oneRun.Seed(testSeed)
	if _, err := oneRun.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := sorted(oneRun.Snapshot().Visited)

	for _, size := range []int{1, 2, 3} {
		store := checkpoint.NewMemoryStore()
		site := docsSite()

		first := newTestCrawler(site, store, nil)
		first.Seed(testSeed)

		for i := 0; ; i++ {
			if i > 20 {
				t.Fatalf("batch size %d: crawl did not finish", size)
			}
			// Each batch runs in a fresh process that only sees the checkpoint.
			state, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			c := first
			if state != nil {
				c = newTestCrawler(site, store, state)
			}
			res, err := c.RunBatch(context.Background(), size)
			if errors.Is(err, ErrCrawlDone) {
				break
			}
			if err != nil {
				t.Fatalf("RunBatch() error = %v", err)
			}
			if res.Summary != nil {
				break
			}
		}

		final, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(want, sorted(final.Visited)); diff != "" {
			t.Errorf("batch size %d: visited mismatch (-want +got):\n%s", size, diff)
		}
		for _, u := range allDocs {
			if n := site.fetchCount(u); n != 1 {
				t.Errorf("batch size %d: %s fetched %d times, want 1", size, u, n)
			}
		}
	}
}

func TestCancellationRequeuesClaimedURLs(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string][]string{
		testSeed: {docsA, docsB, docsC},
		docsA:    {docsD},
		docsB:    {},
		docsC:    {},
		docsD:    {},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site.onFetch = func(url string) {
		if url == docsB {
			cancel()
		}
	}

	store := checkpoint.NewMemoryStore()
	c := newTestCrawler(site, store, nil, WithBatchSize(3))
	c.Seed(testSeed)

	// Batch 1 is the seed; batch 2 claims a, b and c and is cut at b.
	_, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", c.Phase())
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{testSeed, docsA}, saved.Visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{docsB, docsC, docsD}, saved.Frontier); diff != "" {
		t.Errorf("frontier mismatch (-want +got):\n%s", diff)
	}

	// Resuming finishes the crawl without re-fetching completed pages.
	site.onFetch = nil
	resumed := newTestCrawler(site, store, saved)
	if _, err := resumed.Run(context.Background()); err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	for _, u := range []string{testSeed, docsA, docsB, docsC, docsD} {
		if n := site.fetchCount(u); n != 1 {
			t.Errorf("%s fetched %d times, want 1", u, n)
		}
	}
}

func TestPeriodicCheckpointIncludesClaimedURLs(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string][]string{
		testSeed: {docsA, docsB, docsC},
		docsA:    {},
		docsB:    {},
		docsC:    {},
	})
	store := checkpoint.NewMemoryStore()

	var seen *model.CrawlState
	site.onFetch = func(url string) {
		if url == docsC {
			seen, _ = store.Load(context.Background())
		}
	}

	state := model.NewCrawlState()
	state.Visited = []string{testSeed}
	state.Frontier = []string{docsA, docsB, docsC}

	c := newTestCrawler(site, store, state, WithBatchSize(3), WithCheckpointEvery(2))
	if _, err := c.RunBatch(context.Background(), 0); err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if seen == nil {
		t.Fatal("expected a checkpoint before the third page")
	}
	if diff := cmp.Diff([]string{testSeed, docsA, docsB}, seen.Visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{docsC}, seen.Frontier); diff != "" {
		t.Errorf("frontier mismatch (-want +got):\n%s", diff)
	}
	if seen.BatchCounter != 0 {
		t.Errorf("BatchCounter = %d, want 0 before the batch completes", seen.BatchCounter)
	}
}

func TestCheckpointFailures(t *testing.T) {
	t.Parallel()

	t.Run("transient failures are tolerated", func(t *testing.T) {
		t.Parallel()

		store := &flakyStore{MemoryStore: checkpoint.NewMemoryStore(), failFirst: 2}
		c := newTestCrawler(docsSite(), store, nil, WithBatchSize(1), WithMaxCheckpointFailures(3))
		c.Seed(testSeed)

		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		saved, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(saved.Visited) != len(allDocs) {
			t.Errorf("saved visited = %v", saved.Visited)
		}
	})

	t.Run("failed final checkpoint is tolerated", func(t *testing.T) {
		t.Parallel()

		// The batch writes the first checkpoint and finishing writes the second.
		store := &flakyStore{MemoryStore: checkpoint.NewMemoryStore(), failCall: 2}
		site := newFakeSite(map[string][]string{testSeed: {}})
		c := newTestCrawler(site, store, nil, WithCheckpointEvery(10), WithMaxCheckpointFailures(3))
		c.Seed(testSeed)

		summary, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary == nil || summary.Succeeded != 1 {
			t.Errorf("summary = %+v, want one succeeded page", summary)
		}
		if c.Phase() != PhaseDone {
			t.Errorf("Phase() = %v, want done", c.Phase())
		}
		saved, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff([]string{testSeed}, saved.Visited); diff != "" {
			t.Errorf("saved visited mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("persistent failures abort", func(t *testing.T) {
		t.Parallel()

		store := &flakyStore{MemoryStore: checkpoint.NewMemoryStore(), failFirst: -1}
		c := newTestCrawler(docsSite(), store, nil,
			WithBatchSize(1),
			WithCheckpointEvery(1),
			WithMaxCheckpointFailures(2),
		)
		c.Seed(testSeed)

		_, err := c.Run(context.Background())
		if !errors.Is(err, ErrCheckpointUnavailable) {
			t.Fatalf("Run() error = %v, want ErrCheckpointUnavailable", err)
		}
		if c.Phase() != PhaseIdle {
			t.Errorf("Phase() = %v, want idle", c.Phase())
		}
	})
}

func TestWorkerPool(t *testing.T) {
	t.Parallel()

	site := docsSite()
	c := newTestCrawler(site, checkpoint.NewMemoryStore(), nil, WithBatchSize(4), WithWorkers(4))
	c.Seed(testSeed)

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Succeeded != len(allDocs) {
		t.Errorf("Succeeded = %d, want %d", summary.Succeeded, len(allDocs))
	}

	state := c.Snapshot()
	for _, u := range state.Visited {
		if slices.Contains(state.Frontier, u) {
			t.Errorf("%s is both visited and queued", u)
		}
	}
	for _, u := range allDocs {
		if n := site.fetchCount(u); n != 1 {
			t.Errorf("%s fetched %d times, want 1", u, n)
		}
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseRunning, "running"},
		{PhaseDraining, "draining"},
		{PhaseDone, "done"},
		{Phase(42), "phase(42)"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}
