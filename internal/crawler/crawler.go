package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docscrawl/internal/checkpoint"
	"github.com/nao1215/docscrawl/internal/frontier"
	"github.com/nao1215/docscrawl/internal/model"
)

// Default loop settings. They mirror the config package defaults.
const (
	DefaultBatchSize             = 15
	DefaultCheckpointEvery       = 3
	DefaultMaxCheckpointFailures = 5
)

// Phase is the lifecycle state of a Crawler.
type Phase int

const (
	// PhaseIdle means no batch is being processed.
	PhaseIdle Phase = iota
	// PhaseRunning means batches are being processed.
	PhaseRunning
	// PhaseDraining means the frontier is exhausted and the final summary
	// and checkpoint are being written.
	PhaseDraining
	// PhaseDone means the crawl is complete.
	PhaseDone
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PageSink receives every successfully fetched page.
type PageSink interface {
	RecordPage(ctx context.Context, page *model.PageResult) error
}

// SummarySink receives the summary of a completed crawl.
type SummarySink interface {
	SaveSummary(ctx context.Context, summary *model.Summary) error
}

// BatchResult reports the outcome of one batch.
type BatchResult struct {
	// Batch is the batch counter after this batch completed.
	Batch int

	// Processed is the number of URLs whose fetch completed.
	Processed int

	// Succeeded is the number of URLs recorded as visited.
	Succeeded int

	// Failed is the number of URLs whose fetch failed.
	Failed int

	// Discovered is the number of new URLs added to the frontier.
	Discovered int

	// Remaining is the frontier size after the batch.
	Remaining int

	// Summary is set when this batch exhausted the frontier.
	Summary *model.Summary
}

// Crawler runs the batch processing loop over a frontier.Manager,
// checkpointing to a checkpoint.Store.
type Crawler struct {
	fetcher Fetcher
	store   checkpoint.Store
	filter  *frontier.Filter
	manager *frontier.Manager

	batchSize             int
	checkpointEvery       int
	maxCheckpointFailures int
	workers               int
	batchDelay            time.Duration
	topMethods            int
	pacer                 *Pacer
	pageSink              PageSink
	summarySink           SummarySink
	onBatch               func(BatchResult)
	logger                *slog.Logger
	now                   func() time.Time

	// mu guards the fields below.
	mu             sync.Mutex
	phase          Phase
	batchCounter   int
	categoryCounts map[string]int
	methodCounts   map[string]int
	failed         map[string]string
	// inflight holds the claimed URLs of the current batch that have not
	// completed yet, in claim order.
	inflight []string
	// sinceCheckpoint counts page completions since the last checkpoint.
	sinceCheckpoint int
	current         BatchResult

	// saveMu serializes checkpoint writes and guards saveFailures.
	saveMu       sync.Mutex
	saveFailures int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBatchSize sets the number of URLs claimed per batch.
func WithBatchSize(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithCheckpointEvery sets how many page completions trigger a checkpoint
// inside a batch.
func WithCheckpointEvery(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.checkpointEvery = n
		}
	}
}

// WithMaxCheckpointFailures sets how many consecutive checkpoint failures
// abort the crawl.
func WithMaxCheckpointFailures(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxCheckpointFailures = n
		}
	}
}

// WithWorkers sets the number of concurrent fetches within a batch.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPageDelay sets the minimum spacing between page fetches.
func WithPageDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.pacer = NewPacer(d)
	}
}

// WithBatchDelay sets the pause between batches.
func WithBatchDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.batchDelay = d
	}
}

// WithTopMethods sets how many methods the final summary lists.
func WithTopMethods(n int) Option {
	return func(c *Crawler) {
		c.topMethods = n
	}
}

// WithPageSink sets the receiver of fetched pages.
func WithPageSink(sink PageSink) Option {
	return func(c *Crawler) {
		c.pageSink = sink
	}
}

// WithSummarySink sets the receiver of the final summary.
func WithSummarySink(sink SummarySink) Option {
	return func(c *Crawler) {
		c.summarySink = sink
	}
}

// WithBatchHook sets a function called after every completed batch.
func WithBatchHook(fn func(BatchResult)) Option {
	return func(c *Crawler) {
		c.onBatch = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source used for summaries.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Crawler resuming from state. A nil state starts empty.
func New(fetcher Fetcher, store checkpoint.Store, filter *frontier.Filter, state *model.CrawlState, opts ...Option) *Crawler {
	if state == nil {
		state = model.NewCrawlState()
	}
	state = state.Clone()
	state.Normalize()

	c := &Crawler{
		fetcher:               fetcher,
		store:                 store,
		filter:                filter,
		manager:               frontier.NewManagerFromState(state),
		batchSize:             DefaultBatchSize,
		checkpointEvery:       DefaultCheckpointEvery,
		maxCheckpointFailures: DefaultMaxCheckpointFailures,
		workers:               1,
		pacer:                 NewPacer(0),
		logger:                slog.Default(),
		now:                   time.Now,
		phase:                 PhaseIdle,
		batchCounter:          state.BatchCounter,
		categoryCounts:        state.CategoryCounts,
		methodCounts:          state.MethodCounts,
		failed:                state.Failed,
		inflight:              make([]string, 0),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Seed inserts url as the first frontier entry if nothing has been
// visited or queued yet. Failed URLs do not count: a crawl whose seed
// failed is seeded again. It reports whether the seed was inserted.
func (c *Crawler) Seed(url string) bool {
	return c.manager.Seed(url)
}

// Phase returns the current lifecycle phase.
func (c *Crawler) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns the current crawl state. Claimed URLs of a batch in
// progress are placed at the head of the frontier, so resuming from a
// snapshot taken mid-batch never loses them.
func (c *Crawler) Snapshot() *model.CrawlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Crawler) snapshotLocked() *model.CrawlState {
	visited := c.manager.Visited()
	queued := c.manager.Frontier()

	pending := make([]string, 0, len(c.inflight)+len(queued))
	seen := make(map[string]struct{}, len(c.inflight)+len(queued))
	for _, list := range [][]string{c.inflight, queued} {
		for _, u := range list {
			if _, dup := seen[u]; dup {
				continue
			}
			if c.manager.IsVisited(u) {
				continue
			}
			seen[u] = struct{}{}
			pending = append(pending, u)
		}
	}

	state := &model.CrawlState{
		Visited:        visited,
		Frontier:       pending,
		BatchCounter:   c.batchCounter,
		CategoryCounts: c.categoryCounts,
		MethodCounts:   c.methodCounts,
		Failed:         c.failed,
	}
	return state.Clone()
}

// Run processes batches until the frontier is exhausted, then writes the
// summary and the final checkpoint and returns the summary.
//
// When ctx is cancelled the claimed but unprocessed URLs are put back at
// the head of the frontier, a checkpoint is written and ctx.Err() is
// returned.
func (c *Crawler) Run(ctx context.Context) (*model.Summary, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	c.logger.Info("crawl started",
		"visited", c.manager.VisitedCount(),
		"frontier", c.manager.Len(),
		"batch", c.batchCounterValue())

	first := true
	for c.manager.HasWork() {
		if err := ctx.Err(); err != nil {
			return nil, c.interrupt(ctx, nil)
		}
		if !first {
			if err := pause(ctx, c.batchDelay); err != nil {
				return nil, c.interrupt(ctx, nil)
			}
		}
		first = false

		res, err := c.processBatch(ctx, c.manager.TakeBatch(c.batchSize))
		if err != nil {
			return nil, err
		}
		c.reportBatch(res)
	}

	return c.finish(ctx)
}

// RunBatch processes exactly one batch of at most size URLs and
// checkpoints. A non-positive size uses the configured batch size. If the
// batch exhausts the frontier the crawl is finished and the result carries
// the summary.
func (c *Crawler) RunBatch(ctx context.Context, size int) (*BatchResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = c.batchSize
	}

	res, err := c.processBatch(ctx, c.manager.TakeBatch(size))
	if err != nil {
		return nil, err
	}

	if !c.manager.HasWork() {
		summary, err := c.finish(ctx)
		if err != nil {
			return nil, err
		}
		res.Summary = summary
	} else {
		c.setPhase(PhaseIdle)
	}

	c.reportBatch(res)
	return &res, nil
}

// begin moves the crawler from Idle to Running.
func (c *Crawler) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseDone:
		return ErrCrawlDone
	case PhaseRunning, PhaseDraining:
		return ErrRunning
	}

	if !c.manager.HasWork() {
		if c.manager.VisitedCount() == 0 {
			return ErrNotSeeded
		}
		c.phase = PhaseDone
		return ErrCrawlDone
	}

	c.phase = PhaseRunning
	return nil
}

func (c *Crawler) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

func (c *Crawler) batchCounterValue() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batchCounter
}

// processBatch fetches every URL of batch, then checkpoints.
func (c *Crawler) processBatch(ctx context.Context, batch []string) (BatchResult, error) {
	c.mu.Lock()
	c.inflight = append(c.inflight[:0], batch...)
	c.current = BatchResult{}
	c.mu.Unlock()

	c.logger.Debug("batch claimed", "size", len(batch))

	var err error
	if c.workers <= 1 {
		for _, u := range batch {
			if err = c.processPage(ctx, u); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for _, u := range batch {
			g.Go(func() error {
				return c.processPage(gctx, u)
			})
		}
		err = g.Wait()
	}

	if err != nil {
		if ctx.Err() != nil {
			return BatchResult{}, c.interrupt(ctx, err)
		}
		c.requeueInflight()
		c.setPhase(PhaseIdle)
		return BatchResult{}, err
	}

	c.mu.Lock()
	c.batchCounter++
	c.sinceCheckpoint = 0
	res := c.current
	res.Batch = c.batchCounter
	c.mu.Unlock()
	res.Remaining = c.manager.Len()

	if err := c.checkpoint(ctx); err != nil {
		if ctx.Err() != nil {
			return BatchResult{}, c.interrupt(ctx, err)
		}
		c.setPhase(PhaseIdle)
		return BatchResult{}, err
	}
	return res, nil
}

// processPage paces, fetches and folds one URL.
func (c *Crawler) processPage(ctx context.Context, pageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.recordFailure(pageURL, err)
	} else {
		c.recordSuccess(ctx, pageURL, page)
	}

	if c.complete(pageURL) {
		return c.checkpoint(ctx)
	}
	return nil
}

// recordSuccess marks pageURL visited and offers its admitted links.
func (c *Crawler) recordSuccess(ctx context.Context, pageURL string, page *model.PageResult) {
	c.manager.RecordVisited(pageURL)

	discovered := 0
	for _, link := range page.Links {
		if c.filter != nil && !c.filter.Accept(link) {
			continue
		}
		if c.manager.Offer(link) {
			discovered++
		}
	}

	c.mu.Lock()
	if page.Category != "" {
		c.categoryCounts[page.Category]++
	}
	for _, m := range page.Methods {
		c.methodCounts[m]++
	}
	delete(c.failed, pageURL)
	c.current.Processed++
	c.current.Succeeded++
	c.current.Discovered += discovered
	c.mu.Unlock()

	c.logger.Debug("page visited",
		"url", pageURL,
		"category", page.Category,
		"methods", len(page.Methods),
		"discovered", discovered)

	if c.pageSink != nil {
		if err := c.pageSink.RecordPage(ctx, page); err != nil {
			c.logger.Warn("failed to record page", "url", pageURL, "error", err)
		}
	}
}

// recordFailure notes a failed fetch. The URL is neither marked visited
// nor re-queued; it is fetched again only if a later page links to it.
func (c *Crawler) recordFailure(pageURL string, err error) {
	kind := model.FetchNetwork
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		kind = fetchErr.Kind
	}

	c.mu.Lock()
	c.failed[pageURL] = string(kind)
	c.current.Processed++
	c.current.Failed++
	c.mu.Unlock()

	c.logger.Warn("fetch failed", "url", pageURL, "kind", string(kind), "error", err)
}

// complete removes pageURL from the in-flight list and reports whether a
// periodic checkpoint is due.
func (c *Crawler) complete(pageURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, u := range c.inflight {
		if u == pageURL {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			break
		}
	}

	c.sinceCheckpoint++
	if c.sinceCheckpoint >= c.checkpointEvery {
		c.sinceCheckpoint = 0
		return true
	}
	return false
}

func (c *Crawler) requeueInflight() {
	c.mu.Lock()
	pending := c.inflight
	c.inflight = make([]string, 0)
	c.mu.Unlock()
	c.manager.Requeue(pending)
}

// interrupt handles a cancelled ctx: unprocessed URLs go back to the head
// of the frontier and a checkpoint is written on a context that is not
// cancelled.
func (c *Crawler) interrupt(ctx context.Context, cause error) error {
	c.requeueInflight()

	if err := c.save(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("failed to write checkpoint on interrupt", "error", err)
	}
	c.setPhase(PhaseIdle)

	c.logger.Info("crawl interrupted",
		"visited", c.manager.VisitedCount(),
		"frontier", c.manager.Len())

	if err := ctx.Err(); err != nil {
		return err
	}
	return cause
}

// checkpoint writes a snapshot. Failures are logged and tolerated until
// maxCheckpointFailures consecutive writes have failed.
func (c *Crawler) checkpoint(ctx context.Context) error {
	err := c.save(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	c.saveMu.Lock()
	failures := c.saveFailures
	c.saveMu.Unlock()

	c.logger.Warn("failed to write checkpoint", "consecutive_failures", failures, "error", err)
	if failures >= c.maxCheckpointFailures {
		return fmt.Errorf("%w: %d consecutive failures: %w", ErrCheckpointUnavailable, failures, err)
	}
	return nil
}

// save writes a snapshot and maintains the consecutive failure count.
func (c *Crawler) save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if err := c.store.Save(ctx, c.Snapshot()); err != nil {
		c.saveFailures++
		return err
	}
	c.saveFailures = 0
	return nil
}

// finish builds the summary, hands it to the summary sink, writes the
// final checkpoint and moves to Done.
func (c *Crawler) finish(ctx context.Context) (*model.Summary, error) {
	c.setPhase(PhaseDraining)

	summary := model.NewSummary(c.Snapshot(), c.topMethods, c.now())

	if c.summarySink != nil {
		if err := c.summarySink.SaveSummary(ctx, summary); err != nil {
			c.logger.Warn("failed to save summary", "error", err)
		}
	}

	// The final write counts toward the failure ceiling like any other.
	if err := c.checkpoint(ctx); err != nil {
		c.setPhase(PhaseIdle)
		return nil, err
	}

	c.setPhase(PhaseDone)
	c.logger.Info("crawl complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"batches", summary.Batches)

	return summary, nil
}

func (c *Crawler) reportBatch(res BatchResult) {
	c.logger.Info("batch complete",
		"batch", res.Batch,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"discovered", res.Discovered,
		"remaining", res.Remaining)
	if c.onBatch != nil {
		c.onBatch(res)
	}
}
