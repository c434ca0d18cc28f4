package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/nao1215/docscrawl/internal/config"
	"github.com/nao1215/docscrawl/internal/crawler"
	"github.com/nao1215/docscrawl/internal/database"
	"github.com/nao1215/docscrawl/internal/model"
	"github.com/spf13/cobra"
)

// errNoCheckpoint is returned by commands that need prior progress.
var errNoCheckpoint = errors.New(`no checkpoint found (run "docscrawl start" first)`)

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [seed-url]",
		Short: "Start a crawl, or resume the existing one",
		Long: `Start begins a fresh crawl from the seed URL when no checkpoint exists.
If a checkpoint exists, start resumes it like "continue" and the seed is ignored.

The crawl runs in batches until every reachable documentation page has been
fetched, then prints a summary. Ctrl-C stops the crawl after saving a
checkpoint; run "docscrawl continue" to resume.

Examples:
  # Crawl the default documentation site
  docscrawl start

  # Crawl from a specific page
  docscrawl start https://developer.dji.com/api-reference/android-api/Components/Camera/DJICamera.html

  # Faster crawl with concurrent fetches and a Markdown summary
  docscrawl start -w 4 --page-delay 250ms -m -o summary.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStartCmd,
	}
	addStorageFlags(cmd)
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewContinueCmd creates the continue command.
func NewContinueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Resume the crawl from the last checkpoint",
		Long: `Continue resumes the crawl from the last checkpoint. URLs claimed by a batch
that was interrupted are fetched first; no visited page is fetched again.`,
		Args: cobra.NoArgs,
		RunE: runContinueCmd,
	}
	addStorageFlags(cmd)
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewRestartCmd creates the restart command.
func NewRestartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Discard all progress and crawl again from the default seed",
		Long: `Restart deletes the checkpoint, the stored page records and summaries and the
summary file, then starts a fresh crawl from the configured seed URL.`,
		Args: cobra.NoArgs,
		RunE: runRestartCmd,
	}
	addStorageFlags(cmd)
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process a single batch, checkpoint and exit",
		Long: `Batch processes one batch of queued URLs, writes a checkpoint and exits.
A crawl with no checkpoint is seeded first. When the batch empties the
frontier the summary is printed.

Examples:
  # Process the next 5 URLs
  docscrawl batch --size 5`,
		Args: cobra.NoArgs,
		RunE: runBatchCmd,
	}
	cmd.Flags().Int("size", 0, "Number of URLs to process (default: --batch-size)")
	addStorageFlags(cmd)
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the crawl summary from the last checkpoint",
		Long: `Summary rebuilds the aggregate report (per-category page counts, most
documented methods and failed URLs) from the last checkpoint. Nothing is fetched,
so it is safe to run while a crawl is in progress.`,
		Args: cobra.NoArgs,
		RunE: runSummaryCmd,
	}
	addStorageFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Int("top", config.DefaultTopMethods, "Number of methods to list")
	return cmd
}

// runStartCmd executes the start command.
func runStartCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.SeedURL = args[0]
	}
	return runCrawl(cmd, cfg, crawlFresh)
}

// runContinueCmd executes the continue command.
func runContinueCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return runCrawl(cmd, cfg, crawlResume)
}

// runRestartCmd executes the restart command.
func runRestartCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return runCrawl(cmd, cfg, crawlRestart)
}

// crawlMode selects how runCrawl treats existing progress.
type crawlMode int

const (
	// crawlFresh seeds an empty state and resumes any other.
	crawlFresh crawlMode = iota
	// crawlResume requires existing progress.
	crawlResume
	// crawlRestart discards existing progress, then seeds.
	crawlRestart
)

// runCrawl runs a full crawl to completion or interruption.
func runCrawl(cmd *cobra.Command, cfg *config.Config, mode crawlMode) error {
	logger := setupLogger(cfg)
	out := cmd.OutOrStdout()

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if mode == crawlRestart {
		if err := s.reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Previous crawl discarded.")
	}

	state := s.loadState(ctx)
	if mode == crawlResume && !hasCheckpoint(state) {
		return errNoCheckpoint
	}

	c := s.newCrawler(s.newFetcher(), state, out)
	prepare(c, cfg, state, out)

	startTime := time.Now()
	summary, err := c.Run(ctx)
	switch {
	case errors.Is(err, crawler.ErrCrawlDone):
		fmt.Fprintln(out, "Crawl already complete.")
		summary = model.NewSummary(c.Snapshot(), cfg.TopMethods, time.Now())
	case errors.Is(err, context.Canceled):
		printInterrupted(out, c)
		return nil
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Crawl completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))
	}

	return outputSummary(cfg, summary, out)
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	out := cmd.OutOrStdout()

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	state := s.loadState(ctx)
	c := s.newCrawler(s.newFetcher(), state, out)
	prepare(c, cfg, state, out)

	res, err := c.RunBatch(ctx, size)
	switch {
	case errors.Is(err, crawler.ErrCrawlDone):
		fmt.Fprintln(out, "Crawl already complete.")
		return outputSummary(cfg, model.NewSummary(c.Snapshot(), cfg.TopMethods, time.Now()), out)
	case errors.Is(err, context.Canceled):
		printInterrupted(out, c)
		return nil
	case err != nil:
		return err
	}

	if res.Summary != nil {
		fmt.Fprintln(out, "Crawl complete.")
		return outputSummary(cfg, res.Summary, out)
	}
	fmt.Fprintf(out, "%d URLs remaining. Run \"docscrawl batch\" or \"docscrawl continue\" to proceed.\n", res.Remaining)
	return nil
}

// runSummaryCmd executes the summary command.
func runSummaryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("top") {
		if cfg.TopMethods, err = cmd.Flags().GetInt("top"); err != nil {
			return err
		}
	}

	logger := setupLogger(cfg)
	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	state := s.loadState(ctx)
	if !hasCheckpoint(state) {
		return errNoCheckpoint
	}

	out := cmd.OutOrStdout()
	if s.db != nil && !cfg.JSONReport && !cfg.MarkdownReport {
		if err := printStorageDetails(ctx, s.db, out); err != nil {
			return err
		}
	}
	return outputSummary(cfg, model.NewSummary(state, cfg.TopMethods, time.Now()), out)
}

// printStorageDetails prints when the checkpoint was saved and how many
// page records the database holds per category.
func printStorageDetails(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	savedAt, err := db.CheckpointSavedAt(ctx)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint time: %w", err)
	}
	counts, err := db.CountPagesByCategory(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stored pages: %w", err)
	}

	if !savedAt.IsZero() {
		fmt.Fprintf(out, "Checkpoint saved: %s\n", savedAt.Local().Format(time.RFC3339))
	}
	if len(counts) == 0 {
		fmt.Fprintln(out)
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(out, "Stored pages:     %d\n", total)
	for _, category := range slices.Sorted(maps.Keys(counts)) {
		name := category
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(out, "  %-20s %d\n", name, counts[category])
	}
	fmt.Fprintln(out)
	return nil
}

// hasCheckpoint reports whether state records any crawl at all, including
// one whose only outcome is a failed seed.
func hasCheckpoint(state *model.CrawlState) bool {
	return !state.IsEmpty() || len(state.Failed) > 0
}

// prepare seeds a crawl with nothing visited or queued and reports which
// way it starts.
func prepare(c *crawler.Crawler, cfg *config.Config, state *model.CrawlState, out io.Writer) {
	if c.Seed(cfg.SeedURL) {
		if len(state.Failed) > 0 {
			fmt.Fprintf(out, "Retrying crawl from %s (%d failed)\n", cfg.SeedURL, len(state.Failed))
			return
		}
		fmt.Fprintf(out, "Starting fresh crawl from %s\n", cfg.SeedURL)
		return
	}
	fmt.Fprintf(out, "Resuming crawl: %d visited, %d queued, %d failed\n",
		len(state.Visited), len(state.Frontier), len(state.Failed))
}

// printInterrupted tells the operator how to resume.
func printInterrupted(out io.Writer, c *crawler.Crawler) {
	snap := c.Snapshot()
	fmt.Fprintf(out, "\nInterrupted: %d visited, %d queued. Progress saved; run \"docscrawl continue\" to resume.\n",
		len(snap.Visited), len(snap.Frontier))
}
