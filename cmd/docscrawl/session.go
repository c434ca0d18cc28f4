package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/docscrawl/internal/checkpoint"
	"github.com/nao1215/docscrawl/internal/config"
	"github.com/nao1215/docscrawl/internal/crawler"
	"github.com/nao1215/docscrawl/internal/database"
	"github.com/nao1215/docscrawl/internal/frontier"
	dclog "github.com/nao1215/docscrawl/internal/log"
	"github.com/nao1215/docscrawl/internal/model"
	"github.com/nao1215/docscrawl/internal/report"
)

// session bundles the validated configuration with opened storage.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  checkpoint.Store

	// db is nil for the json backend.
	db *database.CrawlDB
}

// openSession validates cfg and opens the checkpoint store it selects.
func openSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &session{cfg: cfg, logger: logger}

	switch cfg.Backend {
	case config.BackendJSON:
		s.store = checkpoint.NewFileStore(cfg.CheckpointFile())
	default:
		db, err := database.Open(cfg.DataDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
		s.store = database.NewStateStore(db)
	}

	logger.Info("storage opened", "dir", cfg.DataDir, "backend", cfg.Backend)
	return s, nil
}

// Close releases the database, if any.
func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// loadState returns the last checkpoint, or an empty state.
func (s *session) loadState(ctx context.Context) *model.CrawlState {
	return checkpoint.LoadOrEmpty(ctx, s.store, s.logger)
}

// reset discards the checkpoint, the page records and summaries, and the
// summary file.
func (s *session) reset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	if s.db != nil {
		if err := s.db.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}
	if s.cfg.ReportFile != "" {
		if err := os.Remove(s.cfg.ReportFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove summary file: %w", err)
		}
	}
	s.logger.Info("previous crawl discarded", "dir", s.cfg.DataDir)
	return nil
}

// newFetcher builds the HTTP fetcher described by the configuration.
func (s *session) newFetcher() *crawler.HTTPFetcher {
	cfg := s.cfg

	var categories []crawler.Category
	for _, rule := range cfg.Categories {
		categories = append(categories, crawler.Category{Name: rule.Name, Keywords: rule.Keywords})
	}

	return crawler.NewHTTPFetcher(
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithCookie(cfg.Cookie),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithClassifier(crawler.NewClassifier(categories)),
	)
}

// newFilter builds the URL admission filter described by the configuration.
func (s *session) newFilter() *frontier.Filter {
	skip := s.cfg.SkipPatterns
	if skip == nil {
		skip = frontier.DefaultSkipPatterns
	}
	return frontier.NewFilter(s.cfg.Host, s.cfg.PathPrefix, skip,
		frontier.WithIgnorePatterns(s.cfg.IgnorePatterns))
}

// newCrawler creates a crawler resuming from state. Batch progress is
// printed to out.
func (s *session) newCrawler(fetcher crawler.Fetcher, state *model.CrawlState, out io.Writer) *crawler.Crawler {
	cfg := s.cfg
	opts := []crawler.Option{
		crawler.WithBatchSize(cfg.BatchSize),
		crawler.WithCheckpointEvery(cfg.CheckpointEvery),
		crawler.WithMaxCheckpointFailures(cfg.MaxCheckpointFailures),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithPageDelay(cfg.PageDelay),
		crawler.WithBatchDelay(cfg.BatchDelay),
		crawler.WithTopMethods(cfg.TopMethods),
		crawler.WithLogger(s.logger),
		crawler.WithBatchHook(func(res crawler.BatchResult) {
			fmt.Fprintf(out, "Batch %d: %d processed (%d ok, %d failed), %d discovered, %d remaining\n",
				res.Batch, res.Processed, res.Succeeded, res.Failed, res.Discovered, res.Remaining)
		}),
	}
	if s.db != nil {
		opts = append(opts, crawler.WithPageSink(s.db), crawler.WithSummarySink(s.db))
	}
	return crawler.New(fetcher, s.store, s.newFilter(), state, opts...)
}

// setupLogger creates the redacting structured logger on stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, cfg)
}

// newLogger creates the redacting logger in the configured format. An
// unknown format falls back to text; Validate reports it.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return dclog.NewJSONLogger(w, cfg.Verbose)
	}
	return dclog.NewLogger(w, cfg.Verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// outputSummary writes summary in the configured format to out. When a
// report file is configured the formatted report goes to the file and the
// plain summary still goes to out.
func outputSummary(cfg *config.Config, summary *model.Summary, out io.Writer) error {
	if cfg.ReportFile == "" {
		_, err := formatWriter(cfg, out).Write(summary)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := report.NewMultiWriter(
		formatWriter(cfg, f),
		report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)),
	)
	if _, err := w.Write(summary); err != nil {
		return err
	}
	fmt.Fprintf(out, "Summary written to %s\n", cfg.ReportFile)
	return nil
}

// formatWriter returns the report writer for the configured format.
func formatWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
