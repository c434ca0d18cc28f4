package main

import (
	"fmt"

	"github.com/nao1215/docscrawl/internal/config"
	"github.com/spf13/cobra"
)

// addStorageFlags adds the flags that locate configuration and progress.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .docscrawl in current or home directory)")
	cmd.Flags().String("data-dir", "",
		"Directory holding the checkpoint and database (default: XDG data directory)")
	cmd.Flags().String("backend", config.BackendSQLite,
		"Checkpoint storage backend: sqlite or json")
}

// addCrawlFlags adds the flags that select the target and tune the crawl loop.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", config.DefaultHost,
		"Only crawl URLs on this host (include the port if not default)")
	cmd.Flags().String("path-prefix", config.DefaultPathPrefix,
		"Only crawl URLs whose path starts with this prefix")
	cmd.Flags().IntP("batch-size", "b", config.DefaultBatchSize,
		"Number of URLs claimed per batch")
	cmd.Flags().Int("checkpoint-every", config.DefaultCheckpointEvery,
		"Write a checkpoint after this many pages inside a batch")
	cmd.Flags().Duration("page-delay", config.DefaultPageDelay,
		"Minimum delay between page fetches")
	cmd.Flags().Duration("batch-delay", config.DefaultBatchDelay,
		"Pause between batches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches inside a batch")
}

// addReportFlags adds the summary output flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summary to specified file path (creates directories if needed)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves the log format from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return config.LogFormatText
		}
	}
	return format
}

// buildConfig creates a Config from defaults, the configuration file and
// the command flags, in that order. Flags only override when set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)

	flags := cmd.Flags()
	if flags.Lookup("config") != nil {
		path, err := flags.GetString("config")
		if err != nil {
			return nil, err
		}
		cfg.ConfigFilePath = path
	}

	// An explicitly named config file must exist; a missing default one
	// just means built-in defaults.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := cfg.ApplyFile(file); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	type override struct {
		name  string
		apply func() error
	}
	overrides := []override{
		{"host", func() (err error) { cfg.Host, err = flags.GetString("host"); return }},
		{"path-prefix", func() (err error) { cfg.PathPrefix, err = flags.GetString("path-prefix"); return }},
		{"data-dir", func() (err error) { cfg.DataDir, err = flags.GetString("data-dir"); return }},
		{"backend", func() (err error) { cfg.Backend, err = flags.GetString("backend"); return }},
		{"batch-size", func() (err error) { cfg.BatchSize, err = flags.GetInt("batch-size"); return }},
		{"checkpoint-every", func() (err error) { cfg.CheckpointEvery, err = flags.GetInt("checkpoint-every"); return }},
		{"page-delay", func() (err error) { cfg.PageDelay, err = flags.GetDuration("page-delay"); return }},
		{"batch-delay", func() (err error) { cfg.BatchDelay, err = flags.GetDuration("batch-delay"); return }},
		{"timeout", func() (err error) { cfg.Timeout, err = flags.GetDuration("timeout"); return }},
		{"workers", func() (err error) { cfg.Workers, err = flags.GetInt("workers"); return }},
		{"json", func() (err error) { cfg.JSONReport, err = flags.GetBool("json"); return }},
		{"markdown", func() (err error) { cfg.MarkdownReport, err = flags.GetBool("markdown"); return }},
		{"output", func() (err error) { cfg.ReportFile, err = flags.GetString("output"); return }},
	}

	for _, o := range overrides {
		if flags.Lookup(o.name) == nil || !flags.Changed(o.name) {
			continue
		}
		if err := o.apply(); err != nil {
			return err
		}
	}
	return nil
}
