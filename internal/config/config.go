package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docscrawl"

	// DefaultSeedURL is the documentation index the crawl starts from.
	DefaultSeedURL = "https://developer.dji.com/api-reference/android-api/index.html"

	// DefaultHost is the only host whose pages are crawled.
	DefaultHost = "developer.dji.com"

	// DefaultPathPrefix is the documentation root every crawled path starts with.
	DefaultPathPrefix = "/api-reference/android-api/"

	// DefaultBatchSize is the number of URLs claimed per batch.
	DefaultBatchSize = 15

	// DefaultCheckpointEvery is the number of page completions inside a
	// batch after which a checkpoint is written.
	DefaultCheckpointEvery = 3

	// DefaultPageDelay is the minimum spacing between page fetches.
	DefaultPageDelay = 1 * time.Second

	// DefaultBatchDelay is the pause between batches.
	DefaultBatchDelay = 3 * time.Second

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 20 * time.Second

	// DefaultWorkers is the number of concurrent fetches inside a batch.
	DefaultWorkers = 1

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxCheckpointFailures is the number of consecutive checkpoint
	// write failures after which the crawl stops.
	DefaultMaxCheckpointFailures = 5

	// DefaultTopMethods is the number of methods listed in a summary.
	DefaultTopMethods = 20

	// DefaultUserAgent is a desktop browser User-Agent; the documentation
	// site serves reduced pages to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Checkpoint storage backends.
const (
	// BackendSQLite stores checkpoints, page records and summaries in SQLite.
	BackendSQLite = "sqlite"

	// BackendJSON stores only the checkpoint, as a JSON file.
	BackendJSON = "json"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// CategoryRule is one row of the classifier keyword table.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Config holds all configuration options for docscrawl.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed through the application explicitly.
type Config struct {
	// SeedURL is the first URL of a fresh crawl.
	SeedURL string

	// Host is the only host whose URLs are admitted to the frontier.
	Host string

	// PathPrefix is the path prefix every admitted URL must have.
	PathPrefix string

	// SkipPatterns are substrings that reject a URL. Nil means the
	// frontier package defaults.
	SkipPatterns []string

	// IgnorePatterns are glob patterns matched against the URL path.
	IgnorePatterns []string

	// Categories is the classifier keyword table. Empty means the
	// crawler package defaults.
	Categories []CategoryRule

	// BatchSize is the number of URLs claimed per batch.
	BatchSize int

	// CheckpointEvery is the number of page completions inside a batch
	// after which a checkpoint is written.
	CheckpointEvery int

	// PageDelay is the minimum spacing between page fetches.
	PageDelay time.Duration

	// BatchDelay is the pause between batches.
	BatchDelay time.Duration

	// Timeout bounds a single page request.
	Timeout time.Duration

	// Workers is the number of concurrent fetches inside a batch.
	// 1 processes a batch sequentially.
	Workers int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MaxCheckpointFailures is the number of consecutive checkpoint write
	// failures after which the crawl stops.
	MaxCheckpointFailures int

	// TopMethods is the number of methods listed in a summary.
	TopMethods int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is sent as the Cookie header when non-empty.
	Cookie string

	// DataDir is the directory holding the checkpoint and the database.
	// Defaults to XDG data directory (~/.local/share/docscrawl on Linux).
	DataDir string

	// Backend selects checkpoint storage: BackendSQLite or BackendJSON.
	Backend string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects the stderr log encoding: LogFormatText or LogFormatJSON.
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .docscrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON summary output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown summary output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the summary.
	// When set, the summary is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SeedURL:               DefaultSeedURL,
		Host:                  DefaultHost,
		PathPrefix:            DefaultPathPrefix,
		BatchSize:             DefaultBatchSize,
		CheckpointEvery:       DefaultCheckpointEvery,
		PageDelay:             DefaultPageDelay,
		BatchDelay:            DefaultBatchDelay,
		Timeout:               DefaultTimeout,
		Workers:               DefaultWorkers,
		MaxBodySize:           DefaultMaxBodySize,
		MaxCheckpointFailures: DefaultMaxCheckpointFailures,
		TopMethods:            DefaultTopMethods,
		UserAgent:             DefaultUserAgent,
		Headers:               map[string]string{},
		DataDir:               XDGDataDir(),
		Backend:               BackendSQLite,
		LogFormat:             LogFormatText,
	}
}

// XDGDataDir returns the XDG data directory for docscrawl.
// On Linux: ~/.local/share/docscrawl
// On macOS: ~/Library/Application Support/docscrawl
// On Windows: %LOCALAPPDATA%\docscrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// CheckpointFile returns the path of the JSON checkpoint file.
func (c *Config) CheckpointFile() string {
	return filepath.Join(c.DataDir, "checkpoint.json")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package's sentinel errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeedURL
	}

	if c.Host == "" {
		return ErrNoHost
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.CheckpointEvery <= 0 {
		return ErrInvalidCheckpointEvery
	}

	// Zero delays are allowed and disable pacing.
	if c.PageDelay < 0 || c.BatchDelay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxCheckpointFailures <= 0 {
		return ErrInvalidMaxCheckpointFailures
	}

	if c.Backend != BackendSQLite && c.Backend != BackendJSON {
		return ErrInvalidBackend
	}

	if c.DataDir == "" {
		return ErrNoDataDir
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
