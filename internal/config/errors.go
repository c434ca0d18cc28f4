package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ApplyFile() so
// callers can use errors.Is() for programmatic error handling.
var (
	// ErrInvalidSeedURL is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeedURL = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrNoHost is returned when no target host is configured.
	ErrNoHost = errors.New("no target host specified")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCheckpointEvery is returned when the checkpoint interval is not positive.
	ErrInvalidCheckpointEvery = errors.New("invalid checkpoint interval: must be positive")

	// ErrInvalidDelay is returned when the page or batch delay is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidMaxCheckpointFailures is returned when the checkpoint failure
	// limit is not positive.
	ErrInvalidMaxCheckpointFailures = errors.New("invalid checkpoint failure limit: must be positive")

	// ErrInvalidBackend is returned for an unknown storage backend.
	ErrInvalidBackend = errors.New("invalid backend: must be sqlite or json")

	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrNoDataDir is returned when no data directory is configured.
	ErrNoDataDir = errors.New("no data directory specified")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDuration is returned when a duration in the config file
	// cannot be parsed.
	ErrInvalidDuration = errors.New("invalid duration in configuration file")
)
