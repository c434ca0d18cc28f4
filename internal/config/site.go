package config

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// SiteConfig describes the documentation site to crawl and how to request it.
type SiteConfig struct {
	// Seed is the URL a fresh crawl starts from.
	Seed string `yaml:"seed,omitempty"`

	// Host is the only host whose URLs are crawled.
	Host string `yaml:"host,omitempty"`

	// PathPrefix is the documentation root every crawled path starts with.
	PathPrefix string `yaml:"pathPrefix,omitempty"`

	// Skip replaces the default substrings that exclude a URL.
	Skip []string `yaml:"skip,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CrawlSettings overrides the crawl loop settings. Durations use Go syntax
// such as "1s" or "500ms". Zero or empty values keep the default.
type CrawlSettings struct {
	BatchSize             int    `yaml:"batchSize,omitempty"`
	CheckpointEvery       int    `yaml:"checkpointEvery,omitempty"`
	PageDelay             string `yaml:"pageDelay,omitempty"`
	BatchDelay            string `yaml:"batchDelay,omitempty"`
	Timeout               string `yaml:"timeout,omitempty"`
	Workers               int    `yaml:"workers,omitempty"`
	MaxBodySize           int64  `yaml:"maxBodySize,omitempty"`
	MaxCheckpointFailures int    `yaml:"maxCheckpointFailures,omitempty"`
	TopMethods            int    `yaml:"topMethods,omitempty"`
}

// StorageSettings overrides where progress is kept.
type StorageSettings struct {
	DataDir string `yaml:"dataDir,omitempty"`
	Backend string `yaml:"backend,omitempty"`
}

// File represents the structure of the .docscrawl configuration file.
type File struct {
	// Site describes the crawl target.
	Site SiteConfig `yaml:"site,omitempty"`

	// Crawl overrides the crawl loop settings.
	Crawl CrawlSettings `yaml:"crawl,omitempty"`

	// Storage overrides the storage location and backend.
	Storage StorageSettings `yaml:"storage,omitempty"`

	// Categories replaces the classifier keyword table. Order matters:
	// the first matching category wins.
	Categories []CategoryRule `yaml:"categories,omitempty"`
}

// ApplyFile overlays the values set in f onto c.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}

	site := f.Site
	if site.Seed != "" {
		c.SeedURL = site.Seed
	}
	if site.Host != "" {
		c.Host = site.Host
	}
	if site.PathPrefix != "" {
		c.PathPrefix = site.PathPrefix
	}
	if site.Skip != nil {
		c.SkipPatterns = slices.Clone(site.Skip)
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = slices.Clone(site.IgnorePatterns)
	}
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		maps.Copy(c.Headers, site.Headers)
	}

	crawl := f.Crawl
	if crawl.BatchSize != 0 {
		c.BatchSize = crawl.BatchSize
	}
	if crawl.CheckpointEvery != 0 {
		c.CheckpointEvery = crawl.CheckpointEvery
	}
	if crawl.Workers != 0 {
		c.Workers = crawl.Workers
	}
	if crawl.MaxBodySize != 0 {
		c.MaxBodySize = crawl.MaxBodySize
	}
	if crawl.MaxCheckpointFailures != 0 {
		c.MaxCheckpointFailures = crawl.MaxCheckpointFailures
	}
	if crawl.TopMethods != 0 {
		c.TopMethods = crawl.TopMethods
	}
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"pageDelay", crawl.PageDelay, &c.PageDelay},
		{"batchDelay", crawl.BatchDelay, &c.BatchDelay},
		{"timeout", crawl.Timeout, &c.Timeout},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDuration, d.name, err)
		}
		*d.dst = parsed
	}

	if f.Storage.DataDir != "" {
		c.DataDir = f.Storage.DataDir
	}
	if f.Storage.Backend != "" {
		c.Backend = f.Storage.Backend
	}

	if len(f.Categories) > 0 {
		c.Categories = slices.Clone(f.Categories)
	}

	return nil
}
