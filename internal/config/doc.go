// Package config provides configuration structures and utilities for docscrawl.
// It defines the crawl target, pacing and checkpoint settings, storage
// location and report preferences, and loads overrides from a YAML file.
package config
