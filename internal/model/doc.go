// Package model defines the core data structures shared by the crawler,
// the checkpoint stores and the report writers.
//
// This package contains the following main types:
//   - CrawlState: The unit of persisted crawl progress
//   - PageResult: The outcome of fetching and extracting one URL
//   - FetchError: A classified per-URL fetch failure
//   - Summary: The aggregate report built from a CrawlState
//
// The models live in their own package so that crawler, checkpoint,
// database and report can all depend on them without import cycles.
// All types are serializable to JSON for checkpoint and report output.
package model
