// Package database provides SQLite-based storage for docscrawl.
//
// This package implements the CrawlDB, which stores:
//   - The single current crawl checkpoint (see StateStore)
//   - One record per successfully fetched page with its extracted data
//   - Summaries produced when a crawl reaches its final state
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, so the
// binary cross-compiles without a C toolchain. Each checkpoint write runs
// in a single transaction, which makes replacement atomic for readers.
package database
