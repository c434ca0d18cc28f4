// Package checkpoint persists CrawlState snapshots so a crawl can stop and
// resume without repeating work.
//
// A Store overwrites the previous snapshot on every Save. Saves are atomic
// with respect to readers: a crash during a write leaves the previous
// snapshot readable. Three stores are provided:
//   - FileStore: a JSON file replaced by rename
//   - MemoryStore: an in-process store for tests and dry runs
//   - database.StateStore (in package database): a SQLite-backed store
package checkpoint
