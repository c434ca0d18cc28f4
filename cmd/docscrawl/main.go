// Package main provides the entry point for the docscrawl CLI.
//
// docscrawl crawls an SDK documentation site in small, paced batches,
// checkpointing after every batch so an interrupted crawl resumes where it
// stopped. Each page is classified into a category and indexed for the API
// methods, callbacks and code examples it documents.
//
// Usage:
//
//	docscrawl start [seed-url]
//	docscrawl continue
//	docscrawl summary
//
// See --help for all available options.
package main

// main is the entry point for docscrawl.
func main() {
	Execute()
}
