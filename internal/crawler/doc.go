// Package crawler implements the resumable batch crawl of a documentation
// site.
//
// # Components
//
//   - Crawler: the batch processing loop. It claims batches from a
//     frontier.Manager, fetches each URL, folds results into the crawl
//     state and checkpoints through a checkpoint.Store.
//   - HTTPFetcher: the Fetcher used in production. It classifies failures
//     as model.FetchError values.
//   - Parser: golang.org/x/net/html based title, link and text extraction.
//   - Extractor: goquery based method, callback and code block extraction.
//   - Classifier: ordered keyword table assigning a category to each page.
//   - Pacer: rate limiter spacing page fetches.
//
// # Checkpoints
//
// A checkpoint is written after every batch and after every K page
// completions inside a batch. Claimed URLs that have not completed are
// written at the head of the frontier, so a crash never drops them. A URL
// whose fetch fails is neither visited nor re-queued; it is fetched again
// only when another page links to it.
//
// # Usage
//
//	c := crawler.New(fetcher, store, filter, state, crawler.WithBatchSize(15))
//	c.Seed("https://developer.dji.com/api-reference/android-api/index.html")
//	summary, err := c.Run(ctx)
package crawler
