// Package frontier holds the crawl frontier: the admission filter that
// decides which discovered URLs may enter the queue, and the Manager that
// owns the FIFO queue and the visited set.
//
// # Invariants
//
//   - A URL in the visited set is never returned by TakeBatch again.
//   - The frontier and the visited set are disjoint at every observable point.
//   - No URL appears twice in the frontier.
//
// # Usage
//
//	filter := frontier.NewFilter("example.com", "/docs/", frontier.DefaultSkipPatterns)
//	m := frontier.NewManager()
//	m.Seed("https://example.com/docs/index.html")
//	for m.HasWork() {
//	    for _, u := range m.TakeBatch(10) {
//	        // fetch u, then:
//	        m.RecordVisited(u)
//	    }
//	}
package frontier
