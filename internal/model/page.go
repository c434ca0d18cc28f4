package model

// PageResult is the outcome of processing one URL.
// It is produced by the page fetcher and consumed by the frontier merge
// step; it is not retained beyond being folded into CrawlState and handed
// to the page sink.
type PageResult struct {
	// URL is the source URL that was fetched.
	URL string `json:"url"`

	// Title is the page title from the <title> tag.
	Title string `json:"title"`

	// Category is the label assigned by the classifier.
	Category string `json:"category"`

	// Methods are the method tokens extracted from the page.
	Methods []string `json:"methods,omitempty"`

	// Callbacks are callback, listener and interface names found on the page.
	Callbacks []string `json:"callbacks,omitempty"`

	// CodeBlocks are the text contents of <pre> and <code> elements,
	// truncated to MaxCodeBlockSize.
	CodeBlocks []string `json:"code_blocks,omitempty"`

	// Links are the absolute outbound URLs discovered on the page,
	// before admission filtering.
	Links []string `json:"links,omitempty"`

	// ContentHash is the hex SHA3-256 digest of the response body.
	ContentHash string `json:"content_hash,omitempty"`

	// CharCount is the length of the extracted visible text.
	CharCount int `json:"char_count"`

	// OK is true when the page was fetched and extracted successfully.
	OK bool `json:"ok"`
}

// MaxCodeBlockSize is the maximum size of a single extracted code block.
const MaxCodeBlockSize = 800

// MaxCodeBlocks is the maximum number of code blocks kept per page.
const MaxCodeBlocks = 10
