package crawler

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/docscrawl/internal/model"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves one URL and turns it into a PageResult.
//
// On failure Fetch returns a *model.FetchError. When ctx itself is done,
// ctx.Err() is returned instead so the caller can tell an interrupted
// fetch from a failed one.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.PageResult, error)
}

// HTTPFetcher fetches pages over HTTP and extracts their content.
type HTTPFetcher struct {
	// client performs the requests. Its own Timeout is not used; the
	// per-request timeout is applied through the request context.
	client *http.Client

	// timeout bounds one request including reading the body.
	timeout time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// headers are extra request headers.
	headers map[string]string

	// cookie is sent verbatim as the Cookie header when non-empty.
	cookie string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	extractor  *Extractor
	classifier *Classifier
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithClassifier sets the category classifier.
func WithClassifier(c *Classifier) FetcherOption {
	return func(f *HTTPFetcher) {
		f.classifier = c
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{},
		timeout:     20 * time.Second,
		userAgent:   DefaultUserAgent,
		headers:     map[string]string{},
		maxBodySize: 5 * 1024 * 1024, // 5MB
		extractor:   NewExtractor(),
		classifier:  NewClassifier(nil),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*model.PageResult, error) {
	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchParse, URL: pageURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.transportError(ctx, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &model.FetchError{
			Kind:       model.FetchHTTPStatus,
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if final := resp.Request.URL; !strings.EqualFold(final.Host, req.URL.Host) {
		return nil, &model.FetchError{
			Kind: model.FetchRedirect,
			URL:  pageURL,
			Err:  fmt.Errorf("redirected off host to %s", final.Redacted()),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, f.transportError(ctx, pageURL, err)
	}

	if ct := resp.Header.Get("Content-Type"); !isHTML(ct) {
		return nil, &model.FetchError{
			Kind: model.FetchParse,
			URL:  pageURL,
			Err:  fmt.Errorf("unsupported content type %q", ct),
		}
	}

	// Links resolve against the final URL after redirects.
	parser, err := NewParser(resp.Request.URL.String())
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchParse, URL: pageURL, Err: err}
	}
	parsed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchParse, URL: pageURL, Err: err}
	}

	extracted := f.extractor.Extract(parsed.Root, parsed.Text)
	digest := sha3.Sum256(body)

	return &model.PageResult{
		URL:         pageURL,
		Title:       parsed.Title,
		Category:    f.classifier.Classify(pageURL, parsed.Title),
		Methods:     extracted.Methods,
		Callbacks:   extracted.Callbacks,
		CodeBlocks:  extracted.CodeBlocks,
		Links:       parsed.Links,
		ContentHash: hex.EncodeToString(digest[:]),
		CharCount:   len([]rune(parsed.Text)),
		OK:          true,
	}, nil
}

// transportError classifies a request or body read error.
func (f *HTTPFetcher) transportError(ctx context.Context, pageURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	kind := model.FetchNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = model.FetchTimeout
	}
	return &model.FetchError{Kind: kind, URL: pageURL, Err: err}
}

// isHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is accepted.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
