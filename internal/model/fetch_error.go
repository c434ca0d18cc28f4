package model

import "fmt"

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

const (
	// FetchTimeout means the per-request timeout elapsed.
	FetchTimeout FetchErrorKind = "timeout"
	// FetchNetwork means the request could not be completed at transport level.
	FetchNetwork FetchErrorKind = "network"
	// FetchHTTPStatus means the server answered with an error status code.
	FetchHTTPStatus FetchErrorKind = "http-status"
	// FetchParse means the response body could not be parsed.
	FetchParse FetchErrorKind = "parse"
	// FetchRedirect means the request was redirected to another host.
	FetchRedirect FetchErrorKind = "redirect"
)

// FetchError is a classified per-URL fetch failure.
type FetchError struct {
	// Kind is the failure class.
	Kind FetchErrorKind

	// URL is the URL whose fetch failed.
	URL string

	// StatusCode is set for FetchHTTPStatus.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: %s %d", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
