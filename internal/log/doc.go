// Package log builds the slog loggers used by docscrawl.
//
// Loggers returned by NewLogger and NewJSONLogger wrap their output handler in
// a RedactingHandler, which masks request credentials before they reach the
// log: cookie and authorization values passed as attributes, bearer and basic
// auth values, and sensitive query parameters inside logged URLs.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("page fetched",
//	    "url", "https://developer.dji.com/doc.html?token=abc", // token=***REDACTED***
//	    "cookie", "session=abc123",                             // ***REDACTED***
//	)
package log
