// Package report provides crawl summary output.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter and FullJSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with a mermaid pie chart of the categories
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
