package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/docscrawl/internal/model"
)

// JSONWriter outputs summaries as indented JSON, one document per Write.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in JSON format.
func (w *JSONWriter) Write(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON encodes v with two-space indentation and a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport wraps a summary with the generating tool's version.
type JSONReport struct {
	// Version is the docscrawl version that generated this report.
	Version string `json:"version"`

	// Summary is the crawl summary.
	Summary *model.Summary `json:"summary"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(summary *model.Summary, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: summary,
	}
}

// FullJSONWriter outputs summaries with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the docscrawl version string.
	version string
}

// NewFullJSONWriter creates a writer for summaries with a metadata wrapper.
func NewFullJSONWriter(output io.Writer, version string) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output),
		version:    version,
	}
}

// Write outputs the summary wrapped with metadata.
func (w *FullJSONWriter) Write(summary *model.Summary) (int, error) {
	return w.writeJSON(NewJSONReport(summary, w.version))
}
