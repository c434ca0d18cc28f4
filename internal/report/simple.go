package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/docscrawl/internal/model"
)

// defaultFailedListLimit is how many failed URLs a non-verbose SimpleWriter lists.
const defaultFailedListLimit = 10

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no rows are shown.
	showEmpty bool

	// verbose lists every failed URL instead of the first few.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCategories(&sb, summary)
	w.writeMethods(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      DOCUMENTATION CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Generated:      %s\n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Status:         %s\n", statusText(summary))
	fmt.Fprintf(sb, "Succeeded:      %d\n", summary.Succeeded)
	fmt.Fprintf(sb, "Failed:         %d\n", summary.Failed)
	fmt.Fprintf(sb, "Pending:        %d\n", summary.Pending)
	fmt.Fprintf(sb, "Batches:        %d\n", summary.Batches)
	fmt.Fprintf(sb, "Unique methods: %d\n", summary.UniqueMethods)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCategories(sb *strings.Builder, summary *model.Summary) {
	if len(summary.Categories) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "PAGES BY CATEGORY")
	if len(summary.Categories) == 0 {
		sb.WriteString("  No pages recorded\n\n")
		return
	}

	for _, c := range summary.Categories {
		fmt.Fprintf(sb, "  %-20s %6d  (%5.1f%%)\n", categoryLabel(c.Category), c.Pages, percent(c.Pages, summary.Succeeded))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMethods(sb *strings.Builder, summary *model.Summary) {
	if len(summary.TopMethods) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "TOP METHODS")
	if len(summary.TopMethods) == 0 {
		sb.WriteString("  No methods extracted\n\n")
		return
	}

	for i, m := range summary.TopMethods {
		fmt.Fprintf(sb, "  %2d. %-40s %d pages\n", i+1, m.Method, m.Pages)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *model.Summary) {
	if len(summary.FailedURLs) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "FAILED URLS")
	if len(summary.FailedURLs) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	limit := len(summary.FailedURLs)
	if !w.verbose && limit > defaultFailedListLimit {
		limit = defaultFailedListLimit
	}
	for _, f := range summary.FailedURLs[:limit] {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Kind, f.URL)
	}
	if rest := len(summary.FailedURLs) - limit; rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose to list all)\n", rest)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by docscrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
