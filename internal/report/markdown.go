package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docscrawl/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCategories(md, summary)
	w.writeMethods(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the crawl totals and a status alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("Documentation Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusText(summary)},
			{"Succeeded", strconv.Itoa(summary.Succeeded)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"Pending", strconv.Itoa(summary.Pending)},
			{"Batches", strconv.Itoa(summary.Batches)},
			{"Unique Methods", strconv.Itoa(summary.UniqueMethods)},
		},
	})
	md.PlainText("")

	switch {
	case summary.Failed > 0:
		md.Warningf("%d URL(s) failed to fetch. They are retried only if another page links to them again.", summary.Failed)
	case !summary.Complete:
		md.Notef("The crawl is in progress with %d URL(s) pending. Run `docscrawl continue` to resume.", summary.Pending)
	default:
		md.Tip("The crawl is complete and every fetched page succeeded.")
	}
	md.PlainText("")
}

// writeCategories writes the per-category table and pie chart.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Pages by Category")
	md.PlainText("")

	if len(summary.Categories) == 0 {
		md.PlainText("No pages recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Categories))
	for i, c := range summary.Categories {
		rows[i] = []string{
			categoryLabel(c.Category),
			strconv.Itoa(c.Pages),
			fmt.Sprintf("%.1f%%", percent(c.Pages, summary.Succeeded)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Pages", "Share"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)
}

// writePieChart writes a mermaid pie chart for the category distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Category"),
		piechart.WithShowData(true),
	)

	for _, c := range summary.Categories {
		if c.Pages > 0 {
			chart.LabelAndIntValue(categoryLabel(c.Category), uint64(c.Pages))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeMethods writes the most frequent methods.
func (w *MarkdownWriter) writeMethods(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Top Methods")
	md.PlainText("")

	if len(summary.TopMethods) == 0 {
		md.PlainText("No methods extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.TopMethods))
	for i, m := range summary.TopMethods {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + m.Method + "`", strconv.Itoa(m.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Method", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failed URLs inside a collapsible block.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.FailedURLs) == 0 {
		return
	}

	md.H2("Failed URLs")
	md.PlainText("")

	rows := make([][]string, len(summary.FailedURLs))
	for i, f := range summary.FailedURLs {
		rows[i] = []string{f.URL, f.Kind}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by docscrawl*")
}
