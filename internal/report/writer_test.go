package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docscrawl/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.Summary {
	state := model.NewCrawlState()
	state.Visited = []string{
		"https://example.com/docs/camera.html",
		"https://example.com/docs/gimbal.html",
		"https://example.com/docs/flight.html",
	}
	state.Frontier = []string{"https://example.com/docs/battery.html"}
	state.BatchCounter = 2
	state.CategoryCounts = map[string]int{"camera": 2, "flightcontroller": 1}
	state.MethodCounts = map[string]int{"startShootPhoto": 2, "getGimbal": 1}
	state.Failed = map[string]string{"https://example.com/docs/rtk.html": string(model.FetchTimeout)}

	return model.NewSummary(state, 0, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DOCUMENTATION CRAWL SUMMARY",
			"Status:         In progress",
			"Succeeded:      3",
			"Failed:         1",
			"Pending:        1",
			"Batches:        2",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("writes categories with labels", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "PAGES BY CATEGORY") {
			t.Error("expected category section")
		}
		if !strings.Contains(output, "Flightcontroller") {
			t.Error("expected title-cased category label")
		}
		if strings.Index(output, "Camera") > strings.Index(output, "Flightcontroller") {
			t.Error("categories should be ordered by page count")
		}
	})

	t.Run("lists failed URLs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[timeout] https://example.com/docs/rtk.html") {
			t.Errorf("expected failed URL line\n%s", buf.String())
		}
	})

	t.Run("truncates failed URLs unless verbose", func(t *testing.T) {
		t.Parallel()

		summary := createTestSummary()
		summary.FailedURLs = nil
		for i := range 15 {
			summary.FailedURLs = append(summary.FailedURLs, model.FailedURL{
				URL:  fmt.Sprintf("https://example.com/docs/%02d.html", i),
				Kind: string(model.FetchNetwork),
			})
		}

		var short bytes.Buffer
		if _, err := NewSimpleWriter(&short).Write(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(short.String(), "and 5 more") {
			t.Errorf("expected truncation notice\n%s", short.String())
		}

		var full bytes.Buffer
		if _, err := NewSimpleWriter(&full, WithVerbose(true)).Write(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(full.String(), "14.html") || strings.Contains(full.String(), "more") {
			t.Errorf("verbose output should list every failure\n%s", full.String())
		}
	})

	t.Run("empty sections hidden unless requested", func(t *testing.T) {
		t.Parallel()

		empty := model.NewSummary(model.NewCrawlState(), 0, time.Now())

		var hidden bytes.Buffer
		if _, err := NewSimpleWriter(&hidden).Write(empty); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(hidden.String(), "FAILED URLS") {
			t.Error("empty failure section should be hidden")
		}

		var shown bytes.Buffer
		if _, err := NewSimpleWriter(&shown, WithShowEmpty(true)).Write(empty); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"No pages recorded", "No methods extracted", "No failures"} {
			if !strings.Contains(shown.String(), want) {
				t.Errorf("expected %q in output", want)
			}
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes indented JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"succeeded\": 3") {
			t.Errorf("expected indented output\n%s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "}\n") {
			t.Errorf("expected trailing newline\n%s", buf.String())
		}

		var decoded model.Summary
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Succeeded != 3 || decoded.Failed != 1 {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("Version = %q, want v1.2.3", decoded.Version)
		}
		if decoded.Summary == nil || decoded.Summary.Batches != 2 {
			t.Errorf("Summary = %+v", decoded.Summary)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes sections and pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Documentation Crawl Summary",
			"## Pages by Category",
			"```mermaid",
			"pie",
			"Camera",
			"## Top Methods",
			"`startShootPhoto`",
			"## Failed URLs",
			"https://example.com/docs/rtk.html",
			"[!WARNING]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("complete crawl gets a tip", func(t *testing.T) {
		t.Parallel()

		state := model.NewCrawlState()
		state.Visited = []string{"https://example.com/docs/index.html"}
		state.CategoryCounts["general"] = 1

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewSummary(state, 0, time.Now())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Errorf("expected tip alert\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "## Failed URLs") {
			t.Error("failed section should be omitted without failures")
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.Summary) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		n, err := mw.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("n = %d, want %d", n, a.Len()+b.Len())
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&b))
		if _, err := mw.Write(createTestSummary()); err == nil {
			t.Error("expected error")
		}
		if b.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

func TestCategoryLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"", "-"},
		{"camera", "Camera"},
		{"remotecontroller", "Remotecontroller"},
	}
	for _, tt := range tests {
		if got := categoryLabel(tt.input); got != tt.want {
			t.Errorf("categoryLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
