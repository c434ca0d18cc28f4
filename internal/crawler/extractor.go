package crawler

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/docscrawl/internal/model"
)

// minCodeBlockLen is the length a <pre>/<code> text must exceed to be kept.
const minCodeBlockLen = 20

// methodPatterns match method-like tokens in page text. The first capture
// group is the method name.
var methodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(\w+)\s*\([^)]*\)\s*(?:throws\s+\w+)?`),
	regexp.MustCompile(`(?im)public\s+\w+\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?im)static\s+\w+\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?im)void\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?im)boolean\s+(\w+)\s*\([^)]*\)`),
	regexp.MustCompile(`(?im)(\w+)\s*:\s*\([^)]*\)\s*->`),
	regexp.MustCompile(`(?i)(\w*download\w*)\s*\(`),
	regexp.MustCompile(`(?i)(\w*fetch\w*)\s*\(`),
	regexp.MustCompile(`(?i)(\w*task\w*)\s*\(`),
	regexp.MustCompile(`(?i)(\w*schedule\w*)\s*\(`),
	regexp.MustCompile(`(?i)(\w*callback\w*)\s*\(`),
	regexp.MustCompile(`(?i)(\w*listener\w*)\s*\(`),
}

// callPattern is applied to the text of code-like elements.
var callPattern = regexp.MustCompile(`(\w+)\s*\([^)]*\)`)

// callbackPatterns match callback, listener and interface names.
var callbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w*callback\w*)`),
	regexp.MustCompile(`(?i)(\w*listener\w*)`),
	regexp.MustCompile(`(?i)interface\s+(\w+)`),
}

// codeClassTerms mark an element whose class names it as code.
var codeClassTerms = []string{"method", "function", "api", "code", "highlight"}

// Extraction is the structured content pulled out of one page.
type Extraction struct {
	Methods    []string
	Callbacks  []string
	CodeBlocks []string
}

// Extractor pulls method tokens, callback names and code examples out of a
// parsed page.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs every extraction rule over root and its visible text.
// The returned slices are sorted and never nil.
func (e *Extractor) Extract(root *html.Node, text string) *Extraction {
	doc := goquery.NewDocumentFromNode(root)

	return &Extraction{
		Methods:    e.methods(doc, text),
		Callbacks:  e.callbacks(text),
		CodeBlocks: e.codeBlocks(doc),
	}
}

func (e *Extractor) methods(doc *goquery.Document, text string) []string {
	found := make(map[string]struct{})

	for _, re := range methodPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			found[m[1]] = struct{}{}
		}
	}

	doc.Find("code, pre, span").Each(func(_ int, s *goquery.Selection) {
		class, ok := s.Attr("class")
		if !ok || !containsAny(strings.ToLower(class), codeClassTerms) {
			return
		}
		for _, m := range callPattern.FindAllStringSubmatch(s.Text(), -1) {
			found[m[1]] = struct{}{}
		}
	})

	methods := make([]string, 0, len(found))
	for m := range found {
		if isMethodName(m) {
			methods = append(methods, m)
		}
	}
	slices.Sort(methods)
	return methods
}

func (e *Extractor) callbacks(text string) []string {
	found := make(map[string]struct{})
	for _, re := range callbackPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if m[1] != "" {
				found[m[1]] = struct{}{}
			}
		}
	}

	callbacks := make([]string, 0, len(found))
	for c := range found {
		callbacks = append(callbacks, c)
	}
	slices.Sort(callbacks)
	return callbacks
}

func (e *Extractor) codeBlocks(doc *goquery.Document) []string {
	blocks := make([]string, 0)
	doc.Find("pre, code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		code := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(code) > minCodeBlockLen {
			blocks = append(blocks, truncateRunes(code, model.MaxCodeBlockSize))
		}
		return len(blocks) < model.MaxCodeBlocks
	})
	return blocks
}

// isMethodName keeps purely alphabetic tokens longer than two characters.
func isMethodName(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
