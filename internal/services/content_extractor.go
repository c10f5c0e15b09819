package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ExtractedContent is plain text recovered from an external source
type ExtractedContent struct {
	Title   string
	Content string
	Pages   int
}

// ContentExtractor recovers plain text from non-markdown sources
type ContentExtractor interface {
	ExtractFromURL(ctx context.Context, url string) (*ExtractedContent, error)
	ExtractFromPDF(ctx context.Context, data []byte) (*ExtractedContent, error)
}

// HTMLContentExtractor fetches a URL and extracts readable text from its
// HTML, dropping navigation and other page chrome
type HTMLContentExtractor struct {
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTMLContentExtractor creates a new URL content extractor
func NewHTMLContentExtractor(logger *log.Logger) *HTMLContentExtractor {
	return &HTMLContentExtractor{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// ExtractFromURL fetches the page and returns its readable text and title
func (e *HTMLContentExtractor) ExtractFromURL(ctx context.Context, url string) (*ExtractedContent, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "archivist/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s returned status %d", url, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 10*1024*1024)
	doc, err := html.Parse(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	title, content := extractReadableText(doc)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no readable content found at %s", url)
	}

	e.logger.Printf("Extracted %d characters from %s", len(content), url)
	return &ExtractedContent{Title: title, Content: content}, nil
}

// ExtractFromPDF is not handled locally; PDF sources need an external
// extraction service supplying text at upload time
func (e *HTMLContentExtractor) ExtractFromPDF(ctx context.Context, data []byte) (*ExtractedContent, error) {
	return nil, fmt.Errorf("pdf extraction is not supported by the html extractor")
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "button": true, "svg": true,
}

var blockElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "li": true, "pre": true, "blockquote": true,
	"td": true, "figcaption": true,
}

// extractReadableText walks the parsed tree collecting block-level text and
// the page title
func extractReadableText(root *html.Node) (string, string) {
	var title string
	var blocks []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" {
				title = strings.TrimSpace(nodeText(n))
				return
			}
			if n.Data == "h1" && title == "" {
				title = strings.TrimSpace(nodeText(n))
			}
			if blockElements[n.Data] {
				text := strings.TrimSpace(nodeText(n))
				if text != "" {
					if strings.HasPrefix(n.Data, "h") && len(n.Data) == 2 {
						text = "## " + text
					}
					blocks = append(blocks, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return title, strings.Join(blocks, "\n\n")
}

// nodeText concatenates all text nodes under n
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
