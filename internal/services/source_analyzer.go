package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// analysisInputLimit caps how much document text is sent for analysis
const analysisInputLimit = 50000

// SourceAnalysis is the cleaned and summarized form of a source document
type SourceAnalysis struct {
	CleanedContent string   `json:"cleaned_content"`
	Summary        string   `json:"summary"`
	Topics         []string `json:"topics"`
}

// SourceAnalyzer cleans boilerplate out of extracted document text and
// produces a summary and topic tags. Analysis is best-effort; callers must
// tolerate a nil result and continue with the raw text.
type SourceAnalyzer interface {
	Analyze(ctx context.Context, title, content string) (*SourceAnalysis, error)
}

// LLMSourceAnalyzer analyzes documents with the text-generation model and
// falls back to local keyword extraction when the model is unavailable
type LLMSourceAnalyzer struct {
	generator TextGenerator
	logger    *log.Logger
}

// NewLLMSourceAnalyzer creates a new source analyzer. The generator may be
// nil; analysis then uses only the local fallback.
func NewLLMSourceAnalyzer(generator TextGenerator, logger *log.Logger) *LLMSourceAnalyzer {
	return &LLMSourceAnalyzer{
		generator: generator,
		logger:    logger,
	}
}

const analyzerSystemPrompt = `You are a document analysis assistant. Given a document, respond with a JSON object and nothing else:
{
  "cleaned_content": "the document text with navigation menus, ads, footers and other boilerplate removed; keep the actual content verbatim",
  "summary": "a 2-3 sentence summary of the document",
  "topics": ["3 to 6 short topic tags"]
}`

// Analyze cleans and summarizes document content. Failures degrade to a
// local keyword-based analysis rather than erroring, so ingestion never
// blocks on the model.
func (a *LLMSourceAnalyzer) Analyze(ctx context.Context, title, content string) (*SourceAnalysis, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no content to analyze")
	}

	truncated := content
	if len(truncated) > analysisInputLimit {
		truncated = truncated[:analysisInputLimit]
	}

	if a.generator != nil {
		analysis, err := a.analyzeWithModel(ctx, title, truncated)
		if err == nil {
			return analysis, nil
		}
		a.logger.Printf("Model analysis failed, using local fallback: %v", err)
	}

	return a.analyzeLocally(title, content)
}

func (a *LLMSourceAnalyzer) analyzeWithModel(ctx context.Context, title, content string) (*SourceAnalysis, error) {
	userMessage := fmt.Sprintf("Title: %s\n\nDocument:\n%s", title, content)

	raw, err := a.generator.Complete(ctx, analyzerSystemPrompt, userMessage, GenerateOptions{
		MaxTokens:   4096,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}

	// Models sometimes wrap the JSON in a code fence
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var analysis SourceAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("analysis response was not valid JSON: %w", err)
	}
	if analysis.CleanedContent == "" {
		return nil, fmt.Errorf("analysis response missing cleaned content")
	}

	return &analysis, nil
}

// analyzeLocally extracts topic tags from noun frequency and builds a crude
// leading-sentence summary. It never touches the network.
func (a *LLMSourceAnalyzer) analyzeLocally(title, content string) (*SourceAnalysis, error) {
	doc, err := prose.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("local analysis failed: %w", err)
	}

	counts := make(map[string]int)
	for _, tok := range doc.Tokens() {
		if tok.Tag != "NN" && tok.Tag != "NNS" && tok.Tag != "NNP" && tok.Tag != "NNPS" {
			continue
		}
		word := strings.ToLower(tok.Text)
		if len(word) < 4 {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 6 {
		words = words[:6]
	}

	summary := title
	sentences := doc.Sentences()
	if len(sentences) > 0 {
		summary = sentences[0].Text
		if len(sentences) > 1 {
			summary += " " + sentences[1].Text
		}
	}

	return &SourceAnalysis{
		CleanedContent: content,
		Summary:        summary,
		Topics:         words,
	}, nil
}
