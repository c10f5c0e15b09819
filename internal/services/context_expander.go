package services

import (
	"context"
	"log"
	"strings"

	"archivist/internal/models"
	"archivist/internal/repositories"
)

// ExpandOptions controls how far an expanded chunk may grow beyond its
// original span
type ExpandOptions struct {
	ExpandChars     int
	EnsureParagraph bool
}

// DefaultExpandOptions returns the standard expansion window
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		ExpandChars:     500,
		EnsureParagraph: true,
	}
}

// ContextExpander widens retrieved chunk spans to nearby paragraph
// boundaries using the owning document's full text
type ContextExpander struct {
	documentRepo repositories.DocumentRepository
	logger       *log.Logger
}

// NewContextExpander creates a new context expander
func NewContextExpander(documentRepo repositories.DocumentRepository, logger *log.Logger) *ContextExpander {
	return &ContextExpander{
		documentRepo: documentRepo,
		logger:       logger,
	}
}

// ExpandChunk widens one chunk's span within the full document text. When
// the chunk carries no character offsets or the text is empty, the chunk is
// returned unchanged with HasExpansion false.
func ExpandChunk(chunk models.RetrievedChunk, fullText string, opts ExpandOptions) models.ExpandedChunk {
	if opts.ExpandChars <= 0 {
		opts.ExpandChars = 500
	}

	expanded := models.ExpandedChunk{
		RetrievedChunk:  chunk,
		ExpandedContent: chunk.Content,
		HasExpansion:    false,
	}

	if chunk.Metadata.StartChar == nil || chunk.Metadata.EndChar == nil || fullText == "" {
		return expanded
	}

	start := *chunk.Metadata.StartChar
	end := *chunk.Metadata.EndChar
	if start < 0 || end > len(fullText) || start > end {
		return expanded
	}

	left := start - opts.ExpandChars
	if left < 0 {
		left = 0
	}
	right := end + opts.ExpandChars
	if right > len(fullText) {
		right = len(fullText)
	}

	if opts.EnsureParagraph {
		left = snapToParagraphStart(fullText, left, start, 2*opts.ExpandChars)
		right = snapToParagraphEnd(fullText, right, end, 2*opts.ExpandChars)
	}

	content := strings.TrimSpace(fullText[left:right])
	if content == "" || content == chunk.Content {
		return expanded
	}

	expanded.ExpandedContent = content
	expanded.HasExpansion = true
	return expanded
}

// ExpandChunks expands a batch of chunks, doing one document lookup per
// unique owning document
func (e *ContextExpander) ExpandChunks(ctx context.Context, chunks []models.RetrievedChunk, opts ExpandOptions) []models.ExpandedChunk {
	if len(chunks) == 0 {
		return []models.ExpandedChunk{}
	}

	seen := make(map[string]bool)
	docIDs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.DocumentID != "" && !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			docIDs = append(docIDs, c.DocumentID)
		}
	}

	texts := make(map[string]string, len(docIDs))
	if e.documentRepo != nil && len(docIDs) > 0 {
		docs, err := e.documentRepo.GetBatch(ctx, docIDs)
		if err != nil {
			e.logger.Printf("Failed to load documents for context expansion: %v", err)
		} else {
			for _, doc := range docs {
				text := doc.ProcessedContent
				if text == "" {
					text = doc.Content
				}
				texts[doc.ID] = text
			}
		}
	}

	expanded := make([]models.ExpandedChunk, len(chunks))
	for i, c := range chunks {
		expanded[i] = ExpandChunk(c, texts[c.DocumentID], opts)
	}
	return expanded
}

// snapToParagraphStart moves pos back to just after the nearest preceding
// blank line, searching no further than maxRadius before the original
// chunk start
func snapToParagraphStart(text string, pos, chunkStart, maxRadius int) int {
	limit := chunkStart - maxRadius
	if limit < 0 {
		limit = 0
	}

	for i := pos; i >= limit; i-- {
		if idx := blankLineAt(text, i); idx >= 0 {
			return idx
		}
	}
	return pos
}

// snapToParagraphEnd moves pos forward to the start of the nearest
// following blank line, searching no further than maxRadius past the
// original chunk end
func snapToParagraphEnd(text string, pos, chunkEnd, maxRadius int) int {
	limit := chunkEnd + maxRadius
	if limit > len(text) {
		limit = len(text)
	}

	for i := pos; i < limit; i++ {
		if strings.HasPrefix(text[i:], "\n\n") {
			return i
		}
	}
	return pos
}

// blankLineAt reports the position just after a blank line ending at i, or
// -1 when i does not sit on one
func blankLineAt(text string, i int) int {
	if i >= 2 && i <= len(text) && text[i-1] == '\n' && text[i-2] == '\n' {
		return i
	}
	return -1
}
