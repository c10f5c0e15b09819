// Package chunker splits document text into overlapping, size-bounded
// segments suitable for embedding, preserving position metadata so a chunk
// can later be re-expanded to surrounding context.
package chunker

import (
	"regexp"
	"strings"

	"archivist/internal/models"
)

// Options controls chunk sizing. All values are characters.
type Options struct {
	MaxChunkSize int // Max characters per chunk (default: 2000)
	ChunkOverlap int // Overlap between consecutive chunks (default: 300)
	MinChunkSize int // Min characters to close a chunk (default: 150)
}

// DefaultOptions returns the generic chunking defaults
func DefaultOptions() Options {
	return Options{
		MaxChunkSize: 2000,
		ChunkOverlap: 300,
		MinChunkSize: 150,
	}
}

// IngestionOptions returns smaller chunk sizes tuned for retrieval precision
// over context breadth, used by the ingestion pipeline
func IngestionOptions() Options {
	return Options{
		MaxChunkSize: 1500,
		ChunkOverlap: 200,
		MinChunkSize: 100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = d.MaxChunkSize
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = d.ChunkOverlap
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = d.MinChunkSize
	}
	return o
}

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[^.!?]+[.!?]+\s*`)
	headingRe   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
)

// ChunkText splits plain text into chunks at semantic boundaries: paragraphs
// first, falling back to sentences when a single paragraph exceeds the max
// size. Consecutive chunks share an overlap tail for continuity. Empty or
// whitespace-only input yields no chunks; it never fails.
func ChunkText(text string, opts Options) []models.Chunk {
	opts = opts.withDefaults()

	normalized := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if normalized == "" {
		return nil
	}

	if len(normalized) <= opts.MaxChunkSize {
		return []models.Chunk{{
			Content:  normalized,
			Index:    0,
			Metadata: models.ChunkMetadata{StartChar: 0, EndChar: len(normalized)},
		}}
	}

	var chunks []models.Chunk
	var current strings.Builder
	chunkStart := 0
	charOffset := 0

	closeChunk := func() {
		chunks = append(chunks, models.Chunk{
			Content:  strings.TrimSpace(current.String()),
			Index:    len(chunks),
			Metadata: models.ChunkMetadata{StartChar: chunkStart, EndChar: charOffset},
		})
		overlap := overlapTail(current.String(), opts.ChunkOverlap)
		current.Reset()
		current.WriteString(overlap)
		chunkStart = charOffset - len(overlap)
	}

	for _, para := range splitParagraphs(normalized) {
		if current.Len()+len(para) > opts.MaxChunkSize && current.Len() >= opts.MinChunkSize {
			closeChunk()
		}

		if len(para) > opts.MaxChunkSize {
			// Oversized paragraph: accumulate sentence by sentence
			for _, sentence := range splitSentences(para) {
				if current.Len()+len(sentence) > opts.MaxChunkSize && current.Len() >= opts.MinChunkSize {
					closeChunk()
				}
				current.WriteString(sentence)
				charOffset += len(sentence)
			}
		} else {
			current.WriteString(para)
			current.WriteString("\n\n")
			charOffset += len(para) + 2
		}
	}

	// Emit the tail: always when it is the document's only content,
	// otherwise only when it reaches the minimum size
	tail := strings.TrimSpace(current.String())
	if tail != "" && (len(tail) >= opts.MinChunkSize || len(chunks) == 0) {
		chunks = append(chunks, models.Chunk{
			Content:  tail,
			Index:    len(chunks),
			Metadata: models.ChunkMetadata{StartChar: chunkStart, EndChar: charOffset},
		})
	}

	return chunks
}

// ChunkMarkdown splits markdown on ATX headings first, then chunks each
// section's body with ChunkText. Chunks are re-indexed sequentially across
// the whole document and carry their section's heading text.
func ChunkMarkdown(markdown string, opts Options) []models.Chunk {
	opts = opts.withDefaults()

	var chunks []models.Chunk
	for _, section := range splitSections(markdown) {
		for _, chunk := range ChunkText(section.content, opts) {
			chunk.Index = len(chunks)
			chunk.Metadata.Section = section.heading
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// EstimateTokens approximates token count as ceil(len/4). This is a fixed
// heuristic, not a real tokenizer; actual tokenization varies by model.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type section struct {
	heading string
	content string
}

func splitParagraphs(text string) []string {
	parts := paragraphRe.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSentences(text string) []string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return []string{text}
	}
	out := sentences[:0]
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitSections(markdown string) []section {
	var sections []section
	lastEnd := 0
	lastHeading := ""

	for _, loc := range headingRe.FindAllStringSubmatchIndex(markdown, -1) {
		if loc[0] > lastEnd {
			content := strings.TrimSpace(markdown[lastEnd:loc[0]])
			if content != "" {
				sections = append(sections, section{heading: lastHeading, content: content})
			}
		}
		lastHeading = markdown[loc[4]:loc[5]]
		lastEnd = loc[1]
	}

	if remaining := strings.TrimSpace(markdown[lastEnd:]); remaining != "" {
		sections = append(sections, section{heading: lastHeading, content: remaining})
	}

	if len(sections) == 0 {
		sections = append(sections, section{content: markdown})
	}

	return sections
}

// overlapTail returns the last overlapSize characters of text, trimmed
// forward to a word boundary when one falls within the first half of the
// window so chunks do not begin mid-word.
func overlapTail(text string, overlapSize int) string {
	if len(text) <= overlapSize {
		return text
	}

	overlap := text[len(text)-overlapSize:]
	if wordBreak := strings.Index(overlap, " "); wordBreak > 0 && wordBreak < overlapSize/2 {
		return overlap[wordBreak+1:]
	}
	return overlap
}
