package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func repeatSentences(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(fmt.Sprintf("Sentence number %d carries some ordinary words for length. ", i))
	}
	return sb.String()
}

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", DefaultOptions()))
	assert.Nil(t, ChunkText("   \n\n\t  ", DefaultOptions()))
}

func TestChunkText_ShortInputSingleChunk(t *testing.T) {
	chunks := ChunkText("A short document.", DefaultOptions())

	assert.Len(t, chunks, 1)
	assert.Equal(t, "A short document.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Metadata.StartChar)
	assert.Equal(t, len("A short document."), chunks[0].Metadata.EndChar)
}

func TestChunkText_ShortInputBelowMinimumStillChunks(t *testing.T) {
	chunks := ChunkText("tiny", Options{MaxChunkSize: 100, MinChunkSize: 50, ChunkOverlap: 10})

	assert.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Content)
}

func TestChunkText_SplitsAtParagraphs(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, repeatSentences(3))
	}
	text := strings.Join(paragraphs, "\n\n")

	opts := Options{MaxChunkSize: 500, ChunkOverlap: 50, MinChunkSize: 100}
	chunks := ChunkText(text, opts)

	assert.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Content)
		assert.GreaterOrEqual(t, c.Metadata.EndChar, c.Metadata.StartChar)
	}
}

func TestChunkText_IndicesStrictlyIncrease(t *testing.T) {
	chunks := ChunkText(repeatSentences(200), Options{MaxChunkSize: 400, ChunkOverlap: 40, MinChunkSize: 80})

	assert.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].Index+1, chunks[i].Index)
		assert.GreaterOrEqual(t, chunks[i].Metadata.StartChar, chunks[i-1].Metadata.StartChar)
	}
}

func TestChunkText_OversizedParagraphFallsBackToSentences(t *testing.T) {
	// One giant paragraph, no blank lines anywhere
	text := repeatSentences(100)
	opts := Options{MaxChunkSize: 600, ChunkOverlap: 60, MinChunkSize: 100}

	chunks := ChunkText(text, opts)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		// Sentence accumulation keeps chunks near the cap, allowing the
		// final sentence to push slightly past it
		assert.Less(t, len(c.Content), opts.MaxChunkSize+200)
	}
}

func TestChunkText_OverlapCarriesContext(t *testing.T) {
	text := repeatSentences(150)
	opts := Options{MaxChunkSize: 500, ChunkOverlap: 100, MinChunkSize: 100}

	chunks := ChunkText(text, opts)

	assert.Greater(t, len(chunks), 1)
	// Each chunk after the first should open with text already seen at the
	// end of its predecessor
	head := chunks[1].Content[:40]
	assert.Contains(t, chunks[0].Content, head)
}

func TestChunkText_CoverageNoGaps(t *testing.T) {
	text := repeatSentences(120)
	chunks := ChunkText(text, Options{MaxChunkSize: 500, ChunkOverlap: 50, MinChunkSize: 100})

	// Every character range must be covered: each chunk starts at or before
	// the previous chunk's end
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Metadata.StartChar, chunks[i-1].Metadata.EndChar)
	}
	assert.Equal(t, 0, chunks[0].Metadata.StartChar)
}

func TestChunkText_NormalizesWindowsLineEndings(t *testing.T) {
	chunks := ChunkText("line one\r\n\r\nline two", DefaultOptions())

	assert.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "\r")
}

func TestChunkMarkdown_SectionsCarryHeadings(t *testing.T) {
	markdown := "intro text before any heading\n\n# First Section\n\nbody of the first section\n\n## Second Section\n\nbody of the second section"

	chunks := ChunkMarkdown(markdown, DefaultOptions())

	assert.Len(t, chunks, 3)
	assert.Equal(t, "", chunks[0].Metadata.Section)
	assert.Equal(t, "First Section", chunks[1].Metadata.Section)
	assert.Equal(t, "Second Section", chunks[2].Metadata.Section)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestChunkMarkdown_NoHeadings(t *testing.T) {
	chunks := ChunkMarkdown("plain text without any markdown headings", DefaultOptions())

	assert.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Metadata.Section)
}

func TestChunkMarkdown_Empty(t *testing.T) {
	assert.Empty(t, ChunkMarkdown("", DefaultOptions()))
}

func TestChunkMarkdown_LargeSectionSplits(t *testing.T) {
	markdown := "# Big Section\n\n" + repeatSentences(200)

	chunks := ChunkMarkdown(markdown, Options{MaxChunkSize: 500, ChunkOverlap: 50, MinChunkSize: 100})

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, "Big Section", c.Metadata.Section)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestOverlapTail(t *testing.T) {
	assert.Equal(t, "short", overlapTail("short", 100))

	tail := overlapTail("many words in this sentence flow along nicely", 20)
	assert.LessOrEqual(t, len(tail), 20)
	// Trimmed forward to a word boundary, so it never opens mid-word
	assert.False(t, strings.HasPrefix(tail, " "))
}
