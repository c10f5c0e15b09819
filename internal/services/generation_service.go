package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"archivist/internal/citations"
	"archivist/internal/models"
)

// citationExcerptLimit caps the chunk excerpt stored on a citation
const citationExcerptLimit = 200

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// GenerationService turns retrieved chunks and a question into a cited
// answer via the external text-generation model
type GenerationService struct {
	generator TextGenerator
	logger    *log.Logger
}

// NewGenerationService creates a new generation service
func NewGenerationService(generator TextGenerator, logger *log.Logger) *GenerationService {
	return &GenerationService{
		generator: generator,
		logger:    logger,
	}
}

// GenerateAnswer builds the prompt, calls the model, and extracts citations
// from the normalized answer text
func (s *GenerationService) GenerateAnswer(ctx context.Context, question string, chunks []models.RetrievedChunk, documentTitles map[string]string, source models.AnswerSource) (*models.GenerationResult, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("text generation is not configured")
	}
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	contextText := BuildContext(chunks, documentTitles)
	systemPrompt := BuildSystemPrompt(source, contextText)

	answer, err := s.generator.Complete(ctx, systemPrompt, question, GenerateOptions{})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	answer = citations.CleanAnswerFormat(answer)
	extracted := ExtractCitations(answer, chunks, documentTitles)
	s.logger.Printf("Generated answer with %d citations from %d chunks", len(extracted), len(chunks))

	return &models.GenerationResult{
		Answer:    answer,
		Citations: extracted,
	}, nil
}

// StreamResult carries the final outcome of a streamed answer
type StreamResult struct {
	Result *models.GenerationResult
	Err    error
}

// StreamAnswer streams answer fragments as they arrive from the model.
// Citations are extracted once from the fully accumulated text after the
// stream ends; the Done channel delivers exactly one StreamResult.
func (s *GenerationService) StreamAnswer(ctx context.Context, question string, chunks []models.RetrievedChunk, documentTitles map[string]string, source models.AnswerSource) (<-chan string, <-chan StreamResult) {
	fragments := make(chan string)
	done := make(chan StreamResult, 1)

	go func() {
		defer close(fragments)
		defer close(done)

		if s.generator == nil {
			done <- StreamResult{Err: fmt.Errorf("text generation is not configured")}
			return
		}

		contextText := BuildContext(chunks, documentTitles)
		systemPrompt := BuildSystemPrompt(source, contextText)

		upstream, errs := s.generator.Stream(ctx, systemPrompt, question, GenerateOptions{})

		var accumulated strings.Builder
		for fragment := range upstream {
			accumulated.WriteString(fragment)
			select {
			case fragments <- fragment:
			case <-ctx.Done():
				done <- StreamResult{Err: ctx.Err()}
				return
			}
		}
		if err := <-errs; err != nil {
			done <- StreamResult{Err: fmt.Errorf("answer generation failed: %w", err)}
			return
		}

		answer := citations.CleanAnswerFormat(accumulated.String())
		done <- StreamResult{Result: &models.GenerationResult{
			Answer:    answer,
			Citations: ExtractCitations(answer, chunks, documentTitles),
		}}
	}()

	return fragments, done
}

// ExtractCitations scans answer text for [N] markers and maps each distinct
// in-range N, in first-appearance order, to the chunk at 1-based position
// N. Out-of-range markers are skipped; a hallucinated citation never fails
// the request.
func ExtractCitations(answer string, chunks []models.RetrievedChunk, documentTitles map[string]string) []models.Citation {
	matches := citationMarkerRe.FindAllStringSubmatch(answer, -1)
	result := make([]models.Citation, 0, len(matches))
	seen := make(map[int]bool)

	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(chunks) || seen[n] {
			continue
		}
		seen[n] = true

		chunk := chunks[n-1]
		title := chunk.Metadata.Title
		if t, ok := documentTitles[chunk.DocumentID]; ok && t != "" {
			title = t
		}

		excerpt := chunk.Content
		if len(excerpt) > citationExcerptLimit {
			excerpt = excerpt[:citationExcerptLimit] + "..."
		}

		result = append(result, models.Citation{
			SourceIndex:   n,
			DocumentID:    chunk.DocumentID,
			DocumentTitle: title,
			ChunkContent:  excerpt,
			Page:          chunk.Metadata.Page,
		})
	}

	return result
}
