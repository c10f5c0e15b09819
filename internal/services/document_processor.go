package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"archivist/internal/chunker"
	"archivist/internal/models"
	"archivist/internal/repositories"
)

// upsertBatchSize is the number of vectors written per index request
const upsertBatchSize = 100

// DocumentProcessor coordinates extraction, analysis, chunking, embedding
// and vector storage for one document
type DocumentProcessor struct {
	embedder     Embedder
	vectorRepo   repositories.VectorRepository
	documentRepo repositories.DocumentRepository
	analyzer     SourceAnalyzer
	extractor    ContentExtractor
	logger       *log.Logger
}

// NewDocumentProcessor creates a new document processor. The analyzer and
// extractor are optional; markdown documents ingest without either.
func NewDocumentProcessor(
	embedder Embedder,
	vectorRepo repositories.VectorRepository,
	documentRepo repositories.DocumentRepository,
	analyzer SourceAnalyzer,
	extractor ContentExtractor,
	logger *log.Logger,
) *DocumentProcessor {
	return &DocumentProcessor{
		embedder:     embedder,
		vectorRepo:   vectorRepo,
		documentRepo: documentRepo,
		analyzer:     analyzer,
		extractor:    extractor,
		logger:       logger,
	}
}

// ProcessDocument ingests one document: obtain text, analyze, chunk, embed,
// upsert vectors, persist metadata. Ingestion is all-or-nothing; any
// failure after chunking marks the document failed rather than leaving
// partial vectors behind as a completed state.
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, doc *repositories.Document, namespace string) *models.ProcessDocumentResult {
	p.logger.Printf("Processing document %s (%s)", doc.ID, doc.SourceType)

	if err := p.documentRepo.SetStatus(ctx, doc.ID, repositories.DocumentStatusProcessing); err != nil {
		p.logger.Printf("Failed to mark document %s processing: %v", doc.ID, err)
	}

	text, title, err := p.obtainText(ctx, doc)
	if err != nil {
		return p.fail(ctx, doc, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return p.fail(ctx, doc, "No content to process")
	}
	if title != "" && doc.Title == "" {
		doc.Title = title
	}

	// Analysis is an enhancement; on failure the raw text stands
	processedText := text
	var summary string
	var topics []string
	if p.analyzer != nil {
		if analysis, err := p.analyzer.Analyze(ctx, doc.Title, text); err != nil {
			p.logger.Printf("Source analysis unavailable for %s: %v", doc.ID, err)
		} else {
			processedText = analysis.CleanedContent
			summary = analysis.Summary
			topics = analysis.Topics
		}
	}

	chunks := chunker.ChunkMarkdown(processedText, chunker.IngestionOptions())
	if len(chunks) == 0 {
		return p.fail(ctx, doc, "No chunks generated")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(ctx, doc, fmt.Sprintf("Embedding failed: %v", err))
	}

	tokenCount := 0
	records := make([]*repositories.VectorRecord, len(chunks))
	for i, c := range chunks {
		tokenCount += embeddings[i].TokenCount
		records[i] = &repositories.VectorRecord{
			ID:      vectorID(doc.ID, i),
			Vector:  embeddings[i].Vector,
			Content: c.Content,
			Metadata: map[string]interface{}{
				"document_id":   doc.ID,
				"collection_id": doc.CollectionID,
				"namespace":     namespace,
				"title":         doc.Title,
				"chunk_index":   c.Index,
				"section":       c.Metadata.Section,
				"start_char":    c.Metadata.StartChar,
				"end_char":      c.Metadata.EndChar,
			},
		}
	}

	for i := 0; i < len(records); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := p.vectorRepo.Upsert(ctx, records[i:end]); err != nil {
			return p.fail(ctx, doc, fmt.Sprintf("Vector upsert failed at batch %d: %v", i/upsertBatchSize, err))
		}
	}

	doc.Content = text
	doc.ProcessedContent = processedText
	doc.Summary = summary
	doc.Topics = topics
	doc.ChunkCount = len(chunks)
	doc.TokenCount = tokenCount
	doc.Status = repositories.DocumentStatusCompleted
	if err := p.documentRepo.Update(ctx, doc); err != nil {
		return p.fail(ctx, doc, fmt.Sprintf("Failed to persist document: %v", err))
	}

	p.logger.Printf("Document %s processed: %d chunks, ~%d tokens", doc.ID, len(chunks), tokenCount)
	return &models.ProcessDocumentResult{
		Success:    true,
		ChunkCount: len(chunks),
		TokenCount: tokenCount,
		Summary:    summary,
		Topics:     topics,
	}
}

// ReprocessDocument deletes any vectors left by a previous attempt and runs
// the full pipeline again
func (p *DocumentProcessor) ReprocessDocument(ctx context.Context, doc *repositories.Document, namespace string) *models.ProcessDocumentResult {
	if doc.ChunkCount > 0 {
		if err := p.DeleteDocumentVectors(ctx, doc.ID, doc.ChunkCount); err != nil {
			return p.fail(ctx, doc, fmt.Sprintf("Failed to clear previous vectors: %v", err))
		}
	}
	return p.ProcessDocument(ctx, doc, namespace)
}

// DeleteDocumentVectors removes a document's vectors by rebuilding their
// deterministic ids from the chunk count. No index read is needed because
// ids follow the {documentID}_chunk_{i} convention.
func (p *DocumentProcessor) DeleteDocumentVectors(ctx context.Context, documentID string, chunkCount int) error {
	if chunkCount <= 0 {
		return nil
	}

	ids := make([]string, chunkCount)
	for i := 0; i < chunkCount; i++ {
		ids[i] = vectorID(documentID, i)
	}

	for i := 0; i < len(ids); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := p.vectorRepo.DeleteByIDs(ctx, ids[i:end]); err != nil {
			return fmt.Errorf("failed to delete vectors for document %s: %w", documentID, err)
		}
	}

	p.logger.Printf("Deleted %d vectors for document %s", chunkCount, documentID)
	return nil
}

// obtainText resolves the document's raw text by source type
func (p *DocumentProcessor) obtainText(ctx context.Context, doc *repositories.Document) (text, title string, err error) {
	switch doc.SourceType {
	case repositories.SourceTypeMarkdown:
		return doc.Content, "", nil
	case repositories.SourceTypeURL:
		if p.extractor == nil {
			return "", "", fmt.Errorf("No content extractor configured for url sources")
		}
		extracted, err := p.extractor.ExtractFromURL(ctx, doc.SourceURL)
		if err != nil {
			return "", "", fmt.Errorf("Content extraction failed: %v", err)
		}
		return extracted.Content, extracted.Title, nil
	case repositories.SourceTypePDF:
		if p.extractor == nil {
			return "", "", fmt.Errorf("No content extractor configured for pdf sources")
		}
		extracted, err := p.extractor.ExtractFromPDF(ctx, []byte(doc.Content))
		if err != nil {
			return "", "", fmt.Errorf("Content extraction failed: %v", err)
		}
		return extracted.Content, extracted.Title, nil
	default:
		return "", "", fmt.Errorf("Unsupported source type: %s", doc.SourceType)
	}
}

func (p *DocumentProcessor) fail(ctx context.Context, doc *repositories.Document, reason string) *models.ProcessDocumentResult {
	p.logger.Printf("Document %s failed: %s", doc.ID, reason)
	if err := p.documentRepo.SetStatus(ctx, doc.ID, repositories.DocumentStatusFailed); err != nil {
		p.logger.Printf("Failed to mark document %s failed: %v", doc.ID, err)
	}
	return &models.ProcessDocumentResult{
		Success: false,
		Error:   reason,
	}
}

func vectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}
