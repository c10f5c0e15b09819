package models

// ChunkMetadata carries position and section info for a chunk within its
// source document. Offsets are required later for context expansion.
type ChunkMetadata struct {
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Section   string `json:"section,omitempty"`
}

// Chunk represents a contiguous slice of a document's text produced by the chunker
type Chunk struct {
	Content  string        `json:"content"`
	Index    int           `json:"index"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievedChunkMetadata holds the per-vector fields stored alongside a chunk
// in the vector index. Pointer fields distinguish "absent" from zero.
type RetrievedChunkMetadata struct {
	Page      *int   `json:"page,omitempty"`
	Section   string `json:"section,omitempty"`
	StartChar *int   `json:"start_char,omitempty"`
	EndChar   *int   `json:"end_char,omitempty"`
	Title     string `json:"title,omitempty"`
}

// RetrievedChunk is a chunk returned from the vector index for a query,
// enriched with a similarity score and owning-document reference
type RetrievedChunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Content    string                 `json:"content"`
	Score      float32                `json:"score"` // Similarity score, higher is more relevant
	Metadata   RetrievedChunkMetadata `json:"metadata"`
}

// RetrievalResult is the outcome of one retrieval operation
type RetrievalResult struct {
	Chunks []RetrievedChunk `json:"chunks"`
	// HasRelevantResults is true iff the top-scoring chunk meets the
	// primary relevance threshold
	HasRelevantResults bool `json:"has_relevant_results"`
}

// ExpandedChunk is a retrieved chunk whose shown text has been widened to
// nearby paragraph boundaries using the full document text
type ExpandedChunk struct {
	RetrievedChunk
	ExpandedContent string `json:"expanded_content"`
	HasExpansion    bool   `json:"has_expansion"`
}

// ProcessDocumentResult is the outcome of ingesting one document
type ProcessDocumentResult struct {
	Success    bool     `json:"success"`
	ChunkCount int      `json:"chunk_count"`
	TokenCount int      `json:"token_count"`
	Summary    string   `json:"summary,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	Error      string   `json:"error,omitempty"`
}
