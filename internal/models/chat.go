package models

// AnswerSource identifies where the grounding content for an answer came from
type AnswerSource string

const (
	SourceArchive AnswerSource = "archive"
	SourceWeb     AnswerSource = "web"
)

// ChatMessage represents a single message sent to the generation model
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content string `json:"content"`
}

// Citation is a reference shown to the end user alongside a generated answer.
// SourceIndex is 1-based and matches the numeral shown in the answer text.
type Citation struct {
	SourceIndex   int    `json:"source_index"`
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	ChunkContent  string `json:"chunk_content"`
	Page          *int   `json:"page,omitempty"`
}

// GenerationResult is the parsed outcome of one generation call
type GenerationResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// QueryRequest represents an incoming chat query
type QueryRequest struct {
	CollectionID   string   `json:"collection_id"`
	Question       string   `json:"question"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// QueryResponse represents the answer returned for a chat query
type QueryResponse struct {
	Answer         string       `json:"answer"`
	Citations      []Citation   `json:"citations"`
	Source         AnswerSource `json:"source"`
	ConversationID string       `json:"conversation_id"`
}

// WebResult is a single result from the web-search collaborator
type WebResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}
