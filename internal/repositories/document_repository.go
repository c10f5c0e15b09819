package repositories

import (
	"context"
	"time"
)

// SourceType identifies how a document's content is obtained
type SourceType string

const (
	SourceTypeMarkdown SourceType = "markdown"
	SourceTypeURL      SourceType = "url"
	SourceTypePDF      SourceType = "pdf"
)

// DocumentStatus represents the processing state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents a document record in the registry
type Document struct {
	ID           string     `json:"document_id"`
	CollectionID string     `json:"collection_id"`
	Title        string     `json:"title"`
	SourceType   SourceType `json:"source_type"`
	SourceURL    string     `json:"source_url,omitempty"`

	// Content produced by ingestion
	Content          string   `json:"content,omitempty"`
	ProcessedContent string   `json:"processed_content,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Topics           []string `json:"topics,omitempty"`

	ChunkCount int            `json:"chunk_count"`
	TokenCount int            `json:"token_count"`
	Status     DocumentStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required document fields
func (d *Document) Validate() error {
	if d.ID == "" {
		return NewDocumentRepositoryError("validate", "", nil, "document id is required")
	}
	if d.CollectionID == "" {
		return NewDocumentRepositoryError("validate", d.ID, nil, "collection id is required")
	}
	if d.Title == "" {
		return NewDocumentRepositoryError("validate", d.ID, nil, "title is required")
	}
	return nil
}

// Collection represents a collection of documents sharing one vector namespace
type Collection struct {
	ID              string    `json:"collection_id"`
	Title           string    `json:"title"`
	VectorNamespace string    `json:"vector_namespace"`
	CreatedAt       time.Time `json:"created_at"`
}

// DocumentRepository defines the interface for the document registry.
// The core performs only point lookups and point updates against it.
type DocumentRepository interface {
	// Document operations
	Register(ctx context.Context, doc *Document) error
	Get(ctx context.Context, documentID string) (*Document, error)
	GetBatch(ctx context.Context, documentIDs []string) ([]*Document, error)
	Update(ctx context.Context, doc *Document) error
	SetStatus(ctx context.Context, documentID string, status DocumentStatus) error
	Delete(ctx context.Context, documentID string) error
	Exists(ctx context.Context, documentID string) (bool, error)
	ListByCollection(ctx context.Context, collectionID string) ([]*Document, error)

	// Collection operations
	SaveCollection(ctx context.Context, coll *Collection) error
	GetCollection(ctx context.Context, collectionID string) (*Collection, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// DocumentRepositoryError represents errors from the document repository
type DocumentRepositoryError struct {
	Operation  string
	DocumentID string
	Err        error
	Message    string
}

func (e *DocumentRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.DocumentID != "" {
		prefix += " (doc: " + e.DocumentID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *DocumentRepositoryError) Unwrap() error {
	return e.Err
}

// NewDocumentRepositoryError creates a new document repository error
func NewDocumentRepositoryError(operation string, documentID string, err error, message string) *DocumentRepositoryError {
	return &DocumentRepositoryError{
		Operation:  operation,
		DocumentID: documentID,
		Err:        err,
		Message:    message,
	}
}

// Common error constructors
func DocumentNotFoundError(documentID string) error {
	return NewDocumentRepositoryError("get_document", documentID, nil, "document not found: "+documentID)
}

func DocumentAlreadyExistsError(documentID string) error {
	return NewDocumentRepositoryError("register", documentID, nil, "document already exists: "+documentID)
}

func CollectionNotFoundError(collectionID string) error {
	return NewDocumentRepositoryError("get_collection", collectionID, nil, "collection not found: "+collectionID)
}
