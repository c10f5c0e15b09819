package repositories

import (
	"context"
)

// VectorRepository defines the interface for vector index operations.
// This abstracts ChromaDB and allows for easy testing and implementation swapping.
type VectorRepository interface {
	// EnsureCollection creates the backing collection if it does not exist
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or overwrites vectors by id
	Upsert(ctx context.Context, records []*VectorRecord) error

	// Query returns the topK nearest vectors restricted to a namespace,
	// ordered by descending score
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]*VectorMatch, error)

	// DeleteByIDs removes vectors by id; unknown ids are ignored
	DeleteByIDs(ctx context.Context, ids []string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// VectorRecord is one vector to store, tagged with per-chunk metadata
type VectorRecord struct {
	ID       string                 `json:"id"`
	Vector   []float32              `json:"vector"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// VectorMatch is one nearest-neighbor result
type VectorMatch struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"` // Similarity score, higher is better
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// QueryOptions controls a nearest-neighbor query
type QueryOptions struct {
	TopK      int
	Namespace string
}

// VectorRepositoryError represents errors from the vector repository
type VectorRepositoryError struct {
	Operation string
	Err       error
	Message   string
}

func (e *VectorRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *VectorRepositoryError) Unwrap() error {
	return e.Err
}

// NewVectorRepositoryError creates a new vector repository error
func NewVectorRepositoryError(operation string, err error, message string) *VectorRepositoryError {
	return &VectorRepositoryError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}
