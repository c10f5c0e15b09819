package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	documentKeyPrefix   = "document:"
	collectionKeyPrefix = "collection:"
	collectionDocsKey   = "collection-docs:"
)

// RedisDocumentRepository implements DocumentRepository using Redis
type RedisDocumentRepository struct {
	client *redis.Client
}

// NewRedisDocumentRepository creates a new Redis-based document repository
func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{
		client: client,
	}
}

// Register stores a new document in the registry
func (r *RedisDocumentRepository) Register(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "")
	}
	if exists {
		return DocumentAlreadyExistsError(doc.ID)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "failed to marshal document")
	}

	// Pipeline the record write and collection index update atomically
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0)
	pipe.SAdd(ctx, collectionDocsKey+doc.CollectionID, doc.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "failed to execute transaction")
	}

	return nil
}

// Get retrieves a document by ID
func (r *RedisDocumentRepository) Get(ctx context.Context, documentID string) (*Document, error) {
	docJSON, err := r.client.Get(ctx, documentKeyPrefix+documentID).Result()
	if err == redis.Nil {
		return nil, DocumentNotFoundError(documentID)
	}
	if err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "")
	}

	var doc Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "failed to unmarshal document")
	}

	return &doc, nil
}

// GetBatch retrieves multiple documents in one round trip.
// Missing documents are skipped, not errors.
func (r *RedisDocumentRepository) GetBatch(ctx context.Context, documentIDs []string) ([]*Document, error) {
	if len(documentIDs) == 0 {
		return []*Document{}, nil
	}

	keys := make([]string, len(documentIDs))
	for i, id := range documentIDs {
		keys[i] = documentKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("get_batch", "", err, "")
	}

	docs := make([]*Document, 0, len(values))
	for _, v := range values {
		docJSON, ok := v.(string)
		if !ok {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			continue
		}
		docs = append(docs, &doc)
	}

	return docs, nil
}

// Update overwrites a document record
func (r *RedisDocumentRepository) Update(ctx context.Context, doc *Document) error {
	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "")
	}
	if !exists {
		return DocumentNotFoundError(doc.ID)
	}

	doc.UpdatedAt = time.Now()

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "failed to marshal document")
	}

	if err := r.client.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0).Err(); err != nil {
		return NewDocumentRepositoryError("update", doc.ID, err, "")
	}

	return nil
}

// SetStatus updates only the processing status of a document
func (r *RedisDocumentRepository) SetStatus(ctx context.Context, documentID string, status DocumentStatus) error {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}

	doc.Status = status
	return r.Update(ctx, doc)
}

// Delete removes a document and its collection index entry
func (r *RedisDocumentRepository) Delete(ctx context.Context, documentID string) error {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, documentKeyPrefix+documentID)
	pipe.SRem(ctx, collectionDocsKey+doc.CollectionID, documentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return NewDocumentRepositoryError("delete", documentID, err, "failed to execute transaction")
	}

	return nil
}

// Exists checks if a document is registered
func (r *RedisDocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	n, err := r.client.Exists(ctx, documentKeyPrefix+documentID).Result()
	if err != nil {
		return false, NewDocumentRepositoryError("exists", documentID, err, "")
	}
	return n > 0, nil
}

// ListByCollection retrieves all documents in a collection, oldest first
func (r *RedisDocumentRepository) ListByCollection(ctx context.Context, collectionID string) ([]*Document, error) {
	docIDs, err := r.client.SMembers(ctx, collectionDocsKey+collectionID).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("list_by_collection", "", err, "")
	}

	docs, err := r.GetBatch(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	return docs, nil
}

// SaveCollection stores or overwrites a collection record
func (r *RedisDocumentRepository) SaveCollection(ctx context.Context, coll *Collection) error {
	if coll.ID == "" {
		return NewDocumentRepositoryError("save_collection", "", nil, "collection id is required")
	}
	if coll.CreatedAt.IsZero() {
		coll.CreatedAt = time.Now()
	}

	collJSON, err := json.Marshal(coll)
	if err != nil {
		return NewDocumentRepositoryError("save_collection", "", err, "failed to marshal collection")
	}

	if err := r.client.Set(ctx, collectionKeyPrefix+coll.ID, collJSON, 0).Err(); err != nil {
		return NewDocumentRepositoryError("save_collection", "", err, "")
	}

	return nil
}

// GetCollection retrieves a collection by ID
func (r *RedisDocumentRepository) GetCollection(ctx context.Context, collectionID string) (*Collection, error) {
	collJSON, err := r.client.Get(ctx, collectionKeyPrefix+collectionID).Result()
	if err == redis.Nil {
		return nil, CollectionNotFoundError(collectionID)
	}
	if err != nil {
		return nil, NewDocumentRepositoryError("get_collection", "", err, "")
	}

	var coll Collection
	if err := json.Unmarshal([]byte(collJSON), &coll); err != nil {
		return nil, NewDocumentRepositoryError("get_collection", "", err, "failed to unmarshal collection")
	}

	return &coll, nil
}

// Ping verifies the Redis connection
func (r *RedisDocumentRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return NewDocumentRepositoryError("ping", "", err, "")
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisDocumentRepository) Close() error {
	return r.client.Close()
}
