package repositories

import (
	"context"
	"fmt"
	"strings"

	"archivist/internal/db"
)

// ChromaVectorRepository implements VectorRepository using ChromaDB.
// All namespaces share one Chroma collection; isolation is enforced by a
// namespace metadata filter on every query, matching how vectors are tagged
// at upsert time.
type ChromaVectorRepository struct {
	client         *db.ChromaDBClient
	collectionName string
}

// NewChromaVectorRepository creates a new ChromaDB-backed vector repository
func NewChromaVectorRepository(client *db.ChromaDBClient, collectionName string) VectorRepository {
	if collectionName == "" {
		collectionName = "archive"
	}
	return &ChromaVectorRepository{
		client:         client,
		collectionName: collectionName,
	}
}

// EnsureCollection creates the backing collection if it does not exist
func (r *ChromaVectorRepository) EnsureCollection(ctx context.Context) error {
	_, err := r.client.GetCollection(ctx, r.collectionName)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "not found") {
		return NewVectorRepositoryError("ensure_collection", err, "")
	}

	if _, err := r.client.CreateCollection(ctx, r.collectionName, nil); err != nil {
		return NewVectorRepositoryError("ensure_collection", err, "failed to create collection: "+r.collectionName)
	}
	return nil
}

// Upsert inserts or overwrites vectors by id
func (r *ChromaVectorRepository) Upsert(ctx context.Context, records []*VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	documents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]interface{}, len(records))

	for i, rec := range records {
		ids[i] = rec.ID
		documents[i] = rec.Content
		embeddings[i] = rec.Vector
		metadatas[i] = rec.Metadata
	}

	if err := r.client.UpsertDocuments(ctx, r.collectionName, ids, documents, embeddings, metadatas); err != nil {
		return NewVectorRepositoryError("upsert", err, fmt.Sprintf("failed to upsert %d vectors", len(records)))
	}

	return nil
}

// Query returns the topK nearest vectors restricted to a namespace
func (r *ChromaVectorRepository) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]*VectorMatch, error) {
	where := map[string]interface{}{
		"namespace": opts.Namespace,
	}

	results, err := r.client.Query(ctx, r.collectionName, [][]float32{vector}, opts.TopK, where)
	if err != nil {
		return nil, NewVectorRepositoryError("query", err, "query failed")
	}

	matches := make([]*VectorMatch, 0)
	if len(results.IDs) > 0 {
		for i := range results.IDs[0] {
			metadata := make(map[string]interface{})
			if len(results.Metadatas) > 0 && len(results.Metadatas[0]) > i {
				metadata = results.Metadatas[0][i]
			}

			var content string
			if len(results.Documents) > 0 && len(results.Documents[0]) > i {
				content = results.Documents[0][i]
			}

			var distance float32
			if len(results.Distances) > 0 && len(results.Distances[0]) > i {
				distance = results.Distances[0][i]
			}

			matches = append(matches, &VectorMatch{
				ID:       results.IDs[0][i],
				Score:    1.0 - distance, // cosine similarity from distance
				Content:  content,
				Metadata: metadata,
			})
		}
	}

	return matches, nil
}

// DeleteByIDs removes vectors by id
func (r *ChromaVectorRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := r.client.DeleteDocuments(ctx, r.collectionName, ids); err != nil {
		return NewVectorRepositoryError("delete_by_ids", err, fmt.Sprintf("failed to delete %d vectors", len(ids)))
	}

	return nil
}

// Ping checks if ChromaDB is alive
func (r *ChromaVectorRepository) Ping(ctx context.Context) error {
	if err := r.client.Heartbeat(ctx); err != nil {
		return NewVectorRepositoryError("ping", err, "ChromaDB heartbeat failed")
	}
	return nil
}

// Close closes the ChromaDB client
func (r *ChromaVectorRepository) Close() error {
	r.client.Close()
	return nil
}
