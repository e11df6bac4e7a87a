// Package weaviate adapts the Weaviate client to the index store contract.
// Each (knowledge type, tenant, namespace) collection is a distinct class;
// chunk ids double as object ids, so upserts and deletes address objects
// directly.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/vector"
)

// Embedder turns chunk texts into vectors. Invoked during upsert, not by
// the coordinator directly.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type Store struct {
	client   *weaviate.Client
	embedder Embedder
	schema   vector.SchemaClient
	ensured  sync.Map // class name -> struct{}
}

func NewStore(client *weaviate.Client, embedder Embedder) *Store {
	return &Store{
		client:   client,
		embedder: embedder,
		schema:   &schemaAdapter{client: client},
	}
}

// ensureCollection creates the class on first write to a collection.
// Collections are keyed by tenant/namespace and only become known when a
// document for them arrives.
func (s *Store) ensureCollection(ctx context.Context, col knowledge.Collection) error {
	if _, ok := s.ensured.Load(col.Class()); ok {
		return nil
	}
	if err := vector.EnsureCollection(ctx, s.schema, col); err != nil {
		return fmt.Errorf("%w: ensure collection %s: %v", indexer.ErrStoreUnavailable, col.Name(), err)
	}
	s.ensured.Store(col.Class(), struct{}{})
	return nil
}

// Upsert embeds the chunk text and writes the object under the chunk id.
// Batch object writes replace an existing object with the same id, which
// makes retries after a partial failure idempotent.
func (s *Store) Upsert(ctx context.Context, col knowledge.Collection, chunk indexer.Chunk) error {
	if err := s.ensureCollection(ctx, col); err != nil {
		return err
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, []string{chunk.Text})
	if err != nil {
		return fmt.Errorf("%w: chunk %s: %v", indexer.ErrEmbeddingFailed, chunk.ID, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("%w: chunk %s: no vector returned", indexer.ErrEmbeddingFailed, chunk.ID)
	}

	props := map[string]interface{}{
		"content":    chunk.Text,
		"documentId": chunk.DocumentID,
	}
	for k, v := range chunk.Attributes {
		props[k] = v
	}

	obj := &models.Object{
		Class:      col.Class(),
		ID:         strfmt.UUID(chunk.ID),
		Properties: props,
		Vector:     vectors[0],
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: upsert chunk %s: %v", indexer.ErrStoreUnavailable, chunk.ID, err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("%w: upsert chunk %s: %s", indexer.ErrStoreUnavailable, chunk.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Delete removes one chunk object. A missing object is a success; the goal
// state is absence.
func (s *Store) Delete(ctx context.Context, col knowledge.Collection, chunkID string) error {
	err := s.client.Data().Deleter().
		WithClassName(col.Class()).
		WithID(chunkID).
		Do(ctx)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil
		}
		return fmt.Errorf("%w: delete chunk %s: %v", indexer.ErrStoreUnavailable, chunkID, err)
	}
	return nil
}

// DeleteByDocument removes every chunk of a document in one batch call.
// Used for reconciliation; the coordinator normally deletes by id.
func (s *Store) DeleteByDocument(ctx context.Context, col knowledge.Collection, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(col.Class()).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete document %s: %v", indexer.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, col knowledge.Collection, chunkID string) (*indexer.Chunk, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(col.Class()).
		WithID(chunkID).
		Do(ctx)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: chunk %s", indexer.ErrNotFound, chunkID)
		}
		return nil, fmt.Errorf("%w: get chunk %s: %v", indexer.ErrStoreUnavailable, chunkID, err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("%w: chunk %s", indexer.ErrNotFound, chunkID)
	}
	return objectToChunk(objs[0]), nil
}

// PatchAttributes merges attrs into every listed chunk, leaving text and
// vector untouched. Ids are enumerated by the caller from the membership
// record rather than scanned from the index. A chunk that disappeared since
// the membership read is skipped.
func (s *Store) PatchAttributes(ctx context.Context, col knowledge.Collection, chunkIDs []string, attrs map[string]interface{}) error {
	for _, id := range chunkIDs {
		err := s.client.Data().Updater().
			WithMerge().
			WithClassName(col.Class()).
			WithID(id).
			WithProperties(attrs).
			Do(ctx)
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				continue
			}
			return fmt.Errorf("%w: patch chunk %s: %v", indexer.ErrStoreUnavailable, id, err)
		}
	}
	return nil
}

func objectToChunk(obj *models.Object) *indexer.Chunk {
	chunk := &indexer.Chunk{
		ID:         string(obj.ID),
		Attributes: make(map[string]interface{}),
	}
	props, ok := obj.Properties.(map[string]interface{})
	if !ok {
		return chunk
	}
	for k, v := range props {
		switch k {
		case "content":
			if text, ok := v.(string); ok {
				chunk.Text = text
			}
		case "documentId":
			if id, ok := v.(string); ok {
				chunk.DocumentID = id
			}
		case "headerPath":
			if path, ok := v.(string); ok && path != "" {
				chunk.Path = strings.Split(path, " > ")
			}
			chunk.Attributes[k] = v
		default:
			chunk.Attributes[k] = v
		}
	}
	return chunk
}

func isStatus(err error, code int) bool {
	var clientErr *fault.WeaviateClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == code
}
