// Package indexer implements incremental, deduplicating document indexing:
// documents are split into content-addressed chunks, diffed against the
// membership record of what is already indexed, and only the delta is
// applied to the vector index.
package indexer

import (
	"context"

	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/splitter"
)

// Document is the logical unit submitted by a caller. It is never stored
// verbatim; only its derived chunks persist. ID is caller-assigned and
// stable across edits.
type Document struct {
	ID        string
	Tenant    string
	Namespace string
	Type      knowledge.Type

	Title   string
	Owner   string
	Source  string
	Content string

	// Attributes are copied onto every chunk of the document.
	Attributes map[string]interface{}

	// Tool must be set when Type is knowledge.Tool; Content is ignored then.
	Tool *splitter.ToolDoc
}

// Chunk is one content-addressed unit derived from a Document.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Path       []string
	Attributes map[string]interface{}
}

// MembershipStore tracks which chunk ids currently belong to each document.
// Diff must be a single logically-atomic read relative to concurrent writers
// for the same document id.
type MembershipStore interface {
	Diff(ctx context.Context, documentID string, candidateIDs []string) (toAdd, toDelete []string, err error)
	Commit(ctx context.Context, documentID string, toAdd, toDelete []string) error
	Clear(ctx context.Context, documentID string) error
	ReadAll(ctx context.Context, documentID string) ([]string, error)
}

// IndexStore is the searchable backing store, keyed by chunk id and scoped
// to a collection.
type IndexStore interface {
	Upsert(ctx context.Context, col knowledge.Collection, chunk Chunk) error
	Delete(ctx context.Context, col knowledge.Collection, chunkID string) error
	DeleteByDocument(ctx context.Context, col knowledge.Collection, documentID string) error
	Get(ctx context.Context, col knowledge.Collection, chunkID string) (*Chunk, error)
	PatchAttributes(ctx context.Context, col knowledge.Collection, chunkIDs []string, attrs map[string]interface{}) error
}
