package document

import (
	"context"
)

// Status lifecycle of a catalog record.
const (
	StatusIndexing = "indexing"
	StatusIndexed  = "indexed"
	StatusFailed   = "failed"
	StatusDeleted  = "deleted"
)

// Document is the catalog record for one logical document. The content
// itself is never stored here; the record tracks ownership, partition and
// indexing state.
type Document struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Tenant        string `json:"tenant"`
	Namespace     string `json:"namespace"`
	KnowledgeType string `json:"knowledge_type"`
	Title         string `json:"title"`
	Owner         string `json:"owner"`
	Source        string `json:"source"`
	Status        string `json:"status"`
	LastError     string `json:"last_error,omitempty"`
	ChunkCount    int    `json:"chunk_count"`
}

type Repository interface {
	Upsert(ctx context.Context, doc *Document) error
	Get(ctx context.Context, documentID string) (*Document, error)
	List(ctx context.Context, tenant, namespace string) ([]Document, error)
	UpdateStatus(ctx context.Context, documentID, status, lastError string) error
	AdjustChunkCount(ctx context.Context, documentID string, delta int) error
	ResetChunkCount(ctx context.Context, documentID string) error
}
