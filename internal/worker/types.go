package worker

import (
	"context"

	"knowra/apps/indexer/features/document"
	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
)

type Indexer interface {
	Index(ctx context.Context, doc indexer.Document) (added, deleted []string, err error)
	Delete(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type) error
	UpdateMetadata(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type, attrs map[string]interface{}) error
}

type Catalog interface {
	Begin(ctx context.Context, doc *document.Document)
	Complete(ctx context.Context, documentID string, added, deleted int)
	Fail(ctx context.Context, documentID string, cause error)
	Deleted(ctx context.Context, documentID string)
}
