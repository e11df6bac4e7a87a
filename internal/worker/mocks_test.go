package worker

import (
	"context"

	"github.com/stretchr/testify/mock"

	"knowra/apps/indexer/features/document"
	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
)

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) Index(ctx context.Context, doc indexer.Document) ([]string, []string, error) {
	args := m.Called(ctx, doc)
	var added, deleted []string
	if v := args.Get(0); v != nil {
		added = v.([]string)
	}
	if v := args.Get(1); v != nil {
		deleted = v.([]string)
	}
	return added, deleted, args.Error(2)
}

func (m *mockIndexer) Delete(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type) error {
	args := m.Called(ctx, documentID, tenant, namespace, t)
	return args.Error(0)
}

func (m *mockIndexer) UpdateMetadata(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type, attrs map[string]interface{}) error {
	args := m.Called(ctx, documentID, tenant, namespace, t, attrs)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Begin(ctx context.Context, doc *document.Document) {
	m.Called(ctx, doc)
}

func (m *mockCatalog) Complete(ctx context.Context, documentID string, added, deleted int) {
	m.Called(ctx, documentID, added, deleted)
}

func (m *mockCatalog) Fail(ctx context.Context, documentID string, cause error) {
	m.Called(ctx, documentID, cause)
}

func (m *mockCatalog) Deleted(ctx context.Context, documentID string) {
	m.Called(ctx, documentID)
}
