package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"knowra/apps/indexer/features/document"
	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/middleware"
	"knowra/apps/indexer/internal/splitter"
)

// IndexConsumer drives the coordinator from index.request messages. NSQ
// redelivery provides the retry loop: the coordinator's idempotence makes
// re-processing the same message safe.
type IndexConsumer struct {
	indexer Indexer
	catalog Catalog
}

func NewIndexConsumer(i Indexer, c Catalog) *IndexConsumer {
	return &IndexConsumer{indexer: i, catalog: c}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IndexRequestPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	ctx = middleware.EnsureCorrelationID(ctx)

	kt, err := knowledge.ParseType(payload.KnowledgeType)
	if err != nil {
		// Fatal, not retryable: requeueing cannot fix the payload.
		slog.ErrorContext(ctx, "poison pill: unknown knowledge type",
			"document_id", payload.DocumentID, "knowledge_type", payload.KnowledgeType)
		h.catalog.Fail(ctx, payload.DocumentID, err)
		return nil
	}

	h.catalog.Begin(ctx, &document.Document{
		DocumentID:    payload.DocumentID,
		Tenant:        payload.Tenant,
		Namespace:     payload.Namespace,
		KnowledgeType: kt.String(),
		Title:         payload.Title,
		Owner:         payload.Owner,
		Source:        payload.Source,
	})

	doc := indexer.Document{
		ID:         payload.DocumentID,
		Tenant:     payload.Tenant,
		Namespace:  payload.Namespace,
		Type:       kt,
		Title:      payload.Title,
		Owner:      payload.Owner,
		Source:     payload.Source,
		Content:    payload.Content,
		Attributes: payload.Attributes,
	}
	if payload.Tool != nil {
		doc.Tool = &splitter.ToolDoc{
			Name:           payload.Tool.Name,
			Description:    payload.Tool.Description,
			InputSchema:    payload.Tool.InputSchema,
			Examples:       payload.Tool.Examples,
			RenderTemplate: payload.Tool.RenderTemplate,
		}
	}

	added, deleted, err := h.indexer.Index(ctx, doc)
	if err != nil {
		// The applied subset is already committed; record partial progress
		// before requeueing so the catalog count stays truthful.
		var partial *indexer.PartialError
		if errors.As(err, &partial) {
			h.catalog.Complete(ctx, payload.DocumentID, len(added), len(deleted))
		}
		h.catalog.Fail(ctx, payload.DocumentID, err)
		slog.ErrorContext(ctx, "indexing failed", "error", err, "document_id", payload.DocumentID)
		return err // Retry
	}

	h.catalog.Complete(ctx, payload.DocumentID, len(added), len(deleted))
	slog.InfoContext(ctx, "index request processed",
		"document_id", payload.DocumentID, "added", len(added), "deleted", len(deleted))
	return nil
}
