package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/middleware"
)

// AdminConsumer handles document deletes and metadata-only updates. Both
// operations are idempotent no-ops on unknown documents, so redelivery is
// always safe.
type AdminConsumer struct {
	indexer Indexer
	catalog Catalog
}

func NewAdminConsumer(i Indexer, c Catalog) *AdminConsumer {
	return &AdminConsumer{indexer: i, catalog: c}
}

func (h *AdminConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload AdminPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
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
		slog.ErrorContext(ctx, "poison pill: unknown knowledge type",
			"document_id", payload.DocumentID, "knowledge_type", payload.KnowledgeType)
		return nil
	}

	switch payload.Action {
	case ActionDelete:
		if err := h.indexer.Delete(ctx, payload.DocumentID, payload.Tenant, payload.Namespace, kt); err != nil {
			slog.ErrorContext(ctx, "delete failed", "error", err, "document_id", payload.DocumentID)
			return err // Retry
		}
		h.catalog.Deleted(ctx, payload.DocumentID)
		slog.InfoContext(ctx, "document delete processed", "document_id", payload.DocumentID)
		return nil

	case ActionUpdateMetadata:
		if err := h.indexer.UpdateMetadata(ctx, payload.DocumentID, payload.Tenant, payload.Namespace, kt, payload.Attributes); err != nil {
			slog.ErrorContext(ctx, "metadata update failed", "error", err, "document_id", payload.DocumentID)
			return err // Retry
		}
		slog.InfoContext(ctx, "metadata update processed", "document_id", payload.DocumentID)
		return nil

	default:
		slog.ErrorContext(ctx, "poison pill: unknown action", "action", payload.Action)
		return nil
	}
}
