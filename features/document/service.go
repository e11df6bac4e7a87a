package document

import (
	"context"
	"log/slog"
)

// Service tracks catalog state around indexing runs. Catalog writes are
// best-effort observability: a failure here never aborts an indexing
// operation, it is logged and the run continues.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Begin records that an indexing run started for the document.
func (s *Service) Begin(ctx context.Context, doc *Document) {
	doc.Status = StatusIndexing
	if err := s.repo.Upsert(ctx, doc); err != nil {
		slog.WarnContext(ctx, "catalog upsert failed", "document_id", doc.DocumentID, "error", err)
	}
}

// Complete records a successful run and moves the chunk count by the net
// add/delete delta.
func (s *Service) Complete(ctx context.Context, documentID string, added, deleted int) {
	if err := s.repo.AdjustChunkCount(ctx, documentID, added-deleted); err != nil {
		slog.WarnContext(ctx, "catalog chunk count update failed", "document_id", documentID, "error", err)
	}
	if err := s.repo.UpdateStatus(ctx, documentID, StatusIndexed, ""); err != nil {
		slog.WarnContext(ctx, "catalog status update failed", "document_id", documentID, "error", err)
	}
}

// Fail records a failed run with its cause.
func (s *Service) Fail(ctx context.Context, documentID string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := s.repo.UpdateStatus(ctx, documentID, StatusFailed, msg); err != nil {
		slog.WarnContext(ctx, "catalog status update failed", "document_id", documentID, "error", err)
	}
}

// Deleted records a completed document removal.
func (s *Service) Deleted(ctx context.Context, documentID string) {
	if err := s.repo.ResetChunkCount(ctx, documentID); err != nil {
		slog.WarnContext(ctx, "catalog chunk count reset failed", "document_id", documentID, "error", err)
	}
	if err := s.repo.UpdateStatus(ctx, documentID, StatusDeleted, ""); err != nil {
		slog.WarnContext(ctx, "catalog status update failed", "document_id", documentID, "error", err)
	}
}
