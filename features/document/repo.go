package document

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Upsert(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (document_id, tenant, namespace, knowledge_type, title, owner, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id) DO UPDATE SET
			tenant = EXCLUDED.tenant,
			namespace = EXCLUDED.namespace,
			knowledge_type = EXCLUDED.knowledge_type,
			title = EXCLUDED.title,
			owner = EXCLUDED.owner,
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		doc.DocumentID, doc.Tenant, doc.Namespace, doc.KnowledgeType,
		doc.Title, doc.Owner, doc.Source, doc.Status).Scan(&doc.ID)
}

func (r *PostgresRepo) Get(ctx context.Context, documentID string) (*Document, error) {
	doc := &Document{}
	query := `SELECT id, document_id, tenant, namespace, knowledge_type, title, owner, source, status, COALESCE(last_error, ''), chunk_count
		FROM documents WHERE document_id = $1`
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID, &doc.DocumentID, &doc.Tenant, &doc.Namespace, &doc.KnowledgeType,
		&doc.Title, &doc.Owner, &doc.Source, &doc.Status, &doc.LastError, &doc.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PostgresRepo) List(ctx context.Context, tenant, namespace string) ([]Document, error) {
	query := `SELECT id, document_id, tenant, namespace, knowledge_type, title, owner, source, status, COALESCE(last_error, ''), chunk_count
		FROM documents WHERE tenant = $1 AND namespace = $2 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, tenant, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.Tenant, &d.Namespace, &d.KnowledgeType,
			&d.Title, &d.Owner, &d.Source, &d.Status, &d.LastError, &d.ChunkCount); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, documentID, status, lastError string) error {
	query := `UPDATE documents SET status = $1, last_error = $2, updated_at = NOW() WHERE document_id = $3`
	_, err := r.db.ExecContext(ctx, query, status, lastError, documentID)
	return err
}

func (r *PostgresRepo) AdjustChunkCount(ctx context.Context, documentID string, delta int) error {
	query := `UPDATE documents SET chunk_count = chunk_count + $1, updated_at = NOW() WHERE document_id = $2`
	_, err := r.db.ExecContext(ctx, query, delta, documentID)
	return err
}

func (r *PostgresRepo) ResetChunkCount(ctx context.Context, documentID string) error {
	query := `UPDATE documents SET chunk_count = 0, updated_at = NOW() WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}
