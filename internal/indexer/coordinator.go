package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/splitter"
)

const defaultApplyConcurrency = 8

// Coordinator orchestrates split, diff, apply and commit for one document at
// a time per document id. Re-running the same call after any failure
// converges: membership is only advanced for mutations that actually landed.
type Coordinator struct {
	membership  MembershipStore
	index       IndexStore
	splitter    *splitter.Splitter
	concurrency int

	locks sync.Map // document id -> *sync.Mutex
}

type CoordinatorOption func(*Coordinator)

// WithApplyConcurrency bounds the number of parallel index store mutations
// within one Index call.
func WithApplyConcurrency(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewCoordinator(membership MembershipStore, index IndexStore, split *splitter.Splitter, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		membership:  membership,
		index:       index,
		splitter:    split,
		concurrency: defaultApplyConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lockDocument serializes operations per document id. Different documents
// proceed fully in parallel.
func (c *Coordinator) lockDocument(id string) func() {
	v, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Index brings the index and membership record for doc up to date and
// returns the chunk ids it added and deleted. Unchanged content is a no-op.
// Empty content deletes every chunk of the document.
func (c *Coordinator) Index(ctx context.Context, doc Document) (added, deleted []string, err error) {
	col, err := knowledge.NewCollection(doc.Type, doc.Tenant, doc.Namespace)
	if err != nil {
		return nil, nil, err
	}

	unlock := c.lockDocument(doc.ID)
	defer unlock()

	candidateIDs, candidates := c.chunks(doc)

	toAdd, toDelete, err := c.membership.Diff(ctx, doc.ID, candidateIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("diff membership: %w", err)
	}
	if len(toAdd) == 0 && len(toDelete) == 0 {
		slog.DebugContext(ctx, "document unchanged", "document_id", doc.ID)
		return nil, nil, nil
	}

	appliedAdds, appliedDels, failed := c.apply(ctx, col, candidates, toAdd, toDelete)

	if err := c.membership.Commit(ctx, doc.ID, appliedAdds, appliedDels); err != nil {
		// Index mutations landed but membership did not advance; a retry
		// re-derives the same diff and the mutations are idempotent.
		return appliedAdds, appliedDels, fmt.Errorf("commit membership: %w", err)
	}

	if len(failed) > 0 {
		slog.WarnContext(ctx, "index partially applied",
			"document_id", doc.ID, "applied", len(appliedAdds)+len(appliedDels), "failed", len(failed))
		return appliedAdds, appliedDels, &PartialError{
			Applied: append(append([]string{}, appliedAdds...), appliedDels...),
			Failed:  failed,
		}
	}

	slog.InfoContext(ctx, "document indexed",
		"document_id", doc.ID, "collection", col.Name(), "added", len(toAdd), "deleted", len(toDelete))
	return toAdd, toDelete, nil
}

// chunks splits the document and derives candidate ids, deduplicating in
// order so repeated identical fragments collapse to one chunk.
func (c *Coordinator) chunks(doc Document) ([]string, map[string]Chunk) {
	var fragments []splitter.Fragment
	if doc.Type == knowledge.Tool && doc.Tool != nil {
		fragments = c.splitter.SplitTool(*doc.Tool)
	} else {
		fragments = c.splitter.Split(doc.Title, doc.Content)
	}

	ids := make([]string, 0, len(fragments))
	chunks := make(map[string]Chunk, len(fragments))
	for _, f := range fragments {
		id := splitter.ChunkID(doc.ID, f)
		if _, seen := chunks[id]; seen {
			continue
		}
		ids = append(ids, id)
		chunks[id] = c.buildChunk(doc, id, f)
	}
	return ids, chunks
}

func (c *Coordinator) buildChunk(doc Document, id string, f splitter.Fragment) Chunk {
	attrs := map[string]interface{}{
		"tenant":     doc.Tenant,
		"namespace":  doc.Namespace,
		"title":      doc.Title,
		"owner":      doc.Owner,
		"source":     doc.Source,
		"headerPath": strings.Join(f.Path, " > "),
	}
	for k, v := range doc.Attributes {
		attrs[k] = v
	}
	for k, v := range f.Attrs {
		attrs[k] = v
	}
	return Chunk{
		ID:         id,
		DocumentID: doc.ID,
		Text:       f.Text,
		Path:       f.Path,
		Attributes: attrs,
	}
}

// apply runs the upserts and deletes with bounded concurrency. The add and
// delete id sets are disjoint by construction, so ordering between them does
// not matter. Every mutation is attempted even if a sibling fails; the
// caller commits exactly the applied subset.
func (c *Coordinator) apply(ctx context.Context, col knowledge.Collection, chunks map[string]Chunk, toAdd, toDelete []string) (appliedAdds, appliedDels []string, failed map[string]error) {
	var mu sync.Mutex
	failed = make(map[string]error)

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, id := range toAdd {
		id := id
		chunk := chunks[id]
		g.Go(func() error {
			err := c.index.Upsert(ctx, col, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[id] = err
			} else {
				appliedAdds = append(appliedAdds, id)
			}
			return nil
		})
	}
	for _, id := range toDelete {
		id := id
		g.Go(func() error {
			err := c.index.Delete(ctx, col, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[id] = err
			} else {
				appliedDels = append(appliedDels, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		failed = nil
	}
	return appliedAdds, appliedDels, failed
}

// Delete removes every chunk of the document from the index and drops the
// membership record. Deleting a document with no membership record is a
// no-op success.
func (c *Coordinator) Delete(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type) error {
	col, err := knowledge.NewCollection(t, tenant, namespace)
	if err != nil {
		return err
	}

	unlock := c.lockDocument(documentID)
	defer unlock()

	ids, err := c.membership.ReadAll(ctx, documentID)
	if err != nil {
		return fmt.Errorf("read membership: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	_, appliedDels, failed := c.apply(ctx, col, nil, nil, ids)

	if err := c.membership.Commit(ctx, documentID, nil, appliedDels); err != nil {
		return fmt.Errorf("commit membership: %w", err)
	}
	if len(failed) > 0 {
		return &PartialError{Applied: appliedDels, Failed: failed}
	}

	if err := c.membership.Clear(ctx, documentID); err != nil {
		return fmt.Errorf("clear membership: %w", err)
	}
	slog.InfoContext(ctx, "document deleted", "document_id", documentID, "collection", col.Name(), "chunks", len(ids))
	return nil
}

// UpdateMetadata patches attributes on every chunk of the document without
// re-splitting. Chunk identity, text and vectors are untouched. A document
// with no membership record is a no-op success.
func (c *Coordinator) UpdateMetadata(ctx context.Context, documentID, tenant, namespace string, t knowledge.Type, attrs map[string]interface{}) error {
	col, err := knowledge.NewCollection(t, tenant, namespace)
	if err != nil {
		return err
	}
	if len(attrs) == 0 {
		return nil
	}

	unlock := c.lockDocument(documentID)
	defer unlock()

	ids, err := c.membership.ReadAll(ctx, documentID)
	if err != nil {
		return fmt.Errorf("read membership: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := c.index.PatchAttributes(ctx, col, ids, attrs); err != nil {
		return fmt.Errorf("patch attributes: %w", err)
	}
	slog.InfoContext(ctx, "document metadata updated", "document_id", documentID, "chunks", len(ids))
	return nil
}

// Membership exposes the raw membership snapshot for verification and
// reconciliation tooling.
func (c *Coordinator) Membership(ctx context.Context, documentID string) ([]string, error) {
	return c.membership.ReadAll(ctx, documentID)
}
