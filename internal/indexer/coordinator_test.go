package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
	"knowra/apps/indexer/internal/splitter"
)

func newTestCoordinator() (*indexer.Coordinator, *fakeMembership, *fakeIndex) {
	members := newFakeMembership()
	index := newFakeIndex()
	coord := indexer.NewCoordinator(members, index, splitter.New(), indexer.WithApplyConcurrency(4))
	return coord, members, index
}

func testDoc(content string) indexer.Document {
	return indexer.Document{
		ID:        "doc-1",
		Tenant:    "tenant1",
		Namespace: "namespace1",
		Title:     "Meeting rooms",
		Owner:     "owner1",
		Source:    "https://example.com/rooms.pdf",
		Content:   content,
	}
}

func membershipSet(t *testing.T, members *fakeMembership, documentID string) map[string]struct{} {
	t.Helper()
	ids, err := members.ReadAll(context.Background(), documentID)
	require.NoError(t, err)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestCoordinator_Index_Idempotent(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()
	doc := testDoc("# Rooms\n## Faraday\nThe code is 123456789.")

	added, deleted, err := coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, added)
	assert.Empty(t, deleted)

	// Unchanged re-index is a no-op
	added, deleted, err = coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, deleted)

	// Membership matches the index store exactly
	assert.Equal(t, index.idsForDocument(doc.ID), membershipSet(t, members, doc.ID))
}

func TestCoordinator_Index_SingleSectionEdit(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	_, _, err := coord.Index(ctx, testDoc("# Rooms\n## Faraday\ncode 111\n## Tesla\ncode 222"))
	require.NoError(t, err)

	// Edit text inside exactly one leaf section
	added, deleted, err := coord.Index(ctx, testDoc("# Rooms\n## Faraday\ncode 999\n## Tesla\ncode 222"))
	require.NoError(t, err)
	assert.Len(t, added, 1)
	assert.Len(t, deleted, 1)
	assert.NotEqual(t, added[0], deleted[0])

	assert.Equal(t, index.idsForDocument("doc-1"), membershipSet(t, members, "doc-1"))
}

func TestCoordinator_Index_ConcreteScenario(t *testing.T) {
	coord, members, _ := newTestCoordinator()
	ctx := context.Background()

	doc := indexer.Document{
		ID:        "123456789",
		Tenant:    "tenant1",
		Namespace: "namespace1",
		Title:     "Meeting room records",
		Content:   "# Room\n## What is the Faraday room code?\n\n123456789",
	}

	added, deleted, err := coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, added, 1)
	assert.Empty(t, deleted)
	assert.Equal(t, map[string]struct{}{added[0]: {}}, membershipSet(t, members, doc.ID))

	doc.Content = "# Room\n## What is the Faraday room code?\n\n154778789"
	added, deleted, err = coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, added, 1)
	assert.Len(t, deleted, 1)
	assert.Equal(t, map[string]struct{}{added[0]: {}}, membershipSet(t, members, doc.ID))
}

func TestCoordinator_Index_EmptyContentEqualsDelete(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	added, _, err := coord.Index(ctx, testDoc("# A\nbody"))
	require.NoError(t, err)
	require.Len(t, added, 1)

	added, deleted, err := coord.Index(ctx, testDoc(""))
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Len(t, deleted, 1)
	assert.Empty(t, membershipSet(t, members, "doc-1"))
	assert.Empty(t, index.idsForDocument("doc-1"))
}

func TestCoordinator_Index_PartialApply(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	doc := testDoc("# A\nalpha\n# B\nbeta\n# C\ngamma")

	// Find the ids the splitter derives so one upsert can be told to fail.
	s := splitter.New()
	frags := s.Split(doc.Title, doc.Content)
	require.Len(t, frags, 3)
	victim := splitter.ChunkID(doc.ID, frags[1])
	index.failUpsert[victim] = fmt.Errorf("%w: connection refused", indexer.ErrStoreUnavailable)

	added, _, err := coord.Index(ctx, doc)
	require.Error(t, err)

	var partial *indexer.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Len(t, partial.Applied, 2)
	assert.Contains(t, partial.Failed, victim)
	assert.True(t, errors.Is(err, indexer.ErrStoreUnavailable))
	assert.Len(t, added, 2)

	// Membership advanced only for the applied ids
	assert.Equal(t, index.idsForDocument(doc.ID), membershipSet(t, members, doc.ID))
	assert.NotContains(t, membershipSet(t, members, doc.ID), victim)

	// Retrying the identical call converges: only the failed id remains to add
	delete(index.failUpsert, victim)
	added, deleted, err := coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{victim}, added)
	assert.Empty(t, deleted)
	assert.Equal(t, index.idsForDocument(doc.ID), membershipSet(t, members, doc.ID))
}

func TestCoordinator_Index_CommitFailure(t *testing.T) {
	coord, members, _ := newTestCoordinator()
	ctx := context.Background()

	members.commitErr = fmt.Errorf("%w: redis down", indexer.ErrStoreUnavailable)
	_, _, err := coord.Index(ctx, testDoc("# A\nbody"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, indexer.ErrStoreUnavailable))

	// Membership never advanced; retry re-derives the full diff
	members.commitErr = nil
	added, deleted, err := coord.Index(ctx, testDoc("# A\nbody"))
	require.NoError(t, err)
	assert.Len(t, added, 1)
	assert.Empty(t, deleted)
}

func TestCoordinator_Index_InvalidCollection(t *testing.T) {
	coord, _, _ := newTestCoordinator()
	doc := testDoc("# A\nbody")
	doc.Tenant = ""
	_, _, err := coord.Index(context.Background(), doc)
	assert.True(t, errors.Is(err, knowledge.ErrInvalidType))
}

func TestCoordinator_Delete(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	_, _, err := coord.Index(ctx, testDoc("# A\nalpha\n# B\nbeta"))
	require.NoError(t, err)
	require.Len(t, index.idsForDocument("doc-1"), 2)

	require.NoError(t, coord.Delete(ctx, "doc-1", "tenant1", "namespace1", knowledge.General))
	assert.Empty(t, membershipSet(t, members, "doc-1"))
	assert.Empty(t, index.idsForDocument("doc-1"))
}

func TestCoordinator_Delete_UnknownDocumentIsNoop(t *testing.T) {
	coord, _, _ := newTestCoordinator()
	err := coord.Delete(context.Background(), "never-indexed", "tenant1", "namespace1", knowledge.General)
	assert.NoError(t, err)
}

func TestCoordinator_Delete_PartialKeepsMembership(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	_, _, err := coord.Index(ctx, testDoc("# A\nalpha\n# B\nbeta"))
	require.NoError(t, err)

	var victim string
	for id := range index.idsForDocument("doc-1") {
		victim = id
		break
	}
	index.failDelete[victim] = fmt.Errorf("%w: timeout", indexer.ErrStoreUnavailable)

	err = coord.Delete(ctx, "doc-1", "tenant1", "namespace1", knowledge.General)
	var partial *indexer.PartialError
	require.True(t, errors.As(err, &partial))

	// The undeleted chunk is still tracked, so a retry finds it
	assert.Equal(t, map[string]struct{}{victim: {}}, membershipSet(t, members, "doc-1"))

	delete(index.failDelete, victim)
	require.NoError(t, coord.Delete(ctx, "doc-1", "tenant1", "namespace1", knowledge.General))
	assert.Empty(t, membershipSet(t, members, "doc-1"))
	assert.Empty(t, index.idsForDocument("doc-1"))
}

func TestCoordinator_UpdateMetadata(t *testing.T) {
	coord, _, index := newTestCoordinator()
	ctx := context.Background()

	_, _, err := coord.Index(ctx, testDoc("# A\nalpha\n# B\nbeta"))
	require.NoError(t, err)
	before := index.idsForDocument("doc-1")

	err = coord.UpdateMetadata(ctx, "doc-1", "tenant1", "namespace1", knowledge.General, map[string]interface{}{"owner": "owner2"})
	require.NoError(t, err)

	// Same ids, same text, new owner on every chunk
	assert.Equal(t, before, index.idsForDocument("doc-1"))
	for id := range before {
		chunk, err := index.Get(ctx, knowledge.Collection{}, id)
		require.NoError(t, err)
		assert.Equal(t, "owner2", chunk.Attributes["owner"])
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestCoordinator_UpdateMetadata_UnknownDocumentIsNoop(t *testing.T) {
	coord, _, _ := newTestCoordinator()
	err := coord.UpdateMetadata(context.Background(), "nope", "tenant1", "namespace1", knowledge.General,
		map[string]interface{}{"owner": "x"})
	assert.NoError(t, err)
}

func TestCoordinator_Index_ToolKnowledge(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	doc := indexer.Document{
		ID:        "tool-doc-1",
		Tenant:    "tenant1",
		Namespace: "namespace1",
		Type:      knowledge.Tool,
		Tool: &splitter.ToolDoc{
			Name:        "set_volume",
			Description: "Adjust the speaker volume",
			InputSchema: `{"volume":"int"}`,
			Examples:    []string{"a", "b", "c", "d"},
		},
	}

	added, deleted, err := coord.Index(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, added, 2) // 4 examples in groups of 3
	assert.Empty(t, deleted)
	assert.Equal(t, index.idsForDocument(doc.ID), membershipSet(t, members, doc.ID))

	for id := range index.idsForDocument(doc.ID) {
		chunk, err := index.Get(ctx, knowledge.Collection{}, id)
		require.NoError(t, err)
		assert.Equal(t, "set_volume", chunk.Attributes["toolName"])
		assert.NotEmpty(t, chunk.Attributes["selectedExamples"])
	}
}

func TestCoordinator_Index_DifferentDocumentsDistinctIDs(t *testing.T) {
	coord, _, _ := newTestCoordinator()
	ctx := context.Background()

	a := testDoc("# A\nsame text")
	b := testDoc("# A\nsame text")
	b.ID = "doc-2"

	addedA, _, err := coord.Index(ctx, a)
	require.NoError(t, err)
	addedB, _, err := coord.Index(ctx, b)
	require.NoError(t, err)
	require.Len(t, addedA, 1)
	require.Len(t, addedB, 1)
	assert.NotEqual(t, addedA[0], addedB[0])
}

func TestCoordinator_Index_ParallelDocuments(t *testing.T) {
	coord, members, index := newTestCoordinator()
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		i := i
		go func() {
			doc := testDoc(fmt.Sprintf("# Doc %d\ncontent %d", i, i))
			doc.ID = fmt.Sprintf("doc-%d", i)
			_, _, err := coord.Index(ctx, doc)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("doc-%d", i)
		assert.Equal(t, index.idsForDocument(id), membershipSet(t, members, id))
		assert.Len(t, index.idsForDocument(id), 1)
	}
}

func TestCoordinator_Index_ChunkAttributes(t *testing.T) {
	coord, _, index := newTestCoordinator()
	ctx := context.Background()

	doc := testDoc("# Rooms\n## Faraday\ncode 123")
	doc.Attributes = map[string]interface{}{"department": "facilities"}
	added, _, err := coord.Index(ctx, doc)
	require.NoError(t, err)
	require.Len(t, added, 1)

	chunk, err := index.Get(ctx, knowledge.Collection{}, added[0])
	require.NoError(t, err)
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, "tenant1", chunk.Attributes["tenant"])
	assert.Equal(t, "owner1", chunk.Attributes["owner"])
	assert.Equal(t, "facilities", chunk.Attributes["department"])
	assert.Equal(t, "Meeting rooms > Rooms > Faraday", chunk.Attributes["headerPath"])
	assert.Contains(t, chunk.Text, "Section: Meeting rooms > Rooms > Faraday")
}
