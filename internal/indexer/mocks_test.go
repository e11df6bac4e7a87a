package indexer_test

import (
	"context"
	"fmt"
	"sync"

	"knowra/apps/indexer/internal/indexer"
	"knowra/apps/indexer/internal/knowledge"
)

// Stateful in-memory fakes. The coordinator's correctness properties are
// about the interplay of membership and index state, so the fakes model
// both stores rather than scripting call expectations.

type fakeMembership struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}

	diffErr   error
	commitErr error
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{sets: make(map[string]map[string]struct{})}
}

func (f *fakeMembership) Diff(_ context.Context, documentID string, candidateIDs []string) ([]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.diffErr != nil {
		return nil, nil, f.diffErr
	}
	current := f.sets[documentID]
	want := make(map[string]struct{}, len(candidateIDs))
	var toAdd, toDelete []string
	for _, id := range candidateIDs {
		want[id] = struct{}{}
		if _, ok := current[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range current {
		if _, ok := want[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	return toAdd, toDelete, nil
}

func (f *fakeMembership) Commit(_ context.Context, documentID string, toAdd, toDelete []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	if len(toAdd) == 0 && len(toDelete) == 0 {
		return nil
	}
	set := f.sets[documentID]
	if set == nil {
		set = make(map[string]struct{})
		f.sets[documentID] = set
	}
	for _, id := range toAdd {
		set[id] = struct{}{}
	}
	for _, id := range toDelete {
		delete(set, id)
	}
	if len(set) == 0 {
		delete(f.sets, documentID)
	}
	return nil
}

func (f *fakeMembership) Clear(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets, documentID)
	return nil
}

func (f *fakeMembership) ReadAll(_ context.Context, documentID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.sets[documentID] {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	objects map[string]indexer.Chunk // chunk id -> chunk

	failUpsert map[string]error // chunk id -> error to return
	failDelete map[string]error
	patchErr   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		objects:    make(map[string]indexer.Chunk),
		failUpsert: make(map[string]error),
		failDelete: make(map[string]error),
	}
}

func (f *fakeIndex) Upsert(_ context.Context, _ knowledge.Collection, chunk indexer.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpsert[chunk.ID]; err != nil {
		return err
	}
	f.objects[chunk.ID] = chunk
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _ knowledge.Collection, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[chunkID]; err != nil {
		return err
	}
	delete(f.objects, chunkID)
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, _ knowledge.Collection, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, chunk := range f.objects {
		if chunk.DocumentID == documentID {
			delete(f.objects, id)
		}
	}
	return nil
}

func (f *fakeIndex) Get(_ context.Context, _ knowledge.Collection, chunkID string) (*indexer.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chunk, ok := f.objects[chunkID]
	if !ok {
		return nil, fmt.Errorf("%w: chunk %s", indexer.ErrNotFound, chunkID)
	}
	return &chunk, nil
}

func (f *fakeIndex) PatchAttributes(_ context.Context, _ knowledge.Collection, chunkIDs []string, attrs map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	for _, id := range chunkIDs {
		chunk, ok := f.objects[id]
		if !ok {
			continue
		}
		for k, v := range attrs {
			chunk.Attributes[k] = v
		}
		f.objects[id] = chunk
	}
	return nil
}

func (f *fakeIndex) idsForDocument(documentID string) map[string]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]struct{})
	for id, chunk := range f.objects {
		if chunk.DocumentID == documentID {
			ids[id] = struct{}{}
		}
	}
	return ids
}
