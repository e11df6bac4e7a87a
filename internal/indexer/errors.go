package indexer

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrStoreUnavailable marks a membership or index backend that could
	// not be reached. Retryable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrEmbeddingFailed marks an embedding collaborator failure during
	// upsert. Retryable.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrNotFound marks a chunk lookup miss.
	ErrNotFound = errors.New("not found")
)

// PartialError reports a batch apply that only partially succeeded.
// Membership was committed for the applied ids only, so retrying the
// identical call re-derives the remaining work and converges.
type PartialError struct {
	Applied []string
	Failed  map[string]error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partially applied: %d applied, %d failed (%v)",
		len(e.Applied), len(e.Failed), e.failedIDs())
}

func (e *PartialError) Unwrap() error {
	// Surface one underlying cause so errors.Is(err, ErrStoreUnavailable)
	// and friends keep working through the partial wrapper.
	for _, err := range e.Failed {
		return err
	}
	return nil
}

func (e *PartialError) failedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
