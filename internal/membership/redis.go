// Package membership keeps the per-document record of indexed chunk ids in
// Redis, one set-valued key per document id.
package membership

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"knowra/apps/indexer/internal/indexer"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client. The caller owns the
// client lifecycle; Close releases it.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", indexer.ErrStoreUnavailable, err)
	}
	return nil
}

// Diff reads the current set in one SMEMBERS call, which is atomic relative
// to concurrent writers, and returns candidates-current and
// current-candidates.
func (s *RedisStore) Diff(ctx context.Context, documentID string, candidateIDs []string) (toAdd, toDelete []string, err error) {
	current, err := s.client.SMembers(ctx, documentID).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read membership for %s: %v", indexer.ErrStoreUnavailable, documentID, err)
	}

	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	return toAdd, toDelete, nil
}

// Commit applies the additions and removals in one MULTI/EXEC. Empty
// operand lists are no-ops.
func (s *RedisStore) Commit(ctx context.Context, documentID string, toAdd, toDelete []string) error {
	if len(toAdd) == 0 && len(toDelete) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	if len(toAdd) > 0 {
		pipe.SAdd(ctx, documentID, toStrings(toAdd)...)
	}
	if len(toDelete) > 0 {
		pipe.SRem(ctx, documentID, toStrings(toDelete)...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: commit membership for %s: %v", indexer.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, documentID string) error {
	if err := s.client.Del(ctx, documentID).Err(); err != nil {
		return fmt.Errorf("%w: clear membership for %s: %v", indexer.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

func (s *RedisStore) ReadAll(ctx context.Context, documentID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, documentID).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read membership for %s: %v", indexer.ErrStoreUnavailable, documentID, err)
	}
	return ids, nil
}

func toStrings(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
