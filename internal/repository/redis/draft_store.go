// Package redis stores session drafts in Redis with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/port"
)

// Verify interface compliance
var _ port.DraftStore = (*DraftStore)(nil)

const (
	draftPrefix = "rateintake:draft:"
	// draftIndex is a sorted set of session IDs scored by save time.
	draftIndex = "rateintake:drafts"

	defaultDraftTTL = 72 * time.Hour
)

// DraftStore implements port.DraftStore using Redis. Drafts expire after the
// configured TTL; every save refreshes it.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates a Redis client from config.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewDraftStore creates a Redis-backed DraftStore.
func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &DraftStore{client: client, ttl: ttl}
}

// Save stores a draft, replacing any previous one for the session.
func (s *DraftStore) Save(ctx context.Context, draft *port.Draft) error {
	if draft.SavedAt.IsZero() {
		draft.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, draftPrefix+draft.SessionID.String(), data, s.ttl)
	pipe.ZAdd(ctx, draftIndex, redis.Z{Score: float64(draft.SavedAt.Unix()), Member: draft.SessionID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Get loads the draft of a session.
func (s *DraftStore) Get(ctx context.Context, sessionID uuid.UUID) (*port.Draft, error) {
	data, err := s.client.Get(ctx, draftPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var draft port.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete removes a session's draft. Deleting a missing draft is not an error.
func (s *DraftStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, draftPrefix+sessionID.String())
	pipe.ZRem(ctx, draftIndex, sessionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// Recent lists up to limit session IDs with drafts, newest first. Entries
// whose draft has expired are pruned from the index on the way.
func (s *DraftStore) Recent(ctx context.Context, limit int64) ([]uuid.UUID, error) {
	members, err := s.client.ZRevRange(ctx, draftIndex, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		exists, err := s.client.Exists(ctx, draftPrefix+m).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check draft: %w", err)
		}
		if exists == 0 {
			_ = s.client.ZRem(ctx, draftIndex, m).Err()
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Ping checks the Redis connection.
func (s *DraftStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// NoopDraftStore is used when Redis is not configured: saves are dropped and
// no draft is ever found.
type NoopDraftStore struct{}

var _ port.DraftStore = NoopDraftStore{}

func (NoopDraftStore) Save(context.Context, *port.Draft) error { return nil }

func (NoopDraftStore) Get(context.Context, uuid.UUID) (*port.Draft, error) {
	return nil, domain.ErrNotFound
}

func (NoopDraftStore) Delete(context.Context, uuid.UUID) error { return nil }

func (NoopDraftStore) Recent(context.Context, int64) ([]uuid.UUID, error) { return nil, nil }
