package server

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// IdempotencyStore claims webhook event ids in redis to detect concurrent
// deliveries of the same event before the first one writes its ledger
// record. The ledger itself answers redeliveries once a record exists.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdempotencyStore creates an IdempotencyStore.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl, logger: logger}
}

// Claim marks an event id as in-flight. It returns false when the event was
// already claimed. Redis errors degrade to "claimed" so processing proceeds.
func (s *IdempotencyStore) Claim(ctx context.Context, eventID string) bool {
	if s.client == nil || eventID == "" {
		return true
	}

	ok, err := s.client.SetNX(ctx, "webhook:event:"+eventID, 1, s.ttl).Result()
	if err != nil {
		s.logger.Warn("idempotency claim failed, proceeding anyway", zap.Error(err))
		return true
	}
	return ok
}
