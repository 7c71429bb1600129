package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStateStore keeps flow state in Redis so multiple orchestrator
// instances can share conversations. GETEX refreshes the TTL on every read,
// matching the sliding-window semantics of MemoryStateStore.
type RedisStateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStateStore creates a Redis-backed store with the given sliding TTL.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStateStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("legalaid.internal.conversation.state"),
	}
}

func stateKey(key string) string {
	return fmt.Sprintf("orchestrator:state:%s", key)
}

func (s *RedisStateStore) Get(ctx context.Context, key string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.state_get")
	defer span.End()

	data, err := s.redis.GetEx(ctx, stateKey(key), s.ttl).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	state.ExpiresAt = time.Now().Add(s.ttl)
	return &state, nil
}

func (s *RedisStateStore) Set(ctx context.Context, key string, state State) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.state_set")
	defer span.End()

	now := time.Now()
	state.UpdatedAt = now
	state.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(key), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to persist state: %w", err)
	}
	copied := state
	return &copied, nil
}

func (s *RedisStateStore) Clear(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.state_clear")
	defer span.End()

	if err := s.redis.Del(ctx, stateKey(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to clear state: %w", err)
	}
	return nil
}
