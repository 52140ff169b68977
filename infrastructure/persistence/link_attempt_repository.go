package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
)

func linkAttemptKey(provider string) string {
	return fmt.Sprintf("pb.oauth.selection:%s", provider)
}

// RedisLinkAttemptRepository stores at most one pending link attempt per
// provider. The TTL bounds how long the selection step stays resumable.
type RedisLinkAttemptRepository struct {
	client *redis.Client
}

func NewRedisLinkAttemptRepository(client *redis.Client) *RedisLinkAttemptRepository {
	return &RedisLinkAttemptRepository{client: client}
}

func (r *RedisLinkAttemptRepository) Get(ctx context.Context, provider string) (*model.LinkAttempt, error) {
	raw, err := r.client.Get(ctx, linkAttemptKey(provider)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var attempt model.LinkAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		logger.GetLogger().WithField("provider", provider).Warn("corrupted link attempt removed")
		_ = r.client.Del(ctx, linkAttemptKey(provider)).Err()
		return nil, nil
	}
	if attempt.State == "" {
		_ = r.client.Del(ctx, linkAttemptKey(provider)).Err()
		return nil, nil
	}
	return &attempt, nil
}

func (r *RedisLinkAttemptRepository) Save(ctx context.Context, attempt *model.LinkAttempt, ttl time.Duration) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, linkAttemptKey(attempt.Provider), raw, ttl).Err()
}

func (r *RedisLinkAttemptRepository) Delete(ctx context.Context, provider string) error {
	return r.client.Del(ctx, linkAttemptKey(provider)).Err()
}
