package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
)

const sessionRecordKey = "pb.auth.session"

// RedisSessionRepository keeps the session record in redis for deployments
// where the gateway runs more than one replica.
type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func (r *RedisSessionRepository) Load(ctx context.Context) (*model.Session, error) {
	raw, err := r.client.Get(ctx, sessionRecordKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		logger.GetLogger().WithField("error", err).Warn("corrupted session record removed")
		_ = r.client.Del(ctx, sessionRecordKey).Err()
		return nil, nil
	}
	if session.Tokens.AccessToken == "" {
		_ = r.client.Del(ctx, sessionRecordKey).Err()
		return nil, nil
	}
	return &session, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionRecordKey, raw, 0).Err()
}

func (r *RedisSessionRepository) Delete(ctx context.Context) error {
	return r.client.Del(ctx, sessionRecordKey).Err()
}
