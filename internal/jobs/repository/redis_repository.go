package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const statusKeyPrefix = "job:status:"

// setStatusScript only overwrites the cached view when the incoming one is not older, so a slow
// writer can never make polling clients see progress go backward.
var setStatusScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'body', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type redisRepo struct {
	redisClient *redis.Client
}

func NewRedisRepo(redisClient *redis.Client) jobs.RedisRepository {
	return &redisRepo{
		redisClient: redisClient,
	}
}

func statusKey(externalID uuid.UUID) string {
	return statusKeyPrefix + externalID.String()
}

func (r *redisRepo) SetStatus(ctx context.Context, view *models.StatusView, ttl time.Duration) error {
	body, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err = setStatusScript.Run(
		ctx,
		r.redisClient,
		[]string{statusKey(view.JobID)},
		view.UpdatedAt.UnixMicro(),
		body,
		ttl.Milliseconds(),
	).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to cache status: %w", err)
	}
	return nil
}

func (r *redisRepo) GetStatus(ctx context.Context, externalID uuid.UUID) (*models.StatusView, error) {
	body, err := r.redisClient.HGet(ctx, statusKey(externalID), "body").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached status: %w", err)
	}
	view := &models.StatusView{}
	if err = json.Unmarshal(body, view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached status: %w", err)
	}
	return view, nil
}

func (r *redisRepo) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.redisClient.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}
