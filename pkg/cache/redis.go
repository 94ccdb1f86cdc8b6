package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const uploadSessionPrefix = "upload-session:"

type redisCache struct {
	client *redis.Client
}

func NewRedisCache() *redisCache {
	c := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisUrl(),
		Username: c.Clients.Redis.Username,
		Password: c.Clients.Redis.Password,
		DB:       c.Clients.Redis.DB,
	})
	return &redisCache{
		client: client,
	}
}

// uploadSessionKey constructs the cache key of an upload session
func uploadSessionKey(id string) string {
	return uploadSessionPrefix + id
}

func sessionIDFromKey(key string) string {
	return strings.TrimPrefix(key, uploadSessionPrefix)
}

func (c *redisCache) GetUploadSession(ctx context.Context, id string) (*models.UploadSession, error) {
	buf, err := c.get(ctx, uploadSessionKey(id))
	if err != nil {
		return nil, err
	}

	session := models.UploadSession{}
	err = json.Unmarshal(buf, &session)
	if err != nil {
		return nil, fmt.Errorf("redis unmarshal error: %w", err)
	}
	return &session, nil
}

func (c *redisCache) SetUploadSession(ctx context.Context, session *models.UploadSession, ttl time.Duration) error {
	buf, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("unable to marshal for Redis cache: %w", err)
	}

	if err = c.client.Set(ctx, uploadSessionKey(session.ID), string(buf), ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (c *redisCache) DeleteUploadSession(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, uploadSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// ListUploadSessions scans the session keyspace. Keys expiring during the
// scan are skipped.
func (c *redisCache) ListUploadSessions(ctx context.Context) ([]models.UploadSession, error) {
	logger := zerolog.Ctx(ctx)
	sessions := []models.UploadSession{}
	iter := c.client.Scan(ctx, 0, uploadSessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		session, err := c.GetUploadSession(ctx, sessionIDFromKey(iter.Val()))
		if errors.Is(err, NotFound) {
			continue
		} else if err != nil {
			logger.Warn().Err(err).Str("key", iter.Val()).Msg("Skipping unreadable upload session")
			continue
		}
		sessions = append(sessions, *session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan error: %w", err)
	}
	return sessions, nil
}

func (c *redisCache) get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Get(ctx, key)
	if errors.Is(cmd.Err(), redis.Nil) {
		return nil, NotFound
	} else if cmd.Err() != nil {
		return nil, fmt.Errorf("redis error: %w", cmd.Err())
	}

	buf, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis bytes conversion error: %w", err)
	}
	return buf, err
}
