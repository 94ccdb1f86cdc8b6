// Package cache keeps resumable upload sessions in redis, or in process
// memory when redis is not configured.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/rs/zerolog/log"
)

var NotFound = errors.New("not found in cache")

type Cache interface {
	GetUploadSession(ctx context.Context, id string) (*models.UploadSession, error)
	SetUploadSession(ctx context.Context, session *models.UploadSession, ttl time.Duration) error
	DeleteUploadSession(ctx context.Context, id string) error
	ListUploadSessions(ctx context.Context) ([]models.UploadSession, error)
}

func Initialize() Cache {
	if config.Get().Clients.Redis.Host != "" {
		return NewRedisCache()
	} else {
		log.Logger.Warn().Msg("Redis not configured, upload sessions will not survive a restart")
		return NewMemoryCache()
	}
}
