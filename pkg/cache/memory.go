package cache

import (
	"context"
	"sync"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/models"
	"golang.org/x/exp/maps"
)

type memoryEntry struct {
	session   models.UploadSession
	expiresAt time.Time
}

// memoryCache is a process local session store. The mutex only protects
// the map, it does not serialize uploads.
type memoryCache struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryCache() *memoryCache {
	return &memoryCache{
		sessions: map[string]memoryEntry{},
		now:      time.Now,
	}
}

func (c *memoryCache) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}

func copySession(s models.UploadSession) *models.UploadSession {
	if s.Metadata != nil {
		s.Metadata = maps.Clone(s.Metadata)
	}
	return &s
}

func (c *memoryCache) GetUploadSession(ctx context.Context, id string) (*models.UploadSession, error) {
	c.mu.RLock()
	entry, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok || c.expired(entry) {
		return nil, NotFound
	}
	return copySession(entry.session), nil
}

func (c *memoryCache) SetUploadSession(ctx context.Context, session *models.UploadSession, ttl time.Duration) error {
	entry := memoryEntry{session: *copySession(*session)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.sessions[session.ID] = entry
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) DeleteUploadSession(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
	return nil
}

// ListUploadSessions returns live sessions and drops the expired ones
func (c *memoryCache) ListUploadSessions(ctx context.Context) ([]models.UploadSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessions := make([]models.UploadSession, 0, len(c.sessions))
	for id, entry := range c.sessions {
		if c.expired(entry) {
			delete(c.sessions, id)
			continue
		}
		sessions = append(sessions, *copySession(entry.session))
	}
	return sessions, nil
}
