package custom

import (
	"context"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/rs/zerolog/log"
)

const tickerDelay = 30 // in seconds // could be good to match this with the scrapper frequency

type SessionLister interface {
	ListUploadSessions(ctx context.Context) ([]models.UploadSession, error)
}

type UploadLister interface {
	ListIdentifiers() ([]string, error)
}

// Collector refreshes the gauges of in-flight uploads
type Collector struct {
	context  context.Context
	metrics  *instrumentation.Metrics
	sessions SessionLister
	chunks   UploadLister
}

func NewCollector(context context.Context, metrics *instrumentation.Metrics, sessions SessionLister, chunks UploadLister) *Collector {
	if context == nil {
		return nil
	}
	if metrics == nil {
		return nil
	}
	if sessions == nil || chunks == nil {
		return nil
	}
	return &Collector{
		context:  context,
		metrics:  metrics,
		sessions: sessions,
		chunks:   chunks,
	}
}

func (c *Collector) iterate() {
	ctx := c.context
	sessions, err := c.sessions.ListUploadSessions(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("could not count upload sessions")
	} else {
		c.metrics.ActiveUploadSessions.Set(float64(len(sessions)))
	}

	ids, err := c.chunks.ListIdentifiers()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("could not count chunk uploads")
	} else {
		c.metrics.ActiveChunkUploads.Set(float64(len(ids)))
	}
}

func (c *Collector) Run() {
	log.Info().Msg("Starting metrics collector go routine")
	c.iterate()
	ticker := time.NewTicker(tickerDelay * time.Second)
	for {
		select {
		case <-ticker.C:
			c.iterate()
		case <-c.context.Done():
			log.Info().Msgf("Stopping metrics collector go routine")
			ticker.Stop()
			return
		}
	}
}
