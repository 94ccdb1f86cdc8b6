package custom

import (
	"context"
	"errors"
	"testing"

	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSessions struct {
	sessions []models.UploadSession
	err      error
}

func (f fakeSessions) ListUploadSessions(ctx context.Context) ([]models.UploadSession, error) {
	return f.sessions, f.err
}

type fakeUploads []string

func (f fakeUploads) ListIdentifiers() ([]string, error) {
	return f, nil
}

func TestNewCollector(t *testing.T) {
	var c *Collector
	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())

	c = NewCollector(context.Background(), metrics, fakeSessions{}, fakeUploads{})
	assert.NotNil(t, c)

	// Forcing nil Context
	//nolint:staticcheck
	c = NewCollector(nil, metrics, fakeSessions{}, fakeUploads{})
	assert.Nil(t, c)

	c = NewCollector(context.Background(), nil, fakeSessions{}, fakeUploads{})
	assert.Nil(t, c)

	c = NewCollector(context.Background(), metrics, nil, fakeUploads{})
	assert.Nil(t, c)
}

func TestIterate(t *testing.T) {
	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())
	sessions := fakeSessions{sessions: []models.UploadSession{{ID: "a"}, {ID: "b"}}}
	c := NewCollector(context.Background(), metrics, sessions, fakeUploads{"x", "y", "z"})
	require.NotNil(t, c)

	c.iterate()
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveUploadSessions))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ActiveChunkUploads))

	c.sessions = fakeSessions{err: errors.New("redis down")}
	assert.NotPanics(t, c.iterate)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveUploadSessions))
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(ctx, instrumentation.NewMetrics(prometheus.NewRegistry()), fakeSessions{}, fakeUploads{})

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	cancel()
	<-done
}
