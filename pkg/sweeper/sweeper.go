// Package sweeper reclaims storage left by abandoned uploads: chunk
// directories, temporary files and resumable sessions.
package sweeper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// SessionPurger drops sessions not updated since before
type SessionPurger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

type Options struct {
	Fs                afero.Fs
	ChunkRoot         string
	TempRoot          string
	ChunkExpiration   time.Duration
	TempExpiration    time.Duration
	SessionExpiration time.Duration
	Interval          time.Duration
	Sessions          SessionPurger
	Metrics           *instrumentation.Metrics
}

// OptionsFromConfig fills the expirations and roots from the uploads settings
func OptionsFromConfig(cfg config.Uploads) Options {
	return Options{
		ChunkRoot:         cfg.ChunkRoot,
		TempRoot:          cfg.TempRoot,
		ChunkExpiration:   cfg.ChunkExpiration,
		TempExpiration:    cfg.TempExpiration,
		SessionExpiration: cfg.SessionExpiration,
		Interval:          cfg.SweepInterval,
	}
}

// Report counts what one pass removed
type Report struct {
	ChunkDirsDeleted int
	TempFilesDeleted int
	SessionsPurged   int
	Errors           int
}

type Sweeper struct {
	opts Options
	now  func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultSweepInterval
	}
	return &Sweeper{opts: opts, now: time.Now}
}

// RunOnce performs one pass. The three cleanups are independent, a failure
// in one is logged and counted without stopping the others.
func (s *Sweeper) RunOnce(ctx context.Context) Report {
	logger := zerolog.Ctx(ctx)
	now := s.now()
	report := Report{}

	deleted, failures := s.sweepChunkDirs(ctx, now.Add(-s.opts.ChunkExpiration))
	report.ChunkDirsDeleted = deleted
	report.Errors += failures
	s.opts.Metrics.RecordSweep(instrumentation.SweepKindChunkDirs, deleted, failures)

	deleted, failures = s.sweepTempFiles(ctx, now.Add(-s.opts.TempExpiration))
	report.TempFilesDeleted = deleted
	report.Errors += failures
	s.opts.Metrics.RecordSweep(instrumentation.SweepKindTempFiles, deleted, failures)

	if s.opts.Sessions != nil {
		failures = 0
		purged, err := s.opts.Sessions.Purge(ctx, now.Add(-s.opts.SessionExpiration))
		if err != nil {
			logger.Error().Err(err).Msg("could not purge expired upload sessions")
			failures = 1
		}
		report.SessionsPurged = purged
		report.Errors += failures
		s.opts.Metrics.RecordSweep(instrumentation.SweepKindSessions, purged, failures)
	}

	s.opts.Metrics.RecordSweepRun(now)
	logger.Info().
		Int("chunk_dirs", report.ChunkDirsDeleted).
		Int("temp_files", report.TempFilesDeleted).
		Int("sessions", report.SessionsPurged).
		Int("errors", report.Errors).
		Msg("sweep complete")
	return report
}

func (s *Sweeper) sweepChunkDirs(ctx context.Context, cutoff time.Time) (deleted int, failures int) {
	logger := zerolog.Ctx(ctx)
	entries, err := afero.ReadDir(s.opts.Fs, s.opts.ChunkRoot)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error().Err(err).Str("dir", s.opts.ChunkRoot).Msg("could not list chunk root")
			failures++
		}
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !entry.ModTime().Before(cutoff) {
			continue
		}
		dir := filepath.Join(s.opts.ChunkRoot, entry.Name())
		if err := s.opts.Fs.RemoveAll(dir); err != nil {
			logger.Warn().Err(err).Str("identifier", entry.Name()).Msg("could not remove expired chunks")
			failures++
			continue
		}
		logger.Debug().Str("identifier", entry.Name()).Time("modified", entry.ModTime()).Msg("removed expired chunks")
		deleted++
	}
	return
}

func (s *Sweeper) sweepTempFiles(ctx context.Context, cutoff time.Time) (deleted int, failures int) {
	logger := zerolog.Ctx(ctx)
	err := afero.Walk(s.opts.Fs, s.opts.TempRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == s.opts.TempRoot && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			logger.Warn().Err(err).Str("path", path).Msg("could not read temporary path")
			failures++
			return nil
		}
		if !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := s.opts.Fs.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("could not remove expired temporary file")
			failures++
			return nil
		}
		deleted++
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("dir", s.opts.TempRoot).Msg("could not walk temporary root")
		failures++
	}
	return
}

// Run sweeps immediately and then on every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.opts.Interval).Msg("Starting sweeper go routine")
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			log.Info().Msg("Stopping sweeper go routine")
			return
		}
	}
}

// Start runs the sweeper in its own goroutine until Stop is called or ctx is done
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop cancels a started sweeper and waits for the running pass to end
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
