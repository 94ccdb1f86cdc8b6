package commands

import (
	"context"
	"fmt"

	"github.com/content-services/content-uploads-backend/pkg/cache"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/sweeper"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func SweepUsage() string {
	return "Remove expired chunk directories, temporary files and upload sessions"
}

var SweepFlags = []cli.Flag{
	&cli.DurationFlag{Name: "chunk-expiration", Usage: "age after which chunk directories are removed"},
	&cli.DurationFlag{Name: "temp-expiration", Usage: "age after which temporary files are removed"},
	&cli.DurationFlag{Name: "session-expiration", Usage: "idle time after which upload sessions are purged"},
}

// Sweep runs a single sweep pass over the roots of cfg
func Sweep(ctx context.Context, cfg config.Uploads, opts uploads.EngineOptions) (sweeper.Report, error) {
	engine, err := uploads.NewEngine(cfg, opts)
	if err != nil {
		return sweeper.Report{}, err
	}
	report := engine.NewSweeper(opts.Metrics).RunOnce(ctx)
	if report.Errors > 0 {
		return report, fmt.Errorf("sweep finished with %d errors", report.Errors)
	}
	return report, nil
}

func SweepAction(c *cli.Context) error {
	ctx := log.Logger.WithContext(c.Context)
	cfg := config.Get().Uploads
	if c.IsSet("chunk-expiration") {
		cfg.ChunkExpiration = c.Duration("chunk-expiration")
	}
	if c.IsSet("temp-expiration") {
		cfg.TempExpiration = c.Duration("temp-expiration")
	}
	if c.IsSet("session-expiration") {
		cfg.SessionExpiration = c.Duration("session-expiration")
	}

	log.Info().Msg("=== Running upload sweep ===")
	_, err := Sweep(ctx, cfg, uploads.EngineOptions{Sessions: cache.Initialize()})
	return err
}
