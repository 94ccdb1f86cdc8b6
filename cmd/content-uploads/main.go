package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/cache"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	"github.com/content-services/content-uploads-backend/pkg/db"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation/custom"
	"github.com/content-services/content-uploads-backend/pkg/notifications"
	"github.com/content-services/content-uploads-backend/pkg/router"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		wg sync.WaitGroup
	)
	config.Load()
	config.ConfigureLogging()
	defer config.FlushSentry(2 * time.Second)

	ctx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	err := db.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())
	notifier, err := notifications.NewNotifier(config.Get().Kafka)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up notifications")
	}
	sessions := cache.Initialize()
	daoReg := dao.GetDaoRegistry(db.DB)

	engine, err := uploads.NewEngine(config.Get().Uploads, uploads.EngineOptions{
		Sessions: sessions,
		Files:    daoReg.File,
		Notifier: notifier,
		Metrics:  metrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare upload storage")
	}

	sweep := engine.NewSweeper(metrics)
	sweep.Start(ctx)

	collector := custom.NewCollector(ctx, metrics, sessions, engine.Chunks)
	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.Run()
	}()

	api := router.ConfigureEchoWithMetrics(&router.Services{Engine: engine, Dao: daoReg}, metrics)
	metricsServer := router.ConfigureMetrics(metrics)
	serve(ctx, &wg, "api", api, ":8000")
	serve(ctx, &wg, "metrics", metricsServer, fmt.Sprintf(":%d", config.Get().Metrics.Port))

	<-quit
	cancel()
	sweep.Stop()
	wg.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := notifier.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("error closing notifier")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("error closing database")
	}
}

// serve starts e on address and shuts it down once ctx is cancelled
func serve(ctx context.Context, wg *sync.WaitGroup, name string, e *echo.Echo, address string) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msgf("%s server starting on %s", name, address)
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Msgf("error starting %s server: %s", name, err.Error())
		}
		log.Info().Msgf("%s server stopped", name)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Logger.Info().Msgf("stopping %s server", name)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := e.Shutdown(ctx); err != nil {
			log.Error().Msgf("error shutting down %s server: %s", name, err.Error())
		}
		cancel()
	}()
}
