package router

import (
	"time"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	"github.com/content-services/content-uploads-backend/pkg/handler"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/middleware"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/content-services/lecho/v3"
	"github.com/labstack/echo/v4"
	gommon "github.com/labstack/gommon/log"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Services are the backends the upload routes are served from. Without them
// only the ping routes are registered.
type Services struct {
	Engine *uploads.Engine
	Dao    *dao.DaoRegistry
}

func echoLevel(level zerolog.Level) gommon.Lvl {
	switch {
	case level <= zerolog.DebugLevel:
		return gommon.DEBUG
	case level == zerolog.InfoLevel:
		return gommon.INFO
	case level == zerolog.WarnLevel:
		return gommon.WARN
	case level == zerolog.Disabled:
		return gommon.OFF
	default:
		return gommon.ERROR
	}
}

func ConfigureEcho(services *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	// Add global middlewares
	echoLogger := lecho.From(log.Logger,
		lecho.WithTimestamp(),
		lecho.WithCaller(),
	)
	echoLogger.SetLevel(echoLevel(zerolog.GlobalLevel()))
	e.Logger = echoLogger

	e.Use(middleware.AddRequestId)
	e.Use(lecho.Middleware(lecho.Config{
		Logger:              echoLogger,
		RequestIDHeader:     config.HeaderRequestId,
		RequestIDKey:        config.RequestIdLoggingKey,
		Skipper:             config.SkipLogging,
		RequestLatencyLevel: zerolog.WarnLevel,
		RequestLatencyLimit: 500 * time.Millisecond,
	}))
	e.Use(middleware.ExtractStatus) // Must be after lecho
	e.Use(middleware.LogServerErrorRequest)
	if origins := config.Get().Uploads.CorsAllowedOrigins; len(origins) > 0 {
		e.Use(middleware.UploadsCORS(origins))
	}

	// Add routes
	handler.RegisterPing(e)
	if services != nil {
		handler.RegisterRoutes(e, services.Engine, services.Dao)
	}

	// Set error handler
	e.HTTPErrorHandler = config.CustomHTTPErrorHandler
	return e
}

func ConfigureEchoWithMetrics(services *Services, metrics *instrumentation.Metrics) *echo.Echo {
	e := ConfigureEcho(services)

	// Add additional global middlewares
	e.Use(middleware.WrapMiddlewareWithSkipper(identity.EnforceIdentity, middleware.SkipMiddleware))
	e.Use(middleware.EnforceOrgId)
	e.Use(middleware.CreateMetricsMiddleware(metrics))
	return e
}
