package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/content-services/content-uploads-backend/pkg/cache"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/middleware"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testUploadsConfig() config.Uploads {
	return config.Uploads{
		ChunkRoot:           "/data/chunks",
		BaseRoot:            "/data/files",
		TempRoot:            "/data/tmp",
		MaxChunkSize:        4,
		MinFileSize:         1,
		MaxFileSize:         100,
		ForbiddenTypes:      config.DefaultForbiddenTypes,
		ForbiddenExtensions: config.DefaultForbiddenExtensions,
		ChunkExpiration:     config.DefaultChunkExpiration,
		TempExpiration:      config.DefaultTempExpiration,
		SessionExpiration:   config.DefaultSessionExpiration,
		SweepInterval:       config.DefaultSweepInterval,
	}
}

// uploadsRouter serves the upload routes over an in memory filesystem
type uploadsRouter struct {
	fs     afero.Fs
	files  *dao.MockFileDao
	engine *uploads.Engine
	router *echo.Echo
}

func newUploadsRouter(t *testing.T) *uploadsRouter {
	fs := afero.NewMemMapFs()
	daoReg := dao.GetMockDaoRegistry(t)
	files := daoReg.File
	engine, err := uploads.NewEngine(testUploadsConfig(), uploads.EngineOptions{
		Fs:       fs,
		Sessions: cache.NewMemoryCache(),
		Files:    files,
		Metrics:  instrumentation.NewMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	router := echo.New()
	router.Use(echo_middleware.RequestIDWithConfig(echo_middleware.RequestIDConfig{
		TargetHeader: config.HeaderRequestId,
	}))
	router.Use(middleware.WrapMiddlewareWithSkipper(identity.EnforceIdentity, middleware.SkipMiddleware))
	router.HTTPErrorHandler = config.CustomHTTPErrorHandler
	RegisterPing(router)
	RegisterRoutes(router, engine, daoReg.ToDaoRegistry())

	return &uploadsRouter{fs: fs, files: files, engine: engine, router: router}
}

func (r *uploadsRouter) serve(req *http.Request) (*http.Response, []byte, error) {
	rr := httptest.NewRecorder()
	r.router.ServeHTTP(rr, req)

	response := rr.Result()
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	return response, body, err
}
