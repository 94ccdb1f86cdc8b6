package middleware

import (
	"net/http"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
)

// UploadsCORS allows browsers on origins to drive uploads. The resumable
// protocol headers are exposed so clients can read offsets and locations.
func UploadsCORS(origins []string) echo.MiddlewareFunc {
	return echo_middleware.CORSWithConfig(echo_middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderContentType,
			api.IdentityHeader,
			config.HeaderRequestId,
			api.HeaderTusResumable,
			api.HeaderUploadLength,
			api.HeaderUploadOffset,
			api.HeaderUploadMetadata,
		},
		ExposeHeaders: []string{
			echo.HeaderLocation,
			api.HeaderUploadOffset,
			api.HeaderUploadLength,
			api.HeaderTusResumable,
			api.HeaderUploadExpires,
			api.HeaderFileId,
		},
	})
}
