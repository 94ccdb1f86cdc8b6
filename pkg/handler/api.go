package handler

import (
	"encoding/json"
	"net/http"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// @title ContentUploadsBackend
// @version  v1.0.0
// @description Chunked and resumable file uploads
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0
// @BasePath /api/content-uploads/v1.0/
// @securityDefinitions.apikey RhIdentity
// @in header
// @name x-rh-identity

func RegisterRoutes(engine *echo.Echo, uploadEngine *uploads.Engine, daoReg *dao.DaoRegistry) {
	paths := []string{api.FullRootPath(), api.MajorRootPath()}
	for i := 0; i < len(paths); i++ {
		group := engine.Group(paths[i])
		RegisterChunkRoutes(group, uploadEngine.Service)
		RegisterResumableRoutes(group, uploadEngine.Resumable)
		RegisterFileRoutes(group, daoReg.File)
	}

	data, err := json.MarshalIndent(engine.Routes(), "", "  ")
	if err == nil {
		log.Debug().Msg(string(data))
	}
}

func RegisterPing(engine *echo.Echo) {
	engine.GET("/ping", ping)
	engine.GET("/ping/", ping)
	paths := []string{api.FullRootPath(), api.MajorRootPath()}
	for i := 0; i < len(paths); i++ {
		engine.GET(paths[i]+"/ping", ping)
	}
}

func ping(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "pong",
	})
}
