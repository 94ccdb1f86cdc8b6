package handler

import (
	"net/http"

	"github.com/content-services/content-uploads-backend/pkg/dao"
	"github.com/labstack/echo/v4"
)

type FileHandler struct {
	Dao dao.FileDao
}

func RegisterFileRoutes(engine *echo.Group, fileDao dao.FileDao) {
	fh := FileHandler{
		Dao: fileDao,
	}
	engine.GET("/files/:uuid", fh.fetchFile)
}

// fetchFile godoc
// @Summary      Get a file
// @ID           getFile
// @Description  Returns the record of an uploaded file of the caller's organization.
// @Tags         files
// @Produce      json
// @Param        uuid  path  string  true  "File ID."
// @Success      200 {object} api.FileResponse
// @Failure      404 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/{uuid} [get]
func (fh *FileHandler) fetchFile(c echo.Context) error {
	owner := getOwner(c)
	file, err := fh.Dao.Fetch(c.Request().Context(), owner.OrgID, c.Param("uuid"))
	if err != nil {
		return errorResponse("Error fetching file", err)
	}
	return c.JSON(http.StatusOK, file)
}
