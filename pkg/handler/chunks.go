package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/content-services/content-uploads-backend/pkg/api"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/uploads"
	"github.com/labstack/echo/v4"
)

type ChunkHandler struct {
	Service *uploads.ChunkService
}

func RegisterChunkRoutes(engine *echo.Group, service *uploads.ChunkService) {
	ch := ChunkHandler{
		Service: service,
	}

	engine.POST("/files/chunk/initialize", ch.initialize)
	engine.GET("/files/chunk/check", ch.checkChunk)
	engine.GET("/files/chunk/uploaded/:identifier", ch.listUploadedChunks)
	engine.POST("/files/chunk/upload", ch.uploadChunk)
	engine.POST("/files/chunk/merge", ch.merge)
	engine.DELETE("/files/chunk/:identifier", ch.abort)
}

// initialize godoc
// @Summary      Initialize a chunked upload
// @ID           initializeChunkUpload
// @Description  Validates the file name and size and returns the identifier to use for every chunk.
// @Tags         chunks
// @Produce      json
// @Param        filename   query  string  true  "Original name of the file"
// @Param        totalSize  query  int     true  "Size of the file in bytes"
// @Success      200 {object} api.ChunkInitializeResponse
// @Failure      400 {object} ce.ErrorResponse
// @Failure      413 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/chunk/initialize [post]
func (ch *ChunkHandler) initialize(c echo.Context) error {
	req := api.ChunkInitializeRequest{}
	err := echo.FormFieldBinder(c).
		String("filename", &req.Filename).
		Int64("totalSize", &req.TotalSize).
		BindError()
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error binding parameters", err.Error())
	}

	resp, err := ch.Service.Initialize(c.Request().Context(), req)
	if err != nil {
		return errorResponse("Error initializing upload", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// checkChunk godoc
// @Summary      Check a chunk
// @ID           checkChunk
// @Description  Reports whether a chunk is stored and not empty.
// @Tags         chunks
// @Produce      json
// @Param        identifier   query  string  true  "Upload identifier"
// @Param        chunkNumber  query  int     true  "Chunk number, starting at 1"
// @Success      200 {object} api.ChunkCheckResponse
// @Failure      400 {object} ce.ErrorResponse
// @Failure      404 {object} ce.ErrorResponse
// @Router       /files/chunk/check [get]
func (ch *ChunkHandler) checkChunk(c echo.Context) error {
	req := api.ChunkCheckRequest{}
	err := echo.FormFieldBinder(c).
		MustString("identifier", &req.Identifier).
		MustInt("chunkNumber", &req.ChunkNumber).
		BindError()
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error binding parameters", err.Error())
	}

	exists, err := ch.Service.ChunkExists(c.Request().Context(), req.Identifier, req.ChunkNumber)
	if err != nil {
		return errorResponse("Error checking chunk", err)
	}
	return c.JSON(http.StatusOK, api.ChunkCheckResponse{Exists: exists})
}

// listUploadedChunks godoc
// @Summary      List uploaded chunks
// @ID           listUploadedChunks
// @Tags         chunks
// @Produce      json
// @Param        identifier  path  string  true  "Upload identifier"
// @Success      200 {object} api.UploadedChunksResponse
// @Failure      404 {object} ce.ErrorResponse
// @Router       /files/chunk/uploaded/{identifier} [get]
func (ch *ChunkHandler) listUploadedChunks(c echo.Context) error {
	seqs, err := ch.Service.ListUploadedChunks(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return errorResponse("Error listing chunks", err)
	}
	return c.JSON(http.StatusOK, api.UploadedChunksResponse{UploadedChunks: seqs})
}

// uploadChunk godoc
// @Summary      Upload a chunk
// @ID           uploadChunk
// @Description  Stores one chunk, replacing a chunk previously sent with the same number.
// @Tags         chunks
// @Accept       multipart/form-data
// @Produce      json
// @Param        identifier   formData  string  true  "Upload identifier"
// @Param        chunkNumber  formData  int     true  "Chunk number, starting at 1"
// @Param        file         formData  file    true  "Chunk content"
// @Success      200 {object} api.ChunkUploadResponse
// @Failure      400 {object} ce.ErrorResponse
// @Failure      404 {object} ce.ErrorResponse
// @Failure      413 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/chunk/upload [post]
func (ch *ChunkHandler) uploadChunk(c echo.Context) error {
	req := api.ChunkUploadRequest{}
	err := echo.FormFieldBinder(c).
		MustString("identifier", &req.Identifier).
		MustInt("chunkNumber", &req.ChunkNumber).
		BindError()
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error binding parameters", err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error reading chunk", err.Error())
	}
	src, err := file.Open()
	if err != nil {
		return ce.NewErrorResponse(http.StatusInternalServerError, "Error reading chunk", err.Error())
	}
	defer src.Close()

	err = ch.Service.UploadChunk(c.Request().Context(), req.Identifier, req.ChunkNumber, file.Size, src)
	if err != nil {
		return errorResponse("Error storing chunk", err)
	}
	return c.JSON(http.StatusOK, api.ChunkUploadResponse{Message: fmt.Sprintf("Chunk %d uploaded", req.ChunkNumber)})
}

// merge godoc
// @Summary      Merge chunks
// @ID           mergeChunks
// @Description  Assembles the chunks of an upload into the stored file and records it.
// @Tags         chunks
// @Produce      json
// @Param        identifier   query  string  true   "Upload identifier"
// @Param        filename     query  string  true   "Original name of the file"
// @Param        totalChunks  query  int     true   "Number of chunks sent"
// @Param        totalSize    query  int     false  "Size of the file in bytes"
// @Success      200 {object} api.FileResponse
// @Failure      400 {object} ce.ErrorResponse
// @Failure      404 {object} ce.ErrorResponse
// @Failure      413 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/chunk/merge [post]
func (ch *ChunkHandler) merge(c echo.Context) error {
	req := api.ChunkMergeRequest{}
	err := echo.FormFieldBinder(c).
		MustString("identifier", &req.Identifier).
		String("filename", &req.Filename).
		MustInt("totalChunks", &req.TotalChunks).
		BindError()
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error binding parameters", err.Error())
	}
	if raw := c.FormValue("totalSize"); raw != "" {
		totalSize, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ce.NewErrorResponse(http.StatusBadRequest, "Error binding parameters", "totalSize must be an integer")
		}
		req.TotalSize = &totalSize
	}

	file, err := ch.Service.Merge(c.Request().Context(), getOwner(c), req)
	if err != nil {
		return errorResponse("Error merging chunks", err)
	}
	c.Response().Header().Set(api.HeaderFileId, file.UUID)
	return c.JSON(http.StatusOK, file)
}

// abort godoc
// @Summary      Abort a chunked upload
// @ID           abortChunkUpload
// @Tags         chunks
// @Param        identifier  path  string  true  "Upload identifier"
// @Success      204
// @Failure      404 {object} ce.ErrorResponse
// @Router       /files/chunk/{identifier} [delete]
func (ch *ChunkHandler) abort(c echo.Context) error {
	if err := ch.Service.Abort(c.Request().Context(), c.Param("identifier")); err != nil {
		return errorResponse("Error aborting upload", err)
	}
	return c.NoContent(http.StatusNoContent)
}
