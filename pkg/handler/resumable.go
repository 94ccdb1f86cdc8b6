package handler

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/api"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/middleware"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/content-services/content-uploads-backend/pkg/resumable"
	"github.com/labstack/echo/v4"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type ResumableHandler struct {
	Adapter *resumable.Adapter
}

func RegisterResumableRoutes(engine *echo.Group, adapter *resumable.Adapter) {
	rh := ResumableHandler{
		Adapter: adapter,
	}

	engine.OPTIONS("/files/upload", rh.options, tusResumable)
	engine.OPTIONS("/files/upload/:upload_id", rh.options, tusResumable)
	engine.POST("/files/upload", rh.createUpload, tusResumable, requireTusVersion)
	engine.HEAD("/files/upload/:upload_id", rh.uploadOffset, tusResumable, requireTusVersion)
	engine.PATCH("/files/upload/:upload_id", rh.appendUpload, tusResumable, requireTusVersion,
		middleware.EnforceContentType(api.ContentTypeOffsetOctet))
	engine.DELETE("/files/upload/:upload_id", rh.terminateUpload, tusResumable, requireTusVersion)
	engine.GET("/files/upload/:upload_id", rh.uploadStatus, tusResumable)
	engine.POST("/files/process/:upload_id", rh.processUpload, tusResumable)
}

// tusResumable announces the protocol version on every response
func tusResumable(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(api.HeaderTusResumable, api.TusVersion)
		return next(c)
	}
}

func requireTusVersion(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		version := c.Request().Header.Get(api.HeaderTusResumable)
		if version != "" && version != api.TusVersion {
			c.Response().Header().Set(api.HeaderTusVersion, api.TusVersion)
			return ce.NewErrorResponse(http.StatusPreconditionFailed, "Unsupported protocol version", "Tus-Resumable must be "+api.TusVersion)
		}
		return next(c)
	}
}

// parseMetadata decodes an Upload-Metadata header: comma separated pairs of
// a key and an optional base64 value
func parseMetadata(header string) (map[string]string, error) {
	metadata := map[string]string{}
	for _, pair := range strings.Split(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Fields(pair)
		if len(parts) > 2 {
			return nil, fmt.Errorf("malformed metadata pair %q", pair)
		}
		value := ""
		if len(parts) == 2 {
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				return nil, fmt.Errorf("metadata %s is not base64 encoded", parts[0])
			}
			value = string(decoded)
		}
		metadata[parts[0]] = value
	}
	return metadata, nil
}

func encodeMetadata(metadata map[string]string) string {
	keys := maps.Keys(metadata)
	slices.Sort(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		if metadata[key] == "" {
			pairs = append(pairs, key)
			continue
		}
		pairs = append(pairs, key+" "+base64.StdEncoding.EncodeToString([]byte(metadata[key])))
	}
	return strings.Join(pairs, ",")
}

func httpTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func sessionToApi(session *models.UploadSession) api.UploadSessionResponse {
	return api.UploadSessionResponse{
		ID:        session.ID,
		Length:    session.Length,
		Offset:    session.Offset,
		Metadata:  session.Metadata,
		Complete:  session.IsComplete(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
}

// options godoc
// @Summary      Discover upload capabilities
// @ID           optionsUpload
// @Tags         uploads
// @Success      204
// @Router       /files/upload [options]
func (rh *ResumableHandler) options(c echo.Context) error {
	h := c.Response().Header()
	h.Set(api.HeaderTusVersion, api.TusVersion)
	h.Set(api.HeaderTusExtension, api.TusExtensions)
	if max := rh.Adapter.MaxSize(); max > 0 {
		h.Set(api.HeaderTusMaxSize, strconv.FormatInt(max, 10))
	}
	return c.NoContent(http.StatusNoContent)
}

// createUpload godoc
// @Summary      Create a resumable upload
// @ID           createUpload
// @Description  Creates an upload session. The filename metadata is required.
// @Tags         uploads
// @Param        Upload-Length    header  int     true  "Size of the file in bytes"
// @Param        Upload-Metadata  header  string  true  "Base64 encoded metadata pairs"
// @Success      201
// @Failure      400 {object} ce.ErrorResponse
// @Failure      413 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/upload [post]
func (rh *ResumableHandler) createUpload(c echo.Context) error {
	req := c.Request()
	if req.Header.Get(api.HeaderUploadDeferLen) != "" {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error creating upload", "Upload-Defer-Length is not supported")
	}
	length, err := strconv.ParseInt(req.Header.Get(api.HeaderUploadLength), 10, 64)
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error creating upload", "Upload-Length must be an integer")
	}
	metadata, err := parseMetadata(req.Header.Get(api.HeaderUploadMetadata))
	if err != nil {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error creating upload", err.Error())
	}

	session, err := rh.Adapter.Create(req.Context(), getOwner(c), length, metadata)
	if err != nil {
		return errorResponse("Error creating upload", err)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderLocation, path.Join(req.URL.Path, session.ID))
	h.Set(api.HeaderUploadExpires, httpTime(session.ExpiresAt))
	return c.NoContent(http.StatusCreated)
}

// uploadOffset godoc
// @Summary      Get the offset of an upload
// @ID           headUpload
// @Tags         uploads
// @Param        upload_id  path  string  true  "Upload ID."
// @Success      200
// @Failure      404
// @Router       /files/upload/{upload_id} [head]
func (rh *ResumableHandler) uploadOffset(c echo.Context) error {
	session, err := rh.Adapter.Status(c.Request().Context(), getOwner(c), c.Param("upload_id"))
	if err != nil {
		return errorResponse("Error reading upload", err)
	}

	h := c.Response().Header()
	h.Set(api.HeaderUploadOffset, strconv.FormatInt(session.Offset, 10))
	h.Set(api.HeaderUploadLength, strconv.FormatInt(session.Length, 10))
	h.Set(api.HeaderUploadExpires, httpTime(session.ExpiresAt))
	if len(session.Metadata) > 0 {
		h.Set(api.HeaderUploadMetadata, encodeMetadata(session.Metadata))
	}
	h.Set(echo.HeaderCacheControl, "no-store")
	return c.NoContent(http.StatusOK)
}

// appendUpload godoc
// @Summary      Append to an upload
// @ID           patchUpload
// @Description  Writes the body at Upload-Offset. The upload is stored once the last byte arrives.
// @Tags         uploads
// @Accept       application/offset+octet-stream
// @Param        upload_id      path    string  true  "Upload ID."
// @Param        Upload-Offset  header  int     true  "Offset of the body"
// @Success      204
// @Failure      400 {object} ce.ErrorResponse
// @Failure      404 {object} ce.ErrorResponse
// @Failure      409 {object} ce.ErrorResponse
// @Failure      413 {object} ce.ErrorResponse
// @Failure      415 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/upload/{upload_id} [patch]
func (rh *ResumableHandler) appendUpload(c echo.Context) error {
	req := c.Request()
	offset, err := strconv.ParseInt(req.Header.Get(api.HeaderUploadOffset), 10, 64)
	if err != nil || offset < 0 {
		return ce.NewErrorResponse(http.StatusBadRequest, "Error appending to upload", "Upload-Offset must be a non negative integer")
	}

	result, err := rh.Adapter.Append(req.Context(), getOwner(c), c.Param("upload_id"), offset, req.Body, req.ContentLength)
	if err != nil {
		return errorResponse("Error appending to upload", err)
	}

	h := c.Response().Header()
	h.Set(api.HeaderUploadOffset, strconv.FormatInt(result.Session.Offset, 10))
	if result.File != nil {
		h.Set(api.HeaderFileId, result.File.UUID)
	} else {
		h.Set(api.HeaderUploadExpires, httpTime(result.Session.ExpiresAt))
	}
	return c.NoContent(http.StatusNoContent)
}

// terminateUpload godoc
// @Summary      Terminate an upload
// @ID           deleteUpload
// @Tags         uploads
// @Param        upload_id  path  string  true  "Upload ID."
// @Success      204
// @Failure      404 {object} ce.ErrorResponse
// @Router       /files/upload/{upload_id} [delete]
func (rh *ResumableHandler) terminateUpload(c echo.Context) error {
	if err := rh.Adapter.Terminate(c.Request().Context(), getOwner(c), c.Param("upload_id")); err != nil {
		return errorResponse("Error terminating upload", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// uploadStatus godoc
// @Summary      Get an upload
// @ID           getUpload
// @Tags         uploads
// @Produce      json
// @Param        upload_id  path  string  true  "Upload ID."
// @Success      200 {object} api.UploadSessionResponse
// @Failure      404 {object} ce.ErrorResponse
// @Router       /files/upload/{upload_id} [get]
func (rh *ResumableHandler) uploadStatus(c echo.Context) error {
	session, err := rh.Adapter.Status(c.Request().Context(), getOwner(c), c.Param("upload_id"))
	if err != nil {
		return errorResponse("Error reading upload", err)
	}
	return c.JSON(http.StatusOK, sessionToApi(session))
}

// processUpload godoc
// @Summary      Process a completed upload
// @ID           processUpload
// @Description  Stores a complete upload. An upload already stored returns its file again.
// @Tags         uploads
// @Produce      json
// @Param        upload_id  path  string  true  "Upload ID."
// @Success      200 {object} api.FileResponse
// @Failure      400 {object} ce.ErrorResponse
// @Failure      404 {object} ce.ErrorResponse
// @Failure      500 {object} ce.ErrorResponse
// @Router       /files/process/{upload_id} [post]
func (rh *ResumableHandler) processUpload(c echo.Context) error {
	file, err := rh.Adapter.Process(c.Request().Context(), getOwner(c), c.Param("upload_id"))
	if err != nil {
		return errorResponse("Error processing upload", err)
	}
	c.Response().Header().Set(api.HeaderFileId, file.UUID)
	return c.JSON(http.StatusOK, file)
}
