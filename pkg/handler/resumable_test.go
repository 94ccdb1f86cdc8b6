package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/models"
	test_handler "github.com/content-services/content-uploads-backend/pkg/test/handler"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ResumableSuite struct {
	suite.Suite
	r *uploadsRouter
}

func TestResumableSuite(t *testing.T) {
	suite.Run(t, new(ResumableSuite))
}

func (s *ResumableSuite) SetupTest() {
	s.r = newUploadsRouter(s.T())
}

func uploadPath() string {
	return api.FullRootPath() + "/files/upload"
}

func filenameMetadata(name string) string {
	return "filename " + base64.StdEncoding.EncodeToString([]byte(name))
}

func (s *ResumableSuite) request(method string, target string, body string, headers map[string]string) *http.Response {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(api.IdentityHeader, test_handler.EncodedIdentity(s.T()))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	response, _, err := s.r.serve(req)
	require.NoError(s.T(), err)
	return response
}

func (s *ResumableSuite) create(length string, metadata string) *http.Response {
	return s.request(http.MethodPost, uploadPath(), "", map[string]string{
		api.HeaderTusResumable:   api.TusVersion,
		api.HeaderUploadLength:   length,
		api.HeaderUploadMetadata: metadata,
	})
}

func (s *ResumableSuite) patch(location string, offset string, body string) *http.Response {
	return s.request(http.MethodPatch, location, body, map[string]string{
		api.HeaderTusResumable: api.TusVersion,
		api.HeaderUploadOffset: offset,
		echo.HeaderContentType: api.ContentTypeOffsetOctet,
	})
}

func (s *ResumableSuite) TestOptionsWithoutIdentity() {
	t := s.T()
	for _, target := range []string{uploadPath(), uploadPath() + "/abc"} {
		req := httptest.NewRequest(http.MethodOptions, target, nil)
		response, _, err := s.r.serve(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, response.StatusCode)
		assert.Equal(t, api.TusVersion, response.Header.Get(api.HeaderTusResumable))
		assert.Equal(t, api.TusVersion, response.Header.Get(api.HeaderTusVersion))
		assert.Equal(t, api.TusExtensions, response.Header.Get(api.HeaderTusExtension))
		assert.Equal(t, "100", response.Header.Get(api.HeaderTusMaxSize))
	}
}

func (s *ResumableSuite) TestCreateValidation() {
	t := s.T()

	response := s.create("abc", filenameMetadata("notes.txt"))
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response = s.create("11", "filename not-base64!")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response = s.create("11", "")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response = s.create("11", filenameMetadata("setup.exe"))
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response = s.create("101", filenameMetadata("notes.txt"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, response.StatusCode)

	response = s.request(http.MethodPost, uploadPath(), "", map[string]string{
		api.HeaderUploadDeferLen: "1",
		api.HeaderUploadMetadata: filenameMetadata("notes.txt"),
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Equal(t, api.TusVersion, response.Header.Get(api.HeaderTusResumable))
}

func (s *ResumableSuite) TestUnsupportedVersion() {
	t := s.T()
	response := s.request(http.MethodPost, uploadPath(), "", map[string]string{
		api.HeaderTusResumable:   "0.2.2",
		api.HeaderUploadLength:   "11",
		api.HeaderUploadMetadata: filenameMetadata("notes.txt"),
	})
	assert.Equal(t, http.StatusPreconditionFailed, response.StatusCode)
	assert.Equal(t, api.TusVersion, response.Header.Get(api.HeaderTusVersion))
}

func (s *ResumableSuite) TestUploadToCompletion() {
	t := s.T()

	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)
	id := path.Base(location)
	assert.Equal(t, path.Join(uploadPath(), id), location)
	assert.NotEmpty(t, response.Header.Get(api.HeaderUploadExpires))

	response = s.request(http.MethodHead, location, "", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "0", response.Header.Get(api.HeaderUploadOffset))
	assert.Equal(t, "11", response.Header.Get(api.HeaderUploadLength))
	assert.Equal(t, "no-store", response.Header.Get(echo.HeaderCacheControl))
	assert.Equal(t, filenameMetadata("notes.txt"), response.Header.Get(api.HeaderUploadMetadata))

	response = s.patch(location, "0", "hello ")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	assert.Equal(t, "6", response.Header.Get(api.HeaderUploadOffset))

	// replay of a range already applied
	response = s.patch(location, "0", "hello ")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	assert.Equal(t, "6", response.Header.Get(api.HeaderUploadOffset))

	response = s.patch(location, "3", "lo world")
	assert.Equal(t, http.StatusConflict, response.StatusCode)

	var saved api.FileResponse
	s.r.files.On("SaveFileRecord", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, owner models.Owner, record dao.FileRecord) (api.FileResponse, error) {
			saved = api.FileResponse{
				UUID:     "file-uuid",
				FileName: record.OriginalName,
				FileSize: record.Size,
				MimeType: record.MimeType,
				UploadID: record.UploadID,
			}
			return saved, nil
		}).Once()

	response = s.patch(location, "6", "world")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	assert.Equal(t, "11", response.Header.Get(api.HeaderUploadOffset))
	assert.Equal(t, "file-uuid", response.Header.Get(api.HeaderFileId))

	// the final PATCH retried after its response was lost
	s.r.files.On("FetchByUploadID", mock.Anything, test_handler.MockOrgId, id).
		Return(func(context.Context, string, string) (api.FileResponse, error) {
			return saved, nil
		})
	response = s.patch(location, "6", "world")
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	assert.Equal(t, "11", response.Header.Get(api.HeaderUploadOffset))
	assert.Equal(t, "file-uuid", response.Header.Get(api.HeaderFileId))

	response = s.patch(location, "11", "!")
	assert.Equal(t, http.StatusConflict, response.StatusCode)

	response = s.request(http.MethodGet, location, "", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func (s *ResumableSuite) TestPatchValidation() {
	t := s.T()
	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)

	response = s.request(http.MethodPatch, location, "hello", map[string]string{
		api.HeaderUploadOffset: "0",
		echo.HeaderContentType: echo.MIMEApplicationJSON,
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, response.StatusCode)

	response = s.request(http.MethodPatch, location, "hello", map[string]string{
		echo.HeaderContentType: api.ContentTypeOffsetOctet,
	})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	response = s.patch(location, "0", "hello world and more")
	assert.Equal(t, http.StatusRequestEntityTooLarge, response.StatusCode)

	response = s.patch(location, "4", "hello")
	assert.Equal(t, http.StatusConflict, response.StatusCode)

	s.r.files.On("FetchByUploadID", mock.Anything, test_handler.MockOrgId, "unknown").
		Return(api.FileResponse{}, &ce.DaoError{NotFound: true, Message: "not found"}).Once()
	response = s.patch(uploadPath()+"/unknown", "0", "hello")
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func (s *ResumableSuite) TestStatus() {
	t := s.T()
	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)
	s.patch(location, "0", "hello")

	req := httptest.NewRequest(http.MethodGet, location, nil)
	req.Header.Set(api.IdentityHeader, test_handler.EncodedIdentity(t))
	response, body, err := s.r.serve(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)

	status := api.UploadSessionResponse{}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, path.Base(location), status.ID)
	assert.Equal(t, int64(5), status.Offset)
	assert.Equal(t, int64(11), status.Length)
	assert.False(t, status.Complete)
	assert.Equal(t, "notes.txt", status.Metadata[models.MetadataFilename])
}

func (s *ResumableSuite) TestOtherOrganization() {
	t := s.T()
	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)

	req := httptest.NewRequest(http.MethodHead, location, nil)
	req.Header.Set(api.IdentityHeader, test_handler.IdentityForOrg(t, "other-org"))
	response, _, err := s.r.serve(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func (s *ResumableSuite) TestTerminate() {
	t := s.T()
	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)

	response = s.request(http.MethodDelete, location, "", map[string]string{api.HeaderTusResumable: api.TusVersion})
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	response = s.request(http.MethodHead, location, "", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response = s.request(http.MethodDelete, location, "", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func (s *ResumableSuite) TestProcess() {
	t := s.T()
	response := s.create("11", filenameMetadata("notes.txt"))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	location := response.Header.Get(echo.HeaderLocation)
	id := path.Base(location)
	processPath := api.FullRootPath() + "/files/process/" + id

	response = s.patch(location, "0", "hello")
	require.Equal(t, http.StatusNoContent, response.StatusCode)

	response = s.request(http.MethodPost, processPath, "", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	saved := api.FileResponse{UUID: "file-uuid", FileName: "notes.txt", UploadID: id}
	s.r.files.On("SaveFileRecord", mock.Anything, mock.Anything, mock.Anything).Return(saved, nil).Once()
	response = s.patch(location, "5", " world")
	require.Equal(t, http.StatusNoContent, response.StatusCode)

	s.r.files.On("FetchByUploadID", mock.Anything, test_handler.MockOrgId, id).Return(saved, nil).Once()
	req := httptest.NewRequest(http.MethodPost, processPath, nil)
	req.Header.Set(api.IdentityHeader, test_handler.EncodedIdentity(t))
	response, body, err := s.r.serve(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "file-uuid", response.Header.Get(api.HeaderFileId))

	file := api.FileResponse{}
	require.NoError(t, json.Unmarshal(body, &file))
	assert.Equal(t, id, file.UploadID)
}

func TestParseMetadata(t *testing.T) {
	metadata, err := parseMetadata("filename " + base64.StdEncoding.EncodeToString([]byte("a b.txt")) + ", is_confidential,filetype dGV4dC9wbGFpbg==")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"filename":        "a b.txt",
		"is_confidential": "",
		"filetype":        "text/plain",
	}, metadata)

	_, err = parseMetadata("filename one two")
	assert.Error(t, err)

	_, err = parseMetadata("filename %%%")
	assert.Error(t, err)

	metadata, err = parseMetadata("")
	require.NoError(t, err)
	assert.Empty(t, metadata)
}

func TestEncodeMetadata(t *testing.T) {
	encoded := encodeMetadata(map[string]string{"filename": "a.txt", "flag": ""})
	assert.Equal(t, "filename "+base64.StdEncoding.EncodeToString([]byte("a.txt"))+",flag", encoded)
}
