package middleware

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
	"github.com/stretchr/testify/assert"
)

const urlPrefix = "/api/" + config.DefaultAppName

func handleItWorked(c echo.Context) error {
	return c.JSON(http.StatusOK, "It worked")
}

func TestSkipAuth(t *testing.T) {
	for _, route := range []string{"/ping", "/ping/", urlPrefix + "/v1/ping", urlPrefix + "/v1.0/ping"} {
		assert.True(t, SkipAuth(route), route)
	}
	for _, route := range []string{"/api/v1/files", urlPrefix + "/v1/files/ping", urlPrefix + "/v1/files/upload"} {
		assert.False(t, SkipAuth(route), route)
	}
}

func TestSkipMiddleware(t *testing.T) {
	e := echo.New()
	testCases := []struct {
		method   string
		path     string
		expected bool
	}{
		{http.MethodGet, "/ping", true},
		{http.MethodOptions, urlPrefix + "/v1/files/upload", true},
		{http.MethodOptions, urlPrefix + "/v1/files/upload/abc", true},
		{http.MethodPost, urlPrefix + "/v1/files/upload", false},
		{http.MethodHead, urlPrefix + "/v1/files/upload/abc", false},
	}
	for _, testCase := range testCases {
		c := e.NewContext(httptest.NewRequest(testCase.method, testCase.path, nil), httptest.NewRecorder())
		assert.Equal(t, testCase.expected, SkipMiddleware(c), testCase.method+" "+testCase.path)
	}
}

func TestWrapMiddlewareWithSkipper(t *testing.T) {
	e := echo.New()
	m := WrapMiddlewareWithSkipper(identity.EnforceIdentity, SkipMiddleware)

	IdentityHeader := "X-Rh-Identity"
	xrhidentityHeaderSuccess := `{"identity":{"type":"Associate","account_number":"2093","org_id":"7066","internal":{"org_id":"7066"}}}`
	xrhidentityHeaderFailure := `{"identity":{"account_number":"2093","internal":{"org_id":"7066"}}}`
	bodyResponse := "It Worked!"

	h := func(c echo.Context) error {
		return c.String(http.StatusOK, bodyResponse)
	}
	uploadPath := urlPrefix + "/v1/files/upload"

	// Liveness probes and OPTIONS pass with a broken header
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/ping", nil),
		httptest.NewRequest(http.MethodOptions, uploadPath, nil),
	} {
		req.Header.Set(IdentityHeader, base64.StdEncoding.EncodeToString([]byte(xrhidentityHeaderFailure)))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := m(h)(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bodyResponse, rec.Body.String())
	}

	// A Failed request with failed header
	req := httptest.NewRequest(http.MethodPost, uploadPath, nil)
	req.Header.Set(IdentityHeader, base64.StdEncoding.EncodeToString([]byte(xrhidentityHeaderFailure)))
	rec := httptest.NewRecorder()
	err := m(h)(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A Failed request without header
	req = httptest.NewRequest(http.MethodPost, uploadPath, nil)
	rec = httptest.NewRecorder()
	err = m(h)(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A Success request with a right header
	encodedHeader := base64.StdEncoding.EncodeToString([]byte(xrhidentityHeaderSuccess))
	req = httptest.NewRequest(http.MethodPost, uploadPath, nil)
	req.Header.Set(IdentityHeader, encodedHeader)
	rec = httptest.NewRecorder()
	err = m(h)(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bodyResponse, rec.Body.String())
	assert.Equal(t, encodedHeader, rec.Header().Get(IdentityHeader))
}

func TestEnforceOrgId(t *testing.T) {
	e := echo.New()
	e.Use(EnforceOrgId)
	e.HTTPErrorHandler = config.CustomHTTPErrorHandler
	e.Add("GET", "/ping", handleItWorked)
	e.Add("GET", urlPrefix+"/v1/files/:uuid", handleItWorked)

	// Test org ID of -1 returns an error response
	req := httptest.NewRequest(http.MethodGet, urlPrefix+"/v1/files/abc", nil)

	var xrhid identity.XRHID

	xrhid.Identity.OrgID = "-1"
	xrhid.Identity.AccountNumber = "11111"
	xrhid.Identity.User = &identity.User{Username: "user"}
	xrhid.Identity.Internal.OrgID = "-1"

	req = req.WithContext(identity.WithIdentity(req.Context(), xrhid))

	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	body, err := io.ReadAll(res.Body)

	assert.NoError(t, err)
	assert.Contains(t, string(body), "Invalid org ID")
	assert.Equal(t, http.StatusForbidden, res.Code)

	// Test valid org ID returns success
	req = httptest.NewRequest(http.MethodGet, urlPrefix+"/v1/files/abc", nil)

	xrhid.Identity.OrgID = "7066"
	xrhid.Identity.Internal.OrgID = "7066"

	req = req.WithContext(identity.WithIdentity(req.Context(), xrhid))

	res = httptest.NewRecorder()
	e.ServeHTTP(res, req)

	body, err = io.ReadAll(res.Body)

	assert.NoError(t, err)
	assert.Equal(t, "\"It worked\"\n", string(body))
	assert.Equal(t, http.StatusOK, res.Code)

	// Test ping with empty identity header returns success
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Rh-Identity", "")

	res = httptest.NewRecorder()
	e.ServeHTTP(res, req)

	body, err = io.ReadAll(res.Body)

	assert.NoError(t, err)
	assert.Equal(t, "\"It worked\"\n", string(body))
	assert.Equal(t, http.StatusOK, res.Code)
}
