package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMetricsMiddleware(t *testing.T) {
	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())
	middleware := CreateMetricsMiddleware(metrics)

	assert.NotNil(t, middleware)
}

func TestMetricsMiddlewareSkipper(t *testing.T) {
	type TestCase struct {
		Name     string
		Given    string
		Expected bool
	}
	testCases := []TestCase{
		{Name: "Empty", Given: "/", Expected: false},
		{Name: "Ping", Given: "/ping", Expected: true},
		{Name: "Ping with /", Given: "/ping/", Expected: true},
		{Name: "Metrics", Given: "/metrics", Expected: true},
		{Name: "Metrics with /", Given: "/metrics/", Expected: true},
		{Name: "Ping as resource", Given: urlPrefix + "/v1/ping", Expected: true},
		{Name: "Ping as resource with slash", Given: urlPrefix + "/v1/ping/", Expected: true},
		{Name: "Upload resource", Given: urlPrefix + "/v1/files/upload", Expected: false},
		{Name: "Chunk resource for v1.0", Given: urlPrefix + "/v1.0/files/chunk/merge", Expected: false},
	}
	for _, testCase := range testCases {
		t.Log(testCase.Name)
		ctx := echo.New().NewContext(
			httptest.NewRequest(http.MethodGet, testCase.Given, http.NoBody),
			httptest.NewRecorder())
		result := metricsMiddlewareSkipper(ctx)
		assert.Equal(t, testCase.Expected, result)
	}
}

func TestMapStatus(t *testing.T) {
	type TestCase struct {
		Name     string
		Given    int
		Expected string
	}
	testCases := []TestCase{
		{Name: "0", Given: 0, Expected: ""},
		{Name: "1xx", Given: http.StatusContinue, Expected: "1xx"},
		{Name: "2xx", Given: http.StatusOK, Expected: "2xx"},
		{Name: "3xx", Given: http.StatusMultipleChoices, Expected: "3xx"},
		{Name: "4xx", Given: http.StatusBadRequest, Expected: "4xx"},
		{Name: "5xx", Given: http.StatusInternalServerError, Expected: "5xx"},
	}

	for _, testCase := range testCases {
		result := mapStatus(testCase.Given)
		assert.Equal(t, testCase.Expected, result)
	}
}

func TestMetricsMiddlewareWithConfigCreation(t *testing.T) {
	config := &MetricsConfig{
		Metrics: nil,
		Skipper: nil,
	}
	assert.Panics(t, func() {
		MetricsMiddlewareWithConfig(config)
	})

	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())
	config = &MetricsConfig{
		Metrics: metrics,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/ping"
		},
	}

	require.NotPanics(t, func() {
		MetricsMiddlewareWithConfig(config)
	})

	assert.NotPanics(t, func() {
		MetricsMiddlewareWithConfig(nil)
	})

	h := func(c echo.Context) error {
		return c.String(http.StatusOK, "Ok")
	}

	e := echo.New()
	e.Use(MetricsMiddlewareWithConfig(config))
	path := urlPrefix + "/v1/files/:uuid"
	e.Add(http.MethodGet, path, h)
	e.Add(http.MethodGet, "/ping", h)

	for _, target := range []string{urlPrefix + "/v1/files/abc", "/ping"} {
		resp := httptest.NewRecorder()
		e.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Ok", resp.Body.String())
	}

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HttpStatusHistogram))
}

func TestMetricsMiddlewareErrorStatus(t *testing.T) {
	metrics := instrumentation.NewMetrics(prometheus.NewRegistry())
	path := urlPrefix + "/v1/files/upload/:upload_id"

	e := echo.New()
	e.Use(CreateMetricsMiddleware(metrics))
	e.Add(http.MethodPatch, path, func(c echo.Context) error {
		return ce.NewUploadError(ce.OffsetMismatch, "expected offset 4")
	})
	e.Add(http.MethodGet, path, func(c echo.Context) error {
		return errors.New("boom")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, urlPrefix+"/v1/files/upload/abc", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, urlPrefix+"/v1/files/upload/abc", nil))

	assert.True(t, metrics.HttpStatusHistogram.DeleteLabelValues("4xx", http.MethodPatch, path))
	assert.True(t, metrics.HttpStatusHistogram.DeleteLabelValues("5xx", http.MethodGet, path))
}
