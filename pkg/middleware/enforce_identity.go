package middleware

import (
	"net/http"
	"strings"

	"github.com/content-services/content-uploads-backend/pkg/config"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
)

// WrapMiddleware wraps `func(http.Handler) http.Handler` into `echo.MiddlewareFunc`
func WrapMiddlewareWithSkipper(m func(http.Handler) http.Handler, skip echo_middleware.Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			if skip != nil && skip(c) {
				return next(c)
			}

			m(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				c.SetResponse(echo.NewResponse(w, c.Echo()))
				identityHeader := c.Request().Header.Get("X-Rh-Identity")
				if identityHeader != "" {
					c.Response().Header().Set("X-Rh-Identity", identityHeader)
				}
				err = next(c)
			})).ServeHTTP(c.Response(), c.Request())

			return
		}
	}
}

// SkipAuth reports whether path is served without an identity
func SkipAuth(p string) bool {
	if p == "/ping" || p == "/ping/" {
		return true
	}
	splitPath := strings.Split(p, "/")
	return strings.HasPrefix(p, "/api/"+config.DefaultAppName+"/") &&
		len(splitPath) == 5 &&
		splitPath[4] == "ping"
}

// SkipMiddleware skips identity checks for liveness probes and CORS or
// resumable upload discovery requests, which never carry credentials
func SkipMiddleware(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return SkipAuth(c.Request().URL.Path)
}

func EnforceOrgId(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if SkipMiddleware(c) {
			return next(c)
		}
		xRHID := identity.GetIdentity(c.Request().Context())

		if xRHID.Identity.Internal.OrgID == "-1" || xRHID.Identity.OrgID == "-1" {
			return ce.NewErrorResponse(http.StatusForbidden, "Invalid org ID", "Org ID cannot be -1")
		}

		return next(c)
	}
}
