package middleware

import (
	"mime"
	"net/http"
	"strings"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/labstack/echo/v4"
)

// EnforceContentType rejects requests whose media type is not one of
// mediaTypes with 415
func EnforceContentType(mediaTypes ...string) echo.MiddlewareFunc {
	expected := strings.Join(mediaTypes, " or ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			mediatype, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
			if err != nil {
				return ce.NewErrorResponse(http.StatusUnsupportedMediaType, "Error parsing content type", err.Error())
			}
			for _, allowed := range mediaTypes {
				if mediatype == allowed {
					return next(c)
				}
			}
			return ce.NewErrorResponse(http.StatusUnsupportedMediaType, "Incorrect content type", "Content-Type must be "+expected)
		}
	}
}
