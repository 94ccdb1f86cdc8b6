package middleware

import (
	"errors"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/labstack/echo/v4"
)

// statusForError returns the status the error handler will answer err with,
// 0 when err is not one of the known error types
func statusForError(err error) int {
	errResp := new(ce.ErrorResponse)
	var uploadErr *ce.UploadError
	var daoErr *ce.DaoError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, errResp):
		return ce.GetGeneralResponseCode(*errResp)
	case errors.As(err, &uploadErr), errors.As(err, &daoErr):
		return ce.HttpCodeForError(err)
	case errors.As(err, &httpErr):
		return httpErr.Code
	}
	return 0
}

// ExtractStatus sets the response status from the returned error so the
// request logger picks the level matching the final answer.
func ExtractStatus(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil && !c.Response().Committed {
			if status := statusForError(err); status != 0 {
				c.Response().Status = status
			}
		}
		return err
	}
}
