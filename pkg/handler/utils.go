package handler

import (
	"errors"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
)

// getOwner returns the caller recorded as owner of uploads and files
func getOwner(c echo.Context) models.Owner {
	id := identity.GetIdentity(c.Request().Context())
	owner := models.Owner{
		OrgID:     id.Identity.OrgID,
		AccountID: id.Identity.AccountNumber,
	}
	if owner.OrgID == "" {
		owner.OrgID = id.Identity.Internal.OrgID
	}
	if id.Identity.User != nil {
		owner.UserID = id.Identity.User.UserID
		if owner.UserID == "" {
			owner.UserID = id.Identity.User.Username
		}
	}
	return owner
}

// errorResponse titles err for the client, keeping responses that are
// already formed
func errorResponse(title string, err error) error {
	var errResp ce.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return ce.NewErrorResponse(ce.HttpCodeForError(err), title, err.Error())
}
