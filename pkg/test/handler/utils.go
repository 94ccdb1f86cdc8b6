package handler

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
)

var MockAccountNumber = uuid.NewString()[:8]
var MockOrgId = uuid.NewString()[:8]
var MockUserId = uuid.NewString()
var MockIdentity = identity.XRHID{
	Identity: identity.Identity{
		AccountNumber: MockAccountNumber,
		OrgID:         MockOrgId,
		Internal: identity.Internal{
			OrgID: MockOrgId,
		},
		User: &identity.User{Username: "user", UserID: MockUserId},
		Type: "User",
	},
}

func EncodedIdentity(t *testing.T) string {
	return EncodedCustomIdentity(t, MockIdentity)
}

func EncodedCustomIdentity(t *testing.T, xrhid identity.XRHID) string {
	jsonIdentity, err := json.Marshal(xrhid)
	if err != nil {
		t.Error("Could not marshal JSON")
	}
	return base64.StdEncoding.EncodeToString(jsonIdentity)
}

// IdentityForOrg returns an encoded identity of another organization
func IdentityForOrg(t *testing.T, orgID string) string {
	xrhid := MockIdentity
	xrhid.Identity.OrgID = orgID
	xrhid.Identity.Internal.OrgID = orgID
	return EncodedCustomIdentity(t, xrhid)
}
