package models

// Owner attributes an upload to the calling identity
type Owner struct {
	OrgID     string
	AccountID string
	UserID    string
}

// ID is the value recorded as owner of stored files, the user when known and
// the organization otherwise.
func (o Owner) ID() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.OrgID
}

func (o Owner) IsEmpty() bool {
	return o.OrgID == ""
}
