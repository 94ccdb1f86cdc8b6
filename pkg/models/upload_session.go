package models

import "time"

const MetadataFilename = "filename"

// UploadSession tracks an offset based resumable upload.
// 0 <= Offset <= Length holds at all times and Offset never decreases.
type UploadSession struct {
	ID        string            `json:"id"`
	Length    int64             `json:"length"`
	Offset    int64             `json:"offset"`
	Metadata  map[string]string `json:"metadata"`
	OrgID     string            `json:"org_id"`
	AccountID string            `json:"account_id"`
	UserID    string            `json:"user_id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (s *UploadSession) IsComplete() bool {
	return s.Offset == s.Length
}

func (s *UploadSession) Filename() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[MetadataFilename]
}

func (s *UploadSession) Owner() Owner {
	return Owner{OrgID: s.OrgID, AccountID: s.AccountID, UserID: s.UserID}
}

// OwnedBy reports whether the session belongs to the organization of owner
func (s *UploadSession) OwnedBy(owner Owner) bool {
	return s.OrgID != "" && s.OrgID == owner.OrgID
}
