package dao

import (
	"context"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"gorm.io/gorm"
)

type DaoRegistry struct {
	File FileDao
}

func GetDaoRegistry(db *gorm.DB) *DaoRegistry {
	return &DaoRegistry{
		File: GetFileDao(db),
	}
}

// FileRecord describes an assembled file to persist
type FileRecord struct {
	UploadID     string
	OriginalName string
	StoredName   string
	RelativePath string
	FileType     models.FileType
	MimeType     string
	Size         int64
}

//go:generate mockery --name FileDao --filename file_mock.go --inpackage
type FileDao interface {
	SaveFileRecord(ctx context.Context, owner models.Owner, record FileRecord) (api.FileResponse, error)
	Fetch(ctx context.Context, orgID string, uuid string) (api.FileResponse, error)
	FetchByUploadID(ctx context.Context, orgID string, uploadID string) (api.FileResponse, error)
}
