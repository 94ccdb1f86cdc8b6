package dao

import (
	"context"
	"errors"

	"github.com/content-services/content-uploads-backend/pkg/api"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"gorm.io/gorm"
)

type fileDaoImpl struct {
	db *gorm.DB
}

func GetFileDao(db *gorm.DB) FileDao {
	return &fileDaoImpl{
		db: db,
	}
}

func (f fileDaoImpl) SaveFileRecord(ctx context.Context, owner models.Owner, record FileRecord) (api.FileResponse, error) {
	file := models.FileInfo{
		OrgID:        owner.OrgID,
		AccountID:    owner.AccountID,
		OwnerID:      owner.ID(),
		UploadID:     record.UploadID,
		OriginalName: record.OriginalName,
		StoredName:   record.StoredName,
		RelativePath: record.RelativePath,
		FileType:     record.FileType,
		MimeType:     record.MimeType,
		Size:         record.Size,
	}

	if err := f.db.WithContext(ctx).Create(&file).Error; err != nil {
		return api.FileResponse{}, fileDbToDaoError(err, "Could not save file record")
	}
	return fileModelToApi(file), nil
}

func (f fileDaoImpl) Fetch(ctx context.Context, orgID string, uuid string) (api.FileResponse, error) {
	file := models.FileInfo{}
	err := f.db.WithContext(ctx).
		Where("org_id = ? AND uuid = ?", orgID, UuidifyString(uuid)).
		First(&file).Error
	if err != nil {
		return api.FileResponse{}, fileDbToDaoError(err, "Could not find file with UUID "+uuid)
	}
	return fileModelToApi(file), nil
}

func (f fileDaoImpl) FetchByUploadID(ctx context.Context, orgID string, uploadID string) (api.FileResponse, error) {
	file := models.FileInfo{}
	if uploadID == "" {
		return api.FileResponse{}, &ce.DaoError{NotFound: true, Message: "Upload ID cannot be blank"}
	}
	err := f.db.WithContext(ctx).
		Where("org_id = ? AND upload_id = ?", orgID, uploadID).
		First(&file).Error
	if err != nil {
		return api.FileResponse{}, fileDbToDaoError(err, "Could not find file for upload "+uploadID)
	}
	return fileModelToApi(file), nil
}

func fileDbToDaoError(err error, message string) error {
	daoError := &ce.DaoError{Message: message, Err: err}
	var validationErr models.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		daoError.NotFound = true
	case isUniqueViolation(err):
		daoError.BadValidation = true
		daoError.Message = "A file was already recorded for this upload"
	case errors.As(err, &validationErr):
		daoError.BadValidation = validationErr.Validation
	}
	return daoError
}

func fileModelToApi(file models.FileInfo) api.FileResponse {
	return api.FileResponse{
		UUID:      file.UUID,
		FileName:  file.OriginalName,
		FilePath:  file.RelativePath,
		FileSize:  file.Size,
		FileType:  int(file.FileType),
		MimeType:  file.MimeType,
		UploadID:  file.UploadID,
		CreatedAt: file.CreatedAt,
	}
}
