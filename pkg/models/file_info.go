package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileInfo is the metadata record of an assembled file.
type FileInfo struct {
	Base
	OrgID        string
	AccountID    string
	OwnerID      string
	UploadID     string
	OriginalName string
	StoredName   string
	RelativePath string
	FileType     FileType
	MimeType     string
	Size         int64
}

func (FileInfo) TableName() string {
	return "files"
}

// BeforeCreate perform validations and sets UUID of FileInfo
func (f *FileInfo) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == "" {
		f.UUID = uuid.NewString()
	}
	return f.validate()
}

func (f *FileInfo) validate() error {
	if f.OrgID == "" {
		return Error{Message: "Org ID cannot be blank.", Validation: true}
	}
	if f.OriginalName == "" {
		return Error{Message: "Original name cannot be blank.", Validation: true}
	}
	if f.StoredName == "" {
		return Error{Message: "Stored name cannot be blank.", Validation: true}
	}
	if f.RelativePath == "" {
		return Error{Message: "Relative path cannot be blank.", Validation: true}
	}
	if f.Size < 0 {
		return Error{Message: "Size cannot be negative.", Validation: true}
	}
	return nil
}
