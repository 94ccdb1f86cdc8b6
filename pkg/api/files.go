package api

import "time"

type FileResponse struct {
	UUID      string    `json:"uuid"`
	FileName  string    `json:"file_name"` // Original name of the uploaded file
	FilePath  string    `json:"file_path"` // Path relative to the storage root
	FileSize  int64     `json:"file_size"`
	FileType  int       `json:"file_type"` // Numeric file category derived from the mime type
	MimeType  string    `json:"mime_type"` // Detected mime type
	UploadID  string    `json:"upload_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
