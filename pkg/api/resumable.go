package api

import "time"

const (
	TusVersion    = "1.0.0"
	TusExtensions = "creation,termination,expiration"

	HeaderTusResumable     = "Tus-Resumable"
	HeaderTusVersion       = "Tus-Version"
	HeaderTusExtension     = "Tus-Extension"
	HeaderTusMaxSize       = "Tus-Max-Size"
	HeaderUploadLength     = "Upload-Length"
	HeaderUploadOffset     = "Upload-Offset"
	HeaderUploadMetadata   = "Upload-Metadata"
	HeaderUploadExpires    = "Upload-Expires"
	HeaderUploadDeferLen   = "Upload-Defer-Length"
	HeaderFileId           = "X-File-Id"
	ContentTypeOffsetOctet = "application/offset+octet-stream"
)

type UploadSessionResponse struct {
	ID        string            `json:"id"`
	Length    int64             `json:"length"`
	Offset    int64             `json:"offset"`
	Metadata  map[string]string `json:"metadata"`
	Complete  bool              `json:"complete"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}
