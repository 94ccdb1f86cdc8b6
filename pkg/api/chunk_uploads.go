package api

type ChunkInitializeRequest struct {
	Filename  string `query:"filename" form:"filename" json:"filename"`    // Original name of the file to upload
	TotalSize int64  `query:"totalSize" form:"totalSize" json:"totalSize"` // Size of the whole file in bytes
}

type ChunkInitializeResponse struct {
	Identifier string `json:"identifier"` // Identifier to use for every chunk of this upload
	ChunkSize  int64  `json:"chunk_size"` // Largest accepted chunk in bytes
	Message    string `json:"message"`
}

type ChunkCheckRequest struct {
	Identifier  string `query:"identifier" form:"identifier"`
	ChunkNumber int    `query:"chunkNumber" form:"chunkNumber"` // 1-based chunk number
}

type ChunkCheckResponse struct {
	Exists bool `json:"exists"` // True when the chunk is stored and not empty
}

type UploadedChunksResponse struct {
	UploadedChunks []int `json:"uploaded_chunks"` // Chunk numbers already stored, ascending
}

type ChunkUploadRequest struct {
	Identifier  string `query:"identifier" form:"identifier"`
	ChunkNumber int    `query:"chunkNumber" form:"chunkNumber"`
}

type ChunkUploadResponse struct {
	Message string `json:"message"`
}

type ChunkMergeRequest struct {
	Identifier  string `query:"identifier" form:"identifier" json:"identifier"`
	Filename    string `query:"filename" form:"filename" json:"filename"`
	TotalChunks int    `query:"totalChunks" form:"totalChunks" json:"totalChunks"`
	TotalSize   *int64 `query:"totalSize" form:"totalSize" json:"totalSize"` // Optional, checked against the stored chunks
}
