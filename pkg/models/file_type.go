package models

import "strings"

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeImage
	FileTypeDocument
	FileTypeVideo
	FileTypeAudio
	FileTypeCompressed
	FileTypeExecutable
	FileTypeOther
)

var fileTypeNames = []string{"unknown", "image", "document", "video", "audio", "compressed", "executable", "other"}

func (f FileType) String() string {
	if f < FileTypeUnknown || int(f) >= len(fileTypeNames) {
		return fileTypeNames[FileTypeUnknown]
	}
	return fileTypeNames[f]
}

func containsAny(s string, parts ...string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// FileTypeFromMime classifies a detected MIME type. Rules are evaluated in order.
func FileTypeFromMime(mimeType string) FileType {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case m == "":
		return FileTypeUnknown
	case strings.HasPrefix(m, "image/"):
		return FileTypeImage
	case strings.HasPrefix(m, "text/"), containsAny(m, "pdf", "document", "spreadsheet", "presentation", "msword"):
		return FileTypeDocument
	case strings.HasPrefix(m, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(m, "audio/"):
		return FileTypeAudio
	case containsAny(m, "zip", "compressed", "archive", "x-tar", "gzip", "x-7z", "x-rar"):
		return FileTypeCompressed
	case containsAny(m, "executable", "x-msdownload", "x-elf", "x-sh"):
		return FileTypeExecutable
	default:
		return FileTypeOther
	}
}
