package assembly

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/content-services/content-uploads-backend/pkg/config"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

// Policy holds the size limits and deny lists applied to uploads
type Policy struct {
	MaxChunkSize        int64
	MinFileSize         int64
	MaxFileSize         int64
	forbiddenTypes      map[string]bool
	forbiddenExtensions map[string]bool
}

func NewPolicy(cfg config.Uploads) *Policy {
	p := &Policy{
		MaxChunkSize:        cfg.MaxChunkSize,
		MinFileSize:         cfg.MinFileSize,
		MaxFileSize:         cfg.MaxFileSize,
		forbiddenTypes:      map[string]bool{},
		forbiddenExtensions: map[string]bool{},
	}
	for _, t := range cfg.ForbiddenTypes {
		if t = baseMimeType(t); t != "" {
			p.forbiddenTypes[t] = true
		}
	}
	for _, ext := range cfg.ForbiddenExtensions {
		if ext = normalizeExtension(ext); ext != "" {
			p.forbiddenExtensions[ext] = true
		}
	}
	return p
}

// Extension returns the lowercased extension of name without the dot
func Extension(name string) string {
	return normalizeExtension(filepath.Ext(name))
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// baseMimeType drops parameters such as charset and lowercases the type
func baseMimeType(m string) string {
	m, _, _ = strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(m))
}

// GuessMimeType guesses a MIME type from the extension of name
func GuessMimeType(name string) string {
	ext := Extension(name)
	if ext == "" {
		return ""
	}
	return baseMimeType(mime.TypeByExtension("." + ext))
}

// CheckFilename rejects names with a forbidden extension, or whose extension
// maps to a forbidden MIME type
func (p *Policy) CheckFilename(name string) error {
	ext := Extension(name)
	if p.forbiddenExtensions[ext] {
		return ce.NewUploadError(ce.ForbiddenExtension, "files with extension .%s are not allowed", ext)
	}
	if guessed := GuessMimeType(name); guessed != "" && p.forbiddenTypes[guessed] {
		return ce.NewUploadError(ce.RejectedContentType, "content type %s is not allowed", guessed)
	}
	return nil
}

func (p *Policy) CheckTotalSize(size int64) error {
	if size < p.MinFileSize {
		return ce.NewUploadError(ce.SizeLimitExceeded, "file size %d is below the minimum of %d bytes", size, p.MinFileSize)
	}
	if p.MaxFileSize > 0 && size > p.MaxFileSize {
		return ce.NewUploadError(ce.SizeLimitExceeded, "file size %d exceeds the maximum of %d bytes", size, p.MaxFileSize)
	}
	return nil
}

func (p *Policy) CheckChunkSize(size int64) error {
	if p.MaxChunkSize > 0 && size > p.MaxChunkSize {
		return ce.NewUploadError(ce.SizeLimitExceeded, "chunk size %d exceeds the maximum of %d bytes", size, p.MaxChunkSize)
	}
	return nil
}

// CheckContentType validates a detected MIME type against the deny list.
// Parents known to mimetype are checked too, so denying application/zip also
// denies jar files. The extension of filename is checked last.
func (p *Policy) CheckContentType(detected string, filename string) error {
	detected = baseMimeType(detected)
	if p.forbiddenTypes[detected] {
		return ce.NewUploadError(ce.RejectedContentType, "content type %s is not allowed", detected)
	}
	if known := mimetype.Lookup(detected); known != nil {
		for parent := known.Parent(); parent != nil; parent = parent.Parent() {
			if t := baseMimeType(parent.String()); p.forbiddenTypes[t] {
				return ce.NewUploadError(ce.RejectedContentType, "content type %s (%s) is not allowed", detected, t)
			}
		}
	}
	if ext := Extension(filename); p.forbiddenExtensions[ext] {
		return ce.NewUploadError(ce.RejectedContentType, "files with extension .%s are not allowed", ext)
	}
	return nil
}
