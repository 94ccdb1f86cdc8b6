package errors

import (
	"fmt"
	"net/http"
)

// UploadErrorKind classifies failures of the upload engine.
type UploadErrorKind int

const (
	AlreadyInProgress UploadErrorKind = iota + 1
	UnknownUpload
	IncompleteUpload
	MissingChunk
	OffsetMismatch
	RejectedContentType
	StorageUnavailable
	SizeLimitExceeded
	ForbiddenExtension
	SizeMismatch
	InvalidChunkNumber
)

var kindNames = map[UploadErrorKind]string{
	AlreadyInProgress:   "upload already in progress",
	UnknownUpload:       "unknown upload",
	IncompleteUpload:    "incomplete upload",
	MissingChunk:        "missing chunk",
	OffsetMismatch:      "offset mismatch",
	RejectedContentType: "rejected content type",
	StorageUnavailable:  "storage unavailable",
	SizeLimitExceeded:   "size limit exceeded",
	ForbiddenExtension:  "forbidden extension",
	SizeMismatch:        "size mismatch",
	InvalidChunkNumber:  "invalid chunk number",
}

var kindStatus = map[UploadErrorKind]int{
	AlreadyInProgress:   http.StatusConflict,
	UnknownUpload:       http.StatusNotFound,
	IncompleteUpload:    http.StatusBadRequest,
	MissingChunk:        http.StatusBadRequest,
	OffsetMismatch:      http.StatusConflict,
	RejectedContentType: http.StatusBadRequest,
	StorageUnavailable:  http.StatusInternalServerError,
	SizeLimitExceeded:   http.StatusRequestEntityTooLarge,
	ForbiddenExtension:  http.StatusBadRequest,
	SizeMismatch:        http.StatusBadRequest,
	InvalidChunkNumber:  http.StatusBadRequest,
}

func (k UploadErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("upload error kind %d", int(k))
}

// HttpStatus returns the response code used for this kind of failure
func (k UploadErrorKind) HttpStatus() int {
	if code, ok := kindStatus[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

type UploadError struct {
	Kind    UploadErrorKind
	Message string
	// Chunk is the sequence number a MissingChunk error refers to
	Chunk int
	Err   error
}

// Sentinels for errors.Is comparisons, matched by kind only.
var (
	ErrAlreadyInProgress   = &UploadError{Kind: AlreadyInProgress}
	ErrUnknownUpload       = &UploadError{Kind: UnknownUpload}
	ErrIncompleteUpload    = &UploadError{Kind: IncompleteUpload}
	ErrMissingChunk        = &UploadError{Kind: MissingChunk}
	ErrOffsetMismatch      = &UploadError{Kind: OffsetMismatch}
	ErrRejectedContentType = &UploadError{Kind: RejectedContentType}
	ErrStorageUnavailable  = &UploadError{Kind: StorageUnavailable}
	ErrSizeLimitExceeded   = &UploadError{Kind: SizeLimitExceeded}
	ErrForbiddenExtension  = &UploadError{Kind: ForbiddenExtension}
	ErrSizeMismatch        = &UploadError{Kind: SizeMismatch}
	ErrInvalidChunkNumber  = &UploadError{Kind: InvalidChunkNumber}
)

func NewUploadError(kind UploadErrorKind, format string, args ...interface{}) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapUploadError attaches the underlying cause, typically a filesystem error
func WrapUploadError(kind UploadErrorKind, err error, format string, args ...interface{}) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewMissingChunkError(identifier string, seq int) *UploadError {
	return &UploadError{Kind: MissingChunk, Chunk: seq, Message: fmt.Sprintf("chunk %d of upload %s is missing", seq, identifier)}
}

func (e *UploadError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func (e *UploadError) Is(target error) bool {
	t, ok := target.(*UploadError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
