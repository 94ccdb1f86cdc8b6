// Package resumable implements offset based resumable uploads. Each session
// appends to a staging file; once the offset reaches the declared length the
// staging file is handed to the assembler and recorded.
package resumable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/assembly"
	"github.com/content-services/content-uploads-backend/pkg/cache"
	"github.com/content-services/content-uploads-backend/pkg/chunk_store"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/content-services/content-uploads-backend/pkg/notifications"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const StagingDirName = "resumable"

// SessionStore persists upload sessions. A missing session is reported
// with cache.NotFound.
type SessionStore interface {
	GetUploadSession(ctx context.Context, id string) (*models.UploadSession, error)
	SetUploadSession(ctx context.Context, session *models.UploadSession, ttl time.Duration) error
	DeleteUploadSession(ctx context.Context, id string) error
	ListUploadSessions(ctx context.Context) ([]models.UploadSession, error)
}

type Options struct {
	Fs         afero.Fs
	TempRoot   string
	Sessions   SessionStore
	Assembler  *assembly.Assembler
	Policy     *assembly.Policy
	Files      dao.FileDao
	Notifier   notifications.Notifier
	Expiration time.Duration
	Metrics    *instrumentation.Metrics
}

type Adapter struct {
	fs         afero.Fs
	stagingDir string
	sessions   SessionStore
	assembler  *assembly.Assembler
	policy     *assembly.Policy
	files      dao.FileDao
	notifier   notifications.Notifier
	expiration time.Duration
	metrics    *instrumentation.Metrics
	now        func() time.Time
}

// AppendResult is the outcome of an accepted PATCH
type AppendResult struct {
	Session *models.UploadSession
	// Replayed is set when the range had already been applied
	Replayed bool
	// File is set once the upload completed and was recorded
	File *api.FileResponse
}

func NewAdapter(opts Options) (*Adapter, error) {
	stagingDir := filepath.Join(opts.TempRoot, StagingDirName)
	if err := opts.Fs.MkdirAll(stagingDir, 0o750); err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating staging directory %s", stagingDir)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNoopNotifier()
	}
	return &Adapter{
		fs:         opts.Fs,
		stagingDir: stagingDir,
		sessions:   opts.Sessions,
		assembler:  opts.Assembler,
		policy:     opts.Policy,
		files:      opts.Files,
		notifier:   notifier,
		expiration: opts.Expiration,
		metrics:    opts.Metrics,
		now:        time.Now,
	}, nil
}

// StagingPath is where the bytes of upload id accumulate
func (a *Adapter) StagingPath(id string) string {
	return filepath.Join(a.stagingDir, id+".part")
}

func (a *Adapter) MaxSize() int64 {
	return a.policy.MaxFileSize
}

func (a *Adapter) Create(ctx context.Context, owner models.Owner, length int64, metadata map[string]string) (*models.UploadSession, error) {
	if length < 0 {
		return nil, ce.NewErrorResponse(http.StatusBadRequest, "Invalid upload length", fmt.Sprintf("upload length %d is negative", length))
	}
	filename := strings.TrimSpace(metadata[models.MetadataFilename])
	if filename == "" {
		return nil, ce.NewErrorResponse(http.StatusBadRequest, "Invalid upload metadata", "filename metadata is required")
	}
	if err := a.policy.CheckFilename(filename); err != nil {
		return nil, err
	}
	if err := a.policy.CheckTotalSize(length); err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	staged, err := a.fs.OpenFile(a.StagingPath(id), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating staging file for %s", id)
	}
	if err := staged.Close(); err != nil {
		a.removeStaging(ctx, id)
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating staging file for %s", id)
	}

	now := a.now()
	session := &models.UploadSession{
		ID:        id,
		Length:    length,
		Offset:    0,
		Metadata:  metadata,
		OrgID:     owner.OrgID,
		AccountID: owner.AccountID,
		UserID:    owner.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(a.expiration),
	}
	if err := a.sessions.SetUploadSession(ctx, session, a.expiration); err != nil {
		a.removeStaging(ctx, id)
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "storing session %s", id)
	}
	zerolog.Ctx(ctx).Info().Str("upload_id", id).Int64("length", length).Msg("created upload session")
	return session, nil
}

// Status returns the session of id, UnknownUpload when it is missing or
// belongs to another organization
func (a *Adapter) Status(ctx context.Context, owner models.Owner, id string) (*models.UploadSession, error) {
	if !chunk_store.ValidIdentifier(id) {
		return nil, ce.NewUploadError(ce.UnknownUpload, "upload %s not found", id)
	}
	session, err := a.sessions.GetUploadSession(ctx, id)
	if errors.Is(err, cache.NotFound) {
		return nil, ce.NewUploadError(ce.UnknownUpload, "upload %s not found", id)
	} else if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "reading session %s", id)
	}
	if !session.OwnedBy(owner) {
		return nil, ce.NewUploadError(ce.UnknownUpload, "upload %s not found", id)
	}
	return session, nil
}

// Append writes body at offset. contentLength is the size of body, negative
// when unknown. A range that was already applied is accepted again without
// any change, also after the upload was recorded. The upload is finalized
// when the last byte arrives.
func (a *Adapter) Append(ctx context.Context, owner models.Owner, id string, offset int64, body io.Reader, contentLength int64) (*AppendResult, error) {
	session, err := a.Status(ctx, owner, id)
	if errors.Is(err, ce.ErrUnknownUpload) && contentLength >= 0 {
		return a.replayCompleted(ctx, owner, id, offset, contentLength, err)
	} else if err != nil {
		return nil, err
	}

	// A replay must name its length; a body of unknown size at an earlier
	// offset is a conflict.
	current := session.Offset
	switch {
	case offset < current && contentLength >= 0 && contentLength <= current-offset:
		return &AppendResult{Session: session, Replayed: true}, nil
	case offset != current:
		return nil, ce.NewUploadError(ce.OffsetMismatch, "expected offset %d, got %d", current, offset)
	}

	remaining := session.Length - current
	if contentLength > remaining {
		return nil, ce.NewUploadError(ce.SizeLimitExceeded, "%d bytes exceed the %d remaining bytes of the upload", contentLength, remaining)
	}

	written, writeErr := a.write(id, current, body, remaining)
	if written > 0 {
		session.Offset += written
		session.UpdatedAt = a.now()
		session.ExpiresAt = session.UpdatedAt.Add(a.expiration)
		if err := a.sessions.SetUploadSession(ctx, session, a.expiration); err != nil {
			return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "storing session %s", id)
		}
	}
	if writeErr != nil {
		return nil, writeErr
	}

	result := &AppendResult{Session: session}
	if session.IsComplete() {
		file, err := a.finalize(ctx, session)
		if err != nil {
			return nil, err
		}
		result.File = file
	}
	return result, nil
}

// replayCompleted accepts again a range of an upload that was already
// recorded, so that a client retrying its final PATCH sees the same outcome.
// unknown is returned when no such record exists.
func (a *Adapter) replayCompleted(ctx context.Context, owner models.Owner, id string, offset, contentLength int64, unknown error) (*AppendResult, error) {
	file, err := a.recorded(ctx, owner, id, unknown)
	if err != nil {
		return nil, err
	}
	if offset >= file.FileSize || contentLength > file.FileSize-offset {
		return nil, ce.NewUploadError(ce.OffsetMismatch, "upload %s is complete at offset %d, got %d", id, file.FileSize, offset)
	}
	session := &models.UploadSession{
		ID:        id,
		Length:    file.FileSize,
		Offset:    file.FileSize,
		Metadata:  map[string]string{models.MetadataFilename: file.FileName},
		OrgID:     owner.OrgID,
		AccountID: owner.AccountID,
		UserID:    owner.UserID,
		CreatedAt: file.CreatedAt,
		UpdatedAt: file.CreatedAt,
		ExpiresAt: file.CreatedAt,
	}
	return &AppendResult{Session: session, Replayed: true, File: file}, nil
}

// recorded returns the file stored for upload id, or unknown when there is
// none
func (a *Adapter) recorded(ctx context.Context, owner models.Owner, id string, unknown error) (*api.FileResponse, error) {
	if a.files == nil || !chunk_store.ValidIdentifier(id) {
		return nil, unknown
	}
	file, err := a.files.FetchByUploadID(ctx, owner.OrgID, id)
	if ce.IsNotFound(err) {
		return nil, unknown
	} else if err != nil {
		return nil, err
	}
	return &file, nil
}

// write appends at most remaining bytes of body to the staging file at
// offset and returns the count of bytes synced to disk. Excess bytes undo
// the whole write.
func (a *Adapter) write(id string, offset int64, body io.Reader, remaining int64) (int64, error) {
	f, err := a.fs.OpenFile(a.StagingPath(id), os.O_WRONLY, 0o640)
	if err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "opening staging file of %s", id)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "seeking staging file of %s", id)
	}

	n, copyErr := io.Copy(f, io.LimitReader(body, remaining+1))
	if n > remaining {
		if err := f.Truncate(offset); err != nil {
			return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "truncating staging file of %s", id)
		}
		return 0, ce.NewUploadError(ce.SizeLimitExceeded, "body exceeds the %d remaining bytes of the upload", remaining)
	}
	if err := f.Sync(); err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "syncing staging file of %s", id)
	}
	if copyErr != nil {
		return n, fmt.Errorf("writing upload %s: %w", id, copyErr)
	}
	return n, nil
}

// Finalize turns a complete session into a stored and recorded file
func (a *Adapter) Finalize(ctx context.Context, owner models.Owner, id string) (*api.FileResponse, error) {
	session, err := a.Status(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return a.finalize(ctx, session)
}

func (a *Adapter) finalize(ctx context.Context, session *models.UploadSession) (*api.FileResponse, error) {
	logger := zerolog.Ctx(ctx).With().Str("upload_id", session.ID).Logger()
	if !session.IsComplete() {
		return nil, ce.NewUploadError(ce.IncompleteUpload, "received %d of %d bytes", session.Offset, session.Length)
	}

	staged := a.StagingPath(session.ID)
	result, err := a.assembler.Adopt(ctx, staged, session.Filename(), session.Length)
	if errors.Is(err, ce.ErrSizeMismatch) || errors.Is(err, ce.ErrRejectedContentType) {
		logger.Warn().Err(err).Msg("discarding upload session")
		a.metrics.RecordUploadRejected(instrumentation.UploadPathResumable, err)
		a.discard(ctx, session.ID)
		return nil, err
	} else if err != nil {
		a.metrics.RecordUploadRejected(instrumentation.UploadPathResumable, err)
		return nil, err
	}

	file, err := a.files.SaveFileRecord(ctx, session.Owner(), dao.FileRecord{
		UploadID:     session.ID,
		OriginalName: session.Filename(),
		StoredName:   result.StoredName,
		RelativePath: result.RelativePath,
		FileType:     result.FileType,
		MimeType:     result.MimeType,
		Size:         result.Size,
	})
	if err != nil {
		a.assembler.Restore(ctx, result, staged)
		return nil, err
	}

	if err := a.sessions.DeleteUploadSession(ctx, session.ID); err != nil {
		logger.Error().Err(err).Msg("could not delete upload session")
	}
	a.metrics.RecordUploadCompleted(instrumentation.UploadPathResumable, result.Size)
	err = a.notifier.FileUploaded(ctx, session.Owner(), file)
	if err != nil {
		logger.Error().Err(err).Msg("could not send upload notification")
	}
	a.metrics.RecordNotificationStatus(err == nil)
	logger.Info().Str("file_uuid", file.UUID).Msg("completed resumable upload")
	return &file, nil
}

// Process finalizes a complete upload. An upload already recorded is
// returned again.
func (a *Adapter) Process(ctx context.Context, owner models.Owner, id string) (*api.FileResponse, error) {
	session, err := a.Status(ctx, owner, id)
	if err == nil {
		return a.finalize(ctx, session)
	}
	if !errors.Is(err, ce.ErrUnknownUpload) {
		return nil, err
	}
	return a.recorded(ctx, owner, id, err)
}

// Terminate abandons an upload
func (a *Adapter) Terminate(ctx context.Context, owner models.Owner, id string) error {
	if _, err := a.Status(ctx, owner, id); err != nil {
		return err
	}
	if err := a.sessions.DeleteUploadSession(ctx, id); err != nil {
		return ce.WrapUploadError(ce.StorageUnavailable, err, "deleting session %s", id)
	}
	a.removeStaging(ctx, id)
	return nil
}

// Purge drops the sessions not updated since before, with their staging
// files, and returns how many were dropped
func (a *Adapter) Purge(ctx context.Context, before time.Time) (int, error) {
	logger := zerolog.Ctx(ctx)
	sessions, err := a.sessions.ListUploadSessions(ctx)
	if err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "listing sessions")
	}

	purged := 0
	var errs []error
	for _, session := range sessions {
		if !session.UpdatedAt.Before(before) {
			continue
		}
		if err := a.sessions.DeleteUploadSession(ctx, session.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		a.removeStaging(ctx, session.ID)
		logger.Debug().Str("upload_id", session.ID).Msg("purged expired upload session")
		purged++
	}
	return purged, errors.Join(errs...)
}

func (a *Adapter) discard(ctx context.Context, id string) {
	if err := a.sessions.DeleteUploadSession(ctx, id); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("upload_id", id).Msg("could not delete upload session")
	}
	a.removeStaging(ctx, id)
}

func (a *Adapter) removeStaging(ctx context.Context, id string) {
	path := a.StagingPath(id)
	if err := a.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("could not remove staging file")
	}
}
