package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/assembly"
	"github.com/content-services/content-uploads-backend/pkg/chunk_store"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/content-services/content-uploads-backend/pkg/notifications"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChunkService implements the chunk upload flow: initialize, upload chunks
// in any order, merge.
type ChunkService struct {
	chunks    *chunk_store.Store
	assembler *assembly.Assembler
	policy    *assembly.Policy
	files     dao.FileDao
	notifier  notifications.Notifier
	metrics   *instrumentation.Metrics
}

func requireFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", ce.NewErrorResponse(http.StatusBadRequest, "Invalid filename", "filename is required")
	}
	return filename, nil
}

// Initialize validates the announced file and reserves a new identifier
func (s *ChunkService) Initialize(ctx context.Context, req api.ChunkInitializeRequest) (api.ChunkInitializeResponse, error) {
	filename, err := requireFilename(req.Filename)
	if err != nil {
		return api.ChunkInitializeResponse{}, err
	}
	if err := s.policy.CheckFilename(filename); err != nil {
		return api.ChunkInitializeResponse{}, err
	}
	if err := s.policy.CheckTotalSize(req.TotalSize); err != nil {
		return api.ChunkInitializeResponse{}, err
	}

	identifier := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.chunks.Initialize(identifier); err != nil {
		return api.ChunkInitializeResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Str("identifier", identifier).Str("filename", filename).Int64("total_size", req.TotalSize).Msg("initialized chunk upload")
	return api.ChunkInitializeResponse{
		Identifier: identifier,
		ChunkSize:  s.policy.MaxChunkSize,
		Message:    "Upload initialized",
	}, nil
}

func (s *ChunkService) ChunkExists(ctx context.Context, identifier string, seq int) (bool, error) {
	return s.chunks.ChunkExists(identifier, seq)
}

func (s *ChunkService) ListUploadedChunks(ctx context.Context, identifier string) ([]int, error) {
	return s.chunks.ListUploadedChunks(identifier)
}

// UploadChunk stores chunk seq. size is the announced size of r, checked
// against the chunk limit before anything is written.
func (s *ChunkService) UploadChunk(ctx context.Context, identifier string, seq int, size int64, r io.Reader) error {
	if err := s.policy.CheckChunkSize(size); err != nil {
		return err
	}
	n, err := s.chunks.WriteChunk(identifier, seq, r)
	if err != nil {
		return err
	}
	s.metrics.RecordChunkReceived(n)
	zerolog.Ctx(ctx).Debug().Str("identifier", identifier).Int("chunk", seq).Int64("size", n).Msg("stored chunk")
	return nil
}

// Merge assembles the chunks of req.Identifier and records the file
func (s *ChunkService) Merge(ctx context.Context, owner models.Owner, req api.ChunkMergeRequest) (api.FileResponse, error) {
	logger := zerolog.Ctx(ctx).With().Str("identifier", req.Identifier).Logger()
	filename, err := requireFilename(req.Filename)
	if err != nil {
		return api.FileResponse{}, err
	}
	if err := s.policy.CheckFilename(filename); err != nil {
		return api.FileResponse{}, err
	}

	seqs, err := s.chunks.ListUploadedChunks(req.Identifier)
	if err != nil {
		return api.FileResponse{}, err
	}
	if len(seqs) != req.TotalChunks {
		return api.FileResponse{}, ce.NewUploadError(ce.IncompleteUpload, "expected %d chunks, found %d", req.TotalChunks, len(seqs))
	}
	uploaded, err := s.chunks.UploadedBytes(req.Identifier)
	if err != nil {
		return api.FileResponse{}, err
	}
	if req.TotalSize != nil && *req.TotalSize != uploaded {
		return api.FileResponse{}, ce.NewUploadError(ce.SizeMismatch, "declared %d bytes, received %d", *req.TotalSize, uploaded)
	}
	if err := s.policy.CheckTotalSize(uploaded); err != nil {
		return api.FileResponse{}, err
	}

	result, err := s.assembler.Merge(ctx, s.chunks, req.Identifier, req.TotalChunks, filename)
	if err != nil {
		s.metrics.RecordUploadRejected(instrumentation.UploadPathChunk, err)
		return api.FileResponse{}, err
	}

	file, err := s.files.SaveFileRecord(ctx, owner, dao.FileRecord{
		UploadID:     req.Identifier,
		OriginalName: filename,
		StoredName:   result.StoredName,
		RelativePath: result.RelativePath,
		FileType:     result.FileType,
		MimeType:     result.MimeType,
		Size:         result.Size,
	})
	if err != nil {
		s.assembler.Discard(ctx, result)
		return api.FileResponse{}, fmt.Errorf("recording merged upload %s: %w", req.Identifier, err)
	}

	s.metrics.RecordUploadCompleted(instrumentation.UploadPathChunk, result.Size)
	err = s.notifier.FileUploaded(ctx, owner, file)
	if err != nil {
		logger.Error().Err(err).Msg("could not send upload notification")
	}
	s.metrics.RecordNotificationStatus(err == nil)
	return file, nil
}

// Abort drops every chunk of identifier
func (s *ChunkService) Abort(ctx context.Context, identifier string) error {
	if !s.chunks.Exists(identifier) {
		return ce.NewUploadError(ce.UnknownUpload, "upload %s not found", identifier)
	}
	return s.chunks.Cleanup(identifier)
}
