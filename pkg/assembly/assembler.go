// Package assembly turns a complete set of chunks, or a fully written staging
// file, into a stored file with a generated name under the base root.
package assembly

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const datedDirLayout = "2006-01-02"

// ChunkSource is the part of the chunk store the assembler reads from
type ChunkSource interface {
	ListUploadedChunks(identifier string) ([]int, error)
	OpenChunk(identifier string, seq int) (io.ReadCloser, error)
	Cleanup(identifier string) error
}

// Result describes an assembled file
type Result struct {
	Path         string
	RelativePath string
	StoredName   string
	Size         int64
	MimeType     string
	FileType     models.FileType
}

type Assembler struct {
	fs       afero.Fs
	baseRoot string
	policy   *Policy
	sniffer  Sniffer
	now      func() time.Time
}

func NewAssembler(fs afero.Fs, baseRoot string, policy *Policy, sniffer Sniffer) *Assembler {
	return &Assembler{
		fs:       fs,
		baseRoot: baseRoot,
		policy:   policy,
		sniffer:  sniffer,
		now:      time.Now,
	}
}

func (a *Assembler) BaseRoot() string {
	return a.baseRoot
}

// StoredName generates the on-disk name of a file, a dashless uuid followed by
// the lowercased extension of the original name
func StoredName(originalName string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext := Extension(originalName); ext != "" {
		name += "." + ext
	}
	return name
}

// target prepares the dated directory and names for a new file
func (a *Assembler) target(filename string) (*Result, error) {
	day := a.now().Format(datedDirLayout)
	dir := filepath.Join(a.baseRoot, day)
	if err := a.fs.MkdirAll(dir, 0o750); err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating directory %s", dir)
	}
	stored := StoredName(filename)
	return &Result{
		Path:         filepath.Join(dir, stored),
		RelativePath: day + "/" + stored,
		StoredName:   stored,
	}, nil
}

func tempPath(result *Result) string {
	return filepath.Join(filepath.Dir(result.Path), "."+result.StoredName+".tmp")
}

func (a *Assembler) remove(ctx context.Context, path string) {
	if err := a.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("could not remove file")
	}
}

// Merge concatenates chunks 1..totalChunks of identifier into a new file and
// validates its content. The chunks are removed once the file is in place.
func (a *Assembler) Merge(ctx context.Context, chunks ChunkSource, identifier string, totalChunks int, filename string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	uploaded, err := chunks.ListUploadedChunks(identifier)
	if err != nil {
		return nil, err
	}
	if totalChunks < 1 || len(uploaded) != totalChunks {
		return nil, ce.NewUploadError(ce.IncompleteUpload, "expected %d chunks, found %d", totalChunks, len(uploaded))
	}

	result, err := a.target(filename)
	if err != nil {
		return nil, err
	}
	tmp := tempPath(result)
	size, err := a.concatenate(ctx, chunks, identifier, totalChunks, tmp)
	if err == nil {
		err = a.fs.Rename(tmp, result.Path)
		if err != nil {
			err = ce.WrapUploadError(ce.StorageUnavailable, err, "renaming %s", tmp)
		}
	}
	if err != nil {
		a.remove(ctx, tmp)
		return nil, err
	}
	result.Size = size

	if err := a.validate(ctx, result, filename); err != nil {
		return nil, err
	}

	if err := chunks.Cleanup(identifier); err != nil {
		logger.Warn().Err(err).Str("identifier", identifier).Msg("could not remove chunks after merge")
	}
	logger.Info().Str("identifier", identifier).Str("path", result.RelativePath).Int64("size", size).Msg("merged upload")
	return result, nil
}

func (a *Assembler) concatenate(ctx context.Context, chunks ChunkSource, identifier string, totalChunks int, tmp string) (int64, error) {
	f, err := a.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "creating %s", tmp)
	}

	var size int64
	for seq := 1; seq <= totalChunks; seq++ {
		if err = ctx.Err(); err != nil {
			break
		}
		var n int64
		n, err = appendChunk(f, chunks, identifier, seq)
		size += n
		if err != nil {
			break
		}
	}
	if err == nil {
		if err = f.Sync(); err != nil {
			err = ce.WrapUploadError(ce.StorageUnavailable, err, "syncing %s", tmp)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = ce.WrapUploadError(ce.StorageUnavailable, cerr, "closing %s", tmp)
	}
	return size, err
}

func appendChunk(w io.Writer, chunks ChunkSource, identifier string, seq int) (int64, error) {
	r, err := chunks.OpenChunk(identifier, seq)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ce.NewMissingChunkError(identifier, seq)
	} else if err != nil {
		return 0, err
	}
	defer r.Close()
	n, err := io.Copy(w, r)
	if err != nil {
		return n, ce.WrapUploadError(ce.StorageUnavailable, err, "appending chunk %d of %s", seq, identifier)
	}
	return n, nil
}

// validate sniffs the file at result.Path and deletes it when the content is
// not allowed
func (a *Assembler) validate(ctx context.Context, result *Result, filename string) error {
	detected, err := a.sniff(result.Path)
	if err != nil {
		a.remove(ctx, result.Path)
		return err
	}
	return a.accept(ctx, result, filename, detected)
}

// accept applies the content policy to the detected type of result and
// deletes the file when it is rejected
func (a *Assembler) accept(ctx context.Context, result *Result, filename string, detected string) error {
	if err := a.policy.CheckContentType(detected, filename); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", result.RelativePath).Msg("rejected assembled file")
		a.remove(ctx, result.Path)
		return err
	}
	result.MimeType = detected
	result.FileType = models.FileTypeFromMime(detected)
	return nil
}

func (a *Assembler) sniff(path string) (string, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return "", ce.WrapUploadError(ce.StorageUnavailable, err, "opening %s", path)
	}
	defer f.Close()
	detected, err := a.sniffer.DetectType(f)
	if err != nil {
		return "", ce.WrapUploadError(ce.StorageUnavailable, err, "detecting content type of %s", path)
	}
	return detected, nil
}

// Adopt moves a fully written staging file into the base root and validates
// it like a merged file. The staged size must equal expectedSize. When the
// content cannot be sniffed the file is moved back to stagedPath.
func (a *Assembler) Adopt(ctx context.Context, stagedPath string, filename string, expectedSize int64) (*Result, error) {
	info, err := a.fs.Stat(stagedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ce.NewUploadError(ce.UnknownUpload, "staging file %s not found", filepath.Base(stagedPath))
	} else if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "reading %s", stagedPath)
	}
	if info.Size() != expectedSize {
		return nil, ce.NewUploadError(ce.SizeMismatch, "expected %d bytes, staged %d", expectedSize, info.Size())
	}

	result, err := a.target(filename)
	if err != nil {
		return nil, err
	}
	if err := a.fs.Rename(stagedPath, result.Path); err != nil {
		if err := a.copyInto(ctx, stagedPath, result); err != nil {
			return nil, err
		}
		a.remove(ctx, stagedPath)
	}
	result.Size = info.Size()

	// the upload stays complete when its content could not be read
	detected, err := a.sniff(result.Path)
	if err != nil {
		a.Restore(ctx, result, stagedPath)
		return nil, err
	}
	if err := a.accept(ctx, result, filename, detected); err != nil {
		return nil, err
	}
	return result, nil
}

// copyInto is the fallback when the staging file cannot be renamed, for
// instance across filesystems
func (a *Assembler) copyInto(ctx context.Context, src string, result *Result) error {
	tmp := tempPath(result)
	in, err := a.fs.Open(src)
	if err != nil {
		return ce.WrapUploadError(ce.StorageUnavailable, err, "opening %s", src)
	}
	defer in.Close()

	out, err := a.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return ce.WrapUploadError(ce.StorageUnavailable, err, "creating %s", tmp)
	}
	_, err = io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = a.fs.Rename(tmp, result.Path)
	}
	if err != nil {
		a.remove(ctx, tmp)
		return ce.WrapUploadError(ce.StorageUnavailable, err, "copying %s", src)
	}
	return nil
}

// Restore moves an adopted file back to its staging path so that finalizing
// can be retried. The file is deleted when it cannot be moved back.
func (a *Assembler) Restore(ctx context.Context, result *Result, stagedPath string) {
	if err := a.fs.Rename(result.Path, stagedPath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", result.RelativePath).Msg("could not restore staging file")
		a.remove(ctx, result.Path)
	}
}

// Discard deletes an assembled file whose metadata could not be recorded
func (a *Assembler) Discard(ctx context.Context, result *Result) {
	a.remove(ctx, result.Path)
}
