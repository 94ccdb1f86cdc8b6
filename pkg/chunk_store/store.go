// Package chunk_store keeps the raw chunks of in-flight uploads, one
// directory per upload identifier with one file per 1-based chunk number.
package chunk_store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/spf13/afero"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidIdentifier reports whether id can name an upload directory
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

type Store struct {
	fs   afero.Fs
	root string
}

func NewStore(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0o750); err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating chunk root %s", root)
	}
	return &Store{fs: fs, root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Fs() afero.Fs {
	return s.fs
}

func (s *Store) dir(identifier string) (string, error) {
	if !ValidIdentifier(identifier) {
		return "", ce.NewUploadError(ce.UnknownUpload, "invalid identifier %q", identifier)
	}
	return filepath.Join(s.root, identifier), nil
}

func chunkName(seq int) string {
	return strconv.Itoa(seq)
}

func partName(seq int) string {
	return "." + strconv.Itoa(seq) + ".part"
}

// existingDir returns the directory of identifier, UnknownUpload when absent
func (s *Store) existingDir(identifier string) (string, error) {
	dir, err := s.dir(identifier)
	if err != nil {
		return "", err
	}
	info, err := s.fs.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", ce.NewUploadError(ce.UnknownUpload, "upload %s not found", identifier)
	} else if err != nil {
		return "", ce.WrapUploadError(ce.StorageUnavailable, err, "reading upload %s", identifier)
	}
	return dir, nil
}

// Initialize creates the directory of identifier. The single Mkdir makes
// creation happen exactly once, a second call fails with AlreadyInProgress.
func (s *Store) Initialize(identifier string) error {
	dir, err := s.dir(identifier)
	if err != nil {
		return err
	}
	err = s.fs.Mkdir(dir, 0o750)
	if errors.Is(err, fs.ErrExist) {
		return ce.NewUploadError(ce.AlreadyInProgress, "upload %s already initialized", identifier)
	} else if err != nil {
		return ce.WrapUploadError(ce.StorageUnavailable, err, "creating upload %s", identifier)
	}
	return nil
}

func (s *Store) Exists(identifier string) bool {
	_, err := s.existingDir(identifier)
	return err == nil
}

// ChunkExists is true only for a stored, non empty chunk
func (s *Store) ChunkExists(identifier string, seq int) (bool, error) {
	dir, err := s.existingDir(identifier)
	if err != nil {
		return false, err
	}
	if seq < 1 {
		return false, nil
	}
	info, err := s.fs.Stat(filepath.Join(dir, chunkName(seq)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, ce.WrapUploadError(ce.StorageUnavailable, err, "reading chunk %d of %s", seq, identifier)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

type storedChunk struct {
	seq  int
	size int64
}

func (s *Store) storedChunks(identifier string) ([]storedChunk, error) {
	dir, err := s.existingDir(identifier)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "listing upload %s", identifier)
	}

	chunks := []storedChunk{}
	for _, entry := range entries {
		seq, err := strconv.Atoi(entry.Name())
		if err != nil || seq < 1 || chunkName(seq) != entry.Name() {
			continue
		}
		if !entry.Mode().IsRegular() || entry.Size() == 0 {
			continue
		}
		chunks = append(chunks, storedChunk{seq: seq, size: entry.Size()})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	return chunks, nil
}

// ListUploadedChunks returns the stored chunk numbers in ascending order.
// Entries that are not chunks are ignored.
func (s *Store) ListUploadedChunks(identifier string) ([]int, error) {
	chunks, err := s.storedChunks(identifier)
	if err != nil {
		return nil, err
	}
	seqs := make([]int, 0, len(chunks))
	for _, c := range chunks {
		seqs = append(seqs, c.seq)
	}
	return seqs, nil
}

// UploadedBytes sums the sizes of the stored chunks
func (s *Store) UploadedBytes(identifier string) (int64, error) {
	chunks, err := s.storedChunks(identifier)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, c := range chunks {
		total += c.size
	}
	return total, nil
}

type readErrorRecorder struct {
	r   io.Reader
	err error
}

func (r *readErrorRecorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

// WriteChunk stores r as chunk seq, replacing a previous chunk with the same
// number. Bytes land in a part file that is renamed once complete.
func (s *Store) WriteChunk(identifier string, seq int, r io.Reader) (int64, error) {
	if seq < 1 {
		return 0, ce.NewUploadError(ce.InvalidChunkNumber, "chunk number must be at least 1, got %d", seq)
	}
	dir, err := s.existingDir(identifier)
	if err != nil {
		return 0, err
	}

	part := filepath.Join(dir, partName(seq))
	f, err := s.fs.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "creating chunk %d of %s", seq, identifier)
	}

	body := &readErrorRecorder{r: r}
	n, err := io.Copy(f, body)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.fs.Rename(part, filepath.Join(dir, chunkName(seq)))
	}
	if err != nil {
		_ = s.fs.Remove(part)
		if body.err != nil {
			return 0, fmt.Errorf("reading chunk %d of %s: %w", seq, identifier, body.err)
		}
		return 0, ce.WrapUploadError(ce.StorageUnavailable, err, "writing chunk %d of %s", seq, identifier)
	}
	return n, nil
}

// OpenChunk opens a stored chunk, MissingChunk when it is gone
func (s *Store) OpenChunk(identifier string, seq int) (io.ReadCloser, error) {
	dir, err := s.dir(identifier)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(filepath.Join(dir, chunkName(seq)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ce.NewMissingChunkError(identifier, seq)
	} else if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "opening chunk %d of %s", seq, identifier)
	}
	return f, nil
}

// Cleanup removes every chunk of identifier. A missing directory is not an error.
func (s *Store) Cleanup(identifier string) error {
	dir, err := s.dir(identifier)
	if err != nil {
		return nil
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return ce.WrapUploadError(ce.StorageUnavailable, err, "removing upload %s", identifier)
	}
	return nil
}

// ListIdentifiers returns the identifiers of every upload directory
func (s *Store) ListIdentifiers() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "listing chunk root %s", s.root)
	}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() && ValidIdentifier(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
