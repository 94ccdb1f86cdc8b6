package chunk_store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	newFs func(t *testing.T) (afero.Fs, string)
	fs    afero.Fs
	root  string
	store *Store
}

func TestOsStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newFs: func(t *testing.T) (afero.Fs, string) {
		return afero.NewOsFs(), filepath.Join(t.TempDir(), "chunks")
	}})
}

func TestMemStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newFs: func(t *testing.T) (afero.Fs, string) {
		return afero.NewMemMapFs(), "/uploads/chunks"
	}})
}

func (s *StoreSuite) SetupTest() {
	var err error
	s.fs, s.root = s.newFs(s.T())
	s.store, err = NewStore(s.fs, s.root)
	require.NoError(s.T(), err)
}

func (s *StoreSuite) write(id string, seq int, content string) {
	_, err := s.store.WriteChunk(id, seq, strings.NewReader(content))
	require.NoError(s.T(), err)
}

func (s *StoreSuite) TestInitializeTwice() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	assert.True(t, s.store.Exists("abc"))

	err := s.store.Initialize("abc")
	assert.ErrorIs(t, err, ce.ErrAlreadyInProgress)
}

func (s *StoreSuite) TestInvalidIdentifier() {
	t := s.T()
	for _, id := range []string{"", "../etc", "a/b", strings.Repeat("a", 129), "a b"} {
		assert.ErrorIs(t, s.store.Initialize(id), ce.ErrUnknownUpload, id)
		_, err := s.store.ListUploadedChunks(id)
		assert.ErrorIs(t, err, ce.ErrUnknownUpload, id)
	}
	assert.NoError(t, s.store.Cleanup("../etc"))
}

func (s *StoreSuite) TestUnknownUpload() {
	t := s.T()
	_, err := s.store.ChunkExists("missing", 1)
	assert.ErrorIs(t, err, ce.ErrUnknownUpload)

	_, err = s.store.ListUploadedChunks("missing")
	assert.ErrorIs(t, err, ce.ErrUnknownUpload)

	_, err = s.store.WriteChunk("missing", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ce.ErrUnknownUpload)
	assert.False(t, s.store.Exists("missing"))
}

func (s *StoreSuite) TestChunkExists() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))

	exists, err := s.store.ChunkExists("abc", 1)
	require.NoError(t, err)
	assert.False(t, exists)

	s.write("abc", 1, "11")
	exists, err = s.store.ChunkExists("abc", 1)
	require.NoError(t, err)
	assert.True(t, exists)

	// an empty placeholder does not count
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(s.root, "abc", "2"), nil, 0o640))
	exists, err = s.store.ChunkExists("abc", 2)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.store.ChunkExists("abc", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func (s *StoreSuite) TestListIgnoresStrayEntries() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	s.write("abc", 3, "33")
	s.write("abc", 1, "11")
	s.write("abc", 10, "1010")

	dir := filepath.Join(s.root, "abc")
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(dir, "notes.txt"), []byte("x"), 0o640))
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(dir, ".2.part"), []byte("x"), 0o640))
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(dir, "007"), []byte("x"), 0o640))
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(dir, "4"), nil, 0o640))
	require.NoError(t, s.fs.Mkdir(filepath.Join(dir, "5"), 0o750))

	chunks, err := s.store.ListUploadedChunks("abc")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 10}, chunks)

	total, err := s.store.UploadedBytes("abc")
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)
}

func (s *StoreSuite) TestWriteChunkOverwrites() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	s.write("abc", 1, "first")
	s.write("abc", 1, "second!")

	chunks, err := s.store.ListUploadedChunks("abc")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, chunks)

	r, err := s.store.OpenChunk("abc", 1)
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second!", string(content))

	exists, err := afero.Exists(s.fs, filepath.Join(s.root, "abc", ".1.part"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func (s *StoreSuite) TestWriteChunkInvalidNumber() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	_, err := s.store.WriteChunk("abc", 0, strings.NewReader("x"))
	assert.ErrorIs(t, err, ce.ErrInvalidChunkNumber)
}

func (s *StoreSuite) TestWriteChunkReadFailureLeavesNothing() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))

	_, err := s.store.WriteChunk("abc", 1, iotest.ErrReader(errors.New("connection reset")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	entries, err := afero.ReadDir(s.fs, filepath.Join(s.root, "abc"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func (s *StoreSuite) TestOpenMissingChunk() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	_, err := s.store.OpenChunk("abc", 2)

	var uploadErr *ce.UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, ce.MissingChunk, uploadErr.Kind)
	assert.Equal(t, 2, uploadErr.Chunk)
}

func (s *StoreSuite) TestCleanupIsIdempotent() {
	t := s.T()
	require.NoError(t, s.store.Initialize("abc"))
	s.write("abc", 1, "11")

	require.NoError(t, s.store.Cleanup("abc"))
	assert.False(t, s.store.Exists("abc"))
	assert.NoError(t, s.store.Cleanup("abc"))

	// the identifier can be used again once cleaned
	assert.NoError(t, s.store.Initialize("abc"))
}

func TestNewStoreUnwritableRoot(t *testing.T) {
	_, err := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/chunks")
	assert.ErrorIs(t, err, ce.ErrStorageUnavailable)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("0f8c2a4e9b7d4c3a8e1f5b6a7c8d9e0f"))
	assert.True(t, ValidIdentifier("my_upload-1"))
	assert.False(t, ValidIdentifier("."))
	assert.False(t, ValidIdentifier(".."))
	assert.False(t, ValidIdentifier(string(os.PathSeparator)))
}

func (s *StoreSuite) TestListIdentifiers() {
	t := s.T()
	require.NoError(t, s.store.Initialize("one"))
	require.NoError(t, s.store.Initialize("two"))
	require.NoError(t, afero.WriteFile(s.fs, filepath.Join(s.root, "stray"), []byte("x"), 0o640))
	require.NoError(t, s.fs.Mkdir(filepath.Join(s.root, "bad.name"), 0o750))

	ids, err := s.store.ListIdentifiers()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, ids)
}
