package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func writeMigrations(t *testing.T, names ...string) string {
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	return dir
}

func TestMigrationVersions(t *testing.T) {
	dir := writeMigrations(t,
		"20240102000000_second.up.sql",
		"20240102000000_second.down.sql",
		"20240101000000_first.up.sql",
		"20240101000000_first.down.sql",
		"README",
	)
	versions, err := migrationVersions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000", "20240102000000"}, versions)

	assert.Equal(t, 20240101000000, previousVersion(dir, 20240102000000))
	assert.Equal(t, -1, previousVersion(dir, 20240101000000))
}

func TestCheckLatestMigrationFile(t *testing.T) {
	dir := writeMigrations(t, "20240101000000_first.up.sql", "20240102000000_second.up.sql")
	latest := filepath.Join(t.TempDir(), "migrations.latest")

	require.NoError(t, os.WriteFile(latest, []byte("20240102000000\n"), 0o600))
	assert.NoError(t, checkLatestMigrationFile(dir, latest))

	require.NoError(t, os.WriteFile(latest, []byte("20240101000000\n"), 0o600))
	assert.ErrorContains(t, checkLatestMigrationFile(dir, latest), "does not match")
}

func TestRepositoryMigrationsAreConsistent(t *testing.T) {
	assert.NoError(t, checkLatestMigrationFile(filepath.Join("..", "..", MigrationsDir), filepath.Join("..", "..", LatestMigrationFile)))
}

func TestZeroLogToGormLevel(t *testing.T) {
	assert.Equal(t, logger.Info, zeroLogToGormLevel(zerolog.DebugLevel))
	assert.Equal(t, logger.Warn, zeroLogToGormLevel(zerolog.WarnLevel))
	assert.Equal(t, logger.Error, zeroLogToGormLevel(zerolog.FatalLevel))
	assert.Equal(t, logger.Silent, zeroLogToGormLevel(zerolog.Disabled))
}
