package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

const (
	MigrationsDir       = "./db/migrations"
	LatestMigrationFile = "./db/migrations.latest"
)

// GetUrl Get database config and return url
func GetUrl() string {
	dbConfig := config.Get().Database
	connectStr := fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d",
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Host,
		dbConfig.Port,
	)

	if dbConfig.CACertPath == "" {
		return connectStr + " sslmode=disable"
	}
	return connectStr + fmt.Sprintf(" sslmode=verify-full sslrootcert=%s", dbConfig.CACertPath)
}

// Connect initializes global database connection, DB
func Connect() error {
	level, err := zerolog.ParseLevel(config.Get().Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	DB, err = gorm.Open(pg.Open(GetUrl()), &gorm.Config{
		Logger: NewDBLogger(DBLogConfig{
			SlowThreshold:             config.Get().Database.SlowQueryDuration,
			LogLevel:                  zeroLogToGormLevel(level),
			IgnoreRecordNotFoundError: true,
			ZeroLogger:                log.Logger,
		}),
	})
	if err != nil {
		return err
	}

	sqlDb, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDb.SetMaxOpenConns(config.Get().Database.PoolLimit)
	return nil
}

// Close closes global database connection, DB
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func setupMigration(dbURL string) (*migrate.Migrate, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not get database driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+MigrationsDir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migration instance: %w", err)
	}
	return m, nil
}

// MigrateDB runs migrations up or down with amount to run. Omit "steps" to run all migrations.
func MigrateDB(dbURL string, direction string, steps ...int) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err := checkLatestMigrationFile(MigrationsDir, LatestMigrationFile); err != nil {
		return err
	}

	m, err := setupMigration(dbURL)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	var step int
	if len(steps) > 0 {
		step = steps[0]
	}

	switch {
	case direction == "up" && step > 0:
		err = m.Steps(step)
	case direction == "up":
		err = m.Up()
	case step > 0:
		err = m.Steps(-step)
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug().Msg("No new migrations.")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to migrate")
		// Migrations run inside a transaction, so the schema is still at the
		// last good version and only the dirty flag needs clearing.
		if version, dirty, verr := m.Version(); verr == nil && dirty {
			if ferr := m.Force(previousVersion(MigrationsDir, version)); ferr != nil {
				log.Error().Err(ferr).Msg("Failed to force migration version")
			}
		}
	}
	return err
}

// migrationVersions lists the distinct numeric prefixes of the migration files, ascending
func migrationVersions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	versions := []string{}
	for _, entry := range entries {
		version, _, found := strings.Cut(entry.Name(), "_")
		if !found || entry.IsDir() || slices.Contains(versions, version) {
			continue
		}
		versions = append(versions, version)
	}
	slices.Sort(versions)
	return versions, nil
}

func previousVersion(dir string, current uint) int {
	versions, err := migrationVersions(dir)
	if err != nil {
		return -1
	}
	previous := -1
	for _, v := range versions {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			continue
		}
		if uint(n) >= current {
			break
		}
		previous = n
	}
	return previous
}

func checkLatestMigrationFile(dir string, latestFile string) error {
	versions, err := migrationVersions(dir)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %v", dir)
	}
	expected, err := os.ReadFile(latestFile)
	if err != nil {
		return err
	}
	last := versions[len(versions)-1]
	if trimmed := strings.TrimSpace(string(expected)); trimmed != last {
		return fmt.Errorf("latest migration from %v (%v) does not match found latest file (%v)", latestFile, trimmed, last)
	}
	return nil
}
