package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/content-services/content-uploads-backend/pkg/db"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var MigrateFlags = []cli.Flag{
	&cli.IntFlag{Name: "steps", Usage: "number of migrations to apply, all when omitted"},
}

func migrate(direction string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := db.MigrateDB(db.GetUrl(), direction, c.Int("steps")); err != nil {
			return err
		}
		log.Info().Msgf("Successfully migrated %s", direction)
		return nil
	}
}

func MigrateUpAction(c *cli.Context) error {
	return migrate("up")(c)
}

func MigrateDownAction(c *cli.Context) error {
	return migrate("down")(c)
}

const migrationTemplate = "BEGIN;\n-- your migration here\nCOMMIT;\n"

// NewMigrationFiles writes empty up and down migrations named after name into dir
func NewMigrationFiles(dir string, name string, now time.Time) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("migration name is required")
	}
	// datetime format in YYYYMMDDhhmmss - uses the reference time Mon Jan 2 15:04:05 MST 2006
	datetime := now.Format("20060102150405")

	files := []string{}
	for _, direction := range []string{"up", "down"} {
		filename := filepath.Join(dir, fmt.Sprintf("%s_%s.%s.sql", datetime, name, direction))
		if err := os.WriteFile(filename, []byte(migrationTemplate), 0o644); err != nil {
			return files, err
		}
		files = append(files, filename)
	}
	return files, nil
}

func MigrateNewAction(c *cli.Context) error {
	files, err := NewMigrationFiles(db.MigrationsDir, c.Args().First(), time.Now())
	if err != nil {
		return err
	}
	for _, f := range files {
		log.Info().Msgf("Created %s", f)
	}
	return nil
}
