package main

import (
	"os"

	"github.com/content-services/content-uploads-backend/pkg/commands"
	"github.com/content-services/content-uploads-backend/pkg/config"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	config.Load()
	config.ConfigureLogging()

	app := &cli.App{
		Name:  "maintenance",
		Usage: "Maintenance tasks for " + config.DefaultAppName,
		Commands: []*cli.Command{
			{
				Name:   "sweep",
				Usage:  commands.SweepUsage(),
				Flags:  commands.SweepFlags,
				Action: commands.SweepAction,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Flags: commands.MigrateFlags, Action: commands.MigrateUpAction},
					{Name: "down", Flags: commands.MigrateFlags, Action: commands.MigrateDownAction},
					{Name: "new", ArgsUsage: "NAME", Usage: "Create empty up and down migrations", Action: commands.MigrateNewAction},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("maintenance task failed")
	}
}
