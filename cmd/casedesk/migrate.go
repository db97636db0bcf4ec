package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"casedesk/internal/platform/config"
	"casedesk/internal/platform/logger"
	"casedesk/internal/platform/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the PostgreSQL schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Environment, cfg.LogLevel)

			db, err := postgres.Open(c.Context, c.String("database-url"))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(c.Context, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema applied")
			return nil
		},
	}
}
